package jobs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/richxcame/langsheet/internal/progress"
	"github.com/richxcame/langsheet/pkg/common"
	"github.com/richxcame/langsheet/pkg/logger"
	"github.com/richxcame/langsheet/pkg/middleware"
	"github.com/richxcame/langsheet/pkg/storage"
	"github.com/richxcame/langsheet/pkg/websocket"
	"go.uber.org/zap"
)

// MessageTypeProgress tags progress snapshots on the websocket.
const MessageTypeProgress = "progress"

const snapshotTimeout = 2 * time.Second

var allowedUploadTypes = []string{
	"text/csv",
	"text/plain",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

const targetField = "translation_target"

// translateForm carries the target profile. The field must be present; an
// empty value selects the default profile.
type translateForm struct {
	Target string `form:"translation_target" validate:"max=64,profile_name"`
}

// Handler exposes the job service over HTTP.
type Handler struct {
	service  *Service
	hub      *websocket.Hub
	upgrader gws.Upgrader
}

// NewHandler creates the HTTP handler. allowedOrigins limits websocket
// upgrades; empty or "*" allows any origin.
func NewHandler(service *Service, hub *websocket.Hub, allowedOrigins []string) *Handler {
	h := &Handler{
		service: service,
		hub:     hub,
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}

	if hub != nil {
		hub.RegisterHandler(MessageTypeProgress, h.sendSnapshot)
	}
	return h
}

// RouteOptions adds per-route middleware.
type RouteOptions struct {
	Translate []gin.HandlerFunc
	Progress  []gin.HandlerFunc
	Download  []gin.HandlerFunc
}

// RegisterRoutes mounts the job endpoints on r.
func (h *Handler) RegisterRoutes(r gin.IRoutes, opts RouteOptions) {
	r.POST("/translate", chain(opts.Translate, h.Translate)...)
	r.GET("/progress", chain(opts.Progress, h.GetProgress)...)
	r.GET("/download", chain(opts.Download, h.Download)...)
	if h.hub != nil {
		r.GET("/progress/ws", h.StreamProgress)
	}
}

// Translate accepts a sheet upload and starts a job.
func (h *Handler) Translate(c *gin.Context) {
	var form translateForm
	if !middleware.ValidateAndBindForm(c, &form) {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			common.ErrorResponse(c, http.StatusRequestEntityTooLarge, "uploaded file is too large")
			return
		}
		common.ErrorResponse(c, http.StatusBadRequest, "No file part")
		return
	}
	if fileHeader.Filename == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "No selected file")
		return
	}
	if _, ok := c.GetPostForm(targetField); !ok {
		common.ErrorResponse(c, http.StatusBadRequest, "No "+targetField+" field")
		return
	}
	if ext := filepath.Ext(fileHeader.Filename); ext != "" &&
		!storage.ValidateMimeType(storage.GetMimeTypeFromExtension(fileHeader.Filename), allowedUploadTypes) {
		common.ErrorResponse(c, http.StatusBadRequest, "unsupported file type "+ext)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError("could not open uploaded file", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError("could not read uploaded file", err))
		return
	}

	job, err := h.service.Start(c.Request.Context(), StartRequest{
		Filename: fileHeader.Filename,
		Content:  content,
		Target:   form.Target,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Translation started",
		"job_id":  job.ID,
		"profile": job.Profile,
		"rows":    job.Rows,
	})
}

// GetProgress returns the progress record as a flat JSON object.
func (h *Handler) GetProgress(c *gin.Context) {
	p, err := h.service.Progress(c.Request.Context())
	if err != nil {
		h.respondError(c, common.NewServiceUnavailableError("progress unavailable", err))
		return
	}
	c.JSON(http.StatusOK, p)
}

// Download streams the latest output file as an attachment.
func (h *Handler) Download(c *gin.Context) {
	rc, filename, err := h.service.Download(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoFile) {
			common.ErrorResponse(c, http.StatusNotFound, "No file to download")
			return
		}
		h.respondError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		logger.WithContext(c.Request.Context()).Warn("download interrupted",
			zap.String("filename", filename),
			zap.Error(err),
		)
	}
}

// StreamProgress upgrades to a websocket that receives the current snapshot
// and every change after it. The server closes the socket once the job is
// done.
func (h *Handler) StreamProgress(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithContext(c.Request.Context()).Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(uuid.New().String(), conn, h.hub, logger.WithContext(c.Request.Context()))
	if !h.hub.RegisterClient(client) {
		conn.Close()
		return
	}

	h.sendSnapshot(client, nil)

	go client.WritePump()
	client.ReadPump()
}

func (h *Handler) sendSnapshot(client *websocket.Client, _ *websocket.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	p, err := h.service.Progress(ctx)
	if err != nil {
		return
	}
	client.SendMessage(progressMessage(p))
}

func (h *Handler) respondError(c *gin.Context, err error) {
	if appErr, ok := common.AsAppError(err); ok {
		if appErr.Code >= http.StatusInternalServerError {
			logger.WithContext(c.Request.Context()).Error("request failed", zap.Error(err))
		}
		common.AppErrorResponse(c, appErr)
		return
	}
	logger.WithContext(c.Request.Context()).Error("request failed", zap.Error(err))
	common.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
}

func progressMessage(p progress.Progress) *websocket.Message {
	return &websocket.Message{Type: MessageTypeProgress, Data: p, Final: p.Done()}
}

// HubPublisher broadcasts progress snapshots to every websocket client.
type HubPublisher struct {
	Hub *websocket.Hub
}

// Publish implements Publisher.
func (p HubPublisher) Publish(snapshot progress.Progress) {
	p.Hub.SendToAll(progressMessage(snapshot))
}

func chain(mws []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mws)+1)
	return append(append(out, mws...), handler)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		if set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
