// Package jobs runs translation jobs in the background and serves their
// progress and output.
package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/langsheet/internal/profiles"
	"github.com/richxcame/langsheet/internal/progress"
	"github.com/richxcame/langsheet/internal/sheet"
	"github.com/richxcame/langsheet/pkg/common"
	"github.com/richxcame/langsheet/pkg/logger"
	"github.com/richxcame/langsheet/pkg/storage"
	"go.uber.org/zap"
)

// ErrNoFile is returned by Download when no output file is available.
var ErrNoFile = errors.New("jobs: no file to download")

// Translator fills one column. Implementations keep the source strings for
// anything they cannot translate and only fail when ctx ends.
type Translator interface {
	Translate(ctx context.Context, texts []string, target, source string) ([]string, error)
}

// Publisher receives a snapshot after every progress change.
type Publisher interface {
	Publish(p progress.Progress)
}

// StartRequest is an uploaded sheet and the requested target profile.
type StartRequest struct {
	Filename string
	Content  []byte
	Target   string
}

// Job describes an accepted job.
type Job struct {
	ID      string
	Target  string
	Profile string
	Rows    int
}

// Service owns the single active job. Starting a job cancels the previous one;
// only the active job may write progress.
type Service struct {
	translator Translator
	store      progress.Store
	files      storage.Storage
	profiles   *profiles.Registry
	publisher  Publisher
	now        func() time.Time

	baseCtx   context.Context
	stop      context.CancelFunc
	mu        sync.Mutex
	activeID  string
	cancelJob context.CancelFunc
	wg        sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher streams progress snapshots to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires a job service.
func NewService(translator Translator, store progress.Store, files storage.Storage, registry *profiles.Registry, opts ...Option) *Service {
	ctx, stop := context.WithCancel(context.Background())
	s := &Service{
		translator: translator,
		store:      store,
		files:      files,
		profiles:   registry,
		now:        time.Now,
		baseCtx:    ctx,
		stop:       stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start parses the upload and launches the job in the background. Parse
// failures are returned as 400 errors and leave the current job untouched.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Job, error) {
	table, err := sheet.Parse(req.Filename, bytes.NewReader(req.Content))
	if err != nil {
		return nil, common.NewBadRequestError("could not read the uploaded sheet", err)
	}

	profile := s.profiles.Resolve(req.Target)
	job := &Job{
		ID:      uuid.New().String(),
		Target:  req.Target,
		Profile: profile.Name,
		Rows:    table.Len(),
	}

	jobCtx, cancel := context.WithCancel(s.baseCtx)
	jobCtx = logger.ContextWithCorrelationID(jobCtx, logger.CorrelationIDFromContext(ctx))

	startedAt := s.now().UTC()

	s.mu.Lock()
	if s.cancelJob != nil {
		s.cancelJob()
		jobsTotal.WithLabelValues(outcomeCancelled).Inc()
		logger.WithContext(ctx).Info("cancelled running translation job", zap.String("job_id", s.activeID))
	}
	s.activeID = job.ID
	s.cancelJob = cancel

	err = s.store.Reset(ctx, progress.Progress{
		JobID:     job.ID,
		Target:    profile.Name,
		StartedAt: &startedAt,
	})
	s.mu.Unlock()

	if err != nil {
		cancel()
		return nil, common.NewInternalError("failed to reset progress", err)
	}
	s.publish(jobCtx)

	logger.WithContext(ctx).Info("translation job started",
		zap.String("job_id", job.ID),
		zap.String("target", req.Target),
		zap.String("profile", profile.Name),
		zap.String("filename", req.Filename),
		zap.Int("rows", job.Rows),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(jobCtx, job, table, profile)
	}()

	return job, nil
}

// Progress returns the shared progress record.
func (s *Service) Progress(ctx context.Context) (progress.Progress, error) {
	return s.store.Get(ctx)
}

// Download opens the most recent output file.
func (s *Service) Download(ctx context.Context) (io.ReadCloser, string, error) {
	p, err := s.store.Get(ctx)
	if err != nil {
		return nil, "", err
	}
	if p.Filename == "" {
		return nil, "", ErrNoFile
	}

	key := storage.JobOutputKey(p.JobID, p.Filename)
	rc, err := s.files.Download(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrNoFile
	}
	if err != nil {
		return nil, "", fmt.Errorf("jobs: open %s: %w", key, err)
	}
	return rc, p.Filename, nil
}

// Shutdown cancels the running job and waits for its goroutine to exit.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// update applies fn to the store only while jobID is the active job of this
// replica. It reports false for a job superseded here; the store itself
// rejects jobs superseded on other replicas.
func (s *Service) update(ctx context.Context, jobID string, fn func(ctx context.Context) error) (bool, error) {
	s.mu.Lock()
	if s.activeID != jobID {
		s.mu.Unlock()
		return false, nil
	}
	err := fn(ctx)
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx)
	}
	return true, err
}

func (s *Service) publish(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	p, err := s.store.Get(ctx)
	if err != nil {
		logger.WithContext(ctx).Warn("failed to read progress for publishing", zap.Error(err))
		return
	}
	s.publisher.Publish(p)
}
