package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/langsheet/internal/jobs"
	"github.com/richxcame/langsheet/pkg/common"
	"github.com/richxcame/langsheet/pkg/config"
	"github.com/richxcame/langsheet/pkg/errortracking"
	"github.com/richxcame/langsheet/pkg/middleware"
	"github.com/richxcame/langsheet/pkg/ratelimit"
	"github.com/richxcame/langsheet/pkg/tracing"
)

func newRouter(cfg *config.Config, handler *jobs.Handler, checks map[string]func() error, limiter *ratelimit.Limiter) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes()

	router.Use(middleware.CorrelationID())
	router.Use(errortracking.Middleware())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(tracing.Middleware(cfg.Server.ServiceName))
	router.Use(middleware.Metrics(cfg.Server.ServiceName))
	router.Use(middleware.SecurityHeaders())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOriginList()
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", middleware.CorrelationIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.CorrelationIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheck(cfg.Server.ServiceName, serviceVersion))
	router.GET("/health/live", common.LivenessCheck(cfg.Server.ServiceName, serviceVersion))
	router.GET("/health/ready", common.ReadinessCheck(cfg.Server.ServiceName, serviceVersion, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	translateChain := []gin.HandlerFunc{
		middleware.MaxBodySize(cfg.Server.MaxUploadBytes()),
		middleware.RequireMultipart(),
	}
	if limiter != nil {
		translateChain = append([]gin.HandlerFunc{ratelimit.Middleware(limiter)}, translateChain...)
	}

	handler.RegisterRoutes(router, jobs.RouteOptions{
		Translate: translateChain,
		Progress:  []gin.HandlerFunc{requestTimeout(cfg.Server.RequestTimeout)},
	})

	return router
}

func requestTimeout(seconds int) gin.HandlerFunc {
	d := time.Duration(seconds) * time.Second
	if d <= 0 {
		d = 10 * time.Second
	}
	return timeout.New(
		timeout.WithTimeout(d),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "request timed out")
		}),
	)
}
