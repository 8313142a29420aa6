package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richxcame/langsheet/internal/jobs"
	"github.com/richxcame/langsheet/internal/profiles"
	"github.com/richxcame/langsheet/internal/progress"
	"github.com/richxcame/langsheet/internal/translation"
	"github.com/richxcame/langsheet/pkg/config"
	"github.com/richxcame/langsheet/pkg/errortracking"
	"github.com/richxcame/langsheet/pkg/health"
	"github.com/richxcame/langsheet/pkg/logger"
	"github.com/richxcame/langsheet/pkg/ratelimit"
	"github.com/richxcame/langsheet/pkg/redis"
	"github.com/richxcame/langsheet/pkg/resilience"
	"github.com/richxcame/langsheet/pkg/secrets"
	"github.com/richxcame/langsheet/pkg/storage"
	"github.com/richxcame/langsheet/pkg/tracing"
	"github.com/richxcame/langsheet/pkg/websocket"
	"go.uber.org/zap"
)

const (
	serviceName     = "langsheet"
	serviceVersion  = "1.0.0"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("langsheet stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := errortracking.Init(errortracking.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Server.Environment,
		Release:     serviceName + "@" + serviceVersion,
		SampleRate:  cfg.Sentry.SampleRate,
	}); err != nil {
		logger.Warn("Failed to initialize Sentry, continuing without error tracking", zap.Error(err))
	}
	defer errortracking.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		return err
	}

	apiKey, err := resolveAPIKey(ctx, cfg)
	if err != nil {
		return err
	}

	provider, err := translation.NewTranslator(ctx, cfg.Translate, apiKey)
	if err != nil {
		return err
	}

	breaker := resilience.NewCircuitBreaker(
		resilience.BuildSettings("translate-"+provider.Name(), 60, 30, 5, 1),
		resilience.GracefulDegradation("translate"),
	)
	retry := resilience.DefaultRetryConfig()
	retry.RetryableChecker = translation.IsRetryable

	translator := translation.NewBatchTranslator(provider,
		translation.WithBatchSize(cfg.Translate.BatchSize),
		translation.WithRetry(retry),
		translation.WithBreaker(breaker),
	)

	files, err := storage.New(ctx, storage.Config{
		Provider:  storage.Provider(cfg.Storage.Provider),
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Prefix:    cfg.Storage.Prefix,
		LocalPath: cfg.Storage.LocalPath,
	})
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	registry := profiles.NewRegistry()
	if cfg.Profiles.File != "" {
		names, err := registry.LoadFile(cfg.Profiles.File)
		if err != nil {
			return err
		}
		logger.Info("Loaded target profiles", zap.String("file", cfg.Profiles.File), zap.Strings("profiles", names))
	}

	checks := map[string]func() error{}
	if pinger, ok := files.(health.Pinger); ok {
		checks["storage"] = health.PingChecker(pinger)
	}
	if cfg.Translate.Provider == "libretranslate" {
		checks["translator"] = health.HTTPEndpointChecker(cfg.Translate.Endpoint + "/languages")
	}

	var store progress.Store = progress.NewMemoryStore()
	var limiter *ratelimit.Limiter
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		store = progress.NewRedisStore(redisClient.Client, cfg.Redis.Key)
		checks["redis"] = health.RedisChecker(redisClient.Client)
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)
		}
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	service := jobs.NewService(translator, store, files, registry, jobs.WithPublisher(jobs.HubPublisher{Hub: hub}))
	handler := jobs.NewHandler(service, hub, cfg.Server.CORSOriginList())

	router := newRouter(cfg, handler, checks, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("langsheet starting",
			zap.String("port", cfg.Server.Port),
			zap.String("translator", provider.Name()),
			zap.String("storage", cfg.Storage.Provider),
			zap.Bool("redis", cfg.Redis.Enabled),
			zap.Strings("profiles", registry.Names()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down langsheet")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Translation job did not stop in time", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Tracer shutdown failed", zap.Error(err))
	}

	return nil
}

// resolveAPIKey returns the configured key, or fetches it from the secret
// manager when only a secret reference is set.
func resolveAPIKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Translate.APIKey != "" || cfg.Translate.APIKeySecret == "" {
		return cfg.Translate.APIKey, nil
	}

	manager, err := secrets.NewManager(ctx, secrets.Config{
		Provider: secrets.ProviderType(cfg.Secrets.Provider),
		CacheTTL: cfg.Secrets.CacheTTL,
		AWS:      secrets.AWSConfig{Region: cfg.Secrets.AWSRegion},
		GCP:      secrets.GCPConfig{ProjectID: cfg.Secrets.GCPProjectID},
	})
	if err != nil {
		return "", fmt.Errorf("init secrets manager: %w", err)
	}
	defer manager.Close()

	key, err := secrets.ResolveString(ctx, manager, "translate-api-key", cfg.Translate.APIKeySecret)
	if err != nil {
		return "", fmt.Errorf("resolve translation api key: %w", err)
	}
	return key, nil
}
