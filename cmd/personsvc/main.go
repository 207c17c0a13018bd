package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/firestoretut/personstore/handlers"
	"github.com/firestoretut/personstore/internal/config"
	"github.com/firestoretut/personstore/internal/database"
	"github.com/firestoretut/personstore/internal/oidc"
	"github.com/firestoretut/personstore/internal/person"
	"github.com/firestoretut/personstore/internal/person/handler"
	"github.com/firestoretut/personstore/internal/person/repository"
	"github.com/firestoretut/personstore/internal/person/service"
	"github.com/firestoretut/personstore/internal/tokens"
	"github.com/firestoretut/personstore/pkg/logger"
	"github.com/firestoretut/personstore/pkg/metrics"
	"github.com/firestoretut/personstore/pkg/middleware"
)

func main() {
	started := time.Now()
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.InitWithFormat(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = logger.Sync() }()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warnf("closing store: %v", err)
		}
	}()

	svc, err := service.New(store,
		service.WithWriteConcurrency(cfg.Repository.WriteConcurrency),
		service.WithOperationTimeout(cfg.Repository.OperationTimeout),
		service.WithLogger(logger.Named("person")),
	)
	if err != nil {
		logger.Fatalf("failed to create person service: %v", err)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	checks := map[string]handlers.Check{
		// an empty range still round-trips to the backend
		"store": func(ctx context.Context) error {
			_, err := store.Query(ctx, person.AgeRangeQuery(-1, 0))
			return err
		},
	}

	api := r.Group("")
	switch cfg.Auth.Mode {
	case config.AuthJWT:
		api.Use(middleware.AuthMiddleware(tokens.NewVerifier(cfg.Auth.JWTSecret)))
		logger.Infof("api auth: HS256 bearer tokens")
	case config.AuthOIDC:
		ver, err := database.Retry(ctx, "oidc provider", cfg.Store.ConnectRetries, time.Second, func(ctx context.Context) (*oidc.Verifier, error) {
			return oidc.NewVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
		})
		if err != nil {
			logger.Fatalf("failed to initialize OIDC verifier: %v", err)
		}
		api.Use(middleware.AuthMiddleware(ver))
		logger.Infof("api auth: OIDC tokens from %s", cfg.Auth.OIDCIssuer)
	default:
		logger.Warnf("api auth disabled (AUTH_MODE=%s)", cfg.Auth.Mode)
	}

	if cfg.RateLimit.Enabled {
		var rlClient *redis.Client
		if cfg.RateLimit.UseRedis {
			rlClient, err = database.ConnectRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Store.ConnectTimeout)
			if err != nil {
				logger.Warnf("redis rate limiter unavailable, using in-memory limiter: %v", err)
				rlClient = nil
			} else {
				defer func() { _ = rlClient.Close() }()
				checks["redis"] = func(ctx context.Context) error { return rlClient.Ping(ctx).Err() }
			}
		}
		win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		api.Use(middleware.RedisRateLimitMiddleware(rlClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win, nil))
		logger.Infof("rate limiter enabled: rps=%v burst=%d redis=%v", cfg.RateLimit.RPS, cfg.RateLimit.Burst, rlClient != nil)
	}

	handlers.RegisterHealth(r, started, 5*time.Second, checks)
	handlers.RegisterSwagger(r)
	handler.RegisterPersonRoutes(api, svc)

	if err := metrics.RegisterCollectors(prometheus.DefaultRegisterer); err != nil {
		logger.Fatalf("failed to register metrics: %v", err)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("person service listening on %s (store=%s)", addr, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("graceful shutdown failed: %v", err)
	}
}
