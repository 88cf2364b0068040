package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/toko-pos/internal/analytics"
	"github.com/noah-isme/toko-pos/internal/app"
	"github.com/noah-isme/toko-pos/internal/auth"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/config"
	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/health"
	"github.com/noah-isme/toko-pos/internal/invoice"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/printjob"
	"github.com/noah-isme/toko-pos/internal/ratelimit"
	"github.com/noah-isme/toko-pos/internal/receipt"
	"github.com/noah-isme/toko-pos/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNS, prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName: "pos-api",
			Endpoint:    cfg.OTLPEndpoint,
			Environment: cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.TracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	pool, err := app.OpenPostgres(ctx, app.PostgresOptions{URL: cfg.DatabaseURL, AppName: "pos-api"})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	queries := db.New(pool)
	defer pool.Close()

	redisClient, err := app.OpenRedis(ctx, cfg.RedisURL, true)
	if err != nil {
		logger.Fatal().Err(err).Msg("open redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for print queue")
	}
	taskClient := asynq.NewClient(asynqOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close print queue client")
		}
	}()
	printQueue := printjob.Enqueuer{Client: taskClient, Queue: printjob.DefaultQueue}

	analyticsSvc := &analytics.Service{Q: queries, R: redisClient, TTL: cfg.StatsCacheTTL, Location: cfg.Location}
	bus := &events.Bus{
		Store:     events.PGStore{Queries: queries},
		Scheduler: printjob.AutoPrint{Queue: printQueue, Enabled: cfg.PrintOnSave},
		Notifiers: []events.Notifier{analyticsSvc.Notifier()},
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Queries:     queries,
		Cache:       catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Validator:   validator.New(),
		Events:      bus,
		Logger:      logger,
		SearchLimit: cfg.CatalogSearchLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	invoiceSvc, err := invoice.NewService(invoice.Config{
		Store:        invoice.PGStore{Pool: pool, Q: queries},
		Events:       bus,
		Logger:       logger,
		Location:     cfg.Location,
		CustomerName: cfg.WalkInCustomerName,
		StoreHeader: receipt.StoreHeader{
			Name:    cfg.StoreName,
			Address: cfg.StoreAddress,
			GSTIN:   cfg.StoreGSTIN,
			Email:   cfg.StoreEmail,
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise invoice service")
	}

	authSvc, err := auth.NewService(auth.Config{Queries: queries, HashAlgo: cfg.AuthHashAlgo})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	limiterStore, err := app.NewLimiterStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter store")
	}
	apiLimiter, err := app.NewAPILimiter(limiterStore, cfg.APIRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise api rate limiter")
	}
	loginGuard := ratelimit.Guard{
		Window: ratelimit.Window{
			Client: redisClient,
			Prefix: "pos:login",
			Size:   cfg.LoginRateLimitWindow,
			Max:    cfg.LoginRateLimitMax,
		},
		Key: ratelimit.ClientIPKey("login"),
	}

	router := app.NewRouter(app.RouterConfig{
		Handlers: app.Handlers{
			Catalog:   catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc, Logger: logger}),
			Invoice:   invoice.NewHandler(invoice.HandlerConfig{Service: invoiceSvc, Print: printQueue, Logger: logger}),
			Analytics: &analytics.Handler{Svc: analyticsSvc, Logger: logger},
			Auth:      &auth.Handler{Service: authSvc, Logger: logger},
			Health:    health.Handler{Checker: health.Deps{DB: pool, Redis: redisClient}},
			Metrics:   promhttp.Handler(),
		},
		Logger:       logger,
		HTTPMetrics:  obs.NewHTTPMetrics(cfg.MetricsNS, prometheus.DefaultRegisterer),
		Tracing:      cfg.TracingEnabled,
		Headers:      security.Headers{Enable: true, NoStore: true, EnableHSTS: cfg.AppEnv == "production"},
		BodyLimit:    cfg.BodyLimitBytes,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		APILimiter:   apiLimiter,
		LoginLimiter: loginGuard.Middleware,
		Idempotency:  common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}.Middleware,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}
