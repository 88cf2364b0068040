package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/app"
	"github.com/noah-isme/toko-pos/internal/config"
	"github.com/noah-isme/toko-pos/internal/db"
	"github.com/noah-isme/toko-pos/internal/invoice"
	"github.com/noah-isme/toko-pos/internal/lock"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/printjob"
	"github.com/noah-isme/toko-pos/internal/receipt"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNS, prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName: "pos-worker",
			Endpoint:    cfg.OTLPEndpoint,
			Environment: cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	pool, err := app.OpenPostgres(ctx, app.PostgresOptions{URL: cfg.DatabaseURL, AppName: "pos-worker", MaxConns: int32(cfg.WorkerConcurrency + 1)})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	queries := db.New(pool)
	defer pool.Close()

	redisClient, err := app.OpenRedis(ctx, cfg.RedisURL, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("open redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	printer, err := receipt.NewPrinterFromConfig(cfg.PrinterKind, cfg.PrinterUSBPath, cfg.PrinterAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure printer")
	}
	defer func() { _ = printer.Close() }()

	invoiceSvc, err := invoice.NewService(invoice.Config{
		Store:        invoice.PGStore{Pool: pool, Q: queries},
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

	target := cfg.PrinterAddr
	if cfg.PrinterKind == "usb" {
		target = cfg.PrinterUSBPath
	}
	worker := printjob.Worker{
		Receipts: invoiceSvc,
		Printer:  printer,
		Width:    cfg.PrinterWidth,
		Locker:   lock.Locker{Client: redisClient},
		LockKey:  lock.PrinterKey(target),
		LockTTL:  30 * time.Second,
		Breaker:  resilience.NewBreaker(3, 0.5, 30*time.Second).WithTarget("printer").WithLogger(logger),
		Logger:   logger,
	}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis uri for print queue")
	}
	srv := asynq.NewServer(asynqOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{printjob.DefaultQueue: 1},
		Logger:      asynqLogger{logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn().Err(err).Str("task", task.Type()).Msg("print task failed")
		}),
	})

	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics listener stopped")
		}
	}()

	logger.Info().Str("printer", cfg.PrinterKind).Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Start(worker.Mux()); err != nil {
		logger.Fatal().Err(err).Msg("start print worker")
	}

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger routes asynq's internal logging through zerolog.
type asynqLogger struct {
	logger zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
