package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"workmarket/internal/api"
	"workmarket/internal/config"
	"workmarket/internal/database"
	"workmarket/internal/domain"
	"workmarket/internal/events"
	"workmarket/internal/export"
	"workmarket/internal/logging"
	"workmarket/internal/metrics"
	"workmarket/internal/repository"
	"workmarket/internal/service"
	"workmarket/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	coord := initCoordination(redisClient, &logger)

	bus := events.NewEventBus()
	audit := worker.NewAuditWorker(db, redisClient, worker.DefaultRetryPolicy(), &logger)
	audit.Subscribe(bus)
	go audit.Start(ctx)

	ledger := service.NewBidLedger(db, db, coord, ledgerPolicy(cfg.Workflow), &logger)
	bookings := service.NewBookingService(db, db, bus, &logger)
	gigs := service.NewGigService(db, db, ledger, bus, &logger)
	catalog := service.NewCatalogService(db, &logger)

	if cfg.Backup.Enabled {
		go database.NewBackupService(db, cfg.Backup, &logger).Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, api.NewWorkflowService(bookings, gigs), &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	var httpServer *api.HTTPServer
	if cfg.API.HTTP.Enabled {
		httpServer = api.NewHTTPServer(&cfg.API, api.Services{
			Bookings: bookings,
			Gigs:     gigs,
			Catalog:  catalog,
			Exporter: export.NewBookingExporter(cfg.Exports.Path, &logger),
			Health:   db.PingContext,
		}, &logger)
	}

	if grpcServer == nil && httpServer == nil {
		return errors.New("both http and grpc api are disabled")
	}

	serveErr := startServers(ctx, grpcServer, httpServer, cfg, &logger)

	// db и redis закрываются в defer, поэтому журнал переходов дописываем до выхода
	waitCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := audit.Wait(waitCtx); err != nil {
		logger.Warn().Err(err).Msg("audit worker did not finish draining")
	}
	return serveErr
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, *logging.Component(baseLogger, "api-main"), closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := redisClient.Ping(pingCtx).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCoordination returns the store behind bid rate limits and accept locks.
func initCoordination(redisClient *redis.Client, logger *zerolog.Logger) domain.CoordinationStore {
	memory := repository.NewMemoryCoordinationStore()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverCoordinationStore(
		repository.NewRedisCoordinationStore(redisClient, "workmarket"),
		memory,
		logger,
	)
}

func ledgerPolicy(w config.WorkflowConfig) service.LedgerPolicy {
	return service.LedgerPolicy{
		AllowLateBids:     w.AllowLateBids(),
		StrictTransitions: w.StrictGigTransitions(),
		LockTTL:           w.AcceptLockTTL,
		LockWait:          w.AcceptLockWait,
		RateLimit:         w.BidRateLimit,
		RateWindow:        w.BidRateWindow,
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	if httpServer != nil {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", grpcServer != nil).
		Bool("http", httpServer != nil).
		Int("http_port", cfg.API.HTTP.Port).
		Int("grpc_port", cfg.API.GRPC.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
