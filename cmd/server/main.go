package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"demobook/internal/api"
	"demobook/internal/backup"
	"demobook/internal/config"
	"demobook/internal/database"
	"demobook/internal/events"
	"demobook/internal/logging"
	"demobook/internal/metrics"
	"demobook/internal/models"
	"demobook/internal/notify"
	"demobook/internal/service"
	"demobook/internal/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The remote mirror seeds the local file before the database opens,
	// so a fresh host starts from the last pushed state.
	synchronizer := initBackup(ctx, cfg, &logger)

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	sessions := initSessions(cfg, redisClient, &logger)

	eventBus := events.NewEventBus()
	wireNotifications(eventBus, notify.New(cfg.Mail, &logger), &logger)

	bookings := service.NewBookingService(db, eventBus, synchronizer, &logger)
	httpServer := api.NewHTTPServer(*cfg, bookings, sessions, cfg.UserTable(), &logger)

	startMetrics(ctx, cfg, &logger)

	return serve(ctx, httpServer, synchronizer, cfg, &logger)
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
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

func initBackup(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *backup.Synchronizer {
	var remote backup.RemoteStore
	if cfg.Backup.Enabled() {
		remote = backup.NewClient(cfg.Backup)
		logger.Info().Str("repository", cfg.Backup.Repository).Str("path", cfg.Backup.Path).Msg("remote backup enabled")
	} else {
		logger.Info().Msg("remote backup disabled: no repository configured")
	}

	synchronizer := backup.NewSynchronizer(cfg.Database.Path, remote, cfg.Backup.Debounce(), logger)
	synchronizer.Hydrate(ctx)
	return synchronizer
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := session.NewRedisClient(cfg.Redis)
	if err := session.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory sessions")
		client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initSessions(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) session.Repository {
	ttl := time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute
	memory := session.NewMemoryRepository(ttl)
	if redisClient == nil {
		return memory
	}
	return session.NewFailoverRepository(session.NewRedisRepository(redisClient, ttl), memory, logger)
}

// wireNotifications forwards booking-created events to the mailer on a
// detached goroutine so SMTP latency never blocks the request path.
func wireNotifications(bus *events.EventBus, mailer *notify.Mailer, logger *zerolog.Logger) {
	if mailer == nil {
		return
	}

	bus.Subscribe(events.EventBookingCreated, func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			logger.Error().Err(err).Msg("decode booking event")
			return err
		}

		go mailer.BookingCreated(models.Booking{
			ID:             payload.BookingID,
			CustomerName:   payload.CustomerName,
			Country:        payload.Country,
			ProductName:    payload.ProductName,
			Purpose:        payload.Purpose,
			DateOfEvent:    payload.DateOfEvent,
			User:           payload.User,
			CompetitorName: payload.CompetitorName,
			SubmittedBy:    payload.SubmittedBy,
			SubmittedOn:    payload.SubmittedOn,
		})
		return nil
	})
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(
	ctx context.Context,
	httpServer *api.HTTPServer,
	synchronizer *backup.Synchronizer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.Server.Port).Msg("server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	synchronizer.Wait()

	logger.Info().Msg("server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
