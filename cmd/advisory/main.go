package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crop-advisory-service/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/crop-advisory-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crop-advisory-service/internal/adapter/kafka"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/knowledge"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/sqlite"
	"github.com/couchcryptid/crop-advisory-service/internal/adapter/weather"
	"github.com/couchcryptid/crop-advisory-service/internal/alerting"
	"github.com/couchcryptid/crop-advisory-service/internal/config"
	"github.com/couchcryptid/crop-advisory-service/internal/cultivation"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	calendar := domain.DefaultCalendar()
	risks := domain.DefaultRiskModel()

	store := knowledge.NewStore(cfg.KnowledgeDir, logger)
	if cfg.KnowledgeBootstrap {
		if _, err := store.Bootstrap(ctx, calendar, risks); err != nil {
			logger.Error("knowledge bootstrap failed", "dir", cfg.KnowledgeDir, "error", err)
			os.Exit(1)
		}
	}

	// Cultivation state: SQLite when DB_PATH is set, otherwise in memory.
	var (
		repo   cultivation.Repository = cultivation.NewMemoryRepository()
		db     *sqlite.Repository
		checks readiness
	)
	if cfg.DBPath != "" {
		db, err = sqlite.Open(cfg.DBPath, logger)
		if err != nil {
			logger.Error("failed to open state database", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		repo = db
		checks = append(checks, checkFunc(db.Ping))
		logger.Info("sqlite state store enabled", "path", cfg.DBPath)
	} else {
		logger.Warn("DB_PATH is empty, cultivation state will not survive restarts")
	}

	var provider domain.WeatherProvider = weather.NewSimulator()
	if cfg.WeatherProvider == "open-meteo" {
		provider = weather.NewClient(cfg.WeatherAPIURL, cfg.WeatherTimeout, map[string]weather.Coordinates{
			cfg.WeatherRegion: {Lat: cfg.WeatherLatitude, Lon: cfg.WeatherLongitude},
		}, logger)
	}
	provider = weather.NewCachedProvider(provider, cfg.WeatherCacheTTL, cfg.WeatherCacheSize, clockwork.NewRealClock(), metrics)
	logger.Info("weather provider configured", "provider", cfg.WeatherProvider, "region", cfg.WeatherRegion, "cache_ttl", cfg.WeatherCacheTTL)

	opts := []cultivation.Option{cultivation.WithRegion(cfg.WeatherRegion)}

	// Initialize enrichment (feature-flagged via GEMINI_ENABLED / GEMINI_API_KEY).
	var genClient *gemini.Client
	if cfg.GeminiEnabled {
		genClient, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		enricher := gemini.NewEnricher(genClient, logger, metrics)
		opts = append(opts, cultivation.WithLearner(enricher), cultivation.WithTrends(enricher))
		metrics.EnrichmentEnabled.Set(1)
		logger.Info("gemini enrichment enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("gemini enrichment disabled")
	}

	var (
		writer    *kafkaadapter.Writer
		publisher domain.EventPublisher
	)
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		opts = append(opts, cultivation.WithEvents(writer))
		logger.Info("event publishing enabled", "brokers", cfg.KafkaBrokers, "events_topic", cfg.KafkaEventsTopic, "alerts_topic", cfg.KafkaAlertsTopic)
	} else {
		logger.Info("event publishing disabled")
	}

	manager := cultivation.NewManager(repo, store, calendar, logger, metrics, opts...)

	minLevel, err := domain.ParseRiskLevel(cfg.AlertMinLevel)
	if err != nil {
		logger.Error("invalid alert level", "error", err)
		os.Exit(1)
	}
	sweeper := alerting.New(risks, provider, publisher, alerting.Settings{
		Region:   cfg.WeatherRegion,
		MinLevel: minLevel,
		Interval: cfg.AlertSweepInterval,
	}, clockwork.NewRealClock(), logger, metrics)
	checks = append(checks, sweeper)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Cultivation: manager,
		Calendar:    calendar,
		Risks:       risks,
		Advisor:     domain.NewAdvisor(calendar, risks),
		Weather:     provider,
		Knowledge:   store,
		Alerts:      sweeper,
		Region:      cfg.WeatherRegion,
	}, checks, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start risk sweep.
	go func() {
		if err := sweeper.Run(ctx); err != nil {
			logger.Error("alert sweep error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if genClient != nil {
		if err := genClient.Close(); err != nil {
			logger.Error("gemini client close error", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("state database close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// readiness is ready when every check passes.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

type checkFunc func(ctx context.Context) error

func (f checkFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }
