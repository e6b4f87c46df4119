package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/hemotrack/pkg/app"
	"github.com/ghuser/hemotrack/pkg/cache"
	"github.com/ghuser/hemotrack/pkg/config"
	"github.com/ghuser/hemotrack/pkg/database"
	"github.com/ghuser/hemotrack/pkg/events"
	"github.com/ghuser/hemotrack/pkg/logger"
	"github.com/ghuser/hemotrack/pkg/telemetry"
	unitEvents "github.com/ghuser/hemotrack/services/inventory/domain/events"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
	"github.com/ghuser/hemotrack/services/inventory/infrastructure/persistence/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx := context.Background()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer pool.Close()
	log.Info("database pool connected")

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	appConfig := &app.Application{
		Cfg:      cfg,
		Db:       pool,
		Logger:   log,
		EventBus: eventBus,
		Redis:    redisClient,
	}

	if err := registerSubscribers(ctx, appConfig); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")

	// EventBus.Close() (via defer) waits up to 30s for in-flight handlers.
	log.Info("worker stopped")
}

// registerSubscribers wires all inventory event handlers.
// Add new topics here as more contexts publish events.
func registerSubscribers(ctx context.Context, a *app.Application) error {
	topics := map[string]func(context.Context, *message.Message) error{
		unitEvents.TopicUnitCreated:       handleUnitCreated(a),
		unitEvents.TopicUnitStatusChanged: handleUnitStatusChanged(a),
	}

	for topic, handler := range topics {
		errCh, err := a.EventBus.Subscribe(ctx, topic, handler)
		if err != nil {
			return err
		}
		// Drain subscriber errors in background so the channel never blocks.
		go func(topic string, errCh <-chan error) {
			for err := range errCh {
				a.Logger.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
			}
		}(topic, errCh)
	}

	a.Logger.Info("event subscribers registered",
		"topics", []string{unitEvents.TopicUnitCreated, unitEvents.TopicUnitStatusChanged})
	return nil
}

// handleUnitCreated returns a handler for inventory.unit.created events.
// Handlers must be idempotent — EventBus retries up to 3× on failure.
// Any insert can move any dashboard's counts, so all cached summaries are dropped.
func handleUnitCreated(a *app.Application) func(context.Context, *message.Message) error {
	summaryCache := cache.NewSummaryCache(a.Redis)
	return func(ctx context.Context, msg *message.Message) error {
		var evt unitEvents.UnitCreatedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return err
		}

		if err := summaryCache.InvalidateAll(ctx); err != nil {
			// Invalidation is best-effort; the TTL bounds staleness anyway.
			a.Logger.WarnContext(ctx, "summary cache invalidation failed",
				"unit_id", evt.UnitID, "error", err)
		}

		a.Logger.InfoContext(ctx, "unit created event processed",
			"unit_id", evt.UnitID, "blood_type", evt.BloodType)
		return nil
	}
}

// handleUnitStatusChanged returns a handler for inventory.unit.status_changed
// events. Besides cache invalidation, a unit leaving Available triggers a
// low-stock check for its blood type.
func handleUnitStatusChanged(a *app.Application) func(context.Context, *message.Message) error {
	summaryCache := cache.NewSummaryCache(a.Redis)
	repo := postgres.NewUnitRepository(a.Db, a.EventBus)
	return func(ctx context.Context, msg *message.Message) error {
		var evt unitEvents.UnitStatusChangedEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return err
		}

		if err := summaryCache.InvalidateAll(ctx); err != nil {
			a.Logger.WarnContext(ctx, "summary cache invalidation failed",
				"unit_id", evt.UnitID, "error", err)
		}

		if evt.FromStatus == string(models.StatusAvailable) {
			checkLowStock(ctx, a, repo, models.BloodType(evt.BloodType))
		}

		a.Logger.InfoContext(ctx, "unit status change event processed",
			"unit_id", evt.UnitID, "from", evt.FromStatus, "to", evt.ToStatus, "actor", evt.Actor)
		return nil
	}
}

// checkLowStock warns when the available count for a blood type reaches a
// configured threshold. Best-effort: a failed count never fails the handler.
func checkLowStock(ctx context.Context, a *app.Application, store repositories.UnitStore, bloodType models.BloodType) {
	cells, err := store.Summarize(ctx, repositories.Filter{BloodType: bloodType}, time.Now().UTC())
	if err != nil {
		a.Logger.WarnContext(ctx, "low-stock check failed", "blood_type", bloodType, "error", err)
		return
	}

	available := 0
	for _, cell := range cells {
		if cell.Status == models.StatusAvailable {
			available += cell.Count
		}
	}

	switch {
	case available <= a.Cfg.InventoryCriticalThreshold:
		a.Logger.WarnContext(ctx, "blood stock critical",
			"blood_type", bloodType, "available", available, "threshold", a.Cfg.InventoryCriticalThreshold)
	case available <= a.Cfg.InventoryLowThreshold:
		a.Logger.WarnContext(ctx, "blood stock low",
			"blood_type", bloodType, "available", available, "threshold", a.Cfg.InventoryLowThreshold)
	}
}
