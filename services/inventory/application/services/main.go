package services

import (
	"github.com/ghuser/hemotrack/pkg/app"
	"github.com/ghuser/hemotrack/pkg/cache"
	"github.com/ghuser/hemotrack/pkg/logger"
	"github.com/ghuser/hemotrack/services/inventory/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Inventory   *InventoryService
	Aggregation *AggregationService
	Log         logger.Logger
}

// New wires all inventory application services with infrastructure from the
// Application container.
func New(a *app.Application) *Services {
	repo := postgres.NewUnitRepository(a.Db, a.EventBus)
	donors := postgres.NewDonorRepository(a.Db)

	var summaryCache *cache.SummaryCache
	if a.Redis != nil {
		summaryCache = cache.NewSummaryCache(a.Redis)
	}

	return &Services{
		Inventory: NewInventoryService(repo, donors, a.Logger, nil),
		Aggregation: NewAggregationService(repo, summaryCache, a.Logger, nil,
			a.Cfg.InventoryCriticalThreshold, a.Cfg.InventoryLowThreshold),
		Log: a.Logger,
	}
}
