package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/cache"
	"github.com/ghuser/hemotrack/pkg/logger"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/hemotrack/services/inventory/domain/services"
)

// TrendMonths is the length of the dashboard's trailing trend series.
const TrendMonths = 12

// AlertLevel grades a low-stock alert.
type AlertLevel string

const (
	AlertCritical AlertLevel = "critical"
	AlertLow      AlertLevel = "low"
)

// TypeCounts is one dashboard row: a blood type split by effective status.
type TypeCounts struct {
	BloodType   models.BloodType `json:"blood_type"`
	Available   int              `json:"available"`
	Used        int              `json:"used"`
	Expired     int              `json:"expired"`
	Quarantined int              `json:"quarantined"`
	Total       int              `json:"total"`
}

// StockAlert flags a blood type whose available count fell to a threshold.
type StockAlert struct {
	BloodType models.BloodType `json:"blood_type"`
	Available int              `json:"available"`
	Level     AlertLevel       `json:"level"`
}

// Summary is the dashboard payload: per-type counts, low-stock alerts, the
// expiring-soon set and the trailing monthly trend. Counts use effective
// statuses, so they agree with what a list over the same filter would show.
type Summary struct {
	GeneratedAt  time.Time                  `json:"generated_at"`
	Counts       []TypeCounts               `json:"counts"`
	Totals       TypeCounts                 `json:"totals"`
	Alerts       []StockAlert               `json:"alerts"`
	ExpiringSoon []*models.UnitView         `json:"expiring_soon"`
	Monthly      []repositories.MonthBucket `json:"monthly"`
}

// AggregationService computes dashboard summaries. Results are cached briefly
// in Redis keyed by the filter fingerprint; cached payloads are unredacted, so
// redaction is applied after every cache hit as well as every fresh compute.
type AggregationService struct {
	store      repositories.UnitStore
	cache      *cache.SummaryCache // nil disables caching
	log        logger.Logger
	now        func() time.Time
	criticalAt int
	lowAt      int
}

// NewAggregationService wires the service. A nil clock defaults to UTC wall
// time; a nil cache disables the read-through layer.
func NewAggregationService(store repositories.UnitStore, sc *cache.SummaryCache, log logger.Logger, clock func() time.Time, criticalAt, lowAt int) *AggregationService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &AggregationService{
		store:      store,
		cache:      sc,
		log:        log,
		now:        clock,
		criticalAt: criticalAt,
		lowAt:      lowAt,
	}
}

// Summarize returns the dashboard summary for a filter. The filter's status
// field is ignored: the per-status split is the point of the grid.
func (s *AggregationService) Summarize(ctx context.Context, actor auth.Actor, f repositories.Filter) (*Summary, error) {
	f.Status = ""
	role := domainsvcs.ParseRole(actor.Role)

	if cached := s.fromCache(ctx, f); cached != nil {
		cached.ExpiringSoon = domainsvcs.RedactViews(cached.ExpiringSoon, role)
		return cached, nil
	}

	summary, err := s.compute(ctx, f)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, f, summary)

	// Redact a copy after caching so the cached form stays unredacted.
	out := *summary
	out.ExpiringSoon = domainsvcs.RedactViews(summary.ExpiringSoon, role)
	return &out, nil
}

func (s *AggregationService) compute(ctx context.Context, f repositories.Filter) (*Summary, error) {
	today := s.now()

	cells, err := s.store.Summarize(ctx, f, today)
	if err != nil {
		return nil, fmt.Errorf("summarize units: %w", err)
	}

	byType := make(map[models.BloodType]*TypeCounts)
	for _, cell := range cells {
		row, ok := byType[cell.BloodType]
		if !ok {
			row = &TypeCounts{BloodType: cell.BloodType}
			byType[cell.BloodType] = row
		}
		switch cell.Status {
		case models.StatusAvailable:
			row.Available += cell.Count
		case models.StatusUsed:
			row.Used += cell.Count
		case models.StatusExpired:
			row.Expired += cell.Count
		case models.StatusQuarantined:
			row.Quarantined += cell.Count
		}
		row.Total += cell.Count
	}

	allTypes := models.AllBloodTypes()
	summary := &Summary{
		GeneratedAt: today,
		Counts:      make([]TypeCounts, 0, len(allTypes)),
	}
	for _, bt := range allTypes {
		row, ok := byType[bt]
		if !ok {
			if bt == models.BloodUnknown {
				continue // no row for Unknown unless such units exist
			}
			row = &TypeCounts{BloodType: bt}
		}
		summary.Counts = append(summary.Counts, *row)
		summary.Totals.Available += row.Available
		summary.Totals.Used += row.Used
		summary.Totals.Expired += row.Expired
		summary.Totals.Quarantined += row.Quarantined
		summary.Totals.Total += row.Total

		if bt == models.BloodUnknown {
			continue
		}
		switch {
		case row.Available <= s.criticalAt:
			summary.Alerts = append(summary.Alerts, StockAlert{BloodType: bt, Available: row.Available, Level: AlertCritical})
		case row.Available <= s.lowAt:
			summary.Alerts = append(summary.Alerts, StockAlert{BloodType: bt, Available: row.Available, Level: AlertLow})
		}
	}

	expiring, err := s.store.ExpiringSoon(ctx, f, today, domainsvcs.ExpiringSoonWindowDays)
	if err != nil {
		return nil, fmt.Errorf("expiring soon: %w", err)
	}
	summary.ExpiringSoon = expiring

	monthly, err := s.store.MonthlySeries(ctx, TrendMonths, today)
	if err != nil {
		return nil, fmt.Errorf("monthly series: %w", err)
	}
	summary.Monthly = monthly

	return summary, nil
}

// fingerprint identifies a summary by its filter and the day it was computed
// for, so a cache entry can never straddle a day boundary.
func (s *AggregationService) fingerprint(f repositories.Filter) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		f.BloodType,
		models.DateOnly(s.now()).Format(time.DateOnly),
		f.CollectedFrom.Format(time.DateOnly),
		f.CollectedTo.Format(time.DateOnly),
		f.Search,
	)
}

func (s *AggregationService) fromCache(ctx context.Context, f repositories.Filter) *Summary {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, s.cache.Key(s.fingerprint(f)))
	if err != nil {
		if err != redis.Nil {
			s.log.WarnContext(ctx, "summary cache read failed", "error", err)
		}
		return nil
	}
	var summary Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		s.log.WarnContext(ctx, "summary cache payload corrupt", "error", err)
		return nil
	}
	return &summary
}

func (s *AggregationService) toCache(ctx context.Context, f repositories.Filter, summary *Summary) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		s.log.WarnContext(ctx, "summary cache marshal failed", "error", err)
		return
	}
	if err := s.cache.Set(ctx, s.cache.Key(s.fingerprint(f)), payload); err != nil {
		s.log.WarnContext(ctx, "summary cache write failed", "error", err)
	}
}
