package services

import (
	"context"
	"testing"
	"time"

	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/hemotrack/services/inventory/domain/services"
)

func newAggFixture(t *testing.T, today time.Time) (*fixture, *AggregationService) {
	t.Helper()
	f := newFixture(t, today)
	agg := NewAggregationService(f.store, nil, testLogger(), func() time.Time { return f.today }, 2, 5)
	return f, agg
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	f, agg := newAggFixture(t, day(2024, 3, 1))

	// Donor is O-: three fresh units, one used, one stale (collected 2024-01-01,
	// expired 2024-02-05, never read).
	for i := 0; i < 3; i++ {
		f.create(t, day(2024, 2, 20))
	}
	used := f.create(t, day(2024, 2, 20))
	if _, err := f.svc.UpdateStatus(ctx, manager, used.UnitID, models.StatusUsed, ""); err != nil {
		t.Fatalf("use unit: %v", err)
	}
	f.create(t, day(2024, 1, 1))

	summary, err := agg.Summarize(ctx, manager, repositories.Filter{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	t.Run("grid covers every blood type", func(t *testing.T) {
		if len(summary.Counts) != 8 {
			t.Fatalf("expected 8 rows, got %d", len(summary.Counts))
		}
		byType := map[models.BloodType]TypeCounts{}
		for _, row := range summary.Counts {
			byType[row.BloodType] = row
		}
		oneg := byType[models.BloodONeg]
		if oneg.Available != 3 || oneg.Used != 1 || oneg.Expired != 1 || oneg.Total != 5 {
			t.Fatalf("O- counts wrong: %+v", oneg)
		}
		if apos := byType[models.BloodAPos]; apos.Total != 0 {
			t.Fatalf("expected zero-filled A+ row, got %+v", apos)
		}
	})

	t.Run("stale unit counts as expired without being read", func(t *testing.T) {
		if summary.Totals.Expired != 1 {
			t.Fatalf("expected 1 expired in totals, got %d", summary.Totals.Expired)
		}
	})

	t.Run("totals agree with the listing", func(t *testing.T) {
		_, info, err := f.svc.List(ctx, manager, repositories.Filter{}, repositories.PageRequest{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if summary.Totals.Total != info.TotalMatching {
			t.Fatalf("summary total %d != listing total %d", summary.Totals.Total, info.TotalMatching)
		}
	})

	t.Run("low-stock alerts", func(t *testing.T) {
		alerts := map[models.BloodType]StockAlert{}
		for _, a := range summary.Alerts {
			alerts[a.BloodType] = a
		}
		// O- has 3 available: above critical (2), at or below low (5).
		if a, ok := alerts[models.BloodONeg]; !ok || a.Level != AlertLow || a.Available != 3 {
			t.Fatalf("expected low alert for O- with 3 available, got %+v", a)
		}
		// Everything else has 0 available: critical.
		if a, ok := alerts[models.BloodABPos]; !ok || a.Level != AlertCritical {
			t.Fatalf("expected critical alert for AB+, got %+v", a)
		}
		if len(alerts) != 8 {
			t.Fatalf("expected alerts for all 8 types, got %d", len(alerts))
		}
	})

	t.Run("monthly series is gap-free", func(t *testing.T) {
		if len(summary.Monthly) != TrendMonths {
			t.Fatalf("expected %d months, got %d", TrendMonths, len(summary.Monthly))
		}
		for i := 1; i < len(summary.Monthly); i++ {
			prev, cur := summary.Monthly[i-1].Month, summary.Monthly[i].Month
			if !cur.Equal(prev.AddDate(0, 1, 0)) {
				t.Fatalf("series has a gap between %s and %s", prev, cur)
			}
		}
		last := summary.Monthly[len(summary.Monthly)-1]
		if !last.Month.Equal(day(2024, 3, 1)) {
			t.Fatalf("series must end at the current month, got %s", last.Month)
		}
		var collected int
		for _, b := range summary.Monthly {
			collected += b.Collected
		}
		if collected != 5 {
			t.Fatalf("expected 5 collections across the series, got %d", collected)
		}
	})
}

func TestSummarize_ExpiringSoon(t *testing.T) {
	ctx := context.Background()
	f, agg := newAggFixture(t, day(2024, 3, 1))

	// expires 2024-03-03: inside the window
	soon := f.create(t, day(2024, 1, 28))
	// expires 2024-03-26: outside
	f.create(t, day(2024, 2, 20))
	// already past expiry: not "soon"
	overdue := f.create(t, day(2024, 1, 1))

	summary, err := agg.Summarize(ctx, manager, repositories.Filter{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if len(summary.ExpiringSoon) != 1 {
		t.Fatalf("expected 1 expiring-soon unit, got %d", len(summary.ExpiringSoon))
	}
	if summary.ExpiringSoon[0].UnitID != soon.UnitID {
		t.Fatalf("expected %s, got %s", soon.UnitID, summary.ExpiringSoon[0].UnitID)
	}
	if summary.ExpiringSoon[0].UnitID == overdue.UnitID {
		t.Fatal("an already-expired unit must not appear as expiring soon")
	}
}

func TestSummarize_RedactsExpiringSoonForViewers(t *testing.T) {
	ctx := context.Background()
	f, agg := newAggFixture(t, day(2024, 3, 1))
	f.create(t, day(2024, 1, 28))

	summary, err := agg.Summarize(ctx, viewer, repositories.Filter{})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	for _, v := range summary.ExpiringSoon {
		if v.DonorName != domainsvcs.RedactedMask || v.DonorRef != domainsvcs.RedactedMask {
			t.Fatal("expiring-soon list leaked donor identity to a viewer")
		}
	}
}

func TestSummarize_BloodTypeFilter(t *testing.T) {
	ctx := context.Background()
	f, agg := newAggFixture(t, day(2024, 3, 1))
	f.create(t, day(2024, 2, 20))

	summary, err := agg.Summarize(ctx, manager, repositories.Filter{BloodType: models.BloodAPos})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Totals.Total != 0 {
		t.Fatalf("A+ filter must exclude the O- unit, got total %d", summary.Totals.Total)
	}

	summary, err = agg.Summarize(ctx, manager, repositories.Filter{BloodType: models.BloodONeg})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Totals.Available != 1 {
		t.Fatalf("expected 1 available O- unit, got %d", summary.Totals.Available)
	}
}
