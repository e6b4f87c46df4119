package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/config"
	"github.com/ghuser/hemotrack/pkg/logger"
	inventorydomain "github.com/ghuser/hemotrack/services/inventory/domain"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/hemotrack/services/inventory/domain/services"
	"github.com/ghuser/hemotrack/services/inventory/infrastructure/persistence/memory"
)

var (
	manager = auth.Actor{ID: "admin-1", Role: "inventory_manager"}
	viewer  = auth.Actor{ID: "clerk-1", Role: "viewer"}
)

func testLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

// fixture wires an InventoryService over the in-memory store with a movable
// clock and one approved donor.
type fixture struct {
	svc   *InventoryService
	store *memory.Store
	donor *models.Donor
	today time.Time
}

func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		donor: &models.Donor{
			ID:            uuid.New(),
			ReferenceCode: "D-1001",
			FullName:      "Jane Roe",
			BloodType:     models.BloodONeg,
			Status:        models.DonorApproved,
		},
		today: today,
	}
	f.store.AddDonor(f.donor)
	f.svc = NewInventoryService(f.store, f.store, testLogger(), func() time.Time { return f.today })
	return f
}

func (f *fixture) create(t *testing.T, collected time.Time) *models.UnitView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), manager, CreateUnitInput{
		DonorID:        f.donor.ID,
		CollectionDate: collected,
		CollectionSite: "Central Blood Drive",
	})
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}
	return view
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreate(t *testing.T) {
	f := newFixture(t, day(2024, 1, 1))
	ctx := context.Background()

	t.Run("derives expiry from collection date", func(t *testing.T) {
		view := f.create(t, day(2024, 1, 1))
		if got, want := view.ExpiryDate, day(2024, 2, 5); !got.Equal(want) {
			t.Fatalf("expected expiry %s, got %s", want.Format(time.DateOnly), got.Format(time.DateOnly))
		}
		if view.Status != models.StatusAvailable {
			t.Fatalf("new unit must be available, got %s", view.Status)
		}
		if view.DonorName != "Jane Roe" {
			t.Fatalf("manager must see donor identity, got %q", view.DonorName)
		}

		entries, err := f.svc.Audit(ctx, view.UnitID)
		if err != nil {
			t.Fatalf("audit: %v", err)
		}
		if len(entries) != 1 || entries[0].Action != models.AuditCreated || entries[0].Actor != manager.ID {
			t.Fatalf("expected one creation audit entry by %s, got %+v", manager.ID, entries)
		}
	})

	t.Run("viewer may not create", func(t *testing.T) {
		_, err := f.svc.Create(ctx, viewer, CreateUnitInput{
			DonorID: f.donor.ID, CollectionDate: day(2024, 1, 1), CollectionSite: "x",
		})
		if !errors.Is(err, inventorydomain.ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("unknown donor", func(t *testing.T) {
		_, err := f.svc.Create(ctx, manager, CreateUnitInput{
			DonorID: uuid.New(), CollectionDate: day(2024, 1, 1), CollectionSite: "x",
		})
		if !errors.Is(err, inventorydomain.ErrDonorNotFound) {
			t.Fatalf("expected ErrDonorNotFound, got %v", err)
		}
	})

	t.Run("ineligible donor", func(t *testing.T) {
		pending := &models.Donor{ID: uuid.New(), ReferenceCode: "D-2002", FullName: "John Doe", Status: models.DonorPending}
		f.store.AddDonor(pending)
		_, err := f.svc.Create(ctx, manager, CreateUnitInput{
			DonorID: pending.ID, CollectionDate: day(2024, 1, 1), CollectionSite: "x",
		})
		if !errors.Is(err, inventorydomain.ErrDonorNotEligible) {
			t.Fatalf("expected ErrDonorNotEligible, got %v", err)
		}
	})

	t.Run("future collection date", func(t *testing.T) {
		_, err := f.svc.Create(ctx, manager, CreateUnitInput{
			DonorID: f.donor.ID, CollectionDate: day(2024, 1, 2), CollectionSite: "x",
		})
		if !errors.Is(err, inventorydomain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestLazyExpiry(t *testing.T) {
	f := newFixture(t, day(2024, 1, 1))
	ctx := context.Background()
	view := f.create(t, day(2024, 1, 1))

	t.Run("usable through the expiry date", func(t *testing.T) {
		f.today = day(2024, 2, 5)
		got, err := f.svc.Get(ctx, manager, view.UnitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != models.StatusAvailable {
			t.Fatalf("expected available on the expiry date, got %s", got.Status)
		}
	})

	t.Run("expired by the first read after the date", func(t *testing.T) {
		f.today = day(2024, 2, 6)
		got, err := f.svc.Get(ctx, manager, view.UnitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != models.StatusExpired {
			t.Fatalf("expected expired, got %s", got.Status)
		}

		entries, err := f.svc.Audit(ctx, view.UnitID)
		if err != nil {
			t.Fatalf("audit: %v", err)
		}
		last := entries[len(entries)-1]
		if last.Action != models.AuditStatusChanged || last.Actor != models.SystemActor {
			t.Fatalf("expected system status_changed entry, got %+v", last)
		}
		if last.BeforeValue != string(models.StatusAvailable) || last.AfterValue != string(models.StatusExpired) {
			t.Fatalf("expected available -> expired, got %s -> %s", last.BeforeValue, last.AfterValue)
		}
	})

	t.Run("second read does not audit again", func(t *testing.T) {
		before := f.store.AuditLen()
		if _, err := f.svc.Get(ctx, manager, view.UnitID); err != nil {
			t.Fatalf("get: %v", err)
		}
		if f.store.AuditLen() != before {
			t.Fatal("reading an already-expired unit must not write audit entries")
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("available to used", func(t *testing.T) {
		f := newFixture(t, day(2024, 1, 1))
		view := f.create(t, day(2024, 1, 1))

		got, err := f.svc.UpdateStatus(ctx, manager, view.UnitID, models.StatusUsed, "issued to ER")
		if err != nil {
			t.Fatalf("update status: %v", err)
		}
		if got.Status != models.StatusUsed {
			t.Fatalf("expected used, got %s", got.Status)
		}
	})

	t.Run("admin may not expire", func(t *testing.T) {
		f := newFixture(t, day(2024, 1, 1))
		view := f.create(t, day(2024, 1, 1))

		_, err := f.svc.UpdateStatus(ctx, manager, view.UnitID, models.StatusExpired, "")
		if !errors.Is(err, inventorydomain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})

	t.Run("quarantine requires a reason", func(t *testing.T) {
		f := newFixture(t, day(2024, 1, 1))
		view := f.create(t, day(2024, 1, 1))

		if _, err := f.svc.UpdateStatus(ctx, manager, view.UnitID, models.StatusQuarantined, ""); !errors.Is(err, inventorydomain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		got, err := f.svc.UpdateStatus(ctx, manager, view.UnitID, models.StatusQuarantined, "failed screening")
		if err != nil {
			t.Fatalf("quarantine with reason: %v", err)
		}
		if got.Status != models.StatusQuarantined {
			t.Fatalf("expected quarantined, got %s", got.Status)
		}
	})

	t.Run("stale available unit expires before validation", func(t *testing.T) {
		f := newFixture(t, day(2024, 1, 1))
		view := f.create(t, day(2024, 1, 1))

		f.today = day(2024, 3, 1)
		_, err := f.svc.UpdateStatus(ctx, manager, view.UnitID, models.StatusUsed, "")
		if !errors.Is(err, inventorydomain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition for expired unit, got %v", err)
		}
		got, err := f.svc.Get(ctx, manager, view.UnitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != models.StatusExpired {
			t.Fatalf("unit must have been expired by the read, got %s", got.Status)
		}
	})

	t.Run("deleted status is rejected here", func(t *testing.T) {
		f := newFixture(t, day(2024, 1, 1))
		view := f.create(t, day(2024, 1, 1))

		if _, err := f.svc.UpdateStatus(ctx, manager, view.UnitID, models.StatusDeleted, "x"); !errors.Is(err, inventorydomain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("viewer may not transition", func(t *testing.T) {
		f := newFixture(t, day(2024, 1, 1))
		view := f.create(t, day(2024, 1, 1))

		if _, err := f.svc.UpdateStatus(ctx, viewer, view.UnitID, models.StatusUsed, ""); !errors.Is(err, inventorydomain.ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 1))
	view := f.create(t, day(2024, 1, 1))

	t.Run("reason is mandatory", func(t *testing.T) {
		if err := f.svc.Delete(ctx, manager, view.UnitID, "  "); !errors.Is(err, inventorydomain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("deletes and keeps the audit trail", func(t *testing.T) {
		if err := f.svc.Delete(ctx, manager, view.UnitID, "duplicate entry"); err != nil {
			t.Fatalf("delete: %v", err)
		}

		got, err := f.svc.Get(ctx, manager, view.UnitID)
		if err != nil {
			t.Fatalf("deleted unit must stay fetchable by code: %v", err)
		}
		if got.Status != models.StatusDeleted {
			t.Fatalf("expected deleted, got %s", got.Status)
		}

		views, _, err := f.svc.List(ctx, manager, repositories.Filter{}, repositories.PageRequest{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, v := range views {
			if v.UnitID == view.UnitID {
				t.Fatal("deleted unit must be hidden from the default listing")
			}
		}

		entries, err := f.svc.Audit(ctx, view.UnitID)
		if err != nil {
			t.Fatalf("audit: %v", err)
		}
		last := entries[len(entries)-1]
		if last.Action != models.AuditDeleted || last.Reason != "duplicate entry" {
			t.Fatalf("expected deletion audit entry with reason, got %+v", last)
		}
	})

	t.Run("deleted is terminal", func(t *testing.T) {
		err := f.svc.Delete(ctx, manager, view.UnitID, "again")
		if !errors.Is(err, inventorydomain.ErrIllegalTransition) {
			t.Fatalf("expected ErrIllegalTransition, got %v", err)
		}
	})
}

func TestCorrectBloodType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 1))
	view := f.create(t, day(2024, 1, 1))

	t.Run("correction is applied and audited", func(t *testing.T) {
		got, err := f.svc.CorrectBloodType(ctx, manager, view.UnitID, models.BloodABNeg)
		if err != nil {
			t.Fatalf("correct blood type: %v", err)
		}
		if got.BloodType != models.BloodABNeg {
			t.Fatalf("expected AB-, got %s", got.BloodType)
		}
		if got.Status != models.StatusAvailable {
			t.Fatalf("correction must not touch status, got %s", got.Status)
		}

		entries, err := f.svc.Audit(ctx, view.UnitID)
		if err != nil {
			t.Fatalf("audit: %v", err)
		}
		last := entries[len(entries)-1]
		if last.Action != models.AuditBloodTypeCorrected {
			t.Fatalf("expected blood_type_corrected, got %s", last.Action)
		}
		if last.BeforeValue != string(models.BloodONeg) || last.AfterValue != string(models.BloodABNeg) {
			t.Fatalf("expected O- -> AB-, got %s -> %s", last.BeforeValue, last.AfterValue)
		}
	})

	t.Run("same value is a no-op", func(t *testing.T) {
		before := f.store.AuditLen()
		if _, err := f.svc.CorrectBloodType(ctx, manager, view.UnitID, models.BloodABNeg); err != nil {
			t.Fatalf("no-op correction: %v", err)
		}
		if f.store.AuditLen() != before {
			t.Fatal("unchanged blood type must not write an audit entry")
		}
	})

	t.Run("viewer may not correct", func(t *testing.T) {
		if _, err := f.svc.CorrectBloodType(ctx, viewer, view.UnitID, models.BloodAPos); !errors.Is(err, inventorydomain.ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
	})
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 31))
	for i := 0; i < 25; i++ {
		f.create(t, day(2024, 1, 1+i%20))
	}

	page1, info1, err := f.svc.List(ctx, manager, repositories.Filter{}, repositories.PageRequest{Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	page2, info2, err := f.svc.List(ctx, manager, repositories.Filter{}, repositories.PageRequest{Page: 2, PerPage: 10})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}

	if info1.TotalMatching != 25 || info2.TotalMatching != 25 {
		t.Fatalf("expected 25 matching, got %d / %d", info1.TotalMatching, info2.TotalMatching)
	}
	if info1.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", info1.TotalPages)
	}
	if len(page1) != 10 || len(page2) != 10 {
		t.Fatalf("expected full pages, got %d / %d", len(page1), len(page2))
	}
	if info1.FromRow != 1 || info1.ToRow != 10 || info2.FromRow != 11 || info2.ToRow != 20 {
		t.Fatalf("row bookkeeping wrong: %+v %+v", info1, info2)
	}

	seen := map[string]bool{}
	for _, v := range page1 {
		seen[v.UnitID] = true
	}
	for _, v := range page2 {
		if seen[v.UnitID] {
			t.Fatalf("unit %s appears on both pages", v.UnitID)
		}
	}

	t.Run("bad page size falls back to default", func(t *testing.T) {
		_, info, err := f.svc.List(ctx, manager, repositories.Filter{}, repositories.PageRequest{Page: 1, PerPage: 7})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if info.PerPage != repositories.DefaultPerPage {
			t.Fatalf("expected per_page %d, got %d", repositories.DefaultPerPage, info.PerPage)
		}
	})

	t.Run("page past the end keeps the real total", func(t *testing.T) {
		views, info, err := f.svc.List(ctx, manager, repositories.Filter{}, repositories.PageRequest{Page: 9, PerPage: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(views) != 0 || info.TotalMatching != 25 {
			t.Fatalf("expected empty page with total 25, got %d rows / total %d", len(views), info.TotalMatching)
		}
	})
}

func TestListEffectiveStatusFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 3, 1))
	fresh := f.create(t, day(2024, 2, 20)) // expires 2024-03-26
	stale := f.create(t, day(2024, 1, 1))  // expired 2024-02-05, not yet read

	available, _, err := f.svc.List(ctx, manager, repositories.Filter{Status: models.StatusAvailable}, repositories.PageRequest{})
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(available) != 1 || available[0].UnitID != fresh.UnitID {
		t.Fatalf("expected only the fresh unit, got %+v", available)
	}

	expired, _, err := f.svc.List(ctx, manager, repositories.Filter{Status: models.StatusExpired}, repositories.PageRequest{})
	if err != nil {
		t.Fatalf("list expired: %v", err)
	}
	if len(expired) != 1 || expired[0].UnitID != stale.UnitID {
		t.Fatalf("stale unit must match status=expired, got %+v", expired)
	}
	if expired[0].Status != models.StatusExpired {
		t.Fatal("listing must return the unit already transitioned")
	}
}

func TestRedactionOnReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 1))
	view := f.create(t, day(2024, 1, 1))

	got, err := f.svc.Get(ctx, viewer, view.UnitID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DonorName != domainsvcs.RedactedMask || got.DonorRef != domainsvcs.RedactedMask {
		t.Fatalf("viewer must see masked donor fields, got %q / %q", got.DonorName, got.DonorRef)
	}

	views, _, err := f.svc.List(ctx, viewer, repositories.Filter{}, repositories.PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, v := range views {
		if v.DonorName != domainsvcs.RedactedMask {
			t.Fatalf("listing leaked donor name %q", v.DonorName)
		}
	}

	exported, err := f.svc.Export(ctx, viewer, repositories.Filter{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, v := range exported {
		if v.DonorName != domainsvcs.RedactedMask || v.DonorRef != domainsvcs.RedactedMask {
			t.Fatal("export leaked donor identity")
		}
	}
}

func TestExportMatchesList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 31))
	for i := 0; i < 30; i++ {
		f.create(t, day(2024, 1, 1+i%20))
	}

	exported, err := f.svc.Export(ctx, manager, repositories.Filter{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	_, info, err := f.svc.List(ctx, manager, repositories.Filter{}, repositories.PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(exported) != info.TotalMatching {
		t.Fatalf("export returned %d rows, listing counts %d", len(exported), info.TotalMatching)
	}
}

func TestAuditTrailCompleteness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, day(2024, 1, 1))
	view := f.create(t, day(2024, 1, 1))

	if _, err := f.svc.UpdateStatus(ctx, manager, view.UnitID, models.StatusQuarantined, "failed screening"); err != nil {
		t.Fatalf("quarantine: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, manager, view.UnitID, models.StatusAvailable, "screening cleared"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := f.svc.CorrectBloodType(ctx, manager, view.UnitID, models.BloodAPos); err != nil {
		t.Fatalf("correct: %v", err)
	}
	if err := f.svc.Delete(ctx, manager, view.UnitID, "duplicate"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	entries, err := f.svc.Audit(ctx, view.UnitID)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	wantActions := []models.AuditAction{
		models.AuditCreated,
		models.AuditStatusChanged,
		models.AuditStatusChanged,
		models.AuditBloodTypeCorrected,
		models.AuditDeleted,
	}
	if len(entries) != len(wantActions) {
		t.Fatalf("expected %d entries, got %d", len(wantActions), len(entries))
	}
	for i, want := range wantActions {
		if entries[i].Action != want {
			t.Fatalf("entry %d: expected %s, got %s", i, want, entries[i].Action)
		}
	}

	t.Run("unknown unit", func(t *testing.T) {
		if _, err := f.svc.Audit(ctx, "BU-19990101-DEADBEEF"); !errors.Is(err, inventorydomain.ErrUnitNotFound) {
			t.Fatalf("expected ErrUnitNotFound, got %v", err)
		}
	})
}
