package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/logger"
	inventorydomain "github.com/ghuser/hemotrack/services/inventory/domain"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/hemotrack/services/inventory/domain/services"
)

// InventoryService owns the unit lifecycle: creation, status transitions,
// corrections, deletion, and all reads. Every read path applies lazy expiry
// before a unit is surfaced, and every returned unit passes through the
// access policy's redaction as the final step.
type InventoryService struct {
	store  repositories.UnitStore
	donors repositories.DonorStore
	log    logger.Logger
	now    func() time.Time
}

// NewInventoryService wires the service. A nil clock defaults to UTC wall time;
// tests inject a fixed clock.
func NewInventoryService(store repositories.UnitStore, donors repositories.DonorStore, log logger.Logger, clock func() time.Time) *InventoryService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &InventoryService{store: store, donors: donors, log: log, now: clock}
}

// CreateUnitInput is the validated input for attaching a collection event to
// a donor.
type CreateUnitInput struct {
	DonorID         uuid.UUID
	CollectionDate  time.Time
	CollectionSite  string
	StorageLocation string
	Notes           string
}

// Create attaches a collection event to an eligible donor and stores a new
// Available unit. The unit's expiry date is derived here and nowhere else.
func (s *InventoryService) Create(ctx context.Context, actor auth.Actor, in CreateUnitInput) (*models.UnitView, error) {
	role, err := s.requirePrivileged(actor)
	if err != nil {
		return nil, err
	}

	donor, err := s.donors.GetDonor(ctx, in.DonorID)
	if err != nil {
		return nil, fmt.Errorf("get donor: %w", err)
	}

	today := s.now()
	if err := domainsvcs.ValidateCreation(donor, in.CollectionDate, today); err != nil {
		return nil, err
	}

	unit, err := models.NewBloodUnit(donor, in.CollectionDate, domainsvcs.ExpiryDate(in.CollectionDate),
		in.CollectionSite, in.StorageLocation, in.Notes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", inventorydomain.ErrValidation, err)
	}

	entry := models.NewAuditEntry(unit.UnitID, models.AuditCreated, actor.ID,
		"", string(models.StatusAvailable), "")
	if err := s.store.Insert(ctx, unit, entry); err != nil {
		return nil, fmt.Errorf("insert unit: %w", err)
	}

	s.log.InfoContext(ctx, "unit created",
		"unit_id", unit.UnitID, "blood_type", unit.BloodType, "actor", actor.ID)

	view := &models.UnitView{BloodUnit: *unit, DonorName: donor.FullName, DonorRef: donor.ReferenceCode}
	return domainsvcs.RedactView(view, role), nil
}

// Get returns one unit by its code, lazily expiring it first if overdue.
func (s *InventoryService) Get(ctx context.Context, actor auth.Actor, unitID string) (*models.UnitView, error) {
	view, err := s.store.GetByUnitID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	view, err = s.lazyExpire(ctx, view)
	if err != nil {
		return nil, err
	}
	return domainsvcs.RedactView(view, domainsvcs.ParseRole(actor.Role)), nil
}

// List returns one filtered page plus pagination bookkeeping. Rows and total
// come from one store snapshot; overdue rows are expired before they are
// returned.
func (s *InventoryService) List(ctx context.Context, actor auth.Actor, f repositories.Filter, page repositories.PageRequest) ([]*models.UnitView, repositories.PageInfo, error) {
	page = page.Normalize()

	views, total, err := s.store.Query(ctx, f, page.PerPage, page.Offset(), s.now())
	if err != nil {
		return nil, repositories.PageInfo{}, fmt.Errorf("list units: %w", err)
	}

	if views, err = s.lazyExpireAll(ctx, views); err != nil {
		return nil, repositories.PageInfo{}, err
	}

	info := repositories.NewPageInfo(page, total, len(views))
	return domainsvcs.RedactViews(views, domainsvcs.ParseRole(actor.Role)), info, nil
}

// Export returns every matching row with the same filter and ordering
// semantics as List and no pagination cap. The caller owns the output format.
func (s *InventoryService) Export(ctx context.Context, actor auth.Actor, f repositories.Filter) ([]*models.UnitView, error) {
	views, _, err := s.store.Query(ctx, f, 0, 0, s.now())
	if err != nil {
		return nil, fmt.Errorf("export units: %w", err)
	}
	if views, err = s.lazyExpireAll(ctx, views); err != nil {
		return nil, err
	}
	return domainsvcs.RedactViews(views, domainsvcs.ParseRole(actor.Role)), nil
}

// UpdateStatus applies one admin-initiated lifecycle transition.
func (s *InventoryService) UpdateStatus(ctx context.Context, actor auth.Actor, unitID string, to models.Status, reason string) (*models.UnitView, error) {
	if to == models.StatusDeleted {
		return nil, fmt.Errorf("%w: deletion has its own operation", inventorydomain.ErrValidation)
	}
	action := models.AuditStatusChanged
	return s.transition(ctx, actor, unitID, to, reason, action)
}

// Delete marks a unit Deleted: terminal, reason mandatory, audit retained.
func (s *InventoryService) Delete(ctx context.Context, actor auth.Actor, unitID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: reason is required to delete a unit", inventorydomain.ErrValidation)
	}
	_, err := s.transition(ctx, actor, unitID, models.StatusDeleted, reason, models.AuditDeleted)
	return err
}

// CorrectBloodType records an administrative blood-type correction. It is
// independent of the status machine and always audited.
func (s *InventoryService) CorrectBloodType(ctx context.Context, actor auth.Actor, unitID string, bloodType models.BloodType) (*models.UnitView, error) {
	role, err := s.requirePrivileged(actor)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetByUnitID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	current, err = s.lazyExpire(ctx, current)
	if err != nil {
		return nil, err
	}
	if current.BloodType == bloodType {
		return domainsvcs.RedactView(current, role), nil
	}

	expected := current.Status
	mut := repositories.Mutation{
		ExpectedStatus: &expected,
		BloodType:      &bloodType,
		AppendNote:     fmt.Sprintf("blood type corrected %s -> %s", current.BloodType, bloodType),
	}
	entry := models.NewAuditEntry(unitID, models.AuditBloodTypeCorrected, actor.ID,
		string(current.BloodType), string(bloodType), "")

	view, err := s.store.ApplyTransition(ctx, unitID, mut, entry)
	if err != nil {
		return nil, fmt.Errorf("correct blood type: %w", err)
	}
	s.log.InfoContext(ctx, "blood type corrected",
		"unit_id", unitID, "from", current.BloodType, "to", bloodType, "actor", actor.ID)
	return domainsvcs.RedactView(view, role), nil
}

// Audit returns a unit's chronological audit trail. Available to every role;
// entries carry no donor-identifying fields.
func (s *InventoryService) Audit(ctx context.Context, unitID string) ([]models.AuditEntry, error) {
	if _, err := s.store.GetByUnitID(ctx, unitID); err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	entries, err := s.store.ListAudit(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return entries, nil
}

func (s *InventoryService) transition(ctx context.Context, actor auth.Actor, unitID string, to models.Status, reason string, action models.AuditAction) (*models.UnitView, error) {
	role, err := s.requirePrivileged(actor)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetByUnitID(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	// Expire first so a stale Available row can't be issued past its date.
	current, err = s.lazyExpire(ctx, current)
	if err != nil {
		return nil, err
	}

	if err := domainsvcs.ValidateTransition(current.Status, to, domainsvcs.ActorAdmin, reason); err != nil {
		return nil, err
	}

	expected := current.Status
	mut := repositories.Mutation{
		ExpectedStatus: &expected,
		NewStatus:      &to,
	}
	if strings.TrimSpace(reason) != "" {
		mut.AppendNote = fmt.Sprintf("%s -> %s: %s", current.Status, to, reason)
	}
	entry := models.NewAuditEntry(unitID, action, actor.ID, string(current.Status), string(to), reason)

	view, err := s.store.ApplyTransition(ctx, unitID, mut, entry)
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}

	s.log.InfoContext(ctx, "unit transitioned",
		"unit_id", unitID, "from", current.Status, "to", to, "actor", actor.ID)
	return domainsvcs.RedactView(view, role), nil
}

// lazyExpire transitions an overdue Available/Quarantined unit to Expired as
// a side effect of reading it, with actor "system". A concurrent transition
// loses gracefully: on conflict the row is simply re-read.
func (s *InventoryService) lazyExpire(ctx context.Context, view *models.UnitView) (*models.UnitView, error) {
	today := s.now()
	if !domainsvcs.Overdue(view.Status, view.ExpiryDate, today) {
		return view, nil
	}

	expected := view.Status
	expired := models.StatusExpired
	mut := repositories.Mutation{
		ExpectedStatus: &expected,
		NewStatus:      &expired,
		AppendNote:     fmt.Sprintf("%s -> %s: past expiry date", expected, expired),
	}
	entry := models.NewAuditEntry(view.UnitID, models.AuditStatusChanged, models.SystemActor,
		string(expected), string(expired), "past expiry date")

	updated, err := s.store.ApplyTransition(ctx, view.UnitID, mut, entry)
	if err != nil {
		if errors.Is(err, inventorydomain.ErrStatusConflict) {
			refreshed, rerr := s.store.GetByUnitID(ctx, view.UnitID)
			if rerr != nil {
				return nil, fmt.Errorf("reread unit after conflict: %w", rerr)
			}
			return refreshed, nil
		}
		return nil, fmt.Errorf("lazy expire: %w", err)
	}

	s.log.InfoContext(ctx, "unit expired on read", "unit_id", view.UnitID, "expiry_date", view.ExpiryDate)
	return updated, nil
}

func (s *InventoryService) lazyExpireAll(ctx context.Context, views []*models.UnitView) ([]*models.UnitView, error) {
	for i, v := range views {
		updated, err := s.lazyExpire(ctx, v)
		if err != nil {
			return nil, err
		}
		views[i] = updated
	}
	return views, nil
}

func (s *InventoryService) requirePrivileged(actor auth.Actor) (domainsvcs.Role, error) {
	role := domainsvcs.ParseRole(actor.Role)
	if !role.Privileged() {
		return role, fmt.Errorf("%w: role %s may not modify inventory", inventorydomain.ErrPermissionDenied, role)
	}
	return role, nil
}
