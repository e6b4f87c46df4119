// Package memory provides in-memory implementations of the inventory stores.
// They mirror the PostgreSQL semantics (atomic transitions, consistent
// query snapshots, append-only audit) behind a single mutex and exist so
// application services can be tested without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	inventorydomain "github.com/ghuser/hemotrack/services/inventory/domain"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/hemotrack/services/inventory/domain/services"
)

// Store is an in-memory UnitStore + DonorStore.
type Store struct {
	mu     sync.Mutex
	units  map[string]*unitRecord // keyed by unit_id
	donors map[uuid.UUID]*models.Donor
	audit  []models.AuditEntry
	nextID int64
}

type unitRecord struct {
	unit  models.BloodUnit
	donor *models.Donor
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		units:  make(map[string]*unitRecord),
		donors: make(map[uuid.UUID]*models.Donor),
	}
}

// AddDonor seeds a donor.
func (s *Store) AddDonor(d *models.Donor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donors[d.ID] = d
}

// GetDonor implements repositories.DonorStore.
func (s *Store) GetDonor(_ context.Context, id uuid.UUID) (*models.Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donors[id]
	if !ok {
		return nil, inventorydomain.ErrDonorNotFound
	}
	cp := *d
	return &cp, nil
}

// GetByUnitID implements repositories.UnitStore.
func (s *Store) GetByUnitID(_ context.Context, unitID string) (*models.UnitView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.units[unitID]
	if !ok {
		return nil, inventorydomain.ErrUnitNotFound
	}
	return rec.view(), nil
}

// Query implements repositories.UnitStore. Rows and total come from the same
// locked snapshot.
func (s *Store) Query(_ context.Context, f repositories.Filter, limit, offset int, today time.Time) ([]*models.UnitView, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(f, today)
	total := len(matched)

	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	views := make([]*models.UnitView, len(matched))
	for i, rec := range matched {
		views[i] = rec.view()
	}
	return views, total, nil
}

// Insert implements repositories.UnitStore.
func (s *Store) Insert(_ context.Context, unit *models.BloodUnit, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	donor, ok := s.donors[unit.DonorID]
	if !ok {
		return inventorydomain.ErrDonorNotFound
	}
	if _, exists := s.units[unit.UnitID]; exists {
		return inventorydomain.ErrStorageUnavailable
	}
	s.units[unit.UnitID] = &unitRecord{unit: *unit, donor: donor}
	s.appendAudit(entry)
	return nil
}

// ApplyTransition implements repositories.UnitStore atomically under the lock.
func (s *Store) ApplyTransition(_ context.Context, unitID string, mut repositories.Mutation, entry models.AuditEntry) (*models.UnitView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.units[unitID]
	if !ok {
		return nil, inventorydomain.ErrUnitNotFound
	}
	if mut.ExpectedStatus != nil && rec.unit.Status != *mut.ExpectedStatus {
		return nil, inventorydomain.ErrStatusConflict
	}

	next := rec.unit
	if mut.NewStatus != nil {
		next.Status = *mut.NewStatus
	}
	if mut.BloodType != nil {
		next.BloodType = *mut.BloodType
	}
	if mut.StorageLocation != nil {
		next.StorageLocation = *mut.StorageLocation
	}
	next.AppendNote(mut.AppendNote)
	next.UpdatedAt = time.Now().UTC()

	rec.unit = next
	s.appendAudit(entry)
	return rec.view(), nil
}

// Summarize implements repositories.UnitStore with effective statuses.
func (s *Store) Summarize(_ context.Context, f repositories.Filter, today time.Time) ([]repositories.TypeStatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.Status = ""
	counts := map[models.BloodType]map[models.Status]int{}
	for _, rec := range s.match(f, today) {
		eff := domainsvcs.EffectiveStatus(rec.unit.Status, rec.unit.ExpiryDate, today)
		if counts[rec.unit.BloodType] == nil {
			counts[rec.unit.BloodType] = map[models.Status]int{}
		}
		counts[rec.unit.BloodType][eff]++
	}

	var out []repositories.TypeStatusCount
	for bt, byStatus := range counts {
		for st, n := range byStatus {
			out = append(out, repositories.TypeStatusCount{BloodType: bt, Status: st, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BloodType != out[j].BloodType {
			return out[i].BloodType < out[j].BloodType
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

// ExpiringSoon implements repositories.UnitStore.
func (s *Store) ExpiringSoon(_ context.Context, f repositories.Filter, today time.Time, windowDays int) ([]*models.UnitView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.Status = ""
	var views []*models.UnitView
	for _, rec := range s.match(f, today) {
		if rec.unit.Status != models.StatusAvailable && rec.unit.Status != models.StatusQuarantined {
			continue
		}
		remaining := domainsvcs.DaysRemaining(rec.unit.ExpiryDate, today)
		if remaining >= 0 && remaining <= windowDays {
			views = append(views, rec.view())
		}
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].ExpiryDate.Before(views[j].ExpiryDate)
	})
	return views, nil
}

// MonthlySeries implements repositories.UnitStore, gap-free.
func (s *Store) MonthlySeries(_ context.Context, months int, today time.Time) ([]repositories.MonthBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := monthStart(today).AddDate(0, -(months - 1), 0)

	collected := map[time.Time]int{}
	for _, rec := range s.units {
		if rec.unit.Status == models.StatusDeleted {
			continue
		}
		m := monthStart(rec.unit.CollectionDate)
		if !m.Before(start) {
			collected[m]++
		}
	}

	issued := map[time.Time]int{}
	for _, e := range s.audit {
		if e.Action == models.AuditStatusChanged && e.AfterValue == string(models.StatusUsed) {
			m := monthStart(e.CreatedAt)
			if !m.Before(start) {
				issued[m]++
			}
		}
	}

	out := make([]repositories.MonthBucket, 0, months)
	for m := start; !m.After(monthStart(today)); m = m.AddDate(0, 1, 0) {
		out = append(out, repositories.MonthBucket{Month: m, Collected: collected[m], Issued: issued[m]})
	}
	return out, nil
}

// ListAudit implements repositories.UnitStore.
func (s *Store) ListAudit(_ context.Context, unitID string) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.AuditEntry
	for _, e := range s.audit {
		if e.UnitID == unitID {
			out = append(out, e)
		}
	}
	return out, nil
}

// AuditLen reports the total number of audit entries (test helper).
func (s *Store) AuditLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audit)
}

func (s *Store) appendAudit(entry models.AuditEntry) {
	s.nextID++
	entry.ID = s.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, entry)
}

// match applies the shared filter semantics and the deterministic ordering
// (created_at DESC, id DESC). Callers hold the lock.
func (s *Store) match(f repositories.Filter, today time.Time) []*unitRecord {
	var out []*unitRecord
	for _, rec := range s.units {
		if !matches(rec, f, today) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].unit, out[j].unit
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})
	return out
}

func matches(rec *unitRecord, f repositories.Filter, today time.Time) bool {
	u := rec.unit
	if f.Status == "" {
		if u.Status == models.StatusDeleted {
			return false
		}
	} else if domainsvcs.EffectiveStatus(u.Status, u.ExpiryDate, today) != f.Status {
		return false
	}
	if f.BloodType != "" && u.BloodType != f.BloodType {
		return false
	}
	if !f.CollectedFrom.IsZero() && u.CollectionDate.Before(models.DateOnly(f.CollectedFrom)) {
		return false
	}
	if !f.CollectedTo.IsZero() && u.CollectionDate.After(models.DateOnly(f.CollectedTo)) {
		return false
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		needle := strings.ToLower(s)
		if !strings.Contains(strings.ToLower(u.UnitID), needle) &&
			!strings.Contains(strings.ToLower(rec.donor.FullName), needle) &&
			!strings.Contains(strings.ToLower(rec.donor.ReferenceCode), needle) {
			return false
		}
	}
	return true
}

func (r *unitRecord) view() *models.UnitView {
	return &models.UnitView{
		BloodUnit: r.unit,
		DonorName: r.donor.FullName,
		DonorRef:  r.donor.ReferenceCode,
	}
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
