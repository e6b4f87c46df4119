// Package postgres implements the inventory stores against PostgreSQL.
//
// All predicates go through one builder (predicate.go) — listing, export,
// summary and the expiring-soon set share the exact same filter semantics, so
// a page of units can never disagree with the dashboard counts computed for
// the same filter.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/hemotrack/pkg/database"
	"github.com/ghuser/hemotrack/pkg/events"
	inventorydomain "github.com/ghuser/hemotrack/services/inventory/domain"
	domainevents "github.com/ghuser/hemotrack/services/inventory/domain/events"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// UnitRepository implements repositories.UnitStore against PostgreSQL.
type UnitRepository struct {
	db  *database.Database
	bus *events.EventBus
}

// NewUnitRepository returns a UnitRepository backed by the given connection
// pool and event bus. The bus publishes unit lifecycle events inside the same
// transaction as the row writes (outbox); pass nil to disable publishing.
func NewUnitRepository(db *database.Database, bus *events.EventBus) *UnitRepository {
	return &UnitRepository{db: db, bus: bus}
}

const unitViewColumns = `
	u.id, u.unit_id, u.donor_id, u.blood_type, u.collection_date, u.expiry_date,
	u.status, u.collection_site, u.storage_location, u.notes, u.created_at, u.updated_at,
	d.full_name, d.reference_code`

const unitViewFrom = ` FROM blood_units u JOIN donors d ON d.id = u.donor_id`

// GetByUnitID returns one unit by its human-facing code, any status.
func (r *UnitRepository) GetByUnitID(ctx context.Context, unitID string) (*models.UnitView, error) {
	row := r.db.DB().QueryRowContext(ctx,
		`SELECT`+unitViewColumns+unitViewFrom+` WHERE u.unit_id = $1`, unitID)
	view, err := scanUnitView(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventorydomain.ErrUnitNotFound
		}
		return nil, storageErr("get unit", err)
	}
	return view, nil
}

// Query returns a filtered, deterministically ordered page plus the total
// matching count. Both come from a single statement (COUNT(*) OVER()), so rows
// and total are always from the same snapshot even under concurrent inserts.
func (r *UnitRepository) Query(ctx context.Context, f repositories.Filter, limit, offset int, today time.Time) ([]*models.UnitView, int, error) {
	where, args := buildPredicate(f, today)

	q := `SELECT` + unitViewColumns + `, COUNT(*) OVER() AS total_matching` + unitViewFrom + where +
		` ORDER BY u.created_at DESC, u.id DESC`
	if limit > 0 {
		args = append(args, limit, offset)
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.db.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, storageErr("query units", err)
	}
	defer rows.Close() //nolint:errcheck

	var (
		views []*models.UnitView
		total int
	)
	for rows.Next() {
		view, n, err := scanUnitViewWithTotal(rows)
		if err != nil {
			return nil, 0, storageErr("scan unit", err)
		}
		views = append(views, view)
		total = n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("query units", err)
	}

	// An empty page past the end still needs the real total.
	if len(views) == 0 && limit > 0 {
		countQ := `SELECT COUNT(*)` + unitViewFrom + where
		countArgs := args[:len(args)-2]
		if err := r.db.DB().QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
			return nil, 0, storageErr("count units", err)
		}
	}
	return views, total, nil
}

// Insert persists a new unit plus its creation audit entry and publishes
// unit.created, all in one transaction.
func (r *UnitRepository) Insert(ctx context.Context, unit *models.BloodUnit, entry models.AuditEntry) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO blood_units
				(id, unit_id, donor_id, blood_type, collection_date, expiry_date,
				 status, collection_site, storage_location, notes, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			unit.ID, unit.UnitID, unit.DonorID, string(unit.BloodType),
			unit.CollectionDate, unit.ExpiryDate, string(unit.Status),
			unit.CollectionSite, unit.StorageLocation, unit.Notes,
			unit.CreatedAt, unit.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				switch pgErr.Code {
				case pgForeignKeyViolation:
					return inventorydomain.ErrDonorNotFound
				case pgUniqueViolation:
					return storageErr("insert unit: unit code collision", err)
				}
			}
			return storageErr("insert unit", err)
		}

		if err := insertAudit(ctx, tx, entry); err != nil {
			return err
		}

		if r.bus != nil {
			if err := r.publishCreated(tx, unit); err != nil {
				return storageErr("publish unit created", err)
			}
		}
		return nil
	})
}

// ApplyTransition executes one atomic mutation: re-read the row FOR UPDATE,
// validate the caller's expected status, write the new row plus exactly one
// audit entry, publish unit.status_changed — or roll the whole thing back.
func (r *UnitRepository) ApplyTransition(ctx context.Context, unitID string, mut repositories.Mutation, entry models.AuditEntry) (*models.UnitView, error) {
	var out *models.UnitView
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT`+unitViewColumns+unitViewFrom+` WHERE u.unit_id = $1 FOR UPDATE OF u`, unitID)
		current, err := scanUnitView(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return inventorydomain.ErrUnitNotFound
			}
			return storageErr("lock unit", err)
		}

		if mut.ExpectedStatus != nil && current.Status != *mut.ExpectedStatus {
			return fmt.Errorf("%w: expected %s, found %s",
				inventorydomain.ErrStatusConflict, *mut.ExpectedStatus, current.Status)
		}

		next := current.BloodUnit
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

		_, err = tx.ExecContext(ctx,
			`UPDATE blood_units
			 SET status = $1, blood_type = $2, storage_location = $3, notes = $4, updated_at = $5
			 WHERE unit_id = $6`,
			string(next.Status), string(next.BloodType), next.StorageLocation,
			next.Notes, next.UpdatedAt, unitID,
		)
		if err != nil {
			return storageErr("update unit", err)
		}

		if err := insertAudit(ctx, tx, entry); err != nil {
			return err
		}

		if r.bus != nil && mut.NewStatus != nil {
			if err := r.publishStatusChanged(tx, &next, current.Status, entry.Actor); err != nil {
				return storageErr("publish status changed", err)
			}
		}

		out = &models.UnitView{BloodUnit: next, DonorName: current.DonorName, DonorRef: current.DonorRef}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Summarize returns the per-blood-type × effective-status grid for the
// filtered view. Filter.Status is ignored — the grid itself is the split.
func (r *UnitRepository) Summarize(ctx context.Context, f repositories.Filter, today time.Time) ([]repositories.TypeStatusCount, error) {
	f.Status = ""
	where, args := buildPredicate(f, today)
	args = append(args, models.DateOnly(today))
	eff := fmt.Sprintf(effectiveStatusExpr, len(args))

	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT u.blood_type, `+eff+` AS eff_status, COUNT(*)`+unitViewFrom+where+
			` GROUP BY u.blood_type, eff_status`, args...)
	if err != nil {
		return nil, storageErr("summarize units", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []repositories.TypeStatusCount
	for rows.Next() {
		var (
			bt, st string
			n      int
		)
		if err := rows.Scan(&bt, &st, &n); err != nil {
			return nil, storageErr("scan summary", err)
		}
		out = append(out, repositories.TypeStatusCount{
			BloodType: models.BloodType(bt),
			Status:    models.Status(st),
			Count:     n,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("summarize units", err)
	}
	return out, nil
}

// ExpiringSoon returns Available/Quarantined units whose remaining shelf life
// is within windowDays, soonest first.
func (r *UnitRepository) ExpiringSoon(ctx context.Context, f repositories.Filter, today time.Time, windowDays int) ([]*models.UnitView, error) {
	f.Status = ""
	where, args := buildPredicate(f, today)
	day := models.DateOnly(today)
	args = append(args, day, day.AddDate(0, 0, windowDays))
	where += fmt.Sprintf(
		` AND u.status IN ('available','quarantined') AND u.expiry_date >= $%d AND u.expiry_date <= $%d`,
		len(args)-1, len(args))

	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT`+unitViewColumns+unitViewFrom+where+` ORDER BY u.expiry_date ASC, u.id ASC`, args...)
	if err != nil {
		return nil, storageErr("query expiring units", err)
	}
	defer rows.Close() //nolint:errcheck

	var views []*models.UnitView
	for rows.Next() {
		view, err := scanUnitView(rows)
		if err != nil {
			return nil, storageErr("scan unit", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query expiring units", err)
	}
	return views, nil
}

// MonthlySeries returns the trailing calendar months ending at today's month.
// Gap months are filled with zero buckets in Go so the series never has holes.
func (r *UnitRepository) MonthlySeries(ctx context.Context, months int, today time.Time) ([]repositories.MonthBucket, error) {
	start := monthStart(today).AddDate(0, -(months - 1), 0)

	collected := map[time.Time]int{}
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT date_trunc('month', collection_date)::date, COUNT(*)
		 FROM blood_units
		 WHERE collection_date >= $1 AND status <> 'deleted'
		 GROUP BY 1`, start)
	if err != nil {
		return nil, storageErr("query collections series", err)
	}
	if err := scanMonthCounts(rows, collected); err != nil {
		return nil, err
	}

	issued := map[time.Time]int{}
	rows, err = r.db.DB().QueryContext(ctx,
		`SELECT date_trunc('month', created_at)::date, COUNT(*)
		 FROM audit_log
		 WHERE action = $1 AND after_value = $2 AND created_at >= $3
		 GROUP BY 1`,
		string(models.AuditStatusChanged), string(models.StatusUsed), start)
	if err != nil {
		return nil, storageErr("query issued series", err)
	}
	if err := scanMonthCounts(rows, issued); err != nil {
		return nil, err
	}

	out := make([]repositories.MonthBucket, 0, months)
	for m := start; !m.After(monthStart(today)); m = m.AddDate(0, 1, 0) {
		out = append(out, repositories.MonthBucket{
			Month:     m,
			Collected: collected[m],
			Issued:    issued[m],
		})
	}
	return out, nil
}

// ListAudit returns a unit's audit trail in chronological order.
func (r *UnitRepository) ListAudit(ctx context.Context, unitID string) ([]models.AuditEntry, error) {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT id, unit_id, action, actor, before_value, after_value, reason, created_at
		 FROM audit_log WHERE unit_id = $1 ORDER BY created_at ASC, id ASC`, unitID)
	if err != nil {
		return nil, storageErr("query audit log", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			e      models.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.UnitID, &action, &e.Actor, &e.BeforeValue, &e.AfterValue, &e.Reason, &e.CreatedAt); err != nil {
			return nil, storageErr("scan audit entry", err)
		}
		e.Action = models.AuditAction(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query audit log", err)
	}
	return entries, nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, entry models.AuditEntry) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_log (unit_id, action, actor, before_value, after_value, reason, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6, now())`,
		entry.UnitID, string(entry.Action), entry.Actor,
		entry.BeforeValue, entry.AfterValue, entry.Reason,
	)
	if err != nil {
		return storageErr("insert audit entry", err)
	}
	return nil
}

func (r *UnitRepository) publishCreated(tx *sql.Tx, unit *models.BloodUnit) error {
	event := domainevents.UnitCreatedEvent{
		EventID:        uuid.New(),
		Version:        1,
		UnitID:         unit.UnitID,
		BloodType:      string(unit.BloodType),
		CollectionDate: unit.CollectionDate,
		ExpiryDate:     unit.ExpiryDate,
		OccurredAt:     unit.CreatedAt,
	}
	return r.publish(tx, domainevents.TopicUnitCreated, event.EventID, event)
}

func (r *UnitRepository) publishStatusChanged(tx *sql.Tx, unit *models.BloodUnit, from models.Status, actor string) error {
	event := domainevents.UnitStatusChangedEvent{
		EventID:    uuid.New(),
		Version:    1,
		UnitID:     unit.UnitID,
		BloodType:  string(unit.BloodType),
		FromStatus: string(from),
		ToStatus:   string(unit.Status),
		Actor:      actor,
		OccurredAt: unit.UpdatedAt,
	}
	return r.publish(tx, domainevents.TopicUnitStatusChanged, event.EventID, event)
}

func (r *UnitRepository) publish(tx *sql.Tx, topic string, eventID uuid.UUID, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", eventID.String())
	msg.Metadata.Set("event_version", "1")
	p, err := r.bus.NewTxPublisher(tx)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	return p.Publish(topic, msg)
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func scanMonthCounts(rows *sql.Rows, dst map[time.Time]int) error {
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var (
			m time.Time
			n int
		)
		if err := rows.Scan(&m, &n); err != nil {
			return storageErr("scan month bucket", err)
		}
		dst[monthStart(m)] = n
	}
	if err := rows.Err(); err != nil {
		return storageErr("scan month buckets", err)
	}
	return nil
}

// storageErr tags persistence failures with ErrStorageUnavailable so callers
// can treat them as retryable without inspecting driver errors.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", inventorydomain.ErrStorageUnavailable, op, err)
}
