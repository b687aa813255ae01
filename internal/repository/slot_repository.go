package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cloudsanalytics/appointment-api/internal/models"
)

const slotColumns = "id, admin_id, start_time, end_time, is_available, created_at, updated_at"

// SlotRepository provides persistence for slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// FindByID loads a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE id = $1", slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindForAdmin loads a slot owned by the given admin.
func (r *SlotRepository) FindForAdmin(ctx context.Context, id, adminID string) (*models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE id = $1 AND admin_id = $2", slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id, adminID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ExistsDuplicate reports whether the admin already owns another slot with
// the exact same start and end. excludeID skips the slot being edited and
// may be empty.
func (r *SlotRepository) ExistsDuplicate(ctx context.Context, adminID string, start, end time.Time, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM slots WHERE admin_id = $1 AND id <> $2 AND start_time = $3 AND end_time = $4 LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, adminID, excludeID, start, end)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate slot: %w", err)
	}
	return true, nil
}

// ExistsOverlapping reports whether any other slot of the admin intersects
// [start, end) under half-open semantics. excludeID skips the slot being
// edited and may be empty.
func (r *SlotRepository) ExistsOverlapping(ctx context.Context, adminID string, start, end time.Time, excludeID string) (bool, error) {
	const query = `SELECT 1 FROM slots WHERE admin_id = $1 AND id <> $2 AND start_time < $3 AND end_time > $4 LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, adminID, excludeID, end, start)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check overlapping slot: %w", err)
	}
	return true, nil
}

// CountInRange returns the number of slots the admin owns whose start falls
// inside [from, to). Used for informational daily counts.
func (r *SlotRepository) CountInRange(ctx context.Context, adminID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM slots WHERE admin_id = $1 AND start_time >= $2 AND start_time < $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, adminID, from, to); err != nil {
		return 0, fmt.Errorf("count slots in range: %w", err)
	}
	return count, nil
}

// ListForAdmin returns the admin's slots ending at or after cutoff, ordered
// by start time. When day is non-nil only slots starting on that calendar day
// are included.
func (r *SlotRepository) ListForAdmin(ctx context.Context, adminID string, cutoff time.Time, day *time.Time) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE admin_id = $1 AND end_time >= $2", slotColumns)
	args := []interface{}{adminID, cutoff}
	if day != nil {
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		query += " AND start_time >= $3 AND start_time < $4"
		args = append(args, dayStart, dayStart.Add(24*time.Hour))
	}
	query += " ORDER BY start_time ASC"

	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list slots for admin: %w", err)
	}
	return slots, nil
}

// ListForAdminByAvailability returns all of an admin's slots, optionally
// restricted to available ones, ordered by start time.
func (r *SlotRepository) ListForAdminByAvailability(ctx context.Context, adminID string, onlyAvailable bool) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE admin_id = $1", slotColumns)
	if onlyAvailable {
		query += " AND is_available = TRUE"
	}
	query += " ORDER BY start_time ASC"

	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, adminID); err != nil {
		return nil, fmt.Errorf("list slots by availability: %w", err)
	}
	return slots, nil
}

// ListAvailable returns every available slot across all admins ordered by
// start time.
func (r *SlotRepository) ListAvailable(ctx context.Context) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE is_available = TRUE ORDER BY start_time ASC", slotColumns)
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// ListCandidates returns every available slot sharing the exact window,
// across all admins. This is the interchangeable candidate set for booking.
func (r *SlotRepository) ListCandidates(ctx context.Context, start, end time.Time) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE start_time = $1 AND end_time = $2 AND is_available = TRUE", slotColumns)
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, start, end); err != nil {
		return nil, fmt.Errorf("list candidate slots: %w", err)
	}
	return slots, nil
}

// Create stores a new slot record.
func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO slots (id, admin_id, start_time, end_time, is_available, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, slot.ID, slot.AdminID, slot.StartTime, slot.EndTime, slot.IsAvailable, slot.CreatedAt, slot.UpdatedAt); err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// UpdateTimes moves an available slot to a new window. The update is
// conditional on the slot still being available; a booked slot is never
// moved.
func (r *SlotRepository) UpdateTimes(ctx context.Context, id string, start, end time.Time) error {
	const query = `UPDATE slots SET start_time = $2, end_time = $3, updated_at = $4 WHERE id = $1 AND is_available = TRUE`
	res, err := r.db.ExecContext(ctx, query, id, start, end, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update slot times: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update slot times rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSlotTaken
	}
	return nil
}

// Delete removes an available slot. Deleting a booked slot is refused at the
// storage layer as well as in the service.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM slots WHERE id = $1 AND is_available = TRUE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete slot rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSlotTaken
	}
	return nil
}

// FreeOrphaned releases slots of the admin that are marked booked but have
// no live appointment, and returns how many were reconciled.
func (r *SlotRepository) FreeOrphaned(ctx context.Context, adminID string) (int64, error) {
	const query = `UPDATE slots SET is_available = TRUE, updated_at = $2 WHERE admin_id = $1 AND is_available = FALSE AND NOT EXISTS (SELECT 1 FROM appointments WHERE appointments.slot_id = slots.id)`
	res, err := r.db.ExecContext(ctx, query, adminID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("free orphaned slots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("free orphaned slots rows affected: %w", err)
	}
	return affected, nil
}

// DeleteEnded removes every slot whose end time is before the cutoff and
// returns the number deleted. The sweep is idempotent.
func (r *SlotRepository) DeleteEnded(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM slots WHERE end_time < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete ended slots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete ended slots rows affected: %w", err)
	}
	return affected, nil
}
