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

const appointmentColumns = "id, user_id, admin_id, slot_id, status, notes, admin_notes, created_at, updated_at"

// AppointmentRepository provides persistence for appointments, including the
// transactional booking and reassignment paths.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE id = $1", appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindForAdmin loads an appointment assigned to the given admin.
func (r *AppointmentRepository) FindForAdmin(ctx context.Context, id, adminID string) (*models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE id = $1 AND admin_id = $2", appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id, adminID); err != nil {
		return nil, err
	}
	return &appt, nil
}

// Book atomically claims the slot and creates the appointment. The slot flip
// is conditional on it still being available; when another writer won first
// the transaction rolls back and ErrSlotTaken is returned so the caller can
// retry arbitration with a fresh candidate set.
func (r *AppointmentRepository) Book(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE slots SET is_available = FALSE, updated_at = $2 WHERE id = $1 AND is_available = TRUE`,
		appt.SlotID, now)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim slot rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSlotTaken
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO appointments (id, user_id, admin_id, slot_id, status, notes, admin_notes, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		appt.ID, appt.UserID, appt.AdminID, appt.SlotID, appt.Status, appt.Notes, appt.AdminNotes, appt.CreatedAt, appt.UpdatedAt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}
	return nil
}

// Reassign moves an appointment to a new admin and slot in a single
// transaction: the new slot is claimed conditionally first, then the old slot
// is freed and the appointment updated. A failure at any step rolls the whole
// sequence back, so the old slot can never be left incorrectly available.
func (r *AppointmentRepository) Reassign(ctx context.Context, apptID, oldSlotID, newSlotID, newAdminID string) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reassign tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE slots SET is_available = FALSE, updated_at = $2 WHERE id = $1 AND is_available = TRUE`,
		newSlotID, now)
	if err != nil {
		return fmt.Errorf("claim new slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim new slot rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSlotTaken
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE slots SET is_available = TRUE, updated_at = $2 WHERE id = $1`,
		oldSlotID, now); err != nil {
		return fmt.Errorf("free old slot: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE appointments SET admin_id = $2, slot_id = $3, updated_at = $4 WHERE id = $1`,
		apptID, newAdminID, newSlotID, now); err != nil {
		return fmt.Errorf("update appointment assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reassign tx: %w", err)
	}
	return nil
}

// DeleteWithSlotRelease frees the appointment's slot and removes the
// appointment in one transaction.
func (r *AppointmentRepository) DeleteWithSlotRelease(ctx context.Context, apptID, slotID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE slots SET is_available = TRUE, updated_at = $2 WHERE id = $1`,
		slotID, time.Now().UTC()); err != nil {
		return fmt.Errorf("free slot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, apptID); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

// UpdateStatus sets the appointment status. Returns false when no
// appointment matched.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (bool, error) {
	const query = `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update appointment status rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateAdminNotes sets the admin-facing notes on an appointment owned by
// the given admin.
func (r *AppointmentRepository) UpdateAdminNotes(ctx context.Context, id, adminID string, notes *string) (bool, error) {
	const query = `UPDATE appointments SET admin_notes = $3, updated_at = $4 WHERE id = $1 AND admin_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, adminID, notes, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update admin notes: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update admin notes rows affected: %w", err)
	}
	return affected > 0, nil
}

const detailColumns = `a.id, a.user_id, a.admin_id, a.slot_id, a.status, a.notes, a.admin_notes, a.created_at, a.updated_at,
	s.start_time AS slot_start, s.end_time AS slot_end,
	u.name AS user_name, u.email AS user_email,
	ad.name AS admin_name, ad.email AS admin_email`

const detailJoins = `FROM appointments a
	LEFT JOIN slots s ON s.id = a.slot_id
	LEFT JOIN users u ON u.id = a.user_id
	LEFT JOIN users ad ON ad.id = a.admin_id`

// ListAll returns every appointment with slot and party details.
func (r *AppointmentRepository) ListAll(ctx context.Context) ([]models.AppointmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY a.created_at DESC", detailColumns, detailJoins)
	var details []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return details, nil
}

// ListByUser returns a user's appointments with details, newest first.
func (r *AppointmentRepository) ListByUser(ctx context.Context, userID string) ([]models.AppointmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.user_id = $1 ORDER BY a.created_at DESC", detailColumns, detailJoins)
	var details []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query, userID); err != nil {
		return nil, fmt.Errorf("list appointments by user: %w", err)
	}
	return details, nil
}

// ListUpcomingForAdmin returns the admin's appointments whose slot has not
// ended yet, newest first, limited.
func (r *AppointmentRepository) ListUpcomingForAdmin(ctx context.Context, adminID string, cutoff time.Time, limit int) ([]models.AppointmentDetail, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf("SELECT %s %s WHERE a.admin_id = $1 AND s.end_time >= $2 ORDER BY a.created_at DESC LIMIT $3", detailColumns, detailJoins)
	var details []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &details, query, adminID, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list upcoming appointments: %w", err)
	}
	return details, nil
}

// DeleteWhereSlotEnded removes every appointment whose slot ended before the
// cutoff and returns the number deleted. Must run before the matching slot
// sweep so the join against slot end times still resolves.
func (r *AppointmentRepository) DeleteWhereSlotEnded(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM appointments WHERE slot_id IN (SELECT id FROM slots WHERE end_time < $1)`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired appointments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired appointments rows affected: %w", err)
	}
	return affected, nil
}

// HasLiveForSlot reports whether a live appointment references the slot.
func (r *AppointmentRepository) HasLiveForSlot(ctx context.Context, slotID string) (bool, error) {
	const query = `SELECT 1 FROM appointments WHERE slot_id = $1 LIMIT 1`
	var one int
	err := r.db.GetContext(ctx, &one, query, slotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check live appointment: %w", err)
	}
	return true, nil
}
