package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cloudsanalytics/appointment-api/internal/models"
)

// NotificationRepository persists the in-app notification trail left behind
// by booking events.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification record.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO notifications (id, appointment_id, message, is_read, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.AppointmentID, n.Message, n.IsRead, n.CreatedAt); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByAppointment returns notifications for an appointment, newest first.
func (r *NotificationRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]models.Notification, error) {
	const query = `SELECT id, appointment_id, message, is_read, created_at FROM notifications WHERE appointment_id = $1 ORDER BY created_at DESC`
	var list []models.Notification
	if err := r.db.SelectContext(ctx, &list, query, appointmentID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}
