package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloudsanalytics/appointment-api/internal/models"
	"github.com/cloudsanalytics/appointment-api/pkg/jobs"
	"github.com/cloudsanalytics/appointment-api/pkg/notify"
)

type notificationRecorder interface {
	Create(ctx context.Context, n *models.Notification) error
}

// NotificationService fans booking events out to the configured transports
// through the background job queue. Delivery is fire and forget: a booking
// never fails because a webhook was down.
type NotificationService struct {
	recorder     notificationRecorder
	notifiers    []notify.Notifier
	queue        *jobs.Queue
	supportEmail string
	logger       *zap.Logger
}

// NewNotificationService constructs NotificationService and its dispatch
// queue. Call Start before enqueueing events and Stop on shutdown.
func NewNotificationService(recorder notificationRecorder, notifiers []notify.Notifier, supportEmail string, workers int, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		recorder:     recorder,
		notifiers:    notifiers,
		supportEmail: supportEmail,
		logger:       logger,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{Workers: workers, Logger: logger})
	return s
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// BookingConfirmed records and dispatches a booking confirmation.
func (s *NotificationService) BookingConfirmed(appt *models.Appointment, slot *models.Slot, user *models.User) {
	msg := notify.Message{
		Recipients: s.recipients(user),
		Subject:    "Appointment confirmed",
		Fields: map[string]string{
			"consultant": appt.AdminID,
			"date":       slot.StartTime.UTC().Format("02-01-2006"),
			"time":       slot.StartTime.UTC().Format("15:04") + " - " + slot.EndTime.UTC().Format("15:04"),
		},
	}
	s.record(appt.ID, fmt.Sprintf("appointment confirmed for %s", FormatClientTime(slot.StartTime)))
	s.enqueue(appt.ID, msg)
}

// AppointmentReassigned records and dispatches a reassignment notice.
func (s *NotificationService) AppointmentReassigned(appt *models.Appointment, slot *models.Slot) {
	msg := notify.Message{
		Recipients: s.recipients(nil),
		Subject:    "Appointment reassigned",
		Fields: map[string]string{
			"consultant": appt.AdminID,
			"date":       slot.StartTime.UTC().Format("02-01-2006"),
			"time":       slot.StartTime.UTC().Format("15:04") + " - " + slot.EndTime.UTC().Format("15:04"),
		},
	}
	s.record(appt.ID, fmt.Sprintf("appointment reassigned to slot starting %s", FormatClientTime(slot.StartTime)))
	s.enqueue(appt.ID, msg)
}

func (s *NotificationService) recipients(user *models.User) []string {
	var recipients []string
	if user != nil && user.Email != nil && *user.Email != "" {
		recipients = append(recipients, *user.Email)
	}
	if s.supportEmail != "" {
		recipients = append(recipients, s.supportEmail)
	}
	return recipients
}

func (s *NotificationService) record(appointmentID, message string) {
	if s.recorder == nil {
		return
	}
	n := &models.Notification{AppointmentID: appointmentID, Message: message}
	if err := s.recorder.Create(context.Background(), n); err != nil {
		s.logger.Warn("failed to record notification", zap.String("appointment_id", appointmentID), zap.Error(err))
	}
}

func (s *NotificationService) enqueue(appointmentID string, msg notify.Message) {
	job := jobs.Job{ID: uuid.NewString(), Type: "notification", Payload: msg}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("appointment_id", appointmentID), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(notify.Message)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	var firstErr error
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			s.logger.Warn("notification delivery failed", zap.String("subject", msg.Subject), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
