package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cloudsanalytics/appointment-api/internal/models"
	"github.com/cloudsanalytics/appointment-api/internal/repository"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

type appointmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	FindForAdmin(ctx context.Context, id, adminID string) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (bool, error)
	UpdateAdminNotes(ctx context.Context, id, adminID string, notes *string) (bool, error)
	Reassign(ctx context.Context, apptID, oldSlotID, newSlotID, newAdminID string) error
	DeleteWithSlotRelease(ctx context.Context, apptID, slotID string) error
	ListAll(ctx context.Context) ([]models.AppointmentDetail, error)
	ListUpcomingForAdmin(ctx context.Context, adminID string, cutoff time.Time, limit int) ([]models.AppointmentDetail, error)
}

type appointmentSlotReader interface {
	FindByID(ctx context.Context, id string) (*models.Slot, error)
}

type appointmentNotifier interface {
	AppointmentReassigned(appt *models.Appointment, slot *models.Slot)
}

// StatusRequest carries an appointment status change.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// NotesRequest carries admin notes for an appointment.
type NotesRequest struct {
	Notes *string `json:"notes"`
}

// ReassignRequest names the slot an appointment should move to.
type ReassignRequest struct {
	SlotID string `json:"slot_id" validate:"required"`
}

// AppointmentService manages the lifecycle of booked appointments: status
// transitions, admin notes, reassignment to another admin's slot, and
// cancellation with slot release.
type AppointmentService struct {
	repo      appointmentRepository
	slots     appointmentSlotReader
	notifier  appointmentNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAppointmentService constructs AppointmentService.
func NewAppointmentService(repo appointmentRepository, slots appointmentSlotReader, notifier appointmentNotifier, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{repo: repo, slots: slots, notifier: notifier, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ListAll returns every appointment with slot and party details.
func (s *AppointmentService) ListAll(ctx context.Context) ([]models.AppointmentDetail, error) {
	details, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return details, nil
}

// ListUpcomingForAdmin returns the admin's upcoming appointments, newest
// first.
func (s *AppointmentService) ListUpcomingForAdmin(ctx context.Context, adminID string, limit int) ([]models.AppointmentDetail, error) {
	details, err := s.repo.ListUpcomingForAdmin(ctx, adminID, s.now(), limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return details, nil
}

// SetStatus changes an appointment's status with no ownership restriction.
func (s *AppointmentService) SetStatus(ctx context.Context, apptID string, req StatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status := models.AppointmentStatus(req.Status)
	if !models.ValidStatus(status) {
		return appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
	}
	ok, err := s.repo.UpdateStatus(ctx, apptID, status)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}
	return nil
}

// SetStatusForAdmin changes status on an appointment owned by the admin.
func (s *AppointmentService) SetStatusForAdmin(ctx context.Context, adminID, apptID string, req StatusRequest) error {
	if _, err := s.repo.FindForAdmin(ctx, apptID, adminID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return s.SetStatus(ctx, apptID, req)
}

// Approve marks an admin's appointment approved.
func (s *AppointmentService) Approve(ctx context.Context, adminID, apptID string) error {
	return s.SetStatusForAdmin(ctx, adminID, apptID, StatusRequest{Status: string(models.AppointmentStatusApproved)})
}

// SetNotes stores admin notes on an appointment owned by the admin.
func (s *AppointmentService) SetNotes(ctx context.Context, adminID, apptID string, req NotesRequest) error {
	ok, err := s.repo.UpdateAdminNotes(ctx, apptID, adminID, req.Notes)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notes")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
	}
	return nil
}

// Reassign moves an appointment to the slot named in the request. The target
// slot must be available and owned by an admin; claim, release and the
// appointment update happen in one transaction, so a failed claim leaves the
// original assignment untouched.
func (s *AppointmentService) Reassign(ctx context.Context, apptID string, req ReassignRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassign payload")
	}
	appt, err := s.repo.FindByID(ctx, apptID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if appt.SlotID == req.SlotID {
		return appt, nil
	}
	slot, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if !slot.IsAvailable {
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "target slot is not available")
	}

	if err := s.repo.Reassign(ctx, apptID, appt.SlotID, slot.ID, slot.AdminID); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "target slot is not available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign appointment")
	}

	appt.AdminID = slot.AdminID
	appt.SlotID = slot.ID
	if s.notifier != nil {
		s.notifier.AppointmentReassigned(appt, slot)
	}
	return appt, nil
}

// Delete cancels an appointment and frees its slot.
func (s *AppointmentService) Delete(ctx context.Context, apptID string) error {
	appt, err := s.repo.FindByID(ctx, apptID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if err := s.repo.DeleteWithSlotRelease(ctx, apptID, appt.SlotID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}
	return nil
}

// DeleteForAdmin cancels an appointment owned by the admin and frees its
// slot.
func (s *AppointmentService) DeleteForAdmin(ctx context.Context, adminID, apptID string) error {
	appt, err := s.repo.FindForAdmin(ctx, apptID, adminID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if err := s.repo.DeleteWithSlotRelease(ctx, apptID, appt.SlotID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}
	return nil
}
