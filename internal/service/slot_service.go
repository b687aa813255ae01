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

type slotRepository interface {
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	FindForAdmin(ctx context.Context, id, adminID string) (*models.Slot, error)
	ExistsDuplicate(ctx context.Context, adminID string, start, end time.Time, excludeID string) (bool, error)
	ExistsOverlapping(ctx context.Context, adminID string, start, end time.Time, excludeID string) (bool, error)
	CountInRange(ctx context.Context, adminID string, from, to time.Time) (int, error)
	ListForAdmin(ctx context.Context, adminID string, cutoff time.Time, day *time.Time) ([]models.Slot, error)
	ListAvailable(ctx context.Context) ([]models.Slot, error)
	Create(ctx context.Context, slot *models.Slot) error
	UpdateTimes(ctx context.Context, id string, start, end time.Time) error
	Delete(ctx context.Context, id string) error
	FreeOrphaned(ctx context.Context, adminID string) (int64, error)
}

// SlotRequest carries a slot window as submitted by an admin.
type SlotRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// SlotCreated is the creation result including how many slots the admin now
// has on that day.
type SlotCreated struct {
	Slot     *models.Slot `json:"slot"`
	DayCount int          `json:"day_count"`
}

// SlotService manages an admin's slot inventory and enforces the conflict
// rules between windows owned by the same admin.
type SlotService struct {
	repo      slotRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSlotService constructs SlotService.
func NewSlotService(repo slotRepository, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{repo: repo, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// checkConflicts rejects the window when the admin already holds the exact
// same window or any overlapping one. excludeID skips the slot being edited.
func (s *SlotService) checkConflicts(ctx context.Context, adminID string, start, end time.Time, excludeID string) error {
	dup, err := s.repo.ExistsDuplicate(ctx, adminID, start, end, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicate slots")
	}
	if dup {
		return appErrors.Clone(appErrors.ErrDuplicateSlot, "")
	}
	overlap, err := s.repo.ExistsOverlapping(ctx, adminID, start, end, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check overlapping slots")
	}
	if overlap {
		return appErrors.Clone(appErrors.ErrSlotOverlap, "")
	}
	return nil
}

// Create validates the window, checks conflicts against the admin's existing
// slots and stores the new slot as available.
func (s *SlotService) Create(ctx context.Context, adminID string, req SlotRequest) (*SlotCreated, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	start, end, err := ParseTimeRange(req.StartTime, req.EndTime, s.now(), true)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, adminID, start, end, ""); err != nil {
		return nil, err
	}

	slot := &models.Slot{AdminID: adminID, StartTime: start, EndTime: end, IsAvailable: true}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	count, err := s.repo.CountInRange(ctx, adminID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Warn("failed to count slots for day", zap.String("admin_id", adminID), zap.Error(err))
		count = 0
	}
	return &SlotCreated{Slot: slot, DayCount: count}, nil
}

// Update replaces a slot's window. Booked slots refuse edits.
func (s *SlotService) Update(ctx context.Context, adminID, slotID string, req SlotRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	slot, err := s.repo.FindForAdmin(ctx, slotID, adminID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if !slot.IsAvailable {
		return nil, appErrors.Clone(appErrors.ErrSlotLocked, "cannot update a booked slot")
	}
	start, end, err := ParseTimeRange(req.StartTime, req.EndTime, s.now(), false)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, adminID, start, end, slotID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTimes(ctx, slotID, start, end); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, appErrors.Clone(appErrors.ErrSlotLocked, "cannot update a booked slot")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update slot")
	}
	slot.StartTime = start
	slot.EndTime = end
	return slot, nil
}

// Delete removes a slot. Booked slots refuse deletion.
func (s *SlotService) Delete(ctx context.Context, adminID, slotID string) error {
	slot, err := s.repo.FindForAdmin(ctx, slotID, adminID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if !slot.IsAvailable {
		return appErrors.Clone(appErrors.ErrSlotLocked, "cannot delete a booked slot")
	}
	if err := s.repo.Delete(ctx, slotID); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return appErrors.Clone(appErrors.ErrSlotLocked, "cannot delete a booked slot")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
	}
	return nil
}

// ListForAdmin returns the admin's slots that have not ended yet, optionally
// filtered to a single day. Slots marked booked without a live appointment
// are reconciled back to available first.
func (s *SlotService) ListForAdmin(ctx context.Context, adminID string, dayRaw string) ([]models.Slot, error) {
	if freed, err := s.repo.FreeOrphaned(ctx, adminID); err != nil {
		s.logger.Warn("failed to reconcile orphaned slots", zap.String("admin_id", adminID), zap.Error(err))
	} else if freed > 0 {
		s.logger.Info("reconciled orphaned slots", zap.String("admin_id", adminID), zap.Int64("freed", freed))
	}

	var day *time.Time
	if dayRaw != "" {
		parsed, err := time.ParseInLocation("02-01-2006", dayRaw, time.UTC)
		if err != nil {
			parsed, err = time.ParseInLocation("2006-01-02", dayRaw, time.UTC)
		}
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidTimeFormat, "invalid date filter, use DD-MM-YYYY")
		}
		day = &parsed
	}

	slots, err := s.repo.ListForAdmin(ctx, adminID, s.now(), day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}

// ListOpenWindows returns the public view of bookable windows: available
// slots collapsed by identical start and end, each represented by one slot
// id. Which admin serves the window is decided at booking time.
func (s *SlotService) ListOpenWindows(ctx context.Context) ([]models.SlotWindow, error) {
	slots, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available slots")
	}

	now := s.now()
	seen := make(map[string]struct{}, len(slots))
	windows := make([]models.SlotWindow, 0, len(slots))
	for _, slot := range slots {
		if slot.EndTime.Before(now) {
			continue
		}
		key := slot.StartTime.UTC().Format(time.RFC3339) + "|" + slot.EndTime.UTC().Format(time.RFC3339)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		windows = append(windows, models.SlotWindow{ID: slot.ID, StartTime: slot.StartTime, EndTime: slot.EndTime})
	}
	return windows, nil
}
