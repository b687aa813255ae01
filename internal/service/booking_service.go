package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cloudsanalytics/appointment-api/internal/models"
	"github.com/cloudsanalytics/appointment-api/internal/repository"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

// maxClaimAttempts bounds how many times a booking retries arbitration after
// losing the slot claim to a concurrent writer.
const maxClaimAttempts = 3

type bookingSlotRepository interface {
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	ListCandidates(ctx context.Context, start, end time.Time) ([]models.Slot, error)
}

type bookingUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByMobile(ctx context.Context, mobile string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type bookingAppointmentRepository interface {
	Book(ctx context.Context, appt *models.Appointment) error
	ListByUser(ctx context.Context, userID string) ([]models.AppointmentDetail, error)
}

type bookingNotifier interface {
	BookingConfirmed(appt *models.Appointment, slot *models.Slot, user *models.User)
}

type bookingMetrics interface {
	BookingOutcome(outcome string)
}

// SelectionPolicy picks one slot out of a non-empty candidate set. The
// default picks uniformly at random so load spreads across admins offering
// the same window.
type SelectionPolicy func(candidates []models.Slot) models.Slot

// UniformRandomPolicy returns a policy choosing candidates uniformly using
// the given source. A nil source falls back to the shared one.
func UniformRandomPolicy(rng *rand.Rand) SelectionPolicy {
	return func(candidates []models.Slot) models.Slot {
		if rng != nil {
			return candidates[rng.Intn(len(candidates))]
		}
		return candidates[rand.Intn(len(candidates))]
	}
}

// BookingRequest is the public booking payload. The slot id names any slot in
// the desired window; arbitration decides which admin actually serves it.
type BookingRequest struct {
	SlotID string  `json:"slot_id" validate:"required"`
	Name   string  `json:"name" validate:"required"`
	Email  string  `json:"email" validate:"omitempty,email"`
	Mobile string  `json:"mobile" validate:"omitempty,min=6"`
	Notes  *string `json:"notes"`
}

// BookingResult reports the confirmed appointment and the slot that won
// arbitration.
type BookingResult struct {
	Appointment *models.Appointment `json:"appointment"`
	Slot        *models.Slot        `json:"slot"`
}

// BookingService arbitrates public bookings: it resolves the requested
// window to the set of available slots across admins, picks one, and claims
// it atomically, retrying a bounded number of times when a concurrent
// booking wins the claim.
type BookingService struct {
	slots     bookingSlotRepository
	users     bookingUserRepository
	appts     bookingAppointmentRepository
	notifier  bookingNotifier
	metrics   bookingMetrics
	policy    SelectionPolicy
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService constructs BookingService. A nil policy selects
// uniformly at random.
func NewBookingService(slots bookingSlotRepository, users bookingUserRepository, appts bookingAppointmentRepository, notifier bookingNotifier, metrics bookingMetrics, policy SelectionPolicy, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if policy == nil {
		policy = UniformRandomPolicy(nil)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		slots:     slots,
		users:     users,
		appts:     appts,
		notifier:  notifier,
		metrics:   metrics,
		policy:    policy,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *BookingService) outcome(name string) {
	if s.metrics != nil {
		s.metrics.BookingOutcome(name)
	}
}

// resolveUser finds the guest by email first, then mobile, creating a guest
// account when neither matches.
func (s *BookingService) resolveUser(ctx context.Context, req BookingRequest) (*models.User, error) {
	if req.Email != "" {
		user, err := s.users.FindByEmail(ctx, req.Email)
		if err == nil {
			return user, nil
		}
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user by email")
		}
	}
	if req.Mobile != "" {
		user, err := s.users.FindByMobile(ctx, req.Mobile)
		if err == nil {
			return user, nil
		}
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user by mobile")
		}
	}

	name := req.Name
	if name == "" {
		name = "Guest User"
	}
	user := &models.User{Name: name, Role: models.RoleUser}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if req.Mobile != "" {
		user.Mobile = &req.Mobile
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create guest user")
	}
	return user, nil
}

// Book places a booking for the window named by req.SlotID.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.Email == "" && req.Mobile == "" {
		return nil, appErrors.Clone(appErrors.ErrContactRequired, "")
	}

	representative, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if representative.EndTime.Before(s.now()) {
		s.outcome("window_expired")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}
	if !representative.IsAvailable {
		s.outcome("slot_taken")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}

	user, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		candidates, err := s.slots.ListCandidates(ctx, representative.StartTime, representative.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list candidate slots")
		}
		if len(candidates) == 0 {
			if attempt == 1 {
				s.outcome("no_candidates")
				return nil, appErrors.Clone(appErrors.ErrNoCandidates, "")
			}
			break
		}

		chosen := s.policy(candidates)
		appt := &models.Appointment{
			UserID:  user.ID,
			AdminID: chosen.AdminID,
			SlotID:  chosen.ID,
			Status:  models.AppointmentStatusApproved,
			Notes:   req.Notes,
		}
		err = s.appts.Book(ctx, appt)
		if err == nil {
			chosen.IsAvailable = false
			s.outcome("confirmed")
			if s.notifier != nil {
				s.notifier.BookingConfirmed(appt, &chosen, user)
			}
			return &BookingResult{Appointment: appt, Slot: &chosen}, nil
		}
		if errors.Is(err, repository.ErrSlotTaken) {
			s.logger.Info("lost slot claim, retrying arbitration",
				zap.String("slot_id", chosen.ID),
				zap.Int("attempt", attempt))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book appointment")
	}

	s.outcome("exhausted")
	return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
}

// ListForUser returns a user's appointments with slot details.
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]models.AppointmentDetail, error) {
	details, err := s.appts.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return details, nil
}

// ListByContact returns the bookings placed under the given contact, email
// preferred over mobile. An unknown contact yields an empty list rather than
// an error since guests cannot know whether they have booked before.
func (s *BookingService) ListByContact(ctx context.Context, email, mobile string) ([]models.AppointmentDetail, error) {
	if email == "" && mobile == "" {
		return nil, appErrors.Clone(appErrors.ErrContactRequired, "")
	}

	var user *models.User
	if email != "" {
		found, err := s.users.FindByEmail(ctx, email)
		if err != nil && err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user by email")
		}
		user = found
	}
	if user == nil && mobile != "" {
		found, err := s.users.FindByMobile(ctx, mobile)
		if err != nil && err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user by mobile")
		}
		user = found
	}
	if user == nil {
		return []models.AppointmentDetail{}, nil
	}
	return s.ListForUser(ctx, user.ID)
}
