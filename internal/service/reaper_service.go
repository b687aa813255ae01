package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

type reaperAppointmentRepository interface {
	DeleteWhereSlotEnded(ctx context.Context, cutoff time.Time) (int64, error)
}

type reaperSlotRepository interface {
	DeleteEnded(ctx context.Context, cutoff time.Time) (int64, error)
}

type reaperMetrics interface {
	ReaperSwept(appointments, slots int64)
}

// SweepResult reports how many rows a sweep removed.
type SweepResult struct {
	Appointments int64 `json:"appointments"`
	Slots        int64 `json:"slots"`
}

// ReaperService removes slots whose window has passed together with their
// appointments. Appointments go first so the join to slot end times still
// resolves; the sweep is idempotent, a second run over the same cutoff
// removes nothing.
type ReaperService struct {
	appts    reaperAppointmentRepository
	slots    reaperSlotRepository
	metrics  reaperMetrics
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// NewReaperService constructs ReaperService. A non-positive interval falls
// back to 30 minutes.
func NewReaperService(appts reaperAppointmentRepository, slots reaperSlotRepository, metrics reaperMetrics, logger *zap.Logger, interval time.Duration) *ReaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &ReaperService{
		appts:    appts,
		slots:    slots,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sweep removes expired appointments, then expired slots, using a single
// cutoff captured at the start so both deletes agree on what counts as
// ended.
func (s *ReaperService) Sweep(ctx context.Context) (*SweepResult, error) {
	cutoff := s.now()

	appointments, err := s.appts.DeleteWhereSlotEnded(ctx, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep expired appointments")
	}
	slots, err := s.slots.DeleteEnded(ctx, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sweep expired slots")
	}

	if s.metrics != nil {
		s.metrics.ReaperSwept(appointments, slots)
	}
	if appointments > 0 || slots > 0 {
		s.logger.Info("swept expired records",
			zap.Int64("appointments", appointments),
			zap.Int64("slots", slots))
	}
	return &SweepResult{Appointments: appointments, Slots: slots}, nil
}

// Start runs a sweep immediately and then on every tick until the context is
// cancelled.
func (s *ReaperService) Start(ctx context.Context) {
	go func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Warn("startup sweep failed", zap.Error(err))
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Warn("scheduled sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
