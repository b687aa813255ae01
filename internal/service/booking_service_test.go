package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsanalytics/appointment-api/internal/models"
	"github.com/cloudsanalytics/appointment-api/internal/repository"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

type mockBookingSlots struct {
	mu    sync.Mutex
	slots map[string]models.Slot

	// onList runs before each candidate enumeration, standing in for a
	// concurrent writer racing the arbitration.
	onList func()
}

func (m *mockBookingSlots) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBookingSlots) ListCandidates(ctx context.Context, start, end time.Time) ([]models.Slot, error) {
	if m.onList != nil {
		m.onList()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Slot
	for _, s := range m.slots {
		if s.IsAvailable && s.StartTime.Equal(start) && s.EndTime.Equal(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

// claim flips the slot unavailable, reporting whether this caller won.
func (m *mockBookingSlots) claim(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || !s.IsAvailable {
		return false
	}
	s.IsAvailable = false
	m.slots[id] = s
	return true
}

type mockBookingUsers struct {
	mu      sync.Mutex
	byEmail map[string]models.User
	created []models.User
}

func (m *mockBookingUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBookingUsers) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (m *mockBookingUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = "guest"
	}
	if m.byEmail == nil {
		m.byEmail = make(map[string]models.User)
	}
	if user.Email != nil {
		m.byEmail[*user.Email] = *user
	}
	m.created = append(m.created, *user)
	return nil
}

type mockBookingAppts struct {
	mu     sync.Mutex
	slots  *mockBookingSlots
	booked []models.Appointment
}

func (m *mockBookingAppts) Book(ctx context.Context, appt *models.Appointment) error {
	if !m.slots.claim(appt.SlotID) {
		return repository.ErrSlotTaken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if appt.ID == "" {
		appt.ID = "appt-" + appt.SlotID
	}
	m.booked = append(m.booked, *appt)
	return nil
}

func (m *mockBookingAppts) ListByUser(ctx context.Context, userID string) ([]models.AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AppointmentDetail
	for _, appt := range m.booked {
		if appt.UserID == userID {
			out = append(out, models.AppointmentDetail{Appointment: appt})
		}
	}
	return out, nil
}

func newBookingFixture(slots ...models.Slot) (*mockBookingSlots, *mockBookingUsers, *mockBookingAppts, *BookingService) {
	slotRepo := &mockBookingSlots{slots: make(map[string]models.Slot)}
	for _, s := range slots {
		slotRepo.slots[s.ID] = s
	}
	userRepo := &mockBookingUsers{}
	apptRepo := &mockBookingAppts{slots: slotRepo}
	svc := NewBookingService(slotRepo, userRepo, apptRepo, nil, nil, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }
	return slotRepo, userRepo, apptRepo, svc
}

func TestBookingRequiresContact(t *testing.T) {
	_, _, _, svc := newBookingFixture()

	_, err := svc.Book(context.Background(), BookingRequest{SlotID: "s1", Name: "Pat"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrContactRequired.Code, appErrors.FromError(err).Code)
}

func TestBookingConfirmsAndFlipsSlot(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	slotRepo, userRepo, apptRepo, svc := newBookingFixture(slotAt("s1", "admin-1", start, true))

	result, err := svc.Book(context.Background(), BookingRequest{SlotID: "s1", Name: "Pat", Email: "pat@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusApproved, result.Appointment.Status)
	assert.False(t, slotRepo.slots["s1"].IsAvailable)
	assert.Len(t, apptRepo.booked, 1)
	assert.Len(t, userRepo.created, 1)
}

func TestBookingReusesExistingUserByEmail(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	_, userRepo, apptRepo, svc := newBookingFixture(slotAt("s1", "admin-1", start, true))
	email := "known@example.com"
	userRepo.byEmail = map[string]models.User{email: {ID: "user-7", Name: "Known", Email: &email, Role: models.RoleUser}}

	_, err := svc.Book(context.Background(), BookingRequest{SlotID: "s1", Name: "Someone Else", Email: email})
	require.NoError(t, err)
	assert.Empty(t, userRepo.created)
	assert.Equal(t, "user-7", apptRepo.booked[0].UserID)
}

func TestBookingArbitratesAcrossAdmins(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	slots := []models.Slot{
		slotAt("s1", "admin-1", start, false),
		slotAt("s2", "admin-2", start, true),
		slotAt("s3", "admin-3", start, true),
	}
	_, _, apptRepo, svc := newBookingFixture(slots...)

	result, err := svc.Book(context.Background(), BookingRequest{SlotID: "s2", Name: "Pat", Email: "pat@example.com"})
	require.NoError(t, err)
	assert.Contains(t, []string{"s2", "s3"}, result.Slot.ID)
	assert.Equal(t, result.Slot.AdminID, apptRepo.booked[0].AdminID)
}

func TestBookingRepresentativeAlreadyBooked(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	slots := []models.Slot{
		slotAt("s1", "admin-1", start, false),
		slotAt("s2", "admin-2", start, true),
	}
	slotRepo, _, apptRepo, svc := newBookingFixture(slots...)

	_, err := svc.Book(context.Background(), BookingRequest{SlotID: "s1", Name: "Pat", Email: "pat@example.com"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
	assert.Empty(t, apptRepo.booked)
	assert.True(t, slotRepo.slots["s2"].IsAvailable)
}

func TestBookingNoCandidates(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	slotRepo, _, _, svc := newBookingFixture(slotAt("s1", "admin-1", start, true))
	// The last candidate is claimed between the representative check and the
	// candidate enumeration.
	slotRepo.onList = func() { slotRepo.claim("s1") }

	_, err := svc.Book(context.Background(), BookingRequest{SlotID: "s1", Name: "Pat", Email: "pat@example.com"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoCandidates.Code, appErrors.FromError(err).Code)
}

func TestBookingExpiredWindow(t *testing.T) {
	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	_, _, _, svc := newBookingFixture(slotAt("s1", "admin-1", start, true))

	_, err := svc.Book(context.Background(), BookingRequest{SlotID: "s1", Name: "Pat", Email: "pat@example.com"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
}

func TestListByContactReturnsOwnBookings(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	_, _, _, svc := newBookingFixture(slotAt("s1", "admin-1", start, true))

	_, err := svc.Book(context.Background(), BookingRequest{SlotID: "s1", Name: "Pat", Email: "pat@example.com"})
	require.NoError(t, err)

	details, err := svc.ListByContact(context.Background(), "pat@example.com", "")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "s1", details[0].SlotID)
}

func TestListByContactUnknownContactEmpty(t *testing.T) {
	_, _, _, svc := newBookingFixture()

	details, err := svc.ListByContact(context.Background(), "nobody@example.com", "")
	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestListByContactRequiresContact(t *testing.T) {
	_, _, _, svc := newBookingFixture()

	_, err := svc.ListByContact(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrContactRequired.Code, appErrors.FromError(err).Code)
}

// Concurrent bookings for the same window must never double-book a slot:
// with N candidate slots and K > N concurrent requests, exactly N succeed
// and each slot carries exactly one appointment.
func TestBookingConcurrentNoDoubleBooking(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	slots := []models.Slot{
		slotAt("s1", "admin-1", start, true),
		slotAt("s2", "admin-2", start, true),
		slotAt("s3", "admin-3", start, true),
	}
	_, _, apptRepo, svc := newBookingFixture(slots...)

	const requests = 10
	reps := []string{"s1", "s2", "s3"}
	var wg sync.WaitGroup
	errs := make([]error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "user" + string(rune('a'+i)) + "@example.com"
			_, errs[i] = svc.Book(context.Background(), BookingRequest{SlotID: reps[i%len(reps)], Name: "Guest", Email: email})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			code := appErrors.FromError(err).Code
			assert.Contains(t, []string{appErrors.ErrSlotUnavailable.Code, appErrors.ErrNoCandidates.Code}, code)
		}
	}
	assert.Equal(t, len(slots), succeeded)

	seen := make(map[string]int)
	for _, appt := range apptRepo.booked {
		seen[appt.SlotID]++
	}
	for slotID, count := range seen {
		assert.Equal(t, 1, count, slotID)
	}
	assert.Len(t, apptRepo.booked, len(slots))
}
