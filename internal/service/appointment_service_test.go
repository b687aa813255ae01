package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsanalytics/appointment-api/internal/models"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

type mockApptRepo struct {
	appts       map[string]models.Appointment
	slots       map[string]models.Slot
	statuses    map[string]models.AppointmentStatus
	notes       map[string]*string
	deleted     []string
	reassigned  bool
	releasedIDs []string
}

func (m *mockApptRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	if a, ok := m.appts[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApptRepo) FindForAdmin(ctx context.Context, id, adminID string) (*models.Appointment, error) {
	if a, ok := m.appts[id]; ok && a.AdminID == adminID {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApptRepo) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) (bool, error) {
	if _, ok := m.appts[id]; !ok {
		return false, nil
	}
	if m.statuses == nil {
		m.statuses = make(map[string]models.AppointmentStatus)
	}
	m.statuses[id] = status
	return true, nil
}

func (m *mockApptRepo) UpdateAdminNotes(ctx context.Context, id, adminID string, notes *string) (bool, error) {
	a, ok := m.appts[id]
	if !ok || a.AdminID != adminID {
		return false, nil
	}
	if m.notes == nil {
		m.notes = make(map[string]*string)
	}
	m.notes[id] = notes
	return true, nil
}

func (m *mockApptRepo) Reassign(ctx context.Context, apptID, oldSlotID, newSlotID, newAdminID string) error {
	old := m.slots[oldSlotID]
	old.IsAvailable = true
	m.slots[oldSlotID] = old

	next := m.slots[newSlotID]
	next.IsAvailable = false
	m.slots[newSlotID] = next

	a := m.appts[apptID]
	a.AdminID = newAdminID
	a.SlotID = newSlotID
	m.appts[apptID] = a
	m.reassigned = true
	return nil
}

func (m *mockApptRepo) DeleteWithSlotRelease(ctx context.Context, apptID, slotID string) error {
	delete(m.appts, apptID)
	m.deleted = append(m.deleted, apptID)
	m.releasedIDs = append(m.releasedIDs, slotID)
	if s, ok := m.slots[slotID]; ok {
		s.IsAvailable = true
		m.slots[slotID] = s
	}
	return nil
}

func (m *mockApptRepo) ListAll(ctx context.Context) ([]models.AppointmentDetail, error) {
	var out []models.AppointmentDetail
	for _, a := range m.appts {
		out = append(out, models.AppointmentDetail{Appointment: a})
	}
	return out, nil
}

func (m *mockApptRepo) ListUpcomingForAdmin(ctx context.Context, adminID string, cutoff time.Time, limit int) ([]models.AppointmentDetail, error) {
	return nil, nil
}

type mockApptSlots struct {
	slots map[string]models.Slot
}

func (m *mockApptSlots) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	if s, ok := m.slots[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func newAppointmentFixture() (*mockApptRepo, *AppointmentService) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	slots := map[string]models.Slot{
		"s1": slotAt("s1", "admin-1", start, false),
		"s2": slotAt("s2", "admin-2", start.Add(time.Hour), true),
		"s3": slotAt("s3", "admin-3", start.Add(2*time.Hour), false),
	}
	repo := &mockApptRepo{
		appts: map[string]models.Appointment{
			"a1": {ID: "a1", UserID: "user-1", AdminID: "admin-1", SlotID: "s1", Status: models.AppointmentStatusApproved},
		},
		slots: slots,
	}
	svc := NewAppointmentService(repo, &mockApptSlots{slots: slots}, nil, nil, nil)
	return repo, svc
}

func TestAppointmentReassignMovesSlotAndAdmin(t *testing.T) {
	repo, svc := newAppointmentFixture()

	appt, err := svc.Reassign(context.Background(), "a1", ReassignRequest{SlotID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, "admin-2", appt.AdminID)
	assert.Equal(t, "s2", appt.SlotID)
	assert.True(t, repo.reassigned)
	assert.True(t, repo.slots["s1"].IsAvailable)
	assert.False(t, repo.slots["s2"].IsAvailable)
}

func TestAppointmentReassignToBookedSlotRefused(t *testing.T) {
	repo, svc := newAppointmentFixture()

	_, err := svc.Reassign(context.Background(), "a1", ReassignRequest{SlotID: "s3"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.reassigned)
	assert.False(t, repo.slots["s1"].IsAvailable)
}

func TestAppointmentReassignSameSlotNoop(t *testing.T) {
	repo, svc := newAppointmentFixture()

	appt, err := svc.Reassign(context.Background(), "a1", ReassignRequest{SlotID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", appt.AdminID)
	assert.False(t, repo.reassigned)
}

func TestAppointmentSetStatusInvalid(t *testing.T) {
	_, svc := newAppointmentFixture()

	err := svc.SetStatus(context.Background(), "a1", StatusRequest{Status: "cancelled"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAppointmentSetStatusForAdminOwnershipEnforced(t *testing.T) {
	repo, svc := newAppointmentFixture()

	err := svc.SetStatusForAdmin(context.Background(), "admin-2", "a1", StatusRequest{Status: "rejected"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.SetStatusForAdmin(context.Background(), "admin-1", "a1", StatusRequest{Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusRejected, repo.statuses["a1"])
}

func TestAppointmentDeleteReleasesSlot(t *testing.T) {
	repo, svc := newAppointmentFixture()

	err := svc.Delete(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, repo.releasedIDs)
	assert.True(t, repo.slots["s1"].IsAvailable)
}

func TestAppointmentSetNotes(t *testing.T) {
	repo, svc := newAppointmentFixture()

	notes := "bring documents"
	err := svc.SetNotes(context.Background(), "admin-1", "a1", NotesRequest{Notes: &notes})
	require.NoError(t, err)
	require.NotNil(t, repo.notes["a1"])
	assert.Equal(t, notes, *repo.notes["a1"])
}
