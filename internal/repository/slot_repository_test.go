package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsanalytics/appointment-api/internal/models"
)

func newSlotMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func slotRows(slots ...models.Slot) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "admin_id", "start_time", "end_time", "is_available", "created_at", "updated_at"})
	for _, s := range slots {
		rows.AddRow(s.ID, s.AdminID, s.StartTime, s.EndTime, s.IsAvailable, s.CreatedAt, s.UpdatedAt)
	}
	return rows
}

func TestSlotRepositoryExistsDuplicate(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(models.SlotDuration)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots WHERE admin_id = $1 AND id <> $2 AND start_time = $3 AND end_time = $4 LIMIT 1")).
		WithArgs("admin-1", "", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsDuplicate(context.Background(), "admin-1", start, end, "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryExistsDuplicateExcludesSelf(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(models.SlotDuration)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots WHERE admin_id = $1 AND id <> $2 AND start_time = $3 AND end_time = $4 LIMIT 1")).
		WithArgs("admin-1", "slot-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsDuplicate(context.Background(), "admin-1", start, end, "slot-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryExistsDuplicateNone(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(models.SlotDuration)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots WHERE admin_id = $1 AND id <> $2 AND start_time = $3 AND end_time = $4 LIMIT 1")).
		WithArgs("admin-1", "", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsDuplicate(context.Background(), "admin-1", start, end, "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryExistsOverlapping(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	start := time.Date(2026, 9, 1, 10, 15, 0, 0, time.UTC)
	end := start.Add(models.SlotDuration)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots WHERE admin_id = $1 AND id <> $2 AND start_time < $3 AND end_time > $4 LIMIT 1")).
		WithArgs("admin-1", "", end, start).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsOverlapping(context.Background(), "admin-1", start, end, "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("INSERT INTO slots").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	slot := &models.Slot{AdminID: "admin-1", StartTime: start, EndTime: start.Add(models.SlotDuration), IsAvailable: true}
	err := repo.Create(context.Background(), slot)
	require.NoError(t, err)
	assert.NotEmpty(t, slot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryUpdateTimesLocked(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET start_time = $2, end_time = $3, updated_at = $4 WHERE id = $1 AND is_available = TRUE")).
		WithArgs("slot-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	start := time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
	err := repo.UpdateTimes(context.Background(), "slot-1", start, start.Add(models.SlotDuration))
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDeleteLocked(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slots WHERE id = $1 AND is_available = TRUE")).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "slot-1")
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListCandidates(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(models.SlotDuration)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, admin_id, start_time, end_time, is_available, created_at, updated_at FROM slots WHERE start_time = $1 AND end_time = $2 AND is_available = TRUE")).
		WithArgs(start, end).
		WillReturnRows(slotRows(
			models.Slot{ID: "s1", AdminID: "a1", StartTime: start, EndTime: end, IsAvailable: true, CreatedAt: now, UpdatedAt: now},
			models.Slot{ID: "s2", AdminID: "a2", StartTime: start, EndTime: end, IsAvailable: true, CreatedAt: now, UpdatedAt: now},
		))

	slots, err := repo.ListCandidates(context.Background(), start, end)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryFreeOrphaned(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_available = TRUE, updated_at = $2 WHERE admin_id = $1 AND is_available = FALSE AND NOT EXISTS (SELECT 1 FROM appointments WHERE appointments.slot_id = slots.id)")).
		WithArgs("admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	freed, err := repo.FreeOrphaned(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), freed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDeleteEnded(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	cutoff := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slots WHERE end_time < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteEnded(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
