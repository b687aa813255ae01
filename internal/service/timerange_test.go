package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

func TestParseClientTimeCanonical(t *testing.T) {
	got, err := ParseClientTime("01-09-2026 10:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), got)
}

func TestParseClientTimeFallbacks(t *testing.T) {
	for _, value := range []string{
		"2026-09-01T10:00:00Z",
		"2026-09-01T10:00",
		"2026-09-01 10:00",
	} {
		got, err := ParseClientTime(value)
		require.NoError(t, err, value)
		assert.Equal(t, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), got.UTC(), value)
	}
}

func TestParseClientTimeInvalid(t *testing.T) {
	_, err := ParseClientTime("September 1st, 10am")
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTimeFormat.Code, typed.Code)
}

func TestParseTimeRangeExactDuration(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := ParseTimeRange("01-09-2026 10:00", "01-09-2026 10:45", now, true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotDuration.Code, appErrors.FromError(err).Code)

	start, end, err := ParseTimeRange("01-09-2026 10:00", "01-09-2026 10:30", now, true)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, end.Sub(start))
}

func TestParseTimeRangePastRejectedOnlyWhenRequired(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := ParseTimeRange("01-09-2026 10:00", "01-09-2026 10:30", now, true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSlotInPast.Code, appErrors.FromError(err).Code)

	_, _, err = ParseTimeRange("01-09-2026 10:00", "01-09-2026 10:30", now, false)
	assert.NoError(t, err)
}
