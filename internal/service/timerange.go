package service

import (
	"time"

	"github.com/cloudsanalytics/appointment-api/internal/models"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

// timeLayout is the canonical client-facing layout, DD-MM-YYYY HH:mm.
const timeLayout = "02-01-2006 15:04"

// fallbackLayouts are accepted when the canonical layout fails, so callers
// sending ISO-style timestamps are still understood.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseClientTime parses a single client-supplied timestamp. The canonical
// layout is tried first, then the fallbacks.
func ParseClientTime(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, value, time.UTC); err == nil {
		return t, nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrInvalidTimeFormat, "")
}

// ParseTimeRange parses and validates a client-supplied slot window. The end
// must land exactly one slot duration after the start. When requireFuture is
// set the start may not be in the past relative to now.
func ParseTimeRange(startRaw, endRaw string, now time.Time, requireFuture bool) (time.Time, time.Time, error) {
	start, err := ParseClientTime(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseClientTime(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if requireFuture && start.Before(now) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrSlotInPast, "")
	}
	if end.Sub(start) != models.SlotDuration {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrSlotDuration, "")
	}
	return start, end, nil
}

// FormatClientTime renders a timestamp in the canonical client layout.
func FormatClientTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
