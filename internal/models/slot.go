package models

import "time"

// SlotDuration is the fixed length of every bookable slot.
const SlotDuration = 30 * time.Minute

// Slot is a fixed 30-minute time window owned by one admin, bookable while
// available. A slot may only be edited or deleted while IsAvailable is true.
type Slot struct {
	ID          string    `db:"id" json:"id"`
	AdminID     string    `db:"admin_id" json:"admin_id"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the slot's window intersects [start, end) under
// half-open interval semantics: touching endpoints do not overlap.
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}

// SlotWindow is a public view of one bookable time window. Identical windows
// from different admins collapse into a single entry carrying a representative
// slot id; admin identity is never exposed to end users.
type SlotWindow struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
