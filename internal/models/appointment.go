package models

import "time"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending  AppointmentStatus = "pending"
	AppointmentStatusApproved AppointmentStatus = "approved"
	AppointmentStatusRejected AppointmentStatus = "rejected"
)

// ValidStatus reports whether s is a recognised appointment status.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusApproved, AppointmentStatusRejected:
		return true
	}
	return false
}

// Appointment binds one user to one slot with an admin. At most one live
// appointment references a given slot; a slot with a live appointment has
// IsAvailable == false.
type Appointment struct {
	ID         string            `db:"id" json:"id"`
	UserID     string            `db:"user_id" json:"user_id"`
	AdminID    string            `db:"admin_id" json:"admin_id"`
	SlotID     string            `db:"slot_id" json:"slot_id"`
	Status     AppointmentStatus `db:"status" json:"status"`
	Notes      *string           `db:"notes" json:"notes,omitempty"`
	AdminNotes *string           `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentDetail joins an appointment with its slot window and the names
// of the parties, for listings.
type AppointmentDetail struct {
	Appointment
	SlotStart  *time.Time `db:"slot_start" json:"slot_start,omitempty"`
	SlotEnd    *time.Time `db:"slot_end" json:"slot_end,omitempty"`
	UserName   *string    `db:"user_name" json:"user_name,omitempty"`
	UserEmail  *string    `db:"user_email" json:"user_email,omitempty"`
	AdminName  *string    `db:"admin_name" json:"admin_name,omitempty"`
	AdminEmail *string    `db:"admin_email" json:"admin_email,omitempty"`
}
