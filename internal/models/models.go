package models

import "time"

// MatchStatus values. A match starts pending and moves one-way to
// confirmed; cancelled is terminal from either state.
const (
	MatchPending   = "pending"
	MatchConfirmed = "confirmed"
	MatchCancelled = "cancelled"
)

// Event is a school activity needing transportation. Date is the ISO
// calendar date (YYYY-MM-DD); StartTime/EndTime are free-text display
// strings normalized by domain.NormalizeTimeString.
type Event struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	StartTime string `json:"time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location"`
}

// Driver is a ride offer tied to one event. Seats is the declared
// capacity and never changes after creation; available seats is derived
// from non-cancelled matches. Notes doubles as a free-text location
// hint for the suggestion service.
type Driver struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Seats       int       `json:"seats"`
	Notes       string    `json:"notes"`
	OwnerUserID string    `json:"user_id,omitempty"` // empty for anonymous offers
	CreatedAt   time.Time `json:"created_at"`
}

// Student is a ride request tied to one event.
type Student struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Pickup      string    `json:"pickup"`
	Notes       string    `json:"notes"`
	OwnerUserID string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Match pairs one driver with one student for one event. The triple
// (DriverID, StudentID, EventID) is unique within a store.
type Match struct {
	DriverID  string    `json:"driver_id"`
	StudentID string    `json:"student_id"`
	EventID   string    `json:"event_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an account in the credential store. PasswordHash is opaque to
// everything outside the auth package.
type User struct {
	ID                    string    `json:"id"`
	Email                 string    `json:"email"`
	PasswordHash          string    `json:"password"`
	Name                  string    `json:"name"`
	Phone                 string    `json:"phone"`
	DefaultPickupLocation string    `json:"pickup_location"`
	CreatedAt             time.Time `json:"created_at"`
}

// Assignment is one driver/student pair proposed by the external
// suggestion service.
type Assignment struct {
	DriverID  string `json:"driverId"`
	StudentID string `json:"studentId"`
}
