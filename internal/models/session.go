// internal/models/session.go
package models

import "time"

// Session statuses. "submitted" and "left" are terminal.
const (
	SessionInProgress = "in-progress"
	SessionSubmitted  = "submitted"
	SessionLeft       = "left"
)

// UserSession tracks one in-progress form fill for the ops dashboard.
// The id is derived from the phone number plus creation timestamp.
type UserSession struct {
	ID           string    `json:"id" db:"id"`
	PhoneNumber  string    `json:"phoneNumber" db:"phone_number"`
	CurrentStep  int       `json:"currentStep" db:"current_step"`
	CurrentField string    `json:"currentField,omitempty" db:"current_field"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	LastActivity time.Time `json:"lastActivity" db:"last_activity"`
}

// IsTerminal reports whether no further tracking updates may change status.
func (s *UserSession) IsTerminal() bool {
	return s.Status == SessionSubmitted || s.Status == SessionLeft
}
