package store

import "time"

// Identity is the provider-side principal: credentials plus display name.
// It is distinct from the durable User record so that a failed record
// creation after a successful identity creation is observable.
type Identity struct {
	Email        string
	PasswordHash string
	DisplayName  string
	DisabledAt   *time.Time
	CreatedAt    time.Time
}

// User is the durable profile record, keyed by normalized email. It is
// created exactly once at registration and never overwritten afterward.
type User struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// Dispute is the persisted outcome of a dispute submission.
type Dispute struct {
	ID              string
	UserID          string
	Location        string
	DateOfViolation string
	TicketType      string
	AdditionalNotes string
	TicketImageURL  string
	Status          string // pending | success | failed
	ExtractedText   string
	AppealLetter    string
	CreatedAt       time.Time
}
