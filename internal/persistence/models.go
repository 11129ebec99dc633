package persistence

import (
	"time"

	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

// User represents a circle member account.
type User struct {
	ID           string
	Email        string
	Nickname     string
	GroupCode    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Rehearsal is the stored form of a rehearsal session: its header, participants,
// availability and finalized entries.
type Rehearsal struct {
	ID           string
	CreatorID    string
	GroupCode    string
	Title        string
	StartDate    scheduler.Date
	EndDate      scheduler.Date
	Participants []string
	Availability map[string][]scheduler.SlotKey
	Finalized    []scheduler.FinalizedEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthSession represents an authentication session persisted for a user.
type AuthSession struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
