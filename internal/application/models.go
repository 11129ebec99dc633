package application

import (
	"time"

	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

// Principal represents the authenticated member invoking a service method.
type Principal struct {
	UserID    string
	GroupCode string
}

// User represents a circle member exposed by the application services.
type User struct {
	ID        string
	Email     string
	Nickname  string
	GroupCode string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal returns the principal acting as u.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, GroupCode: u.GroupCode}
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// RegisterParams captures the data required to create an account.
type RegisterParams struct {
	Email     string
	Password  string
	Nickname  string
	GroupCode string
}

// UpdateNicknameParams wraps a nickname change for the acting member.
type UpdateNicknameParams struct {
	Principal Principal
	Nickname  string
}

// AuthSession represents an authenticated session issued to a user.
type AuthSession struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session AuthSession
}

// CreateSessionParams captures the fields of a new rehearsal session. Dates are ISO strings.
type CreateSessionParams struct {
	Principal Principal
	Title     string
	StartDate string
	EndDate   string
}

// ImportSessionParams carries the fields of a shared link.
type ImportSessionParams struct {
	Principal Principal
	ID        string
	Title     string
	GroupCode string
	CreatorID string
	StartDate string
	EndDate   string
}

// SubmitAvailabilityParams replaces the acting member's free slots.
type SubmitAvailabilityParams struct {
	Principal Principal
	SessionID string
	Slots     []string
}

// FinalizeParams is one confirmation request from the creator.
type FinalizeParams struct {
	Principal Principal
	SessionID string
	Slots     []string
	Room      string
	Equipment []string
	// Locale selects the language of warning messages. Empty uses the default.
	Locale string
}

// FinalizeResult captures the updated session and the entries just confirmed.
type FinalizeResult struct {
	Session  scheduler.Session
	Entries  []scheduler.FinalizedEntry
	Warnings []scheduler.Warning
	Members  map[string]string
}

// SessionDetail is a session together with the nicknames of everyone it mentions.
type SessionDetail struct {
	Session scheduler.Session
	// Members maps user ids to nicknames. Unknown ids are absent.
	Members map[string]string
}

// Grid is the availability table of a session: one row per date, one cell per period.
type Grid struct {
	SessionID string
	Periods   []scheduler.Period
	Rows      []GridRow
}

// GridRow holds the cells of one date.
type GridRow struct {
	Date  scheduler.Date
	Label string
	Cells []GridCell
}

// GridCell summarises who is free in one slot.
type GridCell struct {
	Key          scheduler.SlotKey
	Count        int
	Participants []string
	Mine         bool
	Confirmed    bool
}
