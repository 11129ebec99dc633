package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	FindUsersByNickname(ctx context.Context, groupCode, nickname string) ([]User, error)
}

// RehearsalFilter narrows rehearsal queries.
type RehearsalFilter struct {
	GroupCode string
}

// RehearsalRepository stores rehearsal sessions together with their child rows.
type RehearsalRepository interface {
	// SaveRehearsal inserts or fully replaces a rehearsal atomically.
	SaveRehearsal(ctx context.Context, rehearsal Rehearsal) error
	GetRehearsal(ctx context.Context, id string) (Rehearsal, error)
	ListRehearsals(ctx context.Context, filter RehearsalFilter) ([]Rehearsal, error)
	DeleteRehearsal(ctx context.Context, id string) error
}

// AuthSessionRepository stores authentication session state.
type AuthSessionRepository interface {
	CreateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetAuthSession(ctx context.Context, token string) (AuthSession, error)
	RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (AuthSession, error)
	DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error
}
