package testfixtures

import (
	"fmt"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/persistence"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

var (
	userCounter      uint64
	rehearsalCounter uint64
	authCounter      uint64
)

var referenceTime = time.Date(2024, time.April, 30, 3, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures
// (2024-04-30 12:00 JST).
func ReferenceTime() time.Time {
	return referenceTime
}

// DefaultGroupCode is the circle every fixture belongs to unless overridden.
const DefaultGroupCode = "circle"

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic member record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	Nickname     string
	GroupCode    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		Nickname:     fmt.Sprintf("Member %03d", idx),
		GroupCode:    DefaultGroupCode,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// WithUserNickname overrides the generated nickname.
func WithUserNickname(nickname string) UserOption {
	return func(f *UserFixture) { f.Nickname = nickname }
}

// WithUserGroupCode moves the member to another circle.
func WithUserGroupCode(code string) UserOption {
	return func(f *UserFixture) { f.GroupCode = code }
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Email:     f.Email,
		Nickname:  f.Nickname,
		GroupCode: f.GroupCode,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Principal returns the fixture as the acting principal.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, GroupCode: f.GroupCode}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Persistence returns the fixture as a persistence.User.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		Nickname:     f.Nickname,
		GroupCode:    f.GroupCode,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// --------------------------- Rehearsal fixtures ---------------------------

// RehearsalFixture is a deterministic rehearsal session spanning 2024-05-01..07.
type RehearsalFixture struct {
	Session   scheduler.Session
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RehearsalOption configures the generated rehearsal fixture.
type RehearsalOption func(*RehearsalFixture)

// NewRehearsalFixture returns a deterministic rehearsal fixture with optional overrides.
func NewRehearsalFixture(opts ...RehearsalOption) RehearsalFixture {
	idx := atomic.AddUint64(&rehearsalCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	fixture := RehearsalFixture{
		Session: scheduler.Session{
			ID:           fmt.Sprintf("%s-%d", DefaultGroupCode, created.UnixMilli()),
			CreatorID:    "user-creator",
			GroupCode:    DefaultGroupCode,
			Title:        fmt.Sprintf("Song %03d", idx),
			StartDate:    scheduler.Date{Year: 2024, Month: time.May, Day: 1},
			EndDate:      scheduler.Date{Year: 2024, Month: time.May, Day: 7},
			Participants: []string{"user-creator"},
			Availability: map[string][]scheduler.SlotKey{},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRehearsalID overrides the generated id.
func WithRehearsalID(id string) RehearsalOption {
	return func(f *RehearsalFixture) { f.Session.ID = id }
}

// WithRehearsalTitle overrides the generated title.
func WithRehearsalTitle(title string) RehearsalOption {
	return func(f *RehearsalFixture) { f.Session.Title = title }
}

// WithRehearsalGroupCode moves the rehearsal to another circle.
func WithRehearsalGroupCode(code string) RehearsalOption {
	return func(f *RehearsalFixture) { f.Session.GroupCode = code }
}

// WithRehearsalCreator sets the creator, who is also the first participant.
func WithRehearsalCreator(id string) RehearsalOption {
	return func(f *RehearsalFixture) {
		f.Session.CreatorID = id
		f.Session.Participants = []string{id}
	}
}

// WithRehearsalRange sets the inclusive date range.
func WithRehearsalRange(start, end scheduler.Date) RehearsalOption {
	return func(f *RehearsalFixture) {
		f.Session.StartDate = start
		f.Session.EndDate = end
	}
}

// WithAvailability records identity as free at keys ("2024-05-01_1限" form) and
// adds it to the participants. It panics on malformed keys.
func WithAvailability(identity string, keys ...string) RehearsalOption {
	return func(f *RehearsalFixture) {
		for _, raw := range keys {
			key, err := scheduler.ParseSlotKey(raw)
			if err != nil {
				panic(err)
			}
			f.Session.Availability[identity] = append(f.Session.Availability[identity], key)
		}
		if !f.Session.HasParticipant(identity) {
			f.Session.Participants = append(f.Session.Participants, identity)
		}
	}
}

// WithFinalizedEntry appends an already confirmed entry.
func WithFinalizedEntry(entry scheduler.FinalizedEntry) RehearsalOption {
	return func(f *RehearsalFixture) {
		f.Session.Finalized = append(f.Session.Finalized, entry.Clone())
	}
}

// Domain returns a deep copy of the session.
func (f RehearsalFixture) Domain() scheduler.Session {
	return f.Session.Clone()
}

// Persistence returns the fixture as a persistence.Rehearsal.
func (f RehearsalFixture) Persistence() persistence.Rehearsal {
	s := f.Session.Clone()
	availability := make(map[string][]scheduler.SlotKey, len(s.Availability))
	maps.Copy(availability, s.Availability)
	return persistence.Rehearsal{
		ID:           s.ID,
		CreatorID:    s.CreatorID,
		GroupCode:    s.GroupCode,
		Title:        s.Title,
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		Participants: slices.Clone(s.Participants),
		Availability: availability,
		Finalized:    s.Finalized,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ------------------------- Auth session fixtures -------------------------

// AuthSessionFixture represents an issued login session.
type AuthSessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthSessionOption configures the generated auth session fixture.
type AuthSessionOption func(*AuthSessionFixture)

// NewAuthSessionFixture returns a session valid for a day after ReferenceTime.
func NewAuthSessionFixture(opts ...AuthSessionOption) AuthSessionFixture {
	idx := atomic.AddUint64(&authCounter, 1)
	fixture := AuthSessionFixture{
		ID:        fmt.Sprintf("auth-%03d", idx),
		UserID:    fmt.Sprintf("user-%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAuthSessionUserID sets the owning user.
func WithAuthSessionUserID(id string) AuthSessionOption {
	return func(f *AuthSessionFixture) { f.UserID = id }
}

// WithAuthSessionToken overrides the bearer token.
func WithAuthSessionToken(token string) AuthSessionOption {
	return func(f *AuthSessionFixture) { f.Token = token }
}

// WithAuthSessionExpiresAt overrides the expiry.
func WithAuthSessionExpiresAt(t time.Time) AuthSessionOption {
	return func(f *AuthSessionFixture) { f.ExpiresAt = t }
}

// WithAuthSessionRevokedAt marks the session as logged out.
func WithAuthSessionRevokedAt(t time.Time) AuthSessionOption {
	return func(f *AuthSessionFixture) { f.RevokedAt = &t }
}

// Application returns the fixture as an application.AuthSession.
func (f AuthSessionFixture) Application() application.AuthSession {
	return application.AuthSession{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.AuthSession.
func (f AuthSessionFixture) Persistence() persistence.AuthSession {
	return persistence.AuthSession{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
