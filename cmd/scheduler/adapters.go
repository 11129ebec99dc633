package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/persistence"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

// mapPersistenceError converts storage sentinels into application sentinels.
func mapPersistenceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	default:
		return err
	}
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, passwordHash)); err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash)); err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return a.GetUser(ctx, user.ID)
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, mapPersistenceError(err)
	}
	return application.UserCredentials{User: toApplicationUser(stored), PasswordHash: stored.PasswordHash}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapPersistenceError(err)
	}
	return toApplicationUser(stored), nil
}

type authSessionRepositoryAdapter struct {
	repo persistence.AuthSessionRepository
}

func newAuthSessionRepositoryAdapter(repo persistence.AuthSessionRepository) *authSessionRepositoryAdapter {
	return &authSessionRepositoryAdapter{repo: repo}
}

func (a *authSessionRepositoryAdapter) CreateAuthSession(ctx context.Context, session application.AuthSession) (application.AuthSession, error) {
	stored, err := a.repo.CreateAuthSession(ctx, toPersistenceAuthSession(session))
	if err != nil {
		return application.AuthSession{}, mapPersistenceError(err)
	}
	return toApplicationAuthSession(stored), nil
}

func (a *authSessionRepositoryAdapter) GetAuthSession(ctx context.Context, token string) (application.AuthSession, error) {
	stored, err := a.repo.GetAuthSession(ctx, token)
	if err != nil {
		return application.AuthSession{}, mapPersistenceError(err)
	}
	return toApplicationAuthSession(stored), nil
}

func (a *authSessionRepositoryAdapter) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (application.AuthSession, error) {
	stored, err := a.repo.RevokeAuthSession(ctx, token, revokedAt)
	if err != nil {
		return application.AuthSession{}, mapPersistenceError(err)
	}
	return toApplicationAuthSession(stored), nil
}

func (a *authSessionRepositoryAdapter) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error {
	return mapPersistenceError(a.repo.DeleteExpiredAuthSessions(ctx, reference))
}

// sessionStoreAdapter stores rehearsal sessions as persistence rehearsals.
type sessionStoreAdapter struct {
	repo persistence.RehearsalRepository
	now  func() time.Time
}

func newSessionStoreAdapter(repo persistence.RehearsalRepository) *sessionStoreAdapter {
	return &sessionStoreAdapter{repo: repo, now: time.Now}
}

func (a *sessionStoreAdapter) GetSession(ctx context.Context, id string) (scheduler.Session, error) {
	stored, err := a.repo.GetRehearsal(ctx, id)
	if err != nil {
		return scheduler.Session{}, mapPersistenceError(err)
	}
	return toSession(stored), nil
}

func (a *sessionStoreAdapter) PutSession(ctx context.Context, session scheduler.Session) error {
	now := a.now().UTC()
	record := toRehearsal(session)
	record.UpdatedAt = now
	if existing, err := a.repo.GetRehearsal(ctx, session.ID); err == nil {
		record.CreatedAt = existing.CreatedAt
	} else if errors.Is(err, persistence.ErrNotFound) {
		record.CreatedAt = now
	} else {
		return mapPersistenceError(err)
	}
	return mapPersistenceError(a.repo.SaveRehearsal(ctx, record))
}

func (a *sessionStoreAdapter) ListSessions(ctx context.Context, groupCode string) ([]scheduler.Session, error) {
	stored, err := a.repo.ListRehearsals(ctx, persistence.RehearsalFilter{GroupCode: groupCode})
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	sessions := make([]scheduler.Session, 0, len(stored))
	for _, r := range stored {
		sessions = append(sessions, toSession(r))
	}
	return sessions, nil
}

func (a *sessionStoreAdapter) DeleteSession(ctx context.Context, id string) error {
	return mapPersistenceError(a.repo.DeleteRehearsal(ctx, id))
}

// userDirectoryAdapter resolves nicknames one user at a time; unknown ids are skipped.
type userDirectoryAdapter struct {
	repo persistence.UserRepository
}

func newUserDirectoryAdapter(repo persistence.UserRepository) *userDirectoryAdapter {
	return &userDirectoryAdapter{repo: repo}
}

func (a *userDirectoryAdapter) Nicknames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if _, seen := names[id]; seen || id == "" {
			continue
		}
		user, err := a.repo.GetUser(ctx, id)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return nil, err
		}
		names[id] = user.Nickname
	}
	return names, nil
}

func (a *userDirectoryAdapter) MemberIDsByNickname(ctx context.Context, groupCode, nickname string) ([]string, error) {
	users, err := a.repo.FindUsersByNickname(ctx, groupCode, nickname)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	ids := make([]string, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}
	return ids, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		Nickname:  model.Nickname,
		GroupCode: model.GroupCode,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		Nickname:     user.Nickname,
		GroupCode:    user.GroupCode,
		PasswordHash: passwordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationAuthSession(model persistence.AuthSession) application.AuthSession {
	return application.AuthSession{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceAuthSession(session application.AuthSession) persistence.AuthSession {
	return persistence.AuthSession{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toSession(r persistence.Rehearsal) scheduler.Session {
	s := scheduler.Session{
		ID:           r.ID,
		CreatorID:    r.CreatorID,
		GroupCode:    r.GroupCode,
		Title:        r.Title,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Participants: r.Participants,
		Availability: r.Availability,
		Finalized:    r.Finalized,
	}
	if s.Availability == nil {
		s.Availability = map[string][]scheduler.SlotKey{}
	}
	return s.Clone()
}

func toRehearsal(s scheduler.Session) persistence.Rehearsal {
	c := s.Clone()
	return persistence.Rehearsal{
		ID:           c.ID,
		CreatorID:    c.CreatorID,
		GroupCode:    c.GroupCode,
		Title:        c.Title,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		Participants: c.Participants,
		Availability: c.Availability,
		Finalized:    c.Finalized,
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
