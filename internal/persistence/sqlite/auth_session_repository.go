package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/rehearsal-scheduler/internal/persistence"
)

// AuthSessionRepository implements persistence.AuthSessionRepository using SQLite
type AuthSessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewAuthSessionRepository creates a new SQLite auth session repository
func NewAuthSessionRepository(pool *ConnectionPool) *AuthSessionRepository {
	return &AuthSessionRepository{pool: pool, mapper: NewErrorMapper()}
}

const authSessionColumns = `id, user_id, token, expires_at, revoked_at, created_at, updated_at`

// CreateAuthSession stores a new session token for a user
func (r *AuthSessionRepository) CreateAuthSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	if session.ID == "" || session.UserID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.AuthSession{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	_, err := r.pool.DB().ExecContext(ctx,
		`INSERT INTO auth_sessions (`+authSessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Token,
		formatTime(session.ExpiresAt),
		nullTime(session.RevokedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}
	return cloneAuthSession(session), nil
}

// GetAuthSession looks a session up by its bearer token
func (r *AuthSessionRepository) GetAuthSession(ctx context.Context, token string) (persistence.AuthSession, error) {
	return r.getByToken(ctx, r.pool.DB(), token)
}

// RevokeAuthSession marks the session identified by token as revoked
func (r *AuthSessionRepository) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (persistence.AuthSession, error) {
	var revoked persistence.AuthSession
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE auth_sessions SET revoked_at = ?, updated_at = ? WHERE token = ?`,
			formatTime(revokedAt), formatTime(revokedAt), token,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		revoked, err = r.getByToken(ctx, tx, token)
		return err
	})
	if err != nil {
		return persistence.AuthSession{}, err
	}
	return revoked, nil
}

// DeleteExpiredAuthSessions removes sessions that expired at or before reference
func (r *AuthSessionRepository) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.DB().ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= ?`, formatTime(reference))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *AuthSessionRepository) getByToken(ctx context.Context, q querier, token string) (persistence.AuthSession, error) {
	if strings.TrimSpace(token) == "" {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}

	var (
		session                         persistence.AuthSession
		expiresAt, createdAt, updatedAt string
		revokedAt                       sql.NullString
	)
	err := q.QueryRowContext(ctx, `SELECT `+authSessionColumns+` FROM auth_sessions WHERE token = ?`, token).
		Scan(&session.ID, &session.UserID, &session.Token, &expiresAt, &revokedAt, &createdAt, &updatedAt)
	if err != nil {
		return persistence.AuthSession{}, r.mapper.MapError(err)
	}

	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if session.RevokedAt, err = parseTimePtr(revokedAt); err != nil {
		return persistence.AuthSession{}, fmt.Errorf("failed to parse revoked_at: %w", err)
	}
	return session, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func cloneAuthSession(session persistence.AuthSession) persistence.AuthSession {
	if session.RevokedAt != nil {
		revoked := *session.RevokedAt
		session.RevokedAt = &revoked
	}
	return session
}
