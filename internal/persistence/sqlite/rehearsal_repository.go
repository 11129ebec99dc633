package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/rehearsal-scheduler/internal/persistence"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

// RehearsalRepository implements persistence.RehearsalRepository using SQLite.
// A rehearsal is spread over its header row and three child tables that are
// rewritten together on every save.
type RehearsalRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewRehearsalRepository creates a new SQLite rehearsal repository
func NewRehearsalRepository(pool *ConnectionPool) *RehearsalRepository {
	return &RehearsalRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const rehearsalColumns = `id, creator_id, group_code, title, start_date, end_date, created_at, updated_at`

// warningRecord is the JSON shape of a stored warning.
type warningRecord struct {
	Kind         string `json:"kind"`
	Participant  string `json:"participant,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	SessionTitle string `json:"session_title,omitempty"`
	Item         string `json:"item,omitempty"`
	Count        int    `json:"count,omitempty"`
	Stock        int    `json:"stock,omitempty"`
	Message      string `json:"message"`
}

// SaveRehearsal inserts the rehearsal or replaces every stored row of it.
func (r *RehearsalRepository) SaveRehearsal(ctx context.Context, rehearsal persistence.Rehearsal) error {
	if strings.TrimSpace(rehearsal.ID) == "" || rehearsal.CreatorID == "" || rehearsal.GroupCode == "" {
		return persistence.ErrConstraintViolation
	}
	if rehearsal.StartDate.IsZero() || rehearsal.EndDate.IsZero() {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	if rehearsal.CreatedAt.IsZero() {
		rehearsal.CreatedAt = now
	}
	if rehearsal.UpdatedAt.IsZero() {
		rehearsal.UpdatedAt = now
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return r.save(ctx, tx, rehearsal)
		})
	})
}

func (r *RehearsalRepository) save(ctx context.Context, tx *sql.Tx, rehearsal persistence.Rehearsal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO rehearsals (`+rehearsalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			creator_id = excluded.creator_id,
			group_code = excluded.group_code,
			title = excluded.title,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			updated_at = excluded.updated_at`,
		rehearsal.ID,
		rehearsal.CreatorID,
		rehearsal.GroupCode,
		rehearsal.Title,
		rehearsal.StartDate.String(),
		rehearsal.EndDate.String(),
		formatTime(rehearsal.CreatedAt),
		formatTime(rehearsal.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	for _, table := range []string{"rehearsal_participants", "availability", "finalized_entries"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE rehearsal_id = ?`, rehearsal.ID); err != nil {
			return r.mapper.MapError(err)
		}
	}

	for i, userID := range rehearsal.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rehearsal_participants (rehearsal_id, user_id, position) VALUES (?, ?, ?)`,
			rehearsal.ID, userID, i,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}

	for userID, keys := range rehearsal.Availability {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO availability (rehearsal_id, user_id, slot_key) VALUES (?, ?, ?)`,
				rehearsal.ID, userID, key.String(),
			); err != nil {
				return r.mapper.MapError(err)
			}
		}
	}

	for i, entry := range rehearsal.Finalized {
		periods, equipment, participants, warnings, err := encodeEntry(entry)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO finalized_entries
				(rehearsal_id, position, entry_date, periods, room, equipment, participants, warnings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rehearsal.ID, i, entry.Date.String(), periods, entry.Room, equipment, participants, warnings,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// GetRehearsal loads one rehearsal with all of its child rows.
func (r *RehearsalRepository) GetRehearsal(ctx context.Context, id string) (persistence.Rehearsal, error) {
	if id == "" {
		return persistence.Rehearsal{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+rehearsalColumns+` FROM rehearsals WHERE id = ?`, id)
	rehearsal, err := scanRehearsal(row)
	if err != nil {
		return persistence.Rehearsal{}, r.mapper.MapError(err)
	}
	if err := r.loadChildren(ctx, &rehearsal); err != nil {
		return persistence.Rehearsal{}, err
	}
	return rehearsal, nil
}

// ListRehearsals returns the rehearsals matching filter ordered by start date.
func (r *RehearsalRepository) ListRehearsals(ctx context.Context, filter persistence.RehearsalFilter) ([]persistence.Rehearsal, error) {
	query := `SELECT ` + rehearsalColumns + ` FROM rehearsals`
	var args []any
	if filter.GroupCode != "" {
		query += ` WHERE group_code = ?`
		args = append(args, filter.GroupCode)
	}
	query += ` ORDER BY start_date, created_at, id`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	var rehearsals []persistence.Rehearsal
	for rows.Next() {
		rehearsal, err := scanRehearsal(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		rehearsals = append(rehearsals, rehearsal)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	// Children are loaded after the cursor is released so a single-connection pool
	// does not deadlock.
	rows.Close()

	for i := range rehearsals {
		if err := r.loadChildren(ctx, &rehearsals[i]); err != nil {
			return nil, err
		}
	}
	return rehearsals, nil
}

// DeleteRehearsal removes a rehearsal together with its child rows.
func (r *RehearsalRepository) DeleteRehearsal(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"rehearsal_participants", "availability", "finalized_entries"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE rehearsal_id = ?`, id); err != nil {
				return r.mapper.MapError(err)
			}
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM rehearsals WHERE id = ?`, id)
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
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRehearsal(row rowScanner) (persistence.Rehearsal, error) {
	var (
		rehearsal            persistence.Rehearsal
		start, end           string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rehearsal.ID, &rehearsal.CreatorID, &rehearsal.GroupCode, &rehearsal.Title, &start, &end, &createdAt, &updatedAt); err != nil {
		return persistence.Rehearsal{}, err
	}

	var err error
	if rehearsal.StartDate, err = scheduler.ParseDate(start); err != nil {
		return persistence.Rehearsal{}, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if rehearsal.EndDate, err = scheduler.ParseDate(end); err != nil {
		return persistence.Rehearsal{}, fmt.Errorf("failed to parse end_date: %w", err)
	}
	if rehearsal.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Rehearsal{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rehearsal.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Rehearsal{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return rehearsal, nil
}

func (r *RehearsalRepository) loadChildren(ctx context.Context, rehearsal *persistence.Rehearsal) error {
	db := r.pool.DB()

	participants, err := queryStrings(ctx, db,
		`SELECT user_id FROM rehearsal_participants WHERE rehearsal_id = ? ORDER BY position`, rehearsal.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rehearsal.Participants = participants

	availability, err := r.loadAvailability(ctx, db, rehearsal.ID)
	if err != nil {
		return err
	}
	rehearsal.Availability = availability

	finalized, err := r.loadFinalized(ctx, db, rehearsal.ID)
	if err != nil {
		return err
	}
	rehearsal.Finalized = finalized
	return nil
}

func (r *RehearsalRepository) loadAvailability(ctx context.Context, q querier, id string) (map[string][]scheduler.SlotKey, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, slot_key FROM availability WHERE rehearsal_id = ? ORDER BY user_id, rowid`, id)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	availability := make(map[string][]scheduler.SlotKey)
	for rows.Next() {
		var userID, raw string
		if err := rows.Scan(&userID, &raw); err != nil {
			return nil, err
		}
		key, err := scheduler.ParseSlotKey(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse slot key: %w", err)
		}
		availability[userID] = append(availability[userID], key)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return availability, nil
}

func (r *RehearsalRepository) loadFinalized(ctx context.Context, q querier, id string) ([]scheduler.FinalizedEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT entry_date, periods, room, equipment, participants, warnings
		FROM finalized_entries WHERE rehearsal_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []scheduler.FinalizedEntry
	for rows.Next() {
		var date, periods, room, equipment, participants, warnings string
		if err := rows.Scan(&date, &periods, &room, &equipment, &participants, &warnings); err != nil {
			return nil, err
		}
		entry, err := decodeEntry(date, periods, room, equipment, participants, warnings)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return entries, nil
}

func queryStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func encodeEntry(entry scheduler.FinalizedEntry) (periods, equipment, participants, warnings string, err error) {
	records := make([]warningRecord, 0, len(entry.Warnings))
	for _, w := range entry.Warnings {
		records = append(records, warningRecord{
			Kind:         string(w.Kind),
			Participant:  w.Participant,
			SessionID:    w.SessionID,
			SessionTitle: w.SessionTitle,
			Item:         w.Item,
			Count:        w.Count,
			Stock:        w.Stock,
			Message:      w.Message,
		})
	}

	encoded := make([]string, 4)
	for i, value := range []any{nonNil(entry.Periods), nonNil(entry.Equipment), nonNil(entry.Participants), records} {
		raw, err := json.Marshal(value)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to encode finalized entry: %w", err)
		}
		encoded[i] = string(raw)
	}
	return encoded[0], encoded[1], encoded[2], encoded[3], nil
}

func decodeEntry(date, periods, room, equipment, participants, warnings string) (scheduler.FinalizedEntry, error) {
	entry := scheduler.FinalizedEntry{Room: room}

	var err error
	if entry.Date, err = scheduler.ParseDate(date); err != nil {
		return scheduler.FinalizedEntry{}, fmt.Errorf("failed to parse entry_date: %w", err)
	}

	var records []warningRecord
	for _, field := range []struct {
		raw    string
		target any
	}{
		{periods, &entry.Periods},
		{equipment, &entry.Equipment},
		{participants, &entry.Participants},
		{warnings, &records},
	} {
		if err := json.Unmarshal([]byte(field.raw), field.target); err != nil {
			return scheduler.FinalizedEntry{}, fmt.Errorf("failed to decode finalized entry: %w", err)
		}
	}

	for _, rec := range records {
		entry.Warnings = append(entry.Warnings, scheduler.Warning{
			Kind:         scheduler.WarningKind(rec.Kind),
			Participant:  rec.Participant,
			SessionID:    rec.SessionID,
			SessionTitle: rec.SessionTitle,
			Item:         rec.Item,
			Count:        rec.Count,
			Stock:        rec.Stock,
			Message:      rec.Message,
		})
	}
	return entry, nil
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
