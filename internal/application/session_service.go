package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/example/rehearsal-scheduler/internal/calendar"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

// SessionStore persists rehearsal sessions.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (scheduler.Session, error)
	PutSession(ctx context.Context, session scheduler.Session) error
	ListSessions(ctx context.Context, groupCode string) ([]scheduler.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// UserDirectory resolves member nicknames for display.
type UserDirectory interface {
	Nicknames(ctx context.Context, ids []string) (map[string]string, error)
	// MemberIDsByNickname lists the ids of circle members using nickname.
	MemberIDsByNickname(ctx context.Context, groupCode, nickname string) ([]string, error)
}

// WarningFormatterFactory returns the warning formatter for a locale.
type WarningFormatterFactory func(locale string) scheduler.WarningFormatter

// SessionService manages rehearsal sessions: creation, availability and confirmation.
type SessionService struct {
	store      SessionStore
	users      UserDirectory
	inventory  scheduler.Inventory
	formatters WarningFormatterFactory
	now        func() time.Time
	logger     *slog.Logger
	locks      *sessionLocks
	groupLocks *sessionLocks
}

// NewSessionService wires dependencies for the session service.
func NewSessionService(store SessionStore, users UserDirectory, inventory scheduler.Inventory, formatters WarningFormatterFactory, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(store, users, inventory, formatters, now, nil)
}

// NewSessionServiceWithLogger wires dependencies for the session service with a logger.
func NewSessionServiceWithLogger(store SessionStore, users UserDirectory, inventory scheduler.Inventory, formatters WarningFormatterFactory, now func() time.Time, logger *slog.Logger) *SessionService {
	if formatters == nil {
		formatters = func(string) scheduler.WarningFormatter { return scheduler.DefaultWarningFormatter{} }
	}
	if now == nil {
		now = time.Now
	}
	if inventory.Len() == 0 {
		inventory = scheduler.DefaultInventory()
	}
	return &SessionService{
		store:      store,
		users:      users,
		inventory:  inventory,
		formatters: formatters,
		now:        now,
		logger:     defaultLogger(logger),
		locks:      newSessionLocks(),
		groupLocks: newSessionLocks(),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

func (s *SessionService) ready() error {
	if s == nil {
		return fmt.Errorf("SessionService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("session store not configured")
	}
	return nil
}

// Create starts a new session owned by the principal. The creator is the first participant.
func (s *SessionService) Create(ctx context.Context, params CreateSessionParams) (session scheduler.Session, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if params.Principal.UserID == "" || params.Principal.GroupCode == "" {
		return scheduler.Session{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "Create", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session created", "session_id", session.ID)
	}()

	title := strings.TrimSpace(params.Title)
	vErr := &ValidationError{}
	if title == "" {
		vErr.add("title", CodeRequired)
	}
	start, end, rangeErr := parseRange(params.StartDate, params.EndDate)
	vErr.merge(rangeErr)
	if vErr.HasErrors() {
		return scheduler.Session{}, vErr
	}

	id, err := s.nextID(ctx, params.Principal.GroupCode)
	if err != nil {
		return scheduler.Session{}, err
	}

	session = scheduler.Session{
		ID:           id,
		CreatorID:    params.Principal.UserID,
		GroupCode:    params.Principal.GroupCode,
		Title:        title,
		StartDate:    start,
		EndDate:      end,
		Participants: []string{params.Principal.UserID},
		Availability: map[string][]scheduler.SlotKey{},
	}
	if err = s.store.PutSession(ctx, session); err != nil {
		return scheduler.Session{}, err
	}
	return session, nil
}

// nextID derives "{group}-{unix millis}", stepping forward on collision.
func (s *SessionService) nextID(ctx context.Context, groupCode string) (string, error) {
	millis := s.now().UnixMilli()
	for range 100 {
		id := fmt.Sprintf("%s-%d", groupCode, millis)
		_, err := s.store.GetSession(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
		millis++
	}
	return "", fmt.Errorf("no free session id for %s: %w", groupCode, ErrAlreadyExists)
}

// Import stores a session described by a shared link. Known ids are returned unchanged.
func (s *SessionService) Import(ctx context.Context, params ImportSessionParams) (session scheduler.Session, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if params.Principal.UserID == "" {
		return scheduler.Session{}, ErrUnauthorized
	}

	id := strings.TrimSpace(params.ID)
	logger := s.loggerWith(ctx, "Import", "principal_id", params.Principal.UserID, "session_id", id)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session import failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session imported")
	}()

	vErr := &ValidationError{}
	required := map[string]string{
		"id":          id,
		"title":       strings.TrimSpace(params.Title),
		"circle_code": strings.TrimSpace(params.GroupCode),
		"creator":     strings.TrimSpace(params.CreatorID),
	}
	for field, value := range required {
		if value == "" {
			vErr.add(field, CodeRequired)
		}
	}
	start, end, rangeErr := parseRange(params.StartDate, params.EndDate)
	vErr.merge(rangeErr)
	if vErr.HasErrors() {
		return scheduler.Session{}, vErr
	}

	unlock := s.locks.lock(id)
	defer unlock()

	existing, err := s.store.GetSession(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return scheduler.Session{}, err
	}

	creator, err := s.resolveCreator(ctx, required["circle_code"], required["creator"])
	if err != nil {
		return scheduler.Session{}, err
	}

	session = scheduler.Session{
		ID:           id,
		CreatorID:    creator,
		GroupCode:    required["circle_code"],
		Title:        sharedTitle(required["title"]),
		StartDate:    start,
		EndDate:      end,
		Participants: []string{creator},
		Availability: map[string][]scheduler.SlotKey{},
	}
	if err = s.store.PutSession(ctx, session); err != nil {
		return scheduler.Session{}, err
	}
	return session, nil
}

// View returns a session and joins the principal to its participants.
func (s *SessionService) View(ctx context.Context, principal Principal, id string) (SessionDetail, error) {
	if err := s.ready(); err != nil {
		return SessionDetail{}, err
	}
	if principal.UserID == "" {
		return SessionDetail{}, ErrUnauthorized
	}

	unlock := s.locks.lock(id)
	session, err := s.store.GetSession(ctx, id)
	if err == nil && !session.HasParticipant(principal.UserID) {
		session.Participants = append(session.Participants, principal.UserID)
		err = s.store.PutSession(ctx, session)
		if err == nil {
			s.loggerWith(ctx, "View", "session_id", id, "principal_id", principal.UserID).
				InfoContext(ctx, "participant joined")
		}
	}
	unlock()
	if err != nil {
		return SessionDetail{}, err
	}

	return SessionDetail{Session: session, Members: s.members(ctx, session)}, nil
}

// List returns the ongoing sessions of the principal's circle that the principal created
// or joined, ordered by start date.
func (s *SessionService) List(ctx context.Context, principal Principal) ([]scheduler.Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if principal.UserID == "" || principal.GroupCode == "" {
		return nil, ErrUnauthorized
	}

	all, err := s.store.ListSessions(ctx, principal.GroupCode)
	if err != nil {
		return nil, err
	}

	today := calendar.Today(s.now())
	out := make([]scheduler.Session, 0, len(all))
	for _, session := range all {
		if session.EndDate.Before(today) || !session.HasParticipant(principal.UserID) {
			continue
		}
		out = append(out, session)
	}
	slices.SortStableFunc(out, func(a, b scheduler.Session) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Delete removes a session and its confirmations. Only the creator may delete.
func (s *SessionService) Delete(ctx context.Context, principal Principal, id string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", "session_id", id, "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session deleted")
	}()

	unlock := s.locks.lock(id)
	defer unlock()

	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if session.CreatorID != principal.UserID {
		return ErrUnauthorized
	}
	return s.store.DeleteSession(ctx, id)
}

// SubmitAvailability replaces the principal's free slots. Keys already confirmed are
// dropped and duplicates collapsed.
func (s *SessionService) SubmitAvailability(ctx context.Context, params SubmitAvailabilityParams) (session scheduler.Session, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if params.Principal.UserID == "" {
		return scheduler.Session{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "SubmitAvailability", "session_id", params.SessionID, "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "availability update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability updated", "slots", len(session.Availability[params.Principal.UserID]))
	}()

	unlock := s.locks.lock(params.SessionID)
	defer unlock()

	session, err = s.store.GetSession(ctx, params.SessionID)
	if err != nil {
		return scheduler.Session{}, err
	}

	keys, err := parseSessionSlots(session, params.Slots)
	if err != nil {
		return scheduler.Session{}, err
	}

	free := make([]scheduler.SlotKey, 0, len(keys))
	for _, key := range scheduler.UniqueSlotKeys(keys) {
		if !session.IsFinalized(key) {
			free = append(free, key)
		}
	}

	if session.Availability == nil {
		session.Availability = map[string][]scheduler.SlotKey{}
	}
	session.Availability[params.Principal.UserID] = free
	if !session.HasParticipant(params.Principal.UserID) {
		session.Participants = append(session.Participants, params.Principal.UserID)
	}

	if err = s.store.PutSession(ctx, session); err != nil {
		return scheduler.Session{}, err
	}
	return session, nil
}

// Grid tabulates availability for every date and period of the session.
func (s *SessionService) Grid(ctx context.Context, principal Principal, id string) (Grid, error) {
	if err := s.ready(); err != nil {
		return Grid{}, err
	}

	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return Grid{}, err
	}

	dates, err := calendar.DatesInRange(session.StartDate, session.EndDate)
	if err != nil {
		return Grid{}, fmt.Errorf("session %s has an unusable date range: %w", id, err)
	}

	members := s.members(ctx, session)
	mine := session.Availability[principal.UserID]
	periods := scheduler.Periods()

	grid := Grid{SessionID: session.ID, Periods: periods, Rows: make([]GridRow, 0, len(dates))}
	for _, date := range dates {
		row := GridRow{Date: date, Label: calendar.FormatDay(date), Cells: make([]GridCell, 0, len(periods))}
		for _, period := range periods {
			key := scheduler.SlotKey{Date: date, Period: period}
			free := nicknamesOf(session.AvailableAt(key), members)
			row.Cells = append(row.Cells, GridCell{
				Key:          key,
				Count:        len(free),
				Participants: free,
				Mine:         slices.Contains(mine, key),
				Confirmed:    session.IsFinalized(key),
			})
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}

// SlotParticipants lists the nicknames of members free at one slot key.
func (s *SessionService) SlotParticipants(ctx context.Context, principal Principal, id, rawKey string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	key, err := scheduler.ParseSlotKey(rawKey)
	if err != nil {
		return nil, fieldError("slot", CodeInvalid)
	}

	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Contains(key.Date) {
		return nil, fieldError("slot", CodeOutsideRange)
	}
	return nicknamesOf(session.AvailableAt(key), s.members(ctx, session)), nil
}

// resolveCreator maps the creator of a shared link to a user id. Links carry either the
// id itself or, in older links, the creator's nickname; a nickname must name exactly one
// member of the circle.
func (s *SessionService) resolveCreator(ctx context.Context, groupCode, ref string) (string, error) {
	if s.users == nil {
		return ref, nil
	}
	known, err := s.users.Nicknames(ctx, []string{ref})
	if err != nil {
		return "", err
	}
	if _, ok := known[ref]; ok {
		return ref, nil
	}
	ids, err := s.users.MemberIDsByNickname(ctx, groupCode, ref)
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", fieldError("creator", CodeInvalid)
	}
	return ids[0], nil
}

// sharedTitle undoes the escaping share links apply to the song title. Values that do
// not unescape cleanly are kept as given.
func sharedTitle(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	if title := strings.TrimSpace(decoded); title != "" {
		return title
	}
	return raw
}

// ShareLink builds the invitation URL for a session on top of baseURL.
func (s *SessionService) ShareLink(ctx context.Context, principal Principal, id, baseURL string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	return BuildShareLink(baseURL, session)
}

// BuildShareLink encodes the fields needed to import session into baseURL's query.
// The title is path-escaped before query encoding; Import reverses it.
func BuildShareLink(baseURL string, session scheduler.Session) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	q := u.Query()
	q.Set("id", session.ID)
	q.Set("song", url.PathEscape(session.Title))
	q.Set("circle", session.GroupCode)
	q.Set("creator", session.CreatorID)
	q.Set("start", session.StartDate.String())
	q.Set("end", session.EndDate.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Finalize confirms selected slots of a session. Only the creator may confirm. Warnings
// are returned with the result and never block the confirmation.
func (s *SessionService) Finalize(ctx context.Context, params FinalizeParams) (result FinalizeResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Finalize",
		"session_id", params.SessionID,
		"principal_id", params.Principal.UserID,
		"slots", len(params.Slots),
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "finalize failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "finalize succeeded",
			"entries", len(result.Entries),
			"warnings", len(result.Warnings),
		)
	}()

	unlock := s.locks.lock(params.SessionID)
	defer unlock()

	session, err := s.store.GetSession(ctx, params.SessionID)
	if err != nil {
		return FinalizeResult{}, err
	}
	if session.CreatorID != params.Principal.UserID {
		return FinalizeResult{}, ErrUnauthorized
	}

	keys, err := parseSessionSlots(session, params.Slots)
	if err != nil {
		return FinalizeResult{}, err
	}

	// The group snapshot stays consistent until the new entries are stored.
	unlockGroup := s.groupLocks.lock(session.GroupCode)
	defer unlockGroup()

	corpus, err := s.store.ListSessions(ctx, session.GroupCode)
	if err != nil {
		return FinalizeResult{}, err
	}

	members := s.members(ctx, session)
	formatter := nicknameFormatter{base: s.formatters(params.Locale), names: members}

	outcome, err := scheduler.Finalize(session, corpus, scheduler.FinalizeRequest{
		Slots:     keys,
		Room:      params.Room,
		Equipment: params.Equipment,
	}, s.inventory, scheduler.WithWarningFormatter(formatter))
	if err != nil {
		return FinalizeResult{}, mapEngineError(err)
	}

	if err = s.store.PutSession(ctx, outcome.Session); err != nil {
		return FinalizeResult{}, err
	}

	return FinalizeResult{
		Session:  outcome.Session,
		Entries:  outcome.Entries,
		Warnings: outcome.Warnings(),
		Members:  members,
	}, nil
}

// members resolves nicknames for the creator and every identity the session lists.
// Lookup failures degrade to an empty map so views still render ids.
func (s *SessionService) members(ctx context.Context, session scheduler.Session) map[string]string {
	if s.users == nil {
		return map[string]string{}
	}
	ids := []string{session.CreatorID}
	ids = append(ids, session.Participants...)
	ids = append(ids, slices.Collect(maps.Keys(session.Availability))...)
	for _, entry := range session.Finalized {
		ids = append(ids, entry.Participants...)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	names, err := s.users.Nicknames(ctx, ids)
	if err != nil {
		s.loggerWith(ctx, "members", "session_id", session.ID).
			WarnContext(ctx, "nickname lookup failed", "error", err)
		return map[string]string{}
	}
	return names
}

func nicknamesOf(ids []string, names map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok && name != "" {
			out = append(out, name)
			continue
		}
		out = append(out, id)
	}
	return out
}

// nicknameFormatter renders overlap warnings with nicknames in place of user ids.
type nicknameFormatter struct {
	base  scheduler.WarningFormatter
	names map[string]string
}

func (f nicknameFormatter) FormatOverlap(o scheduler.Overlap) string {
	if name, ok := f.names[o.Participant]; ok && name != "" {
		o.Participant = name
	}
	return f.base.FormatOverlap(o)
}

func (f nicknameFormatter) FormatShortage(sh scheduler.Shortage) string {
	return f.base.FormatShortage(sh)
}

func parseRange(rawStart, rawEnd string) (scheduler.Date, scheduler.Date, *ValidationError) {
	vErr := &ValidationError{}
	start, startErr := parseDateField(vErr, "start_date", rawStart)
	end, endErr := parseDateField(vErr, "end_date", rawEnd)
	if startErr || endErr {
		return start, end, vErr
	}
	if end.Before(start) {
		vErr.add("end_date", CodeBeforeStart)
		return start, end, vErr
	}
	if _, err := calendar.DatesInRange(start, end); errors.Is(err, calendar.ErrWindowTooLarge) {
		vErr.add("end_date", CodeTooLarge)
	}
	return start, end, vErr
}

func parseDateField(vErr *ValidationError, field, raw string) (scheduler.Date, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		vErr.add(field, CodeRequired)
		return scheduler.Date{}, true
	}
	d, err := scheduler.ParseDate(raw)
	if err != nil {
		vErr.add(field, CodeInvalid)
		return scheduler.Date{}, true
	}
	return d, false
}

// parseSessionSlots decodes slot keys and checks that each lies within the session range.
func parseSessionSlots(session scheduler.Session, raw []string) ([]scheduler.SlotKey, error) {
	keys := make([]scheduler.SlotKey, 0, len(raw))
	for _, value := range raw {
		key, err := scheduler.ParseSlotKey(value)
		if err != nil {
			return nil, fieldError("slots", CodeInvalid)
		}
		if !session.Contains(key.Date) {
			return nil, fieldError("slots", CodeOutsideRange)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, scheduler.ErrEmptySelection):
		return fieldError("slots", CodeRequired)
	case errors.Is(err, scheduler.ErrEmptyRoom):
		return fieldError("room", CodeRequired)
	case errors.Is(err, scheduler.ErrInvalidSlotKey), errors.Is(err, scheduler.ErrUnknownPeriod):
		return fieldError("slots", CodeInvalid)
	case errors.Is(err, scheduler.ErrInvalidDate):
		return fieldError("slots", CodeInvalid)
	}
	return err
}
