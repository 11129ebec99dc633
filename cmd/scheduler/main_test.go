package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/config"
	"github.com/example/rehearsal-scheduler/internal/i18n"
	"github.com/example/rehearsal-scheduler/internal/persistence"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
	"github.com/example/rehearsal-scheduler/internal/testfixtures"
)

func TestMapPersistenceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "not found", in: persistence.ErrNotFound, want: application.ErrNotFound},
		{name: "duplicate", in: persistence.ErrDuplicate, want: application.ErrAlreadyExists},
		{name: "passthrough", in: persistence.ErrConstraintViolation, want: persistence.ErrConstraintViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := mapPersistenceError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestSessionStoreAdapter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := testfixtures.NewSQLiteHarness(t)
	store := newSessionStoreAdapter(h.Storage)
	created := testfixtures.ReferenceTime()
	store.now = func() time.Time { return created }

	session := testfixtures.NewRehearsalFixture(
		testfixtures.WithRehearsalID("circle-1"),
		testfixtures.WithAvailability("user-creator", "2024-05-01_1限"),
	).Domain()

	require.NoError(t, store.PutSession(ctx, session))

	store.now = func() time.Time { return created.Add(time.Hour) }
	session.Title = "Renamed"
	require.NoError(t, store.PutSession(ctx, session))

	got, err := store.GetSession(ctx, "circle-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, session.Availability, got.Availability)

	stored, err := h.Rehearsals.GetRehearsal(ctx, "circle-1")
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(created), "creation time survives updates")
	assert.True(t, stored.UpdatedAt.Equal(created.Add(time.Hour)))

	listed, err := store.ListSessions(ctx, testfixtures.DefaultGroupCode)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, store.DeleteSession(ctx, "circle-1"))
	_, err = store.GetSession(ctx, "circle-1")
	assert.ErrorIs(t, err, application.ErrNotFound)
	assert.ErrorIs(t, store.DeleteSession(ctx, "circle-1"), application.ErrNotFound)
}

func TestUserAdapters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := testfixtures.NewSQLiteHarness(t)
	users := newUserRepositoryAdapter(h.Storage)

	alice := testfixtures.NewUserFixture(testfixtures.WithUserID("alice"), testfixtures.WithUserNickname("Alice"))
	created, err := users.CreateUser(ctx, alice.Application(), "hash-alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", created.Nickname)

	_, err = users.CreateUser(ctx, alice.Application(), "hash-alice")
	assert.ErrorIs(t, err, application.ErrAlreadyExists)

	created.Nickname = "Ally"
	updated, err := users.UpdateUser(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Ally", updated.Nickname)

	creds, err := newCredentialStoreAdapter(h.Storage).GetUserCredentialsByEmail(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, "hash-alice", creds.PasswordHash, "nickname updates keep the stored hash")

	names, err := newUserDirectoryAdapter(h.Storage).Nicknames(ctx, []string{"alice", "ghost", "alice"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "Ally"}, names)

	ids, err := newUserDirectoryAdapter(h.Storage).MemberIDsByNickname(ctx, testfixtures.DefaultGroupCode, "Ally")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)
}

func TestServicesOverSQLiteStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory()
	tokens := testfixtures.NewIDGenerator("token")

	users := factory.NewUserService(testfixtures.UserServiceDeps{Users: newUserRepositoryAdapter(h.Storage)})
	auth := factory.NewAuthService(testfixtures.AuthServiceDeps{
		Credentials:    newCredentialStoreAdapter(h.Storage),
		Sessions:       newAuthSessionRepositoryAdapter(h.Storage),
		TokenGenerator: tokens.NextFunc(),
		SessionTTL:     48 * time.Hour,
	})
	sessions := factory.NewSessionService(testfixtures.SessionServiceDeps{
		Store:      newSessionStoreAdapter(h.Storage),
		Users:      newUserDirectoryAdapter(h.Storage),
		Inventory:  scheduler.DefaultInventory(),
		Formatters: i18n.NewTranslator("ja", nil).WarningFormatter,
	})

	user, err := users.Register(ctx, application.RegisterParams{
		Email: "carol@example.com", Password: "secret123", Nickname: "Carol", GroupCode: "circle",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-001", user.ID)

	login, err := auth.Authenticate(ctx, application.AuthenticateParams{Email: "carol@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "token-001", login.Session.ID)
	assert.Equal(t, "token-002", login.Session.Token)

	principal, err := auth.ValidateSession(ctx, login.Session.Token)
	require.NoError(t, err)

	today := factory.Clock.Today()
	_, err = sessions.Create(ctx, application.CreateSessionParams{
		Principal: principal,
		Title:     "Short",
		StartDate: today.String(),
		EndDate:   today.AddDays(1).String(),
	})
	require.NoError(t, err)

	listed, err := sessions.List(ctx, principal)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	factory.Clock.Advance(48 * time.Hour)
	listed, err = sessions.List(ctx, principal)
	require.NoError(t, err)
	assert.Empty(t, listed, "the session ended yesterday")

	_, err = auth.ValidateSession(ctx, login.Session.Token)
	assert.ErrorIs(t, err, application.ErrSessionExpired)
}

func TestNewAppEndToEnd(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Environment: "test",
		SQLiteDSN:   filepath.Join(t.TempDir(), "e2e.db"),
		AuthTTL:     30 * 24 * time.Hour,
		Locale:      "ja",
		BaseURL:     "https://rehearsal.example",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testfixtures.NewClock(time.Time{})
	userIDs := testfixtures.NewIDGenerator("user")
	tokens := testfixtures.NewIDGenerator("token")

	app, err := newApp(context.Background(), cfg, logger,
		withPasswordHashing(testfixtures.PlainHasher, testfixtures.PlainVerifier),
		withClock(clock.NowFunc()),
		withIdentifiers(userIDs.NextFunc(), tokens.NextFunc()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	srv := httptest.NewServer(app.handler)
	t.Cleanup(srv.Close)

	call := func(method, path, token string, body any, out any) int {
		t.Helper()
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequest(method, srv.URL+path, reader)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
		}
		return resp.StatusCode
	}

	register := func(email, nickname string) string {
		t.Helper()
		status := call(http.MethodPost, "/users", "", map[string]string{
			"email": email, "password": "secret123", "nickname": nickname, "circle_code": "circle",
		}, nil)
		require.Equal(t, http.StatusCreated, status)

		var login struct {
			Token string `json:"token"`
		}
		status = call(http.MethodPost, "/sessions/login", "", map[string]string{"email": email, "password": "secret123"}, &login)
		require.Equal(t, http.StatusCreated, status)
		require.NotEmpty(t, login.Token)
		return login.Token
	}

	aliceToken := register("alice@example.com", "Alice")
	bobToken := register("bob@example.com", "Bob")
	assert.Equal(t, []string{"token-001", "token-002", "token-003", "token-004"}, tokens.Issued())
	assert.Equal(t, []string{"token-002", "token-004"}, []string{aliceToken, bobToken})
	assert.Equal(t, []string{"user-001", "user-002"}, userIDs.Issued())

	type rehearsalBody struct {
		Rehearsal struct {
			ID           string `json:"id"`
			Participants []struct {
				ID       string `json:"id"`
				Nickname string `json:"nickname"`
			} `json:"participants"`
		} `json:"rehearsal"`
	}
	create := func(title string) string {
		t.Helper()
		var created rehearsalBody
		status := call(http.MethodPost, "/rehearsals", aliceToken, map[string]string{
			"title": title, "start_date": "2024-05-01", "end_date": "2024-05-07",
		}, &created)
		require.Equal(t, http.StatusCreated, status)
		return created.Rehearsal.ID
	}

	first := create("Song A")
	slot := map[string][]string{"slots": {"2024-05-01_1限"}}
	require.Equal(t, http.StatusOK, call(http.MethodPut, "/rehearsals/"+first+"/availability", aliceToken, slot, nil))
	require.Equal(t, http.StatusOK, call(http.MethodPut, "/rehearsals/"+first+"/availability", bobToken, slot, nil))

	var view rehearsalBody
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/rehearsals/"+first, bobToken, nil, &view))
	nicknames := make(map[string]string, len(view.Rehearsal.Participants))
	for _, p := range view.Rehearsal.Participants {
		nicknames[p.ID] = p.Nickname
	}
	assert.Equal(t, map[string]string{"user-001": "Alice", "user-002": "Bob"}, nicknames)

	var slotView struct {
		Participants []string `json:"participants"`
	}
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/rehearsals/"+first+"/slots/2024-05-01_1限", bobToken, nil, &slotView))
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, slotView.Participants)

	finalize := map[string]any{"slots": []string{"2024-05-01_1限"}, "room": "Hall"}
	var firstResult struct {
		Warnings []string `json:"warnings"`
	}
	require.Equal(t, http.StatusCreated, call(http.MethodPost, "/rehearsals/"+first+"/finalize", aliceToken, finalize, &firstResult))
	assert.Empty(t, firstResult.Warnings)

	second := create("Song B")
	require.Equal(t, http.StatusOK, call(http.MethodPut, "/rehearsals/"+second+"/availability", aliceToken, slot, nil))

	var secondResult struct {
		Warnings []string `json:"warnings"`
	}
	require.Equal(t, http.StatusCreated, call(http.MethodPost, "/rehearsals/"+second+"/finalize", aliceToken, finalize, &secondResult))
	require.Len(t, secondResult.Warnings, 1)
	assert.Contains(t, secondResult.Warnings[0], "Alice")
	assert.Contains(t, secondResult.Warnings[0], "Song A")

	var legacy struct {
		Rehearsal struct {
			Title   string `json:"title"`
			Creator struct {
				ID string `json:"id"`
			} `json:"creator"`
		} `json:"rehearsal"`
	}
	require.Equal(t, http.StatusOK, call(http.MethodPost, "/rehearsals/import", bobToken, map[string]string{
		"id": "circle-legacy", "song": "%E6%98%A5%E3%81%AE%E6%9B%B2", "circle": "circle",
		"creator": "Alice", "start": "2024-05-01", "end": "2024-05-02",
	}, &legacy))
	assert.Equal(t, "春の曲", legacy.Rehearsal.Title)
	assert.Equal(t, "user-001", legacy.Rehearsal.Creator.ID)

	var share struct {
		URL string `json:"url"`
	}
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/rehearsals/"+first+"/share", aliceToken, nil, &share))
	assert.Contains(t, share.URL, "https://rehearsal.example")

	assert.Equal(t, http.StatusForbidden, call(http.MethodDelete, "/rehearsals/"+first, bobToken, nil, nil))
	assert.Equal(t, http.StatusNoContent, call(http.MethodDelete, "/rehearsals/"+second, aliceToken, nil, nil))

	var listed struct {
		Rehearsals []struct {
			ID string `json:"id"`
		} `json:"rehearsals"`
	}
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/rehearsals", aliceToken, nil, &listed))
	listedIDs := make([]string, 0, len(listed.Rehearsals))
	for _, r := range listed.Rehearsals {
		listedIDs = append(listedIDs, r.ID)
	}
	assert.ElementsMatch(t, []string{first, "circle-legacy"}, listedIDs)

	clock.Advance(8 * 24 * time.Hour)
	require.Equal(t, "2024-05-08", clock.Today().String())
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/rehearsals", aliceToken, nil, &listed))
	assert.Empty(t, listed.Rehearsals, "rehearsals ending before today drop out of the list")

	require.Equal(t, http.StatusNoContent, call(http.MethodDelete, "/sessions/current", bobToken, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/me", bobToken, nil, nil))
}

func TestNewAppRejectsBadInventory(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		SQLiteDSN:     filepath.Join(t.TempDir(), "bad.db"),
		InventoryFile: filepath.Join(t.TempDir(), "missing.toml"),
	}
	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
