package testfixtures

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

type capturingUserRepo struct {
	created application.User
	hash    string
}

func (c *capturingUserRepo) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	c.created = user
	c.hash = passwordHash
	return user, nil
}

func (c *capturingUserRepo) GetUser(ctx context.Context, id string) (application.User, error) {
	return application.User{}, application.ErrNotFound
}

func (c *capturingUserRepo) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	return user, nil
}

type memorySessionStore struct {
	sessions map[string]scheduler.Session
}

func (m *memorySessionStore) GetSession(ctx context.Context, id string) (scheduler.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return scheduler.Session{}, application.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memorySessionStore) PutSession(ctx context.Context, session scheduler.Session) error {
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *memorySessionStore) ListSessions(ctx context.Context, groupCode string) ([]scheduler.Session, error) {
	var out []scheduler.Session
	for _, s := range m.sessions {
		if s.GroupCode == groupCode {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memorySessionStore) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func TestServiceFactoryNewUserService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingUserRepo{}

	svc := factory.NewUserService(UserServiceDeps{Users: repo})
	user, err := svc.Register(context.Background(), application.RegisterParams{
		Email:     "user@example.com",
		Password:  "secret1",
		Nickname:  "User",
		GroupCode: "circle",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if user.ID != "user-001" {
		t.Fatalf("expected generated ID user-001, got %q", user.ID)
	}
	if repo.created.ID != user.ID {
		t.Fatalf("repository received unexpected ID: %q", repo.created.ID)
	}
	if repo.hash != "hashed:secret1" {
		t.Fatalf("expected plain hasher output, got %q", repo.hash)
	}
	if !user.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), user.CreatedAt)
	}
}

func TestServiceFactoryNewSessionService(t *testing.T) {
	factory := NewServiceFactory()
	store := &memorySessionStore{sessions: map[string]scheduler.Session{}}
	creator := NewUserFixture()

	svc := factory.NewSessionService(SessionServiceDeps{Store: store})
	session, err := svc.Create(context.Background(), application.CreateSessionParams{
		Principal: creator.Principal(),
		Title:     "Song",
		StartDate: "2024-05-01",
		EndDate:   "2024-05-07",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	want := "circle-" + strconv.FormatInt(factory.Clock.Now().UnixMilli(), 10)
	if session.ID != want {
		t.Fatalf("expected id %q, got %q", want, session.ID)
	}
	if _, ok := store.sessions[session.ID]; !ok {
		t.Fatalf("session was not stored")
	}
}

func TestPlainVerifier(t *testing.T) {
	hash, _ := PlainHasher("secret")
	if err := PlainVerifier(hash, "secret"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := PlainVerifier(hash, "other"); !errors.Is(err, application.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
