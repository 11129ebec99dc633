package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("user"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("user")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// SessionServiceDeps captures dependencies for constructing a session service.
type SessionServiceDeps struct {
	Store      application.SessionStore
	Users      application.UserDirectory
	Inventory  scheduler.Inventory
	Formatters application.WarningFormatterFactory
	Now        func() time.Time
	Logger     *slog.Logger
}

// NewSessionService builds a session service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewSessionService(deps SessionServiceDeps) *application.SessionService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewSessionServiceWithLogger(
		deps.Store,
		deps.Users,
		deps.Inventory,
		deps.Formatters,
		now,
		deps.Logger,
	)
}

// UserServiceDeps captures dependencies for constructing a user service.
type UserServiceDeps struct {
	Users       application.UserRepository
	Hasher      application.PasswordHasher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewUserService builds a user service using the supplied dependencies.
// Without a Hasher, passwords are stored as "hashed:<password>".
func (f *ServiceFactory) NewUserService(deps UserServiceDeps) *application.UserService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = PlainHasher
	}
	return application.NewUserServiceWithLogger(
		deps.Users,
		hasher,
		idGen,
		now,
		deps.Logger,
	)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.AuthSessionRepository
	PasswordVerify application.PasswordVerifier
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service using the supplied dependencies.
// Without a PasswordVerify, PlainVerifier is used.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	token := deps.TokenGenerator
	if token == nil {
		token = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	verify := deps.PasswordVerify
	if verify == nil {
		verify = PlainVerifier
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		verify,
		token,
		now,
		deps.SessionTTL,
		deps.Logger,
	)
}

// PlainHasher is a fast stand-in for argon2id in tests.
func PlainHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

// PlainVerifier accepts passwords hashed by PlainHasher.
func PlainVerifier(hashed, password string) error {
	if hashed != "hashed:"+password {
		return application.ErrInvalidCredentials
	}
	return nil
}
