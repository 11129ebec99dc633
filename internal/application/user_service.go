package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// minPasswordLength is the shortest password accepted at registration.
const minPasswordLength = 6

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
}

// UserService orchestrates validation and persistence for member accounts.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hasher, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a logger.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = HashPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:        users,
		hashPassword: hasher,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register validates the sign-up form and creates the account.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	normalized := normalizeRegisterParams(params)
	logger := s.loggerWith(ctx, "Register", "email", normalized.Email, "group_code", normalized.GroupCode)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member registered", "user_id", user.ID)
	}()

	if vErr := validateRegisterParams(normalized); vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user = User{
		ID:        s.idGenerator(),
		Email:     normalized.Email,
		Nickname:  normalized.Nickname,
		GroupCode: normalized.GroupCode,
		CreatedAt: now,
		UpdatedAt: now,
	}

	user, err = s.users.CreateUser(ctx, user, hash)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetUser returns the account of the acting member.
func (s *UserService) GetUser(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if principal.UserID == "" {
		return User{}, ErrUnauthorized
	}
	return s.users.GetUser(ctx, principal.UserID)
}

// UpdateNickname changes the acting member's nickname.
func (s *UserService) UpdateNickname(ctx context.Context, params UpdateNicknameParams) (user User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if params.Principal.UserID == "" {
		return User{}, ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "UpdateNickname", "user_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "nickname update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "nickname updated")
	}()

	nickname := strings.TrimSpace(params.Nickname)
	if nickname == "" {
		return User{}, fieldError("nickname", CodeRequired)
	}

	existing, err := s.users.GetUser(ctx, params.Principal.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	existing.Nickname = nickname
	existing.UpdatedAt = s.now()
	return s.users.UpdateUser(ctx, existing)
}

func normalizeRegisterParams(params RegisterParams) RegisterParams {
	return RegisterParams{
		Email:     strings.ToLower(strings.TrimSpace(params.Email)),
		Password:  params.Password,
		Nickname:  strings.TrimSpace(params.Nickname),
		GroupCode: strings.TrimSpace(params.GroupCode),
	}
}

func validateRegisterParams(params RegisterParams) *ValidationError {
	vErr := &ValidationError{}

	if params.Email == "" {
		vErr.add("email", CodeRequired)
	} else if _, err := mail.ParseAddress(params.Email); err != nil {
		vErr.add("email", CodeInvalid)
	}

	switch {
	case params.Password == "":
		vErr.add("password", CodeRequired)
	case utf8.RuneCountInString(params.Password) < minPasswordLength:
		vErr.add("password", CodeTooShort)
	}

	if params.Nickname == "" {
		vErr.add("nickname", CodeRequired)
	}
	if params.GroupCode == "" {
		vErr.add("circle_code", CodeRequired)
	}

	return vErr
}
