package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/config"
	httptransport "github.com/example/rehearsal-scheduler/internal/http"
	"github.com/example/rehearsal-scheduler/internal/i18n"
	"github.com/example/rehearsal-scheduler/internal/logging"
	"github.com/example/rehearsal-scheduler/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("rehearsal scheduler listening", "addr", server.Addr, "env", cfg.Environment)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

// app holds the wired HTTP handler and the storage it must release.
type app struct {
	handler http.Handler
	storage *sqlite.Storage
}

func (a *app) Close() error {
	return a.storage.Close()
}

type appOptions struct {
	hasher application.PasswordHasher
	verify  application.PasswordVerifier
	now     func() time.Time
	userIDs func() string
	tokens  func() string
}

type appOption func(*appOptions)

func withPasswordHashing(hasher application.PasswordHasher, verify application.PasswordVerifier) appOption {
	return func(o *appOptions) {
		o.hasher = hasher
		o.verify = verify
	}
}

func withClock(now func() time.Time) appOption {
	return func(o *appOptions) { o.now = now }
}

func withIdentifiers(userIDs, tokens func() string) appOption {
	return func(o *appOptions) {
		o.userIDs = userIDs
		o.tokens = tokens
	}
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...appOption) (*app, error) {
	options := appOptions{
		hasher:  application.HashPassword,
		verify:  application.VerifyPassword,
		now:     time.Now,
		userIDs: uuid.NewString,
		tokens:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&options)
	}

	inventory, err := config.LoadInventory(cfg.InventoryFile)
	if err != nil {
		return nil, err
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	translator := i18n.NewTranslator(cfg.Locale, logger)
	users := newUserRepositoryAdapter(storage)

	userService := application.NewUserServiceWithLogger(users, options.hasher, options.userIDs, options.now, logger)
	authService := application.NewAuthServiceWithLogger(
		newCredentialStoreAdapter(storage),
		newAuthSessionRepositoryAdapter(storage),
		options.verify,
		options.tokens,
		options.now,
		cfg.AuthTTL,
		logger,
	)
	sessionService := application.NewSessionServiceWithLogger(
		newSessionStoreAdapter(storage),
		newUserDirectoryAdapter(storage),
		inventory,
		translator.WarningFormatter,
		options.now,
		logger,
	)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(authService, translator, logger),
		Users:        httptransport.NewUserHandler(userService, translator, logger),
		Rehearsals:   httptransport.NewRehearsalHandler(sessionService, translator, cfg.BaseURL, logger),
		Authenticate: httptransport.RequireSession(authService, translator, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Localize(translator),
		},
	})

	logger.Info("storage ready", "dsn", cfg.SQLiteDSN, "equipment", inventory.Items())
	return &app{handler: handler, storage: storage}, nil
}
