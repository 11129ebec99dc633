package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/i18n"
)

type userService interface {
	Register(ctx context.Context, params application.RegisterParams) (application.User, error)
	GetUser(ctx context.Context, principal application.Principal) (application.User, error)
	UpdateNickname(ctx context.Context, params application.UpdateNicknameParams) (application.User, error)
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, translator *i18n.Translator, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base, translator), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

// Register creates a member account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode registration", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "", "error_invalid_body")
		return
	}

	logger := h.log(r.Context(), "Register", "circle_code", req.CircleCode)

	user, err := h.service.Register(r.Context(), application.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		Nickname:  req.Nickname,
		GroupCode: req.CircleCode,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "user registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

// Me returns the signed-in member.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	user, err := h.service.GetUser(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Me", "principal_id", principal.UserID).
			ErrorContext(r.Context(), "user lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

// UpdateMe changes the signed-in member's nickname.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req nicknameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateMe", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode nickname update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "", "error_invalid_body")
		return
	}

	logger := h.log(r.Context(), "UpdateMe", "principal_id", principal.UserID)

	user, err := h.service.UpdateNickname(r.Context(), application.UpdateNicknameParams{
		Principal: principal,
		Nickname:  req.Nickname,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "nickname update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "nickname updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userResponse{User: toUserDTO(user)})
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Nickname   string `json:"nickname"`
	CircleCode string `json:"circle_code"`
}

type nicknameRequest struct {
	Nickname string `json:"nickname"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type userDTO struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Nickname   string `json:"nickname"`
	CircleCode string `json:"circle_code"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:         user.ID,
		Email:      user.Email,
		Nickname:   user.Nickname,
		CircleCode: user.GroupCode,
		CreatedAt:  user.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  user.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
