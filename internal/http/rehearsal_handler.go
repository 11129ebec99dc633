package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/i18n"
	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

type rehearsalService interface {
	Create(ctx context.Context, params application.CreateSessionParams) (scheduler.Session, error)
	Import(ctx context.Context, params application.ImportSessionParams) (scheduler.Session, error)
	View(ctx context.Context, principal application.Principal, id string) (application.SessionDetail, error)
	List(ctx context.Context, principal application.Principal) ([]scheduler.Session, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
	SubmitAvailability(ctx context.Context, params application.SubmitAvailabilityParams) (scheduler.Session, error)
	Grid(ctx context.Context, principal application.Principal, id string) (application.Grid, error)
	SlotParticipants(ctx context.Context, principal application.Principal, id, rawKey string) ([]string, error)
	ShareLink(ctx context.Context, principal application.Principal, id, baseURL string) (string, error)
	Finalize(ctx context.Context, params application.FinalizeParams) (application.FinalizeResult, error)
}

// RehearsalHandler serves the rehearsal endpoints under /rehearsals.
type RehearsalHandler struct {
	service   rehearsalService
	responder responder
	baseURL   string
	logger    *slog.Logger
}

// NewRehearsalHandler builds the handler. baseURL prefixes share links; when empty the
// request host is used.
func NewRehearsalHandler(service rehearsalService, translator *i18n.Translator, baseURL string, logger *slog.Logger) *RehearsalHandler {
	base := defaultLogger(logger)
	return &RehearsalHandler{
		service:   service,
		responder: newResponder(base, translator),
		baseURL:   strings.TrimSpace(baseURL),
		logger:    base,
	}
}

func (h *RehearsalHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RehearsalHandler", operation, attrs...)
}

func (h *RehearsalHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *RehearsalHandler) decode(w http.ResponseWriter, r *http.Request, operation string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode request body", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "", "error_invalid_body")
		return false
	}
	return true
}

func (h *RehearsalHandler) fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	logger.WarnContext(r.Context(), msg, "error", err, "error_kind", application.ErrorKind(err))
	h.responder.handleServiceError(r.Context(), w, err)
}

// List returns the caller's ongoing rehearsals.
func (h *RehearsalHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	sessions, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.fail(w, r, logger, "rehearsal list failed", err)
		return
	}

	out := make([]rehearsalSummaryDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toRehearsalSummaryDTO(s))
	}
	logger.With("result_count", len(out)).InfoContext(r.Context(), "rehearsals listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRehearsalsResponse{Rehearsals: out})
}

// Create starts a rehearsal owned by the caller.
func (h *RehearsalHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req createRehearsalRequest
	if !h.decode(w, r, "Create", &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	session, err := h.service.Create(r.Context(), application.CreateSessionParams{
		Principal: principal,
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		h.fail(w, r, logger, "rehearsal creation failed", err)
		return
	}

	logger.With("rehearsal_id", session.ID).InfoContext(r.Context(), "rehearsal created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, rehearsalResponse{Rehearsal: toRehearsalDTO(session, nil)})
}

// Import stores a rehearsal received through a share link.
func (h *RehearsalHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())

	var req importRehearsalRequest
	if !h.decode(w, r, "Import", &req) {
		return
	}

	logger := h.log(r.Context(), "Import", "principal_id", principal.UserID, "rehearsal_id", req.ID)
	session, err := h.service.Import(r.Context(), application.ImportSessionParams{
		Principal: principal,
		ID:        req.ID,
		Title:     req.Song,
		GroupCode: req.Circle,
		CreatorID: req.Creator,
		StartDate: req.Start,
		EndDate:   req.End,
	})
	if err != nil {
		h.fail(w, r, logger, "rehearsal import failed", err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, rehearsalResponse{Rehearsal: toRehearsalDTO(session, nil)})
}

// Get returns one rehearsal. Viewing joins the caller to it.
func (h *RehearsalHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	id := r.PathValue("id")
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "rehearsal_id", id)

	detail, err := h.service.View(r.Context(), principal, id)
	if err != nil {
		h.fail(w, r, logger, "rehearsal lookup failed", err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, rehearsalResponse{Rehearsal: toRehearsalDTO(detail.Session, detail.Members)})
}

// Delete removes a rehearsal. Only its creator may do so.
func (h *RehearsalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	id := r.PathValue("id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "rehearsal_id", id)

	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		h.fail(w, r, logger, "rehearsal delete failed", err)
		return
	}

	logger.InfoContext(r.Context(), "rehearsal deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// SubmitAvailability replaces the caller's free slots.
func (h *RehearsalHandler) SubmitAvailability(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	id := r.PathValue("id")

	var req availabilityRequest
	if !h.decode(w, r, "SubmitAvailability", &req) {
		return
	}

	logger := h.log(r.Context(), "SubmitAvailability", "principal_id", principal.UserID, "rehearsal_id", id)
	session, err := h.service.SubmitAvailability(r.Context(), application.SubmitAvailabilityParams{
		Principal: principal,
		SessionID: id,
		Slots:     req.Slots,
	})
	if err != nil {
		h.fail(w, r, logger, "availability update failed", err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Slots: nonNilKeys(session.Availability[principal.UserID]),
	})
}

// Grid returns the availability table.
func (h *RehearsalHandler) Grid(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	id := r.PathValue("id")
	logger := h.log(r.Context(), "Grid", "principal_id", principal.UserID, "rehearsal_id", id)

	grid, err := h.service.Grid(r.Context(), principal, id)
	if err != nil {
		h.fail(w, r, logger, "grid failed", err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toGridDTO(grid))
}

// Slot lists who is free at one slot key.
func (h *RehearsalHandler) Slot(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	id := r.PathValue("id")
	key := r.PathValue("key")
	logger := h.log(r.Context(), "Slot", "principal_id", principal.UserID, "rehearsal_id", id, "slot", key)

	names, err := h.service.SlotParticipants(r.Context(), principal, id, key)
	if err != nil {
		h.fail(w, r, logger, "slot lookup failed", err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotResponse{Key: key, Participants: names})
}

// Finalize confirms slots with a room and optional equipment.
func (h *RehearsalHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	id := r.PathValue("id")

	var req finalizeRequest
	if !h.decode(w, r, "Finalize", &req) {
		return
	}

	logger := h.log(r.Context(), "Finalize", "principal_id", principal.UserID, "rehearsal_id", id)
	result, err := h.service.Finalize(r.Context(), application.FinalizeParams{
		Principal: principal,
		SessionID: id,
		Slots:     req.Slots,
		Room:      req.Room,
		Equipment: req.Equipment,
		Locale:    h.responder.locale(r.Context()),
	})
	if err != nil {
		h.fail(w, r, logger, "finalize failed", err)
		return
	}

	entries := make([]finalizedEntryDTO, 0, len(result.Entries))
	for _, entry := range result.Entries {
		entries = append(entries, toFinalizedEntryDTO(entry, result.Members))
	}
	logger.With("entries", len(entries), "warnings", len(result.Warnings)).InfoContext(r.Context(), "slots finalized")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, finalizeResponse{
		Entries:   entries,
		Warnings:  warningMessages(result.Warnings),
		Rehearsal: toRehearsalDTO(result.Session, result.Members),
	})
}

// Share returns the invitation link of a rehearsal.
func (h *RehearsalHandler) Share(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	principal, _ := PrincipalFromContext(r.Context())
	id := r.PathValue("id")
	logger := h.log(r.Context(), "Share", "principal_id", principal.UserID, "rehearsal_id", id)

	link, err := h.service.ShareLink(r.Context(), principal, id, h.shareBase(r))
	if err != nil {
		h.fail(w, r, logger, "share link failed", err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, shareResponse{URL: link})
}

func (h *RehearsalHandler) shareBase(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host + "/"
}

type createRehearsalRequest struct {
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type importRehearsalRequest struct {
	ID      string `json:"id"`
	Song    string `json:"song"`
	Circle  string `json:"circle"`
	Creator string `json:"creator"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type availabilityRequest struct {
	Slots []string `json:"slots"`
}

type finalizeRequest struct {
	Slots     []string `json:"slots"`
	Room      string   `json:"room"`
	Equipment []string `json:"equipment"`
}

type listRehearsalsResponse struct {
	Rehearsals []rehearsalSummaryDTO `json:"rehearsals"`
}

type rehearsalResponse struct {
	Rehearsal rehearsalDTO `json:"rehearsal"`
}

type availabilityResponse struct {
	Slots []scheduler.SlotKey `json:"slots"`
}

type slotResponse struct {
	Key          string   `json:"key"`
	Participants []string `json:"participants"`
}

type shareResponse struct {
	URL string `json:"url"`
}

type finalizeResponse struct {
	Entries   []finalizedEntryDTO `json:"entries"`
	Warnings  []string            `json:"warnings"`
	Rehearsal rehearsalDTO        `json:"rehearsal"`
}
