package ledger

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/watchearn/watchearn/internal/api"
	"github.com/watchearn/watchearn/internal/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func requestUserID(r *http.Request) (uuid.UUID, bool) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Limit handles the "check daily ad view limit" RPC. A read with no side
// effects; safe to call on every page load.
func (h *Handler) Limit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	limit, err := h.svc.DailyLimit(r.Context(), userID)
	if err != nil {
		slog.Error("checking daily ad view limit", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, NewLimitSnapshot(limit, time.Now()))
}

// History returns the bounded, most-recent-first attempt list.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	entries, err := h.svc.History(r.Context(), userID)
	if err != nil {
		slog.Error("listing ad view history", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}

	api.JSON(w, http.StatusOK, entries)
}

// Complete handles the "process ad view completion" RPC. Settled claims
// are returned with 200 whether or not points were credited; the body's
// success flag plus message carries the verdict, matching the ledger
// contract. Only transport-level problems surface as HTTP errors.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	result, err := h.svc.ProcessCompletion(r.Context(), userID, &req)
	if err != nil {
		slog.Error("processing ad view completion", "error", err, "user_id", userID, "task_id", req.TaskID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, result)
}
