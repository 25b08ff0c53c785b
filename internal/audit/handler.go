package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/watchearn/watchearn/internal/api"
	"github.com/watchearn/watchearn/internal/auth"
)

// Lister reads persisted audit entries. Satisfied by *Repository.
type Lister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Entry, int64, error)
}

type Handler struct {
	repo Lister
}

func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

type listResponse struct {
	Entries    []Entry `json:"entries"`
	TotalCount int64   `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}

// List handles GET /api/v1/adviews/audit with optional outcome, from,
// to, page and page_size query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params, err := parseListParams(r)
	if err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	entries, total, err := h.repo.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing audit entries", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	api.JSON(w, http.StatusOK, listResponse{
		Entries:    entries,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	})
}

func parseListParams(r *http.Request) (ListParams, error) {
	params := DefaultListParams()
	q := r.URL.Query()

	params.Outcome = q.Get("outcome")

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, strconv.ErrSyntax
		}
		params.Page = page
	}
	if v := q.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return params, strconv.ErrSyntax
		}
		params.PageSize = size
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return params, err
		}
		params.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return params, err
		}
		params.To = &to
	}

	return params, nil
}
