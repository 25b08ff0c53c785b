// Package profile exposes the user's points balance. The balance is a
// read model; only the ledger's completion transaction writes it.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/watchearn/watchearn/internal/api"
	"github.com/watchearn/watchearn/internal/auth"
)

// Profile is the balance snapshot returned to the client.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	Balance     int       `json:"balance"`
	TotalEarned int       `json:"total_earned"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository reads point balances.
type Repository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// GetProfile returns the user's balance. A user who has never earned
// points gets a zeroed profile rather than a not-found error.
func (r *postgresRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p := &Profile{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT balance, total_earned, updated_at FROM user_points WHERE user_id = $1`,
		userID).Scan(&p.Balance, &p.TotalEarned, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		p.UpdatedAt = time.Now().UTC()
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading points balance: %w", err)
	}
	return p, nil
}

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Get handles GET /api/v1/profile.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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

	p, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil {
		slog.Error("reading profile", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, p)
}
