package ledger

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/watchearn/watchearn/internal/reward"
)

// TaskIDPrefix namespaces ad-view attempts inside the shared earning-task
// completions table, so they can be told apart from other earning types.
const TaskIDPrefix = "ad_view_"

// NewTaskID mints a fresh per-attempt task identifier. The task id is the
// idempotency key at the ledger: crediting happens at most once per id.
func NewTaskID() string {
	return TaskIDPrefix + uuid.New().String()[:8]
}

// ValidTaskID reports whether id carries the ad-view namespace prefix.
func ValidTaskID(id string) bool {
	return strings.HasPrefix(id, TaskIDPrefix) && len(id) > len(TaskIDPrefix)
}

// Status of one recorded ad-view attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReviewing Status = "reviewing"
)

// HistoryEntry is one completed (or attempted) ad view. Rows are created
// by the ledger when a claim is submitted and are immutable to clients.
type HistoryEntry struct {
	ID           uuid.UUID  `json:"id"`
	TaskID       string     `json:"task_id"`
	Provider     string     `json:"provider"`
	Status       Status     `json:"status"`
	PointsEarned int        `json:"points_earned"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ClaimResult is the ledger's verdict on a completion claim.
type ClaimResult struct {
	Success      bool   `json:"success"`
	PointsEarned int    `json:"points_earned"`
	Message      string `json:"message,omitempty"`
}

// Claim outcomes, used for event publication and metrics labels.
const (
	OutcomeCredited     = "credited"
	OutcomeLimitReached = "limit_reached"
	OutcomeDuplicate    = "duplicate"
)

// CompleteRequest is the "process ad view completion" RPC input. The
// verification payload is opaque: whatever the verifier returned is
// stored alongside the attempt.
type CompleteRequest struct {
	TaskID       string          `json:"task_id" validate:"required,startswith=ad_view_"`
	AdID         string          `json:"ad_id"`
	Provider     string          `json:"provider" validate:"required"`
	Verification json.RawMessage `json:"verification" validate:"required"`
}

// LimitSnapshot is the "check daily ad view limit" RPC output, extended
// with the next-reward preview and the UTC reset boundary so clients can
// render a countdown without re-deriving policy.
type LimitSnapshot struct {
	reward.Limit
	NextReward int       `json:"next_reward"`
	ResetsAt   time.Time `json:"resets_at"`
}

// NewLimitSnapshot derives the preview fields from a limit.
func NewLimitSnapshot(l reward.Limit, now time.Time) LimitSnapshot {
	day := now.UTC().Truncate(24 * time.Hour)
	return LimitSnapshot{
		Limit:      l,
		NextReward: reward.TierForCount(l.ViewedCount),
		ResetsAt:   day.Add(24 * time.Hour),
	}
}
