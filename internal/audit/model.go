package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry matches the audit_logs table schema. One row per settled
// completion claim, credited or rejected.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	TaskID       string    `json:"task_id"`
	AdID         string    `json:"ad_id,omitempty"`
	Provider     string    `json:"provider"`
	Outcome      string    `json:"outcome"`
	PointsEarned int       `json:"points_earned"`
	ViewedCount  int       `json:"viewed_count"`
	OccurredAt   time.Time `json:"occurred_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListParams holds pagination and filtering for audit queries.
type ListParams struct {
	Outcome  string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
