package events

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "WATCHEARN_EVENTS"
)

// Subject constants.
const (
	SubjectAdViewEvent = "watchearn.events.adview"
)

// AdViewEvent is published whenever the ledger settles a completion
// claim, credited or not. The audit consumer persists these for the
// fraud-review trail.
type AdViewEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	TaskID       string    `json:"task_id"`
	AdID         string    `json:"ad_id,omitempty"`
	Provider     string    `json:"provider"`
	Outcome      string    `json:"outcome"` // credited, limit_reached, duplicate
	PointsEarned int       `json:"points_earned"`
	ViewedCount  int       `json:"viewed_count"`
	Timestamp    time.Time `json:"timestamp"`
}
