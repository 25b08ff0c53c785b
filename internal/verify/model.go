package verify

import "time"

// Request is the verification payload the player submits once an ad has
// been watched to completion. Field names follow the ad-provider callback
// contract, not the rest of the API.
type Request struct {
	UserID   string  `json:"userId" validate:"required"`
	AdID     string  `json:"adId" validate:"required"`
	Provider string  `json:"provider" validate:"required"`
	Duration float64 `json:"duration" validate:"required,gt=0"`
	TaskID   string  `json:"taskId" validate:"required"`
}

// Result is the verification receipt. It is embedded verbatim into the
// completion claim sent to the ledger.
type Result struct {
	Verified          bool      `json:"verified"`
	Timestamp         time.Time `json:"timestamp"`
	AdID              string    `json:"adId"`
	Provider          string    `json:"provider"`
	Duration          float64   `json:"duration"`
	VerificationToken string    `json:"verificationToken"`
	UserAgent         string    `json:"userAgent"`
	IPHash            string    `json:"ipHash"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
}
