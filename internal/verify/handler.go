package verify

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/watchearn/watchearn/internal/api"
	"github.com/watchearn/watchearn/internal/metrics"
)

// Handler issues verification receipts for watched ads. Today it is a
// permissive stub: any well-formed request verifies. Provider-side
// callback checks and fraud heuristics plug in behind the same contract.
type Handler struct {
	validate *validator.Validate
}

func NewHandler() *Handler {
	return &Handler{validate: validator.New()}
}

// Verify handles POST requests from the player. Ad provider SDKs call
// this endpoint cross-origin, so CORS headers are written on every
// response and preflights short-circuit with 204.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.VerifyRequestsTotal.WithLabelValues("bad_request").Inc()
		api.JSONRaw(w, http.StatusBadRequest, errorResponse{
			Error:   "Missing required fields",
			Success: false,
		})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		metrics.VerifyRequestsTotal.WithLabelValues("bad_request").Inc()
		api.JSONRaw(w, http.StatusBadRequest, errorResponse{
			Error:   "Missing required fields",
			Success: false,
		})
		return
	}

	userAgent := r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "unknown"
	}

	result := Result{
		Verified:          true,
		Timestamp:         time.Now().UTC(),
		AdID:              req.AdID,
		Provider:          req.Provider,
		Duration:          req.Duration,
		VerificationToken: uuid.NewString(),
		UserAgent:         userAgent,
		IPHash:            hashIP(clientIP(r)),
	}

	metrics.VerifyRequestsTotal.WithLabelValues("verified").Inc()
	api.JSONRaw(w, http.StatusOK, result)
}

func writeCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// hashIP keeps the caller's address out of receipts while still letting
// fraud review correlate views from the same origin.
func hashIP(ip string) string {
	sum := blake2b.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
