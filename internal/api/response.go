package api

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every first-party endpoint uses. Exactly one
// of Data, Message or Error is set.
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Response{Data: data})
}

func JSONMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, Response{Message: message})
}

// JSONRaw writes v without the Response envelope. The verifier endpoint
// uses it because its wire format is fixed by the ad-provider contract.
func JSONRaw(w http.ResponseWriter, status int, v any) {
	write(w, status, v)
}

func JSONError(w http.ResponseWriter, status int, err error) {
	write(w, status, Response{Error: err.Error()})
}

func JSONErrorMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, Response{Error: message})
}
