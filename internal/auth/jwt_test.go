package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-chars!!"

func TestValidateAccessToken_RoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, "watchearn")

	token, err := m.SignAccessToken("user-123", "user@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "watchearn", claims.Issuer)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager(testSecret, "watchearn")

	token, err := m.SignAccessToken("user-123", "user@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	m := NewJWTManager(testSecret, "watchearn")
	other := NewJWTManager("another-secret-that-is-32-chars-long!!!!", "watchearn")

	token, err := other.SignAccessToken("user-123", "", time.Minute)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	m := NewJWTManager(testSecret, "watchearn")
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/adviews/limit", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMiddleware_PassesClaimsThroughContext(t *testing.T) {
	m := NewJWTManager(testSecret, "watchearn")

	var got *AccessClaims
	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token, err := m.SignAccessToken("user-abc", "a@b.c", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/adviews/limit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-abc", got.UserID)
}
