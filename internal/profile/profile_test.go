package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchearn/watchearn/internal/auth"
)

type fakeRepo struct {
	profile *Profile
	err     error
}

func (f *fakeRepo) GetProfile(_ context.Context, userID uuid.UUID) (*Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	p.UserID = userID
	return &p, nil
}

func authedRequest(userID uuid.UUID) *http.Request {
	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	claims := &auth.AccessClaims{UserID: userID.String()}
	return req.WithContext(context.WithValue(req.Context(), auth.UserClaimsKey, claims))
}

func TestGet_ReturnsBalance(t *testing.T) {
	userID := uuid.New()
	h := NewHandler(&fakeRepo{profile: &Profile{
		Balance: 160, TotalEarned: 160, UpdatedAt: time.Now(),
	}})

	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(userID))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data Profile `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.Data.UserID)
	assert.Equal(t, 160, resp.Data.Balance)
	assert.Equal(t, 160, resp.Data.TotalEarned)
}

func TestGet_Unauthenticated(t *testing.T) {
	h := NewHandler(&fakeRepo{profile: &Profile{}})

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/api/v1/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGet_RepositoryError(t *testing.T) {
	h := NewHandler(&fakeRepo{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(uuid.New()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
