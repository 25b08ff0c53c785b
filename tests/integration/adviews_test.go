//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchearn/watchearn/internal/ledger"
)

func TestAdViews_LimitDefaults(t *testing.T) {
	env := SetupTestEnv(t)
	_, token := NewUser(t, env)

	resp := DoRequest(t, env, "GET", "/api/v1/adviews/limit", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := ParseResponse(t, resp)["data"].(map[string]any)

	assert.Equal(t, float64(0), data["viewed_count"])
	assert.Equal(t, float64(10), data["max_daily"])
	assert.Equal(t, float64(10), data["remaining"])
	assert.Equal(t, true, data["can_view_more"])
	assert.Equal(t, float64(50), data["next_reward"])
}

func TestAdViews_Unauthenticated(t *testing.T) {
	env := SetupTestEnv(t)

	for _, path := range []string{
		"/api/v1/adviews/limit",
		"/api/v1/adviews/history",
		"/api/v1/profile",
	} {
		resp := DoRequest(t, env, "GET", path, nil, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestAdViews_CompletionCreditsTieredPoints(t *testing.T) {
	env := SetupTestEnv(t)
	userID, token := NewUser(t, env)

	// Views 1 and 2 pay 50 each, views 3 and 4 pay 60.
	expected := []float64{50, 50, 60, 60}
	for i, want := range expected {
		result := CompleteAd(t, env, userID, token)["data"].(map[string]any)
		require.Equal(t, true, result["success"], "view %d", i+1)
		assert.Equal(t, want, result["points_earned"], "view %d", i+1)
	}

	// Quota reflects four completed views.
	resp := DoRequest(t, env, "GET", "/api/v1/adviews/limit", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(4), data["viewed_count"])
	assert.Equal(t, float64(75), data["next_reward"])

	// Balance matches the credited sum.
	resp = DoRequest(t, env, "GET", "/api/v1/profile", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	prof := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(220), prof["balance"])
	assert.Equal(t, float64(220), prof["total_earned"])
}

func TestAdViews_DuplicateTaskNeverDoubleCredits(t *testing.T) {
	env := SetupTestEnv(t)
	userID, token := NewUser(t, env)

	taskID := ledger.NewTaskID()
	body := map[string]any{
		"task_id":      taskID,
		"ad_id":        "ad1",
		"provider":     "AdsTerra",
		"verification": map[string]any{"verified": true},
	}

	resp := DoRequest(t, env, "POST", "/api/v1/adviews/complete", body, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := ParseResponse(t, resp)["data"].(map[string]any)
	require.Equal(t, true, first["success"])
	credited := first["points_earned"].(float64)

	resp = DoRequest(t, env, "POST", "/api/v1/adviews/complete", body, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, false, second["success"])
	assert.Equal(t, "task already processed", second["message"])

	resp = DoRequest(t, env, "GET", "/api/v1/profile", nil, token)
	prof := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, credited, prof["balance"], "the duplicate must not credit again")
	_ = userID
}

func TestAdViews_DailyCapEnforced(t *testing.T) {
	env := SetupTestEnv(t)
	userID, token := NewUser(t, env)

	for i := 0; i < 10; i++ {
		result := CompleteAd(t, env, userID, token)["data"].(map[string]any)
		require.Equal(t, true, result["success"], "view %d", i+1)
	}

	// The eleventh claim settles as a rejection, not an HTTP error.
	result := CompleteAd(t, env, userID, token)["data"].(map[string]any)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "daily ad view limit reached", result["message"])

	resp := DoRequest(t, env, "GET", "/api/v1/adviews/limit", nil, token)
	data := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(10), data["viewed_count"])
	assert.Equal(t, float64(0), data["remaining"])
	assert.Equal(t, false, data["can_view_more"])
}

func TestAdViews_HistoryListsAttempts(t *testing.T) {
	env := SetupTestEnv(t)
	userID, token := NewUser(t, env)

	CompleteAd(t, env, userID, token)
	CompleteAd(t, env, userID, token)

	resp := DoRequest(t, env, "GET", "/api/v1/adviews/history", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := ParseResponse(t, resp)["data"].([]any)
	require.Len(t, entries, 2)

	first := entries[0].(map[string]any)
	assert.Equal(t, "completed", first["status"])
	assert.Equal(t, "AdsTerra", first["provider"])
}

func TestAdViews_ForeignTaskIDRejected(t *testing.T) {
	env := SetupTestEnv(t)
	_, token := NewUser(t, env)

	resp := DoRequest(t, env, "POST", "/api/v1/adviews/complete", map[string]any{
		"task_id":      "survey_12345678",
		"provider":     "AdsTerra",
		"verification": map[string]any{},
	}, token)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAds_CatalogListed(t *testing.T) {
	env := SetupTestEnv(t)
	_, token := NewUser(t, env)

	resp := DoRequest(t, env, "GET", "/api/v1/ads", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	catalog := ParseResponse(t, resp)["data"].([]any)
	require.NotEmpty(t, catalog)

	ad := catalog[0].(map[string]any)
	assert.NotEmpty(t, ad["id"])
	assert.NotEmpty(t, ad["title"])
	assert.NotEmpty(t, ad["provider"])
}

func TestVerify_EndToEnd(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "POST", "/api/v1/verify/ad-view", map[string]any{
		"userId":   "u1",
		"adId":     "ad1",
		"provider": "AdsTerra",
		"duration": 30,
		"taskId":   "ad_view_abc12345",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	body := ParseResponse(t, resp)
	assert.Equal(t, true, body["verified"])
	assert.NotEmpty(t, body["verificationToken"])
	assert.NotEmpty(t, body["ipHash"])
}

func TestHealth_Ready(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := ParseResponse(t, resp)["data"].(map[string]any)
	assert.Equal(t, "healthy", body["database"])
	assert.Equal(t, "healthy", body["redis"])
	assert.Equal(t, "not configured", body["nats"])
}
