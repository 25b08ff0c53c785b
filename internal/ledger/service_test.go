package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchearn/watchearn/internal/config"
	"github.com/watchearn/watchearn/internal/events"
	"github.com/watchearn/watchearn/internal/reward"
)

type fakeRepo struct {
	limit       reward.Limit
	limitCalls  int
	settlement  *Settlement
	lastReq     *CompleteRequest
	history     []HistoryEntry
	historyArgs int
}

func (f *fakeRepo) DailyLimit(_ context.Context, _ uuid.UUID, _ int) (reward.Limit, error) {
	f.limitCalls++
	return f.limit, nil
}

func (f *fakeRepo) ProcessCompletion(_ context.Context, _ uuid.UUID, req *CompleteRequest, _ int) (*Settlement, error) {
	f.lastReq = req
	return f.settlement, nil
}

func (f *fakeRepo) ListHistory(_ context.Context, _ uuid.UUID, limit int) ([]HistoryEntry, error) {
	f.historyArgs = limit
	return f.history, nil
}

type fakePublisher struct {
	published []events.AdViewEvent
}

func (f *fakePublisher) PublishAdViewEvent(_ context.Context, e events.AdViewEvent) error {
	f.published = append(f.published, e)
	return nil
}

func adsCfg() config.AdsConfig {
	return config.AdsConfig{
		MaxDaily:            10,
		CompletionThreshold: 0.90,
		ProgressInterval:    500 * time.Millisecond,
		HistoryLimit:        20,
		LimitCacheTTL:       5 * time.Second,
	}
}

func newCache(t *testing.T) *LimitCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLimitCache(client, 5*time.Second)
}

func TestDailyLimit_CachesSnapshot(t *testing.T) {
	repo := &fakeRepo{limit: reward.NewLimit(2, 10)}
	svc := NewService(repo, newCache(t), nil, adsCfg())
	ctx := context.Background()
	userID := uuid.New()

	l1, err := svc.DailyLimit(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, l1.ViewedCount)
	assert.Equal(t, 1, repo.limitCalls)

	// Second read is served from the cache.
	l2, err := svc.DailyLimit(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, l1, l2)
	assert.Equal(t, 1, repo.limitCalls)
}

func TestProcessCompletion_InvalidatesCacheAndPublishes(t *testing.T) {
	repo := &fakeRepo{
		limit: reward.NewLimit(1, 10),
		settlement: &Settlement{
			Result:      ClaimResult{Success: true, PointsEarned: 50},
			Outcome:     OutcomeCredited,
			ViewedCount: 2,
		},
	}
	pub := &fakePublisher{}
	svc := NewService(repo, newCache(t), pub, adsCfg())
	ctx := context.Background()
	userID := uuid.New()

	// Warm the cache.
	_, err := svc.DailyLimit(ctx, userID)
	require.NoError(t, err)

	result, err := svc.ProcessCompletion(ctx, userID, &CompleteRequest{
		TaskID:       "ad_view_abc12345",
		AdID:         "ad1",
		Provider:     "AdsTerra",
		Verification: json.RawMessage(`{"verified":true}`),
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 50, result.PointsEarned)

	require.Len(t, pub.published, 1)
	assert.Equal(t, OutcomeCredited, pub.published[0].Outcome)
	assert.Equal(t, "ad_view_abc12345", pub.published[0].TaskID)
	assert.Equal(t, 2, pub.published[0].ViewedCount)

	// Cache was busted: next limit read goes back to the repository.
	repo.limit = reward.NewLimit(2, 10)
	l, err := svc.DailyLimit(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, l.ViewedCount)
	assert.Equal(t, 2, repo.limitCalls)
}

func TestProcessCompletion_RejectsForeignTaskID(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil, nil, adsCfg())

	_, err := svc.ProcessCompletion(context.Background(), uuid.New(), &CompleteRequest{
		TaskID:       "survey_12345678",
		Provider:     "AdsTerra",
		Verification: json.RawMessage(`{}`),
	})
	require.Error(t, err)
	assert.Nil(t, repo.lastReq, "a badly namespaced task id must never reach the database")
}

func TestProcessCompletion_RejectedClaimStillPublished(t *testing.T) {
	repo := &fakeRepo{
		settlement: &Settlement{
			Result:      ClaimResult{Success: false, Message: "daily ad view limit reached"},
			Outcome:     OutcomeLimitReached,
			ViewedCount: 10,
		},
	}
	pub := &fakePublisher{}
	svc := NewService(repo, nil, pub, adsCfg())

	result, err := svc.ProcessCompletion(context.Background(), uuid.New(), &CompleteRequest{
		TaskID:       NewTaskID(),
		Provider:     "AdsTerra",
		Verification: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.PointsEarned)
	assert.Equal(t, "daily ad view limit reached", result.Message)

	require.Len(t, pub.published, 1)
	assert.Equal(t, OutcomeLimitReached, pub.published[0].Outcome)
}

func TestHistory_UsesConfiguredWindow(t *testing.T) {
	repo := &fakeRepo{history: []HistoryEntry{{TaskID: "ad_view_1"}}}
	svc := NewService(repo, nil, nil, adsCfg())

	entries, err := svc.History(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 20, repo.historyArgs)
}

func TestNewTaskID(t *testing.T) {
	id1 := NewTaskID()
	id2 := NewTaskID()
	assert.True(t, ValidTaskID(id1))
	assert.True(t, ValidTaskID(id2))
	assert.NotEqual(t, id1, id2)
	assert.False(t, ValidTaskID("ad_view_"))
	assert.False(t, ValidTaskID("survey_abc"))
}

func TestNewLimitSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	snap := NewLimitSnapshot(reward.NewLimit(1, 10), now)
	assert.Equal(t, 50, snap.NextReward)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), snap.ResetsAt)

	snap = NewLimitSnapshot(reward.NewLimit(2, 10), now)
	assert.Equal(t, 60, snap.NextReward)
}
