package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/watchearn/watchearn/internal/config"
	"github.com/watchearn/watchearn/internal/events"
	"github.com/watchearn/watchearn/internal/metrics"
	"github.com/watchearn/watchearn/internal/reward"
)

// EventPublisher publishes settled claims for the audit trail.
type EventPublisher interface {
	PublishAdViewEvent(ctx context.Context, event events.AdViewEvent) error
}

// Service orchestrates the PostgreSQL ledger, the Redis limit cache and
// event publication. It is the single authority on crediting.
type Service struct {
	repo  Repository
	cache *LimitCache
	pub   EventPublisher
	cfg   config.AdsConfig
}

// NewService creates a ledger Service. cache and pub may be nil, in which
// case caching and event publication are skipped.
func NewService(repo Repository, cache *LimitCache, pub EventPublisher, cfg config.AdsConfig) *Service {
	return &Service{repo: repo, cache: cache, pub: pub, cfg: cfg}
}

// DailyLimit returns the user's quota snapshot, served from cache when a
// fresh entry exists.
func (s *Service) DailyLimit(ctx context.Context, userID uuid.UUID) (reward.Limit, error) {
	if s.cache != nil {
		if l, ok, err := s.cache.Get(ctx, userID); err != nil {
			slog.Warn("limit cache read failed", "error", err, "user_id", userID)
		} else if ok {
			return l, nil
		}
	}

	l, err := s.repo.DailyLimit(ctx, userID, s.cfg.MaxDaily)
	if err != nil {
		return reward.Limit{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, l); err != nil {
			slog.Warn("limit cache write failed", "error", err, "user_id", userID)
		}
	}
	return l, nil
}

// ProcessCompletion settles a claim and, when credited, updates metrics
// and publishes an event. The cached limit is always invalidated so the
// next read reflects the settled state.
func (s *Service) ProcessCompletion(ctx context.Context, userID uuid.UUID, req *CompleteRequest) (*ClaimResult, error) {
	if !ValidTaskID(req.TaskID) {
		return nil, fmt.Errorf("task id %q lacks the ad_view_ namespace", req.TaskID)
	}

	settlement, err := s.repo.ProcessCompletion(ctx, userID, req, s.cfg.MaxDaily)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			slog.Warn("limit cache invalidation failed", "error", err, "user_id", userID)
		}
	}

	switch settlement.Outcome {
	case OutcomeCredited:
		metrics.AdViewsCompletedTotal.Inc()
		metrics.PointsAwardedTotal.
			WithLabelValues(strconv.Itoa(settlement.Result.PointsEarned)).
			Add(float64(settlement.Result.PointsEarned))
		slog.Info("ad view credited",
			"user_id", userID,
			"task_id", req.TaskID,
			"points", settlement.Result.PointsEarned,
			"viewed_today", settlement.ViewedCount,
		)
	default:
		metrics.ClaimRejectionsTotal.WithLabelValues(settlement.Outcome).Inc()
		slog.Info("ad view claim rejected",
			"user_id", userID,
			"task_id", req.TaskID,
			"reason", settlement.Outcome,
		)
	}

	if s.pub != nil {
		event := events.AdViewEvent{
			UserID:       userID,
			TaskID:       req.TaskID,
			AdID:         req.AdID,
			Provider:     req.Provider,
			Outcome:      settlement.Outcome,
			PointsEarned: settlement.Result.PointsEarned,
			ViewedCount:  settlement.ViewedCount,
			Timestamp:    time.Now().UTC(),
		}
		if err := s.pub.PublishAdViewEvent(ctx, event); err != nil {
			// Crediting already committed; the audit trail catches up later.
			slog.Warn("publishing ad view event failed", "error", err, "task_id", req.TaskID)
		}
	}

	result := settlement.Result
	return &result, nil
}

// History returns the user's recent ad-view attempts, most recent first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, error) {
	return s.repo.ListHistory(ctx, userID, s.cfg.HistoryLimit)
}
