// Package session coordinates one ad-viewing session end to end: pick an
// ad, watch playback progress up to the completion threshold, obtain a
// verification receipt, and submit the completion claim to the ledger.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/watchearn/watchearn/internal/ads"
	"github.com/watchearn/watchearn/internal/ledger"
	"github.com/watchearn/watchearn/internal/reward"
	"github.com/watchearn/watchearn/internal/verify"
)

// State is the coordinator's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateLoadingLimit
	StateReady
	StateWatching
	StateCompleted
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadingLimit:
		return "loading_limit"
	case StateReady:
		return "ready"
	case StateWatching:
		return "watching"
	case StateCompleted:
		return "completed"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

var (
	ErrLimitReached  = errors.New("daily ad view limit reached")
	ErrNotReady      = errors.New("no limit snapshot loaded")
	ErrNotCompleted  = errors.New("ad has not been watched to completion")
	ErrClaimInFlight = errors.New("a claim is already being submitted")
	ErrNotWatching   = errors.New("no ad session in progress")
)

// Playback reports the position of the media being watched.
type Playback interface {
	// Progress returns the played fraction in [0,1].
	Progress() float64
	// Ended is closed when the media reaches its natural end.
	Ended() <-chan struct{}
}

// PlaybackFactory opens playback for the chosen ad.
type PlaybackFactory func(ad ads.Ad) Playback

// Verifier issues a verification receipt for a watched ad.
type Verifier interface {
	Verify(ctx context.Context, req verify.Request) (json.RawMessage, error)
}

// Ledger is the authoritative backend for quotas and crediting.
type Ledger interface {
	DailyLimit(ctx context.Context) (reward.Limit, error)
	ProcessCompletion(ctx context.Context, taskID, adID, provider string, verification json.RawMessage) (*ledger.ClaimResult, error)
	History(ctx context.Context) ([]ledger.HistoryEntry, error)
}

// Coordinator drives a single user's watch sessions. All exported methods
// are safe for concurrent use; write overlaps such as a double claim are
// rejected before any network call is issued.
type Coordinator struct {
	userID      string
	catalog     *ads.Catalog
	verifier    Verifier
	ledger      Ledger
	newPlayback PlaybackFactory
	interval    time.Duration
	threshold   float64

	mu         sync.Mutex
	state      State
	limit      reward.Limit
	history    []ledger.HistoryEntry
	ad         ads.Ad
	playback   Playback
	progress   float64
	completed  bool
	claiming   bool
	cancelPoll context.CancelFunc
	pollDone   chan struct{}
}

// Config carries the coordinator's collaborators and tuning.
type Config struct {
	UserID      string
	Catalog     *ads.Catalog
	Verifier    Verifier
	Ledger      Ledger
	NewPlayback PlaybackFactory
	// Interval between playback progress samples.
	Interval time.Duration
	// Threshold is the played fraction that counts as completion.
	Threshold float64
}

func New(cfg Config) *Coordinator {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = 0.90
	}
	return &Coordinator{
		userID:      cfg.UserID,
		catalog:     cfg.Catalog,
		verifier:    cfg.Verifier,
		ledger:      cfg.Ledger,
		newPlayback: cfg.NewPlayback,
		interval:    cfg.Interval,
		threshold:   cfg.Threshold,
		state:       StateIdle,
	}
}

// LoadLimit fetches the daily quota snapshot and moves the coordinator to
// Ready. A fetch failure degrades to a permissive default instead of
// blocking the watch flow; the ledger stays authoritative at claim time.
func (c *Coordinator) LoadLimit(ctx context.Context) {
	c.mu.Lock()
	c.state = StateLoadingLimit
	c.mu.Unlock()

	limit, err := c.ledger.DailyLimit(ctx)
	if err != nil {
		slog.Warn("limit fetch failed, using permissive default", "error", err, "user_id", c.userID)
		limit = reward.NewLimit(0, reward.DefaultMaxDaily)
	}

	history, err := c.ledger.History(ctx)
	if err != nil {
		// Display data only. An empty list is acceptable.
		slog.Warn("history fetch failed", "error", err, "user_id", c.userID)
		history = nil
	}

	c.mu.Lock()
	c.limit = limit
	c.history = history
	c.state = StateReady
	c.mu.Unlock()
}

// StartWatching begins a session with a uniformly random catalog ad. It
// fails closed when the quota is exhausted.
func (c *Coordinator) StartWatching() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return ErrNotReady
	}
	if !reward.CanViewMore(c.limit) {
		return ErrLimitReached
	}

	c.ad = c.catalog.Pick()
	c.playback = c.newPlayback(c.ad)
	c.progress = 0
	c.completed = false
	c.state = StateWatching

	pollCtx, cancel := context.WithCancel(context.Background())
	c.cancelPoll = cancel
	c.pollDone = make(chan struct{})
	go c.poll(pollCtx, c.playback, c.pollDone)

	return nil
}

// poll samples playback progress on a fixed interval and also listens for
// the natural end-of-media signal. Completion is declared the first time
// either condition holds; the poll exits immediately after.
func (c *Coordinator) poll(ctx context.Context, p Playback, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.Ended():
			c.declareCompletion(1.0)
			return
		case <-ticker.C:
			frac := p.Progress()
			c.setProgress(frac)
			if frac >= c.threshold {
				c.declareCompletion(frac)
				return
			}
		}
	}
}

func (c *Coordinator) setProgress(frac float64) {
	c.mu.Lock()
	if c.state == StateWatching && frac > c.progress {
		c.progress = frac
	}
	c.mu.Unlock()
}

// declareCompletion is idempotent: only the first call while Watching
// takes effect.
func (c *Coordinator) declareCompletion(frac float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWatching {
		return
	}
	if frac > c.progress {
		c.progress = frac
	}
	c.completed = true
	c.state = StateCompleted
	c.stopPollLocked()
}

// stopPollLocked cancels the progress poll. Safe to call repeatedly.
func (c *Coordinator) stopPollLocked() {
	if c.cancelPoll != nil {
		c.cancelPoll()
		c.cancelPoll = nil
	}
}

// Claim submits the completed session to the verifier and then the
// ledger. Each attempt uses a fresh task identifier; the ledger
// deduplicates by that identifier so a retry can never double-credit.
//
// On a settled rejection (success=false) the session returns to Ready
// with the quota resynced. On a verifier or transport failure the session
// stays Completed so the user may retry without rewatching.
func (c *Coordinator) Claim(ctx context.Context) (*ledger.ClaimResult, error) {
	c.mu.Lock()
	if !c.completed {
		c.mu.Unlock()
		return nil, ErrNotCompleted
	}
	if c.claiming {
		c.mu.Unlock()
		return nil, ErrClaimInFlight
	}
	c.claiming = true
	c.state = StateSubmitting
	ad := c.ad
	c.mu.Unlock()

	taskID := ledger.NewTaskID()

	verification, err := c.verifier.Verify(ctx, verify.Request{
		UserID:   c.userID,
		AdID:     ad.ID,
		Provider: ad.Provider,
		Duration: float64(ad.Duration),
		TaskID:   taskID,
	})
	if err != nil {
		c.settleTransportFailure()
		return nil, err
	}

	result, err := c.ledger.ProcessCompletion(ctx, taskID, ad.ID, ad.Provider, verification)
	if err != nil {
		c.settleTransportFailure()
		return nil, err
	}

	c.resync(ctx)

	c.mu.Lock()
	c.claiming = false
	if result.Success {
		// Session consumed. A new watch starts from Ready.
		c.completed = false
		c.progress = 0
		c.ad = ads.Ad{}
		c.playback = nil
	}
	c.state = StateReady
	c.mu.Unlock()

	return result, nil
}

// settleTransportFailure returns the session to Completed so the claim
// can be retried manually.
func (c *Coordinator) settleTransportFailure() {
	c.mu.Lock()
	c.claiming = false
	c.state = StateCompleted
	c.mu.Unlock()
}

// resync replaces the limit and history snapshots wholesale from the
// ledger. The local viewed count is never mutated optimistically.
func (c *Coordinator) resync(ctx context.Context) {
	if limit, err := c.ledger.DailyLimit(ctx); err != nil {
		slog.Warn("limit resync failed", "error", err, "user_id", c.userID)
	} else {
		c.mu.Lock()
		c.limit = limit
		c.mu.Unlock()
	}

	if history, err := c.ledger.History(ctx); err != nil {
		slog.Warn("history resync failed", "error", err, "user_id", c.userID)
	} else {
		c.mu.Lock()
		c.history = history
		c.mu.Unlock()
	}
}

// Close abandons the in-progress session without submitting a claim. The
// progress poll is always stopped; the ledger is never called.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWatching && c.state != StateCompleted {
		return
	}
	c.stopPollLocked()
	c.completed = false
	c.progress = 0
	c.ad = ads.Ad{}
	c.playback = nil
	c.state = StateReady
}

// Shutdown stops any background polling regardless of state. Called on
// teardown so a discarded coordinator cannot leak its timer.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	c.stopPollLocked()
	c.state = StateIdle
	c.mu.Unlock()
}

// State returns the current lifecycle phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Limit returns the last loaded quota snapshot.
func (c *Coordinator) Limit() reward.Limit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// History returns the last loaded attempt list.
func (c *Coordinator) History() []ledger.HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history
}

// Progress returns the highest sampled playback fraction.
func (c *Coordinator) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Ad returns the descriptor of the ad being watched.
func (c *Coordinator) Ad() ads.Ad {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ad
}

// NextReward previews the points the next completed view would earn. The
// ledger recomputes this server-side at claim time.
func (c *Coordinator) NextReward() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return reward.TierForCount(c.limit.ViewedCount)
}

// WaitForCompletion blocks until the progress poll exits or ctx is done.
// Test and simulator helper.
func (c *Coordinator) WaitForCompletion(ctx context.Context) error {
	c.mu.Lock()
	done := c.pollDone
	c.mu.Unlock()
	if done == nil {
		return ErrNotWatching
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
