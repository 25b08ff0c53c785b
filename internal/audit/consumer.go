package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/watchearn/watchearn/internal/events"
)

// Inserter persists consumed events. Satisfied by *Repository.
type Inserter interface {
	Insert(ctx context.Context, e *Entry) error
}

// Consumer listens on the ad view event subject and persists entries for
// the fraud-review trail.
type Consumer struct {
	repo        Inserter
	consumerMgr *events.ConsumerManager
}

func NewConsumer(repo Inserter, consumerMgr *events.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, events.StreamEvents, "audit-persister", events.SubjectAdViewEvent)
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", "audit-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(events.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	var event events.AdViewEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		slog.Error("audit consumer: unmarshaling event", "error", err)
		_ = msg.Nak()
		return
	}

	entry := EntryFromEvent(event)
	if err := c.repo.Insert(ctx, entry); err != nil {
		slog.Error("audit consumer: persisting entry", "error", err, "task_id", event.TaskID)
		_ = msg.Nak()
		return
	}

	if err := msg.Ack(); err != nil {
		slog.Error("audit consumer: acking message", "error", err)
	}
}

// EntryFromEvent maps a settled claim event onto an audit row.
func EntryFromEvent(event events.AdViewEvent) *Entry {
	return &Entry{
		ID:           uuid.New(),
		UserID:       event.UserID,
		TaskID:       event.TaskID,
		AdID:         event.AdID,
		Provider:     event.Provider,
		Outcome:      event.Outcome,
		PointsEarned: event.PointsEarned,
		ViewedCount:  event.ViewedCount,
		OccurredAt:   event.Timestamp,
	}
}
