package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/watchearn/watchearn/internal/reward"
)

// Repository is the authoritative store of daily view counts, attempt
// history and point balances.
type Repository interface {
	DailyLimit(ctx context.Context, userID uuid.UUID, maxDaily int) (reward.Limit, error)
	ProcessCompletion(ctx context.Context, userID uuid.UUID, req *CompleteRequest, maxDaily int) (*Settlement, error)
	ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryEntry, error)
}

// Settlement is the transactional outcome of a completion claim.
type Settlement struct {
	Result      ClaimResult
	Outcome     string // credited, limit_reached, duplicate
	ViewedCount int    // completed views today after this claim settled
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

// dayStartUTC is the authoritative daily reset boundary. The cap resets
// at midnight UTC regardless of the viewer's wall clock.
func dayStartUTC(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour)
}

func (r *postgresRepository) DailyLimit(ctx context.Context, userID uuid.UUID, maxDaily int) (reward.Limit, error) {
	var viewed int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ad_view_completions
		 WHERE user_id = $1 AND status = 'completed' AND completed_at >= $2`,
		userID, dayStartUTC(time.Now()),
	).Scan(&viewed)
	if err != nil {
		return reward.Limit{}, fmt.Errorf("counting ad views: %w", err)
	}
	return reward.NewLimit(viewed, maxDaily), nil
}

// ProcessCompletion settles one claim atomically. The task id is the
// idempotency key: a second submission of the same id changes nothing and
// never re-credits. The per-user row lock on user_points serializes
// concurrent claims from multiple devices so the cap cannot be overshot.
func (r *postgresRepository) ProcessCompletion(ctx context.Context, userID uuid.UUID, req *CompleteRequest, maxDaily int) (*Settlement, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("beginning completion tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO user_points (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID); err != nil {
		return nil, fmt.Errorf("ensuring points row: %w", err)
	}

	var balance int
	if err := tx.QueryRow(ctx,
		`SELECT balance FROM user_points WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&balance); err != nil {
		return nil, fmt.Errorf("locking points row: %w", err)
	}

	verification := req.Verification
	if len(verification) == 0 {
		verification = json.RawMessage(`{}`)
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO ad_view_completions (id, user_id, task_id, ad_id, provider, status, verification, created_at)
		 VALUES ($1, $2, $3, $4, $5, 'pending', $6, NOW())
		 ON CONFLICT (task_id) DO NOTHING`,
		uuid.New(), userID, req.TaskID, req.AdID, req.Provider, verification)
	if err != nil {
		return nil, fmt.Errorf("inserting completion attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Same task id seen before: idempotent no-op.
		viewed, err := countCompletedToday(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("committing completion tx: %w", err)
		}
		return &Settlement{
			Result:      ClaimResult{Success: false, Message: "task already processed"},
			Outcome:     OutcomeDuplicate,
			ViewedCount: viewed,
		}, nil
	}

	viewed, err := countCompletedToday(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if viewed >= maxDaily {
		if _, err := tx.Exec(ctx,
			`UPDATE ad_view_completions SET status = 'failed' WHERE task_id = $1`,
			req.TaskID); err != nil {
			return nil, fmt.Errorf("marking attempt failed: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("committing completion tx: %w", err)
		}
		return &Settlement{
			Result:      ClaimResult{Success: false, Message: "daily ad view limit reached"},
			Outcome:     OutcomeLimitReached,
			ViewedCount: viewed,
		}, nil
	}

	points := reward.TierForCount(viewed)

	if _, err := tx.Exec(ctx,
		`UPDATE ad_view_completions
		 SET status = 'completed', points_earned = $2, completed_at = NOW()
		 WHERE task_id = $1`,
		req.TaskID, points); err != nil {
		return nil, fmt.Errorf("settling completion: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE user_points
		 SET balance = balance + $2, total_earned = total_earned + $2, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, points); err != nil {
		return nil, fmt.Errorf("crediting points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing completion tx: %w", err)
	}

	return &Settlement{
		Result:      ClaimResult{Success: true, PointsEarned: points},
		Outcome:     OutcomeCredited,
		ViewedCount: viewed + 1,
	}, nil
}

func countCompletedToday(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	var viewed int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM ad_view_completions
		 WHERE user_id = $1 AND status = 'completed' AND completed_at >= $2`,
		userID, dayStartUTC(time.Now())).Scan(&viewed)
	if err != nil {
		return 0, fmt.Errorf("counting ad views in tx: %w", err)
	}
	return viewed, nil
}

func (r *postgresRepository) ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, task_id, provider, status, points_earned, completed_at, created_at
		 FROM ad_view_completions
		 WHERE user_id = $1 AND task_id LIKE 'ad\_view\_%'
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing ad view history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Provider, &e.Status,
			&e.PointsEarned, &e.CompletedAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
