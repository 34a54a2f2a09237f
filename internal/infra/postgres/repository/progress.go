package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
)

// ProgressRepository provides access to per-item mastery state in the database.
type ProgressRepository struct {
	db postgres.DBTX
}

// NewProgressRepository creates a new ProgressRepository on a pool or transaction.
func NewProgressRepository(db postgres.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetForUpdate retrieves a progress row and locks it until the transaction ends.
func (r *ProgressRepository) GetForUpdate(ctx context.Context, userID, itemID int64) (*entities.Progress, error) {
	query := `
		SELECT user_id, item_id, status, correct_count, wrong_count, last_seen_at, next_review_at
		FROM progress
		WHERE user_id = $1 AND item_id = $2
		FOR UPDATE
	`

	var p entities.Progress
	err := r.db.QueryRow(ctx, query, userID, itemID).Scan(
		&p.UserID,
		&p.ItemID,
		&p.Status,
		&p.CorrectCount,
		&p.WrongCount,
		&p.LastSeenAt,
		&p.NextReviewAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrProgressNotFound
		}
		return nil, fmt.Errorf("get progress for update: %w", err)
	}

	return &p, nil
}

// Insert creates the first progress row of an item. It reports false when a
// concurrent transaction inserted the same (user, item) pair first.
func (r *ProgressRepository) Insert(ctx context.Context, p *entities.Progress) (bool, error) {
	query := `
		INSERT INTO progress (
			user_id, item_id, status, correct_count, wrong_count, last_seen_at, next_review_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, item_id) DO NOTHING
	`

	tag, err := r.db.Exec(
		ctx,
		query,
		p.UserID,
		p.ItemID,
		p.Status,
		p.CorrectCount,
		p.WrongCount,
		p.LastSeenAt,
		p.NextReviewAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert progress: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Update stores counters, status and schedule of an existing progress row.
func (r *ProgressRepository) Update(ctx context.Context, p *entities.Progress) error {
	query := `
		UPDATE progress
		SET status = $3,
		    correct_count = $4,
		    wrong_count = $5,
		    last_seen_at = $6,
		    next_review_at = $7
		WHERE user_id = $1 AND item_id = $2
	`

	tag, err := r.db.Exec(
		ctx,
		query,
		p.UserID,
		p.ItemID,
		p.Status,
		p.CorrectCount,
		p.WrongCount,
		p.LastSeenAt,
		p.NextReviewAt,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrProgressNotFound
	}

	return nil
}

// CountLearnedInSession counts the distinct items of a session the learner has learned.
func (r *ProgressRepository) CountLearnedInSession(ctx context.Context, userID, sessionID int64) (int, error) {
	query := `
		SELECT COUNT(DISTINCT se.item_id)
		FROM session_exercises se
		JOIN progress p ON p.item_id = se.item_id AND p.user_id = $1
		WHERE se.session_id = $2 AND p.status = 'learned'
	`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count learned in session: %w", err)
	}

	return count, nil
}
