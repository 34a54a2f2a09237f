package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
)

// CuratedListRepository manages the learner's own vocabulary list.
type CuratedListRepository struct {
	db postgres.DBTX
}

func NewCuratedListRepository(db postgres.DBTX) *CuratedListRepository {
	return &CuratedListRepository{db: db}
}

// List returns the curated items of a user, most recently added first.
func (r *CuratedListRepository) List(ctx context.Context, userID int64) ([]entities.CuratedItem, error) {
	query := `
		SELECT user_id, item_id, added_at
		FROM user_vocabulary_list
		WHERE user_id = $1
		ORDER BY added_at DESC, item_id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list curated items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.CuratedItem, error) {
		var it entities.CuratedItem
		err := row.Scan(&it.UserID, &it.ItemID, &it.AddedAt)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("list curated items: %w", err)
	}

	return items, nil
}

// Add puts an item on the list. Adding an item twice is a no-op.
func (r *CuratedListRepository) Add(ctx context.Context, userID, itemID int64, now time.Time) error {
	query := `
		INSERT INTO user_vocabulary_list (user_id, item_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, userID, itemID, now); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return entities.ErrItemNotFound
		}
		return fmt.Errorf("add curated item: %w", err)
	}

	return nil
}

// Remove takes an item off the list. Removing an absent item is a no-op.
func (r *CuratedListRepository) Remove(ctx context.Context, userID, itemID int64) error {
	query := `DELETE FROM user_vocabulary_list WHERE user_id = $1 AND item_id = $2`

	if _, err := r.db.Exec(ctx, query, userID, itemID); err != nil {
		return fmt.Errorf("remove curated item: %w", err)
	}

	return nil
}
