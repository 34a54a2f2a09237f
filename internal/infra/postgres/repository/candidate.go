package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
)

// CandidateRepository ranks a learner's items for session composition.
type CandidateRepository struct {
	db postgres.DBTX
}

func NewCandidateRepository(db postgres.DBTX) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// List returns up to limit items with the learner's status, due flag and
// curated list membership, best score first. Items without a progress row
// are reported as new.
func (r *CandidateRepository) List(ctx context.Context, userID int64, limit int, now time.Time) ([]entities.Candidate, error) {
	query := `
		WITH c AS (
			SELECT i.id AS item_id,
			       COALESCE(p.status, 'new') AS status,
			       p.next_review_at,
			       v.item_id IS NOT NULL AS in_list,
			       COALESCE(p.next_review_at <= $2, false) AS due
			FROM items i
			LEFT JOIN progress p ON p.item_id = i.id AND p.user_id = $1
			LEFT JOIN user_vocabulary_list v ON v.item_id = i.id AND v.user_id = $1
		)
		SELECT item_id, status, next_review_at, in_list, due
		FROM c
		ORDER BY (CASE WHEN in_list THEN $3::int ELSE 0 END
		        + CASE WHEN due THEN $4::int ELSE 0 END
		        + CASE WHEN status = 'learning' THEN $5::int ELSE 0 END
		        + CASE WHEN status = 'new' THEN $6::int ELSE 0 END) DESC,
		         item_id ASC
		LIMIT $7
	`

	rows, err := r.db.Query(
		ctx,
		query,
		userID,
		now,
		entities.WeightCuratedList,
		entities.WeightDue,
		entities.WeightLearning,
		entities.WeightNew,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]entities.Candidate, 0, limit)
	for rows.Next() {
		var c entities.Candidate
		if err := rows.Scan(&c.ItemID, &c.Status, &c.NextReviewAt, &c.InCuratedList, &c.Due); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	return candidates, nil
}
