package repository

import (
	"context"
	"fmt"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
)

// ExerciseLogRepository appends answered exercises to the audit log.
type ExerciseLogRepository struct {
	db postgres.DBTX
}

func NewExerciseLogRepository(db postgres.DBTX) *ExerciseLogRepository {
	return &ExerciseLogRepository{db: db}
}

// Append inserts one log row.
func (r *ExerciseLogRepository) Append(ctx context.Context, e *entities.ExerciseLogEntry) error {
	query := `
		INSERT INTO exercise_log (user_id, item_id, session_id, exercise_type, is_correct, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query, e.UserID, e.ItemID, e.SessionID, e.Type, e.IsCorrect, e.AnsweredAt)
	if err != nil {
		return fmt.Errorf("append exercise log: %w", err)
	}

	return nil
}
