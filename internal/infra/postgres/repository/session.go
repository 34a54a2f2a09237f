package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
)

// SessionRepository provides access to learning sessions and their planned exercises.
type SessionRepository struct {
	db postgres.DBTX
}

// NewSessionRepository creates a new SessionRepository on a pool or transaction.
func NewSessionRepository(db postgres.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, user_id, total_exercises, completed_exercises,
	correct_answers, wrong_answers, native_lang, target_lang,
	started_at, finished_at
`

const exerciseColumns = `id, session_id, item_id, exercise_type, order_index, result`

// Create inserts a new session and sets its ID.
func (r *SessionRepository) Create(ctx context.Context, s *entities.LearningSession) error {
	query := `
		INSERT INTO sessions (
			user_id, total_exercises, completed_exercises,
			correct_answers, wrong_answers, native_lang, target_lang, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRow(
		ctx,
		query,
		s.UserID,
		s.TotalExercises,
		s.CompletedExercises,
		s.CorrectAnswers,
		s.WrongAnswers,
		s.NativeLang,
		s.TargetLang,
		s.StartedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// CreateExercises inserts the planned exercises of a session in one round trip
// and sets their IDs.
func (r *SessionRepository) CreateExercises(ctx context.Context, exercises []*entities.SessionExercise) error {
	query := `
		INSERT INTO session_exercises (session_id, item_id, exercise_type, order_index)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	batch := &pgx.Batch{}
	for _, ex := range exercises {
		batch.Queue(query, ex.SessionID, ex.ItemID, ex.Type, ex.OrderIndex).QueryRow(func(row pgx.Row) error {
			return row.Scan(&ex.ID)
		})
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("create session exercises: %w", err)
	}

	return nil
}

// Get retrieves a session owned by userID.
func (r *SessionRepository) Get(ctx context.Context, sessionID, userID int64) (*entities.LearningSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND user_id = $2`
	return r.getSession(ctx, query, sessionID, userID)
}

// GetForUpdate retrieves a session owned by userID with a row-level lock.
func (r *SessionRepository) GetForUpdate(ctx context.Context, sessionID, userID int64) (*entities.LearningSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return r.getSession(ctx, query, sessionID, userID)
}

func (r *SessionRepository) getSession(ctx context.Context, query string, sessionID, userID int64) (*entities.LearningSession, error) {
	var s entities.LearningSession
	err := r.db.QueryRow(ctx, query, sessionID, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.TotalExercises,
		&s.CompletedExercises,
		&s.CorrectAnswers,
		&s.WrongAnswers,
		&s.NativeLang,
		&s.TargetLang,
		&s.StartedAt,
		&s.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &s, nil
}

// UpdateCounters stores the answer counters and finish time of a session.
func (r *SessionRepository) UpdateCounters(ctx context.Context, s *entities.LearningSession) error {
	query := `
		UPDATE sessions
		SET completed_exercises = $2,
		    correct_answers = $3,
		    wrong_answers = $4,
		    finished_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, s.ID, s.CompletedExercises, s.CorrectAnswers, s.WrongAnswers, s.FinishedAt)
	if err != nil {
		return fmt.Errorf("update session counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrSessionNotFound
	}

	return nil
}

// GetExerciseForUpdate retrieves an exercise of the session with a row-level lock.
func (r *SessionRepository) GetExerciseForUpdate(ctx context.Context, sessionID, exerciseID int64) (*entities.SessionExercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM session_exercises WHERE id = $1 AND session_id = $2 FOR UPDATE`

	ex, err := scanExercise(r.db.QueryRow(ctx, query, exerciseID, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrExerciseNotFound
		}
		return nil, fmt.Errorf("get exercise for update: %w", err)
	}

	return ex, nil
}

// FirstPending returns the unanswered exercise with the lowest order index.
// It returns entities.ErrExerciseNotFound when every exercise is answered.
func (r *SessionRepository) FirstPending(ctx context.Context, sessionID int64) (*entities.SessionExercise, error) {
	query := `
		SELECT ` + exerciseColumns + `
		FROM session_exercises
		WHERE session_id = $1 AND result IS NULL
		ORDER BY order_index
		LIMIT 1
	`

	ex, err := scanExercise(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrExerciseNotFound
		}
		return nil, fmt.Errorf("get first pending exercise: %w", err)
	}

	return ex, nil
}

// ListExercises returns the whole plan of a session in order.
func (r *SessionRepository) ListExercises(ctx context.Context, sessionID int64) ([]*entities.SessionExercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM session_exercises WHERE session_id = $1 ORDER BY order_index`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var exercises []*entities.SessionExercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}

	return exercises, nil
}

// SetResult records the outcome of an exercise. Only unanswered exercises are updated.
func (r *SessionRepository) SetResult(ctx context.Context, exerciseID int64, result entities.ExerciseResult) error {
	query := `UPDATE session_exercises SET result = $2 WHERE id = $1 AND result IS NULL`

	tag, err := r.db.Exec(ctx, query, exerciseID, result)
	if err != nil {
		return fmt.Errorf("set exercise result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrAlreadyAnswered
	}

	return nil
}

// Mistakes lists the items answered wrong at least once in a session,
// most mistakes first.
func (r *SessionRepository) Mistakes(ctx context.Context, sessionID int64) ([]entities.Mistake, error) {
	query := `
		SELECT item_id, COUNT(*) AS wrong_count
		FROM session_exercises
		WHERE session_id = $1 AND result = 'wrong'
		GROUP BY item_id
		ORDER BY wrong_count DESC, item_id ASC
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}

	mistakes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.Mistake, error) {
		var m entities.Mistake
		err := row.Scan(&m.ItemID, &m.WrongCount)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}

	return mistakes, nil
}

func scanExercise(row pgx.Row) (*entities.SessionExercise, error) {
	var ex entities.SessionExercise
	err := row.Scan(&ex.ID, &ex.SessionID, &ex.ItemID, &ex.Type, &ex.OrderIndex, &ex.Result)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}
