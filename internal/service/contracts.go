package service

import (
	"context"
	"time"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

// CandidateRepository ranks a learner's items.
type CandidateRepository interface {
	List(ctx context.Context, userID int64, limit int, now time.Time) ([]entities.Candidate, error)
}

// ContentRepository reads translations of items.
type ContentRepository interface {
	TranslationPair(ctx context.Context, itemID int64, nativeLang, targetLang string) (*entities.TranslationPair, error)
	RandomTranslations(ctx context.Context, itemID int64, language, exclude string, limit int) ([]string, error)
}

// ProgressRepository persists mastery state.
type ProgressRepository interface {
	GetForUpdate(ctx context.Context, userID, itemID int64) (*entities.Progress, error)
	Insert(ctx context.Context, p *entities.Progress) (bool, error)
	Update(ctx context.Context, p *entities.Progress) error
	CountLearnedInSession(ctx context.Context, userID, sessionID int64) (int, error)
}

// SessionRepository persists sessions and their plans.
type SessionRepository interface {
	Create(ctx context.Context, s *entities.LearningSession) error
	CreateExercises(ctx context.Context, exercises []*entities.SessionExercise) error
	Get(ctx context.Context, sessionID, userID int64) (*entities.LearningSession, error)
	GetForUpdate(ctx context.Context, sessionID, userID int64) (*entities.LearningSession, error)
	UpdateCounters(ctx context.Context, s *entities.LearningSession) error
	GetExerciseForUpdate(ctx context.Context, sessionID, exerciseID int64) (*entities.SessionExercise, error)
	FirstPending(ctx context.Context, sessionID int64) (*entities.SessionExercise, error)
	ListExercises(ctx context.Context, sessionID int64) ([]*entities.SessionExercise, error)
	SetResult(ctx context.Context, exerciseID int64, result entities.ExerciseResult) error
	Mistakes(ctx context.Context, sessionID int64) ([]entities.Mistake, error)
}

// ExerciseLogRepository appends answered exercises.
type ExerciseLogRepository interface {
	Append(ctx context.Context, e *entities.ExerciseLogEntry) error
}

// CuratedListRepository manages a learner's vocabulary list.
type CuratedListRepository interface {
	List(ctx context.Context, userID int64) ([]entities.CuratedItem, error)
	Add(ctx context.Context, userID, itemID int64, now time.Time) error
	Remove(ctx context.Context, userID, itemID int64) error
}

// UnitOfWork exposes repositories bound to one open transaction. Rows read
// with a ForUpdate method stay locked until the transaction ends.
type UnitOfWork interface {
	Sessions() SessionRepository
	Progress() ProgressRepository
	Log() ExerciseLogRepository
}

// Transactor runs fn inside a transaction, committing if fn returns nil and
// rolling back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// Clock returns the current time.
type Clock func() time.Time
