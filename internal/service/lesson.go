package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

var tracer = otel.Tracer("github.com/aliskhannn/lesson-engine/internal/service")

// LessonMetrics receives domain events worth counting.
type LessonMetrics interface {
	SessionStarted(exercises int)
	AnswerRecorded(exType entities.ExerciseType, isCorrect bool)
	SessionFinished()
	ItemLearned()
}

// LessonLimits bounds the size of new sessions.
type LessonLimits struct {
	DefaultTotalExercises int
	MaxTotalExercises     int
	DefaultMaxNewItems    int
	DefaultLanguages      Languages
}

// StartResult is a freshly persisted session with its plan.
type StartResult struct {
	Session   *entities.LearningSession
	Exercises []*entities.SessionExercise
}

// NextResult is either the next pending exercise or a done marker with the session aggregates.
type NextResult struct {
	Done       bool
	ExerciseID int64 // session exercise to answer
	Exercise   *entities.Exercise
	Current    int
	Total      int
	Session    entities.SessionProgress
}

// AnswerResult is the outcome of one submitted answer.
type AnswerResult struct {
	IsCorrect     bool
	CorrectAnswer string
	Progress      *entities.Progress
	Session       entities.SessionProgress
	Next          *NextResult // nil if it could not be loaded after commit
}

// SessionDetails is a session with its whole plan.
type SessionDetails struct {
	Session   *entities.LearningSession
	Exercises []*entities.SessionExercise
}

// LessonService owns the lifecycle of learning sessions.
type LessonService struct {
	tr        Transactor
	sessions  SessionRepository
	progress  ProgressRepository
	selector  *CandidateSelector
	composer  *SessionComposer
	generator *ExerciseGenerator
	updater   *ProgressUpdater
	metrics   LessonMetrics
	limits    LessonLimits
	now       Clock
	logger    *zap.Logger
}

func NewLessonService(
	tr Transactor,
	sessions SessionRepository,
	progress ProgressRepository,
	selector *CandidateSelector,
	composer *SessionComposer,
	generator *ExerciseGenerator,
	updater *ProgressUpdater,
	metrics LessonMetrics,
	limits LessonLimits,
	now Clock,
	logger *zap.Logger,
) *LessonService {
	return &LessonService{
		tr:        tr,
		sessions:  sessions,
		progress:  progress,
		selector:  selector,
		composer:  composer,
		generator: generator,
		updater:   updater,
		metrics:   metrics,
		limits:    limits,
		now:       now,
		logger:    logger,
	}
}

// Start composes and persists a new session. A non-positive total or a
// negative maxNew selects the configured default; totals above the maximum
// are capped. The language pair is fixed for the lifetime of the session;
// empty codes take the configured defaults.
func (s *LessonService) Start(ctx context.Context, userID int64, total, maxNew int, langs Languages) (res *StartResult, err error) {
	ctx, span := tracer.Start(ctx, "LessonService.Start", trace.WithAttributes(attribute.Int64("user_id", userID)))
	defer func() { endSpan(span, err) }()

	total, maxNew = s.bound(total, maxNew)

	candidates, err := s.selector.Select(ctx, userID, total*candidatePoolFactor)
	if err != nil {
		return nil, err
	}

	plan, err := s.composer.Compose(candidates, total, maxNew)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, entities.ErrNoContentAvailable
	}

	session := entities.NewLearningSession(userID, len(plan), s.now())
	session.NativeLang = cmp.Or(langs.Native, s.limits.DefaultLanguages.Native)
	session.TargetLang = cmp.Or(langs.Target, s.limits.DefaultLanguages.Target)
	exercises := make([]*entities.SessionExercise, len(plan))

	err = s.tr.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if err := uow.Sessions().Create(ctx, session); err != nil {
			return err
		}

		for i, p := range plan {
			exercises[i] = &entities.SessionExercise{
				SessionID:  session.ID,
				ItemID:     p.ItemID,
				Type:       p.Type,
				OrderIndex: i,
			}
		}

		return uow.Sessions().CreateExercises(ctx, exercises)
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	s.metrics.SessionStarted(len(plan))
	s.logger.Info("session started",
		zap.Int64("user_id", userID),
		zap.Int64("session_id", session.ID),
		zap.Int("exercises", len(plan)),
	)

	return &StartResult{Session: session, Exercises: exercises}, nil
}

func (s *LessonService) bound(total, maxNew int) (int, int) {
	if total <= 0 {
		total = s.limits.DefaultTotalExercises
	}
	if s.limits.MaxTotalExercises > 0 && total > s.limits.MaxTotalExercises {
		total = s.limits.MaxTotalExercises
	}
	if maxNew < 0 {
		maxNew = s.limits.DefaultMaxNewItems
	}
	return total, maxNew
}

// Next renders the first unanswered exercise of a session owned by userID in
// the session's languages. Empty codes in langs take the session's values.
func (s *LessonService) Next(ctx context.Context, sessionID, userID int64, langs Languages) (res *NextResult, err error) {
	ctx, span := tracer.Start(ctx, "LessonService.Next", trace.WithAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("session_id", sessionID),
	))
	defer func() { endSpan(span, err) }()

	session, err := s.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	langs, err = sessionLanguages(session, langs)
	if err != nil {
		return nil, err
	}

	result := &NextResult{Total: session.TotalExercises, Session: session.Progress()}

	pending, err := s.sessions.FirstPending(ctx, sessionID)
	if errors.Is(err, entities.ErrExerciseNotFound) {
		result.Done = true
		result.Current = session.CompletedExercises
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	exercise, err := s.generator.Generate(ctx, pending.ItemID, langs, pending.Type)
	if err != nil {
		if errors.Is(err, entities.ErrTranslationPairMissing) {
			s.logger.Error("translation pair missing",
				zap.Int64("item_id", pending.ItemID),
				zap.String("native_lang", langs.Native),
				zap.String("target_lang", langs.Target),
			)
		}
		return nil, err
	}

	result.ExerciseID = pending.ID
	result.Exercise = exercise
	result.Current = session.CompletedExercises + 1

	return result, nil
}

// Answer evaluates a submitted answer and records it atomically together
// with the progress update and the session counters.
func (s *LessonService) Answer(ctx context.Context, sessionID, userID, exerciseID int64, submitted string, langs Languages) (res *AnswerResult, err error) {
	ctx, span := tracer.Start(ctx, "LessonService.Answer", trace.WithAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("session_id", sessionID),
		attribute.Int64("exercise_id", exerciseID),
	))
	defer func() { endSpan(span, err) }()

	var (
		result        AnswerResult
		exType        entities.ExerciseType
		becameLearned bool
		justFinished  bool
	)

	err = s.tr.WithinTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		now := s.now()

		session, err := uow.Sessions().GetForUpdate(ctx, sessionID, userID)
		if err != nil {
			return err
		}

		// The answer is graded in the languages the exercise was rendered in.
		langs, err = sessionLanguages(session, langs)
		if err != nil {
			return err
		}

		exercise, err := uow.Sessions().GetExerciseForUpdate(ctx, sessionID, exerciseID)
		if err != nil {
			return err
		}
		if exercise.IsAnswered() {
			return entities.ErrAlreadyAnswered
		}

		correct, err := s.generator.CorrectAnswer(ctx, exercise.ItemID, exercise.Type, langs)
		if err != nil {
			return err
		}
		isCorrect := entities.CheckAnswer(submitted, correct)

		if err := uow.Log().Append(ctx, entities.NewExerciseLogEntry(userID, exercise, isCorrect, now)); err != nil {
			return err
		}

		change, err := s.updater.Apply(ctx, uow.Progress(), userID, exercise.ItemID, isCorrect, now)
		if err != nil {
			return err
		}

		if err := uow.Sessions().SetResult(ctx, exercise.ID, entities.ResultOf(isCorrect)); err != nil {
			return err
		}

		if err := session.RecordAnswer(isCorrect, now); err != nil {
			return err
		}
		if err := uow.Sessions().UpdateCounters(ctx, session); err != nil {
			return err
		}

		becameLearned = change.BecameLearned()
		justFinished = session.IsComplete()
		exType = exercise.Type
		result = AnswerResult{
			IsCorrect:     isCorrect,
			CorrectAnswer: correct,
			Progress:      change.Progress,
			Session:       session.Progress(),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, entities.ErrTranslationPairMissing) {
			s.logger.Error("translation pair missing",
				zap.Int64("session_id", sessionID),
				zap.Int64("exercise_id", exerciseID),
				zap.String("native_lang", langs.Native),
				zap.String("target_lang", langs.Target),
			)
		}
		return nil, fmt.Errorf("answer exercise: %w", err)
	}

	s.metrics.AnswerRecorded(exType, result.IsCorrect)
	if becameLearned {
		s.metrics.ItemLearned()
	}
	if justFinished {
		s.metrics.SessionFinished()
	}

	next, err := s.Next(ctx, sessionID, userID, langs)
	if err != nil {
		s.logger.Warn("load next exercise after answer",
			zap.Int64("session_id", sessionID),
			zap.Error(err),
		)
	} else {
		result.Next = next
	}

	return &result, nil
}

// Summary aggregates the outcome of a session owned by userID.
func (s *LessonService) Summary(ctx context.Context, sessionID, userID int64) (res *entities.SessionSummary, err error) {
	ctx, span := tracer.Start(ctx, "LessonService.Summary", trace.WithAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("session_id", sessionID),
	))
	defer func() { endSpan(span, err) }()

	session, err := s.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	learned, err := s.progress.CountLearnedInSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	mistakes, err := s.sessions.Mistakes(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if mistakes == nil {
		mistakes = []entities.Mistake{}
	}

	return &entities.SessionSummary{
		SessionID:    session.ID,
		Accuracy:     session.Accuracy(),
		LearnedWords: learned,
		Mistakes:     mistakes,
	}, nil
}

// GetSession returns a session owned by userID with its whole plan.
func (s *LessonService) GetSession(ctx context.Context, sessionID, userID int64) (*SessionDetails, error) {
	session, err := s.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	exercises, err := s.sessions.ListExercises(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &SessionDetails{Session: session, Exercises: exercises}, nil
}

func sessionLanguages(session *entities.LearningSession, langs Languages) (Languages, error) {
	native, target, err := session.ResolveLanguages(langs.Native, langs.Target)
	if err != nil {
		return Languages{}, err
	}
	return Languages{Native: native, Target: target}, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
