package entities

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// LearningSession represents one bounded sequence of exercises a learner works through.
type LearningSession struct {
	ID                 int64      // unique session ID
	UserID             int64      // learner who owns the session
	TotalExercises     int        // number of planned exercises
	CompletedExercises int        // number of answered exercises
	CorrectAnswers     int        // number of correct answers so far
	WrongAnswers       int        // number of wrong answers so far
	NativeLang         string     // language the learner knows, fixed at start
	TargetLang         string     // language being learned, fixed at start
	StartedAt          time.Time  // timestamp when the session started
	FinishedAt         *time.Time // set once, when the last exercise is answered
}

// NewLearningSession creates an active session for a user with the given plan length.
func NewLearningSession(userID int64, totalExercises int, now time.Time) *LearningSession {
	return &LearningSession{
		UserID:         userID,
		TotalExercises: totalExercises,
		StartedAt:      now,
	}
}

// ResolveLanguages returns the session's language pair. Empty arguments take
// the session's value; a code that differs from it is ErrLanguageMismatch.
func (s *LearningSession) ResolveLanguages(native, target string) (string, string, error) {
	if native == "" {
		native = s.NativeLang
	}
	if target == "" {
		target = s.TargetLang
	}
	if native != s.NativeLang || target != s.TargetLang {
		return "", "", fmt.Errorf("%w: session uses %s/%s", ErrLanguageMismatch, s.NativeLang, s.TargetLang)
	}
	return native, target, nil
}

// IsComplete reports whether every planned exercise was answered.
func (s *LearningSession) IsComplete() bool {
	return s.CompletedExercises >= s.TotalExercises
}

// RecordAnswer increments the session counters and stamps FinishedAt when the
// last planned exercise is answered.
func (s *LearningSession) RecordAnswer(isCorrect bool, now time.Time) error {
	if s.IsComplete() {
		return ErrSessionComplete
	}

	s.CompletedExercises++
	if isCorrect {
		s.CorrectAnswers++
	} else {
		s.WrongAnswers++
	}

	if s.IsComplete() && s.FinishedAt == nil {
		s.FinishedAt = &now
	}

	return nil
}

// Progress returns a snapshot of the session counters.
func (s *LearningSession) Progress() SessionProgress {
	return SessionProgress{
		TotalExercises:     s.TotalExercises,
		CompletedExercises: s.CompletedExercises,
		CorrectAnswers:     s.CorrectAnswers,
		WrongAnswers:       s.WrongAnswers,
	}
}

// Accuracy returns the share of correct answers in percent, rounded to two decimals.
// It is 0 when nothing was answered.
func (s *LearningSession) Accuracy() float64 {
	return Accuracy(s.CorrectAnswers, s.WrongAnswers)
}

// SessionProgress is the aggregate view of a session's counters.
type SessionProgress struct {
	TotalExercises     int `json:"total_exercises"`
	CompletedExercises int `json:"completed_exercises"`
	CorrectAnswers     int `json:"correct_answers"`
	WrongAnswers       int `json:"wrong_answers"`
}

// ExerciseResult is the terminal outcome of a session exercise.
type ExerciseResult string

const (
	ResultCorrect ExerciseResult = "correct"
	ResultWrong   ExerciseResult = "wrong"
)

// ResultOf converts an answer outcome into an ExerciseResult.
func ResultOf(isCorrect bool) ExerciseResult {
	if isCorrect {
		return ResultCorrect
	}
	return ResultWrong
}

// SessionExercise is one planned, ordered slot of a session.
type SessionExercise struct {
	ID         int64           `json:"id"`
	SessionID  int64           `json:"session_id"`
	ItemID     int64           `json:"item_id"`
	Type       ExerciseType    `json:"exercise_type"`
	OrderIndex int             `json:"order_index"`
	Result     *ExerciseResult `json:"result"` // nil until answered
}

// IsAnswered reports whether the exercise already has a terminal result.
func (e *SessionExercise) IsAnswered() bool {
	return e.Result != nil
}

// ExerciseLogEntry is one append-only audit row for an answered exercise.
type ExerciseLogEntry struct {
	UserID     int64
	ItemID     int64
	SessionID  int64
	Type       ExerciseType
	IsCorrect  bool
	AnsweredAt time.Time
}

// NewExerciseLogEntry creates the log row for an answered session exercise.
func NewExerciseLogEntry(userID int64, ex *SessionExercise, isCorrect bool, now time.Time) *ExerciseLogEntry {
	return &ExerciseLogEntry{
		UserID:     userID,
		ItemID:     ex.ItemID,
		SessionID:  ex.SessionID,
		Type:       ex.Type,
		IsCorrect:  isCorrect,
		AnsweredAt: now,
	}
}

// CheckAnswer compares a submitted answer with the correct one.
// Surrounding whitespace is ignored; the comparison is case-sensitive.
func CheckAnswer(submitted, correct string) bool {
	return strings.TrimSpace(submitted) == strings.TrimSpace(correct)
}

// Accuracy returns round(100*correct/(correct+wrong), 2), or 0 when there were no attempts.
func Accuracy(correct, wrong int) float64 {
	attempted := correct + wrong
	if attempted == 0 {
		return 0
	}
	return math.Round(float64(correct*100)/float64(attempted)*100) / 100
}

// Mistake counts wrong session exercises for one item.
type Mistake struct {
	ItemID     int64 `json:"item_id"`
	WrongCount int   `json:"wrong_count"`
}

// SessionSummary is the aggregated outcome of a session.
type SessionSummary struct {
	SessionID    int64     `json:"session_id"`
	Accuracy     float64   `json:"accuracy"`
	LearnedWords int       `json:"learned_words"`
	Mistakes     []Mistake `json:"mistakes"`
}
