package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every "absent or not owned by caller" error.
	ErrNotFound = errors.New("not found")

	ErrSessionNotFound  = fmt.Errorf("learning session %w", ErrNotFound)
	ErrExerciseNotFound = fmt.Errorf("session exercise %w", ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("item %w", ErrNotFound)

	// ErrProgressNotFound means the learner has never answered the item.
	ErrProgressNotFound = errors.New("progress not found")

	ErrAlreadyAnswered        = errors.New("exercise already answered")
	ErrSessionComplete        = errors.New("learning session is already complete")
	ErrTranslationPairMissing = errors.New("translation pair missing")
	ErrNoContentAvailable     = errors.New("no content available")
	ErrInvalidExerciseType    = errors.New("invalid exercise type")
	ErrLanguageMismatch       = errors.New("languages differ from the session")

	// ErrTransient marks storage failures that survived the retry budget.
	ErrTransient = errors.New("transient storage failure")
)
