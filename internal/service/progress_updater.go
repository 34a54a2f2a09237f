package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

// ProgressUpdater applies answers to the mastery state machine. It must run
// with repositories bound to the answer transaction.
type ProgressUpdater struct{}

func NewProgressUpdater() *ProgressUpdater {
	return &ProgressUpdater{}
}

// ProgressChange is the stored progress after an answer together with the
// status it had before.
type ProgressChange struct {
	Progress *entities.Progress
	Previous entities.Status
}

// BecameLearned reports whether the answer promoted the item to learned.
func (c ProgressChange) BecameLearned() bool {
	return c.Previous != entities.StatusLearned && c.Progress.Status == entities.StatusLearned
}

// Apply records one answer for (userID, itemID) and returns the stored progress.
func (u *ProgressUpdater) Apply(ctx context.Context, repo ProgressRepository, userID, itemID int64, isCorrect bool, now time.Time) (*ProgressChange, error) {
	p, err := repo.GetForUpdate(ctx, userID, itemID)
	if err != nil && !errors.Is(err, entities.ErrProgressNotFound) {
		return nil, err
	}

	if p == nil {
		p = entities.NewProgress(userID, itemID)
		p.ApplyAnswer(isCorrect, now)

		inserted, err := repo.Insert(ctx, p)
		if err != nil {
			return nil, err
		}
		if inserted {
			return &ProgressChange{Progress: p, Previous: entities.StatusNew}, nil
		}

		// A concurrent answer created the row first: lock it and apply on top.
		p, err = repo.GetForUpdate(ctx, userID, itemID)
		if err != nil {
			return nil, fmt.Errorf("reload progress: %w", err)
		}
	}

	previous := p.Status
	p.ApplyAnswer(isCorrect, now)
	if err := repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return &ProgressChange{Progress: p, Previous: previous}, nil
}
