package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

// candidatePoolFactor is how many candidates are fetched per requested exercise.
const candidatePoolFactor = 5

// CandidateSelector ranks a learner's items by priority score.
type CandidateSelector struct {
	repo CandidateRepository
	now  Clock
}

// NewCandidateSelector creates a new CandidateSelector.
func NewCandidateSelector(repo CandidateRepository, now Clock) *CandidateSelector {
	return &CandidateSelector{repo: repo, now: now}
}

// Select returns up to limit candidates ordered by score descending, item ID ascending.
func (s *CandidateSelector) Select(ctx context.Context, userID int64, limit int) ([]entities.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	now := s.now()
	candidates, err := s.repo.List(ctx, userID, limit, now)
	if err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}

	for i := range candidates {
		c := &candidates[i]
		if c.Status == "" {
			c.Status = entities.StatusNew
		}
		c.Due = c.NextReviewAt != nil && !c.NextReviewAt.After(now)
		c.Score = entities.PriorityScore(c.InCuratedList, c.Due, c.Status)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ItemID < candidates[j].ItemID
	})

	return candidates, nil
}
