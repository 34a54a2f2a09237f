package service

import (
	"context"
	"fmt"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

// CuratedListService manages the learner's vocabulary list. Items on the
// list get a priority boost during session composition.
type CuratedListService struct {
	repo CuratedListRepository
	now  Clock
}

func NewCuratedListService(repo CuratedListRepository, now Clock) *CuratedListService {
	return &CuratedListService{repo: repo, now: now}
}

func (s *CuratedListService) List(ctx context.Context, userID int64) ([]entities.CuratedItem, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []entities.CuratedItem{}
	}
	return items, nil
}

func (s *CuratedListService) Add(ctx context.Context, userID, itemID int64) error {
	if err := s.repo.Add(ctx, userID, itemID, s.now()); err != nil {
		return fmt.Errorf("add to curated list: %w", err)
	}
	return nil
}

func (s *CuratedListService) Remove(ctx context.Context, userID, itemID int64) error {
	if err := s.repo.Remove(ctx, userID, itemID); err != nil {
		return fmt.Errorf("remove from curated list: %w", err)
	}
	return nil
}
