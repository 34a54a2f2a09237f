package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
)

// LanguageRepository reads the language catalog.
type LanguageRepository struct {
	db postgres.DBTX
}

func NewLanguageRepository(db postgres.DBTX) *LanguageRepository {
	return &LanguageRepository{db: db}
}

// List returns every language ordered by code.
func (r *LanguageRepository) List(ctx context.Context) ([]entities.Language, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name FROM languages ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}

	langs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[entities.Language])
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}

	return langs, nil
}
