package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
)

// ContentRepository reads items and their translations. Content is owned by
// an administration service, so this repository never writes.
type ContentRepository struct {
	db postgres.DBTX
}

func NewContentRepository(db postgres.DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

// TranslationPair returns the texts of an item in the native and target languages.
func (r *ContentRepository) TranslationPair(ctx context.Context, itemID int64, nativeLang, targetLang string) (*entities.TranslationPair, error) {
	query := `
		SELECT i.id, n.text, t.text
		FROM items i
		LEFT JOIN translations n ON n.item_id = i.id AND n.language = $2
		LEFT JOIN translations t ON t.item_id = i.id AND t.language = $3
		WHERE i.id = $1
	`

	var (
		pair               entities.TranslationPair
		nativeText, target *string
	)
	err := r.db.QueryRow(ctx, query, itemID, nativeLang, targetLang).Scan(&pair.ItemID, &nativeText, &target)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrItemNotFound
		}
		return nil, fmt.Errorf("get translation pair: %w", err)
	}

	if nativeText == nil || target == nil {
		return nil, fmt.Errorf("item %d (%s/%s): %w", itemID, nativeLang, targetLang, entities.ErrTranslationPairMissing)
	}

	pair.NativeText = *nativeText
	pair.TargetText = *target
	return &pair, nil
}

// RandomTranslations picks up to limit distinct texts in language, uniformly
// at random, from items other than itemID. Texts equal to exclude are skipped.
func (r *ContentRepository) RandomTranslations(ctx context.Context, itemID int64, language, exclude string, limit int) ([]string, error) {
	query := `
		SELECT text
		FROM (
			SELECT DISTINCT text
			FROM translations
			WHERE language = $1 AND item_id <> $2 AND text <> $3
		) d
		ORDER BY random()
		LIMIT $4
	`

	rows, err := r.db.Query(ctx, query, language, itemID, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("random translations: %w", err)
	}

	texts, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("random translations: %w", err)
	}

	return texts, nil
}
