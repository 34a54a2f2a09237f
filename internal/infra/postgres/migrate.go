package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every embedded migration in file name order. The scripts
// are idempotent, so running it against an initialized database is a no-op.
func Migrate(ctx context.Context, db DBTX, logger *zap.Logger) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := db.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		logger.Info("migration applied", zap.String("name", name))
	}

	return nil
}
