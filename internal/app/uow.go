package app

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/lesson-engine/internal/infra/postgres"
	"github.com/aliskhannn/lesson-engine/internal/infra/postgres/repository"
	"github.com/aliskhannn/lesson-engine/internal/service"
)

// txUnit binds the transactional repositories to one pgx transaction.
type txUnit struct {
	sessions *repository.SessionRepository
	progress *repository.ProgressRepository
	log      *repository.ExerciseLogRepository
}

func newTxUnit(tx pgx.Tx) *txUnit {
	return &txUnit{
		sessions: repository.NewSessionRepository(tx),
		progress: repository.NewProgressRepository(tx),
		log:      repository.NewExerciseLogRepository(tx),
	}
}

func (u *txUnit) Sessions() service.SessionRepository  { return u.sessions }
func (u *txUnit) Progress() service.ProgressRepository { return u.progress }
func (u *txUnit) Log() service.ExerciseLogRepository   { return u.log }

// unitTransactor adapts the postgres transactor to service.Transactor.
type unitTransactor struct {
	tr *postgres.Transactor
}

func (t unitTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, uow service.UnitOfWork) error) error {
	return t.tr.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newTxUnit(tx))
	})
}
