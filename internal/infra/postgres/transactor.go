package postgres

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

// RetryPolicy bounds how often and how long a failed transaction is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// TxBeginner starts transactions. *pgxpool.Pool implements it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Transactor struct {
	db      TxBeginner
	timeout time.Duration
	retry   RetryPolicy
	logger  *zap.Logger
}

func NewTransactor(pool *pgxpool.Pool, timeout time.Duration, retry RetryPolicy, logger *zap.Logger) *Transactor {
	return newTransactor(pool, timeout, retry, logger)
}

func newTransactor(db TxBeginner, timeout time.Duration, retry RetryPolicy, logger *zap.Logger) *Transactor {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Transactor{db: db, timeout: timeout, retry: retry, logger: logger}
}

// WithinTx runs fn in a transaction and commits if fn succeeds. Every attempt
// gets its own deadline; transient failures are retried with exponential
// backoff and reported as entities.ErrTransient once the attempts run out.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	var lastErr error

	for attempt := range t.retry.MaxAttempts {
		err := t.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err

		// The caller gave up: nothing left to retry for.
		if ctx.Err() != nil {
			return err
		}
		if !IsTransient(err) {
			return err
		}

		if attempt == t.retry.MaxAttempts-1 {
			break
		}

		wait := t.backoff(attempt)
		t.logger.Warn("retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("%w: %w", entities.ErrTransient, lastErr)
}

func (t *Transactor) attempt(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (t *Transactor) backoff(attempt int) time.Duration {
	wait := float64(t.retry.BaseDelay) * math.Pow(2, float64(attempt))
	if t.retry.MaxDelay > 0 && wait > float64(t.retry.MaxDelay) {
		wait = float64(t.retry.MaxDelay)
	}

	// Add ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
