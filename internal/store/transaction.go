package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/farecard/internal/platform/logger"
)

// TxFn is a function that executes within a SQL transaction.
// The transaction is committed if the function returns nil, or rolled back if it returns an error.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// TxOption configures RunInTransaction.
type TxOption func(*txConfig)

type txConfig struct {
	opts      *sql.TxOptions
	attempts  int
	retryable func(error) bool
}

// WithIsolation runs the transaction at the given isolation level.
func WithIsolation(level sql.IsolationLevel) TxOption {
	return func(c *txConfig) {
		c.opts = &sql.TxOptions{Isolation: level}
	}
}

// WithRetry reruns the whole transaction up to attempts times in total while
// retryable reports the failure as transient, such as a serialization
// failure or a deadlock between two gate operations on the same card. fn
// must tolerate being called again from scratch.
func WithRetry(attempts int, retryable func(error) bool) TxOption {
	return func(c *txConfig) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.retryable = retryable
	}
}

// RunInTransaction executes fn within a database transaction. The transaction
// is committed if fn returns nil and rolled back otherwise. A panic in fn
// rolls back and is re-raised.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn, options ...TxOption) error {
	cfg := txConfig{attempts: 1}
	for _, o := range options {
		o(&cfg)
	}
	log := logger.FromContext(ctx)

	var err error
	for attempt := 1; attempt <= cfg.attempts; attempt++ {
		err = runOnce(ctx, log, db, cfg.opts, fn)
		if err == nil || cfg.retryable == nil || !cfg.retryable(err) || ctx.Err() != nil {
			return err
		}
		if attempt < cfg.attempts {
			log.Warn("retrying conflicting transaction",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
	}
	return err
}

func runOnce(ctx context.Context, log *slog.Logger, db *sql.DB, opts *sql.TxOptions, fn TxFn) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		log.Error("failed to begin transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to roll back transaction after panic",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			} else {
				log.Error("rolled back transaction after panic", slog.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("failed to roll back transaction",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		log.Debug("rolled back transaction", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", slog.String("error", err.Error()))
		return fmt.Errorf("%w: failed to commit transaction: %w", ErrTransactionFailed, err)
	}
	log.Debug("transaction committed")
	return nil
}
