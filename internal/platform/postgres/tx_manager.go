package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/farecard/internal/store"
)

// TxManager implements store.Transactor on a PostgreSQL pool. Each unit of
// work runs in its own READ COMMITTED transaction with stores bound to it.
// Card rows are locked with SELECT ... FOR UPDATE, so concurrent operations on
// one card serialize on that lock.
//
// Serialization failures and deadlocks are returned to the caller unless
// conflict retries are enabled with WithConflictRetries.
type TxManager struct {
	db      *sql.DB
	logger  *slog.Logger
	retries int
}

var _ store.Transactor = (*TxManager)(nil)

// NewTxManager creates a TxManager. If logger is nil, a default logger is used.
func NewTxManager(db *sql.DB, logger *slog.Logger) *TxManager {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxManager{db: db, logger: logger}
}

// WithConflictRetries makes each unit of work rerun up to n more times when
// it fails with a serialization failure or deadlock. n <= 0 disables retries.
func (m *TxManager) WithConflictRetries(n int) *TxManager {
	m.retries = max(n, 0)
	return m
}

// RunInTransaction implements store.Transactor.
func (m *TxManager) RunInTransaction(ctx context.Context, fn store.UnitOfWork) error {
	return store.RunInTransaction(ctx, m.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, Repositories(tx, m.logger))
	},
		store.WithIsolation(sql.LevelReadCommitted),
		store.WithRetry(m.retries+1, IsRetryable),
	)
}

// Repositories returns the stores bound to db, which may be a pool or a
// transaction.
func Repositories(db store.DBTX, logger *slog.Logger) store.Repositories {
	return store.Repositories{
		Cards:      NewPostgresCardStore(db, logger),
		CardTypes:  NewPostgresCardTypeStore(db, logger),
		Privileges: NewPostgresPrivilegeStore(db, logger),
	}
}
