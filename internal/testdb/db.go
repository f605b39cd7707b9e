//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/farecard/internal/config"
	"github.com/phrazzld/farecard/internal/platform/logger"
	"github.com/phrazzld/farecard/internal/platform/postgres"
)

// TestTimeout bounds connection setup and migrations.
const TestTimeout = 30 * time.Second

// databaseURLEnvVars are checked in order by GetTestDatabaseURL.
var databaseURLEnvVars = []string{"DATABASE_URL", "FARECARD_TEST_DB_URL", "FARECARD_DATABASE_URL"}

var migrateOnce sync.Once

// GetTestDatabaseURL returns the first non-empty database URL from the
// environment.
func GetTestDatabaseURL() string {
	for _, name := range databaseURLEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// GetTestDB opens a connection to the test database and applies the
// migrations once per test binary. The test is skipped when no database URL
// is configured. The connection is closed when the test finishes.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	log, _ := logger.NewTestLogger(t)
	db, err := postgres.Open(ctx, config.DatabaseConfig{
		URL:             dbURL,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}, log)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	var migrateErr error
	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db, "up", log)
	})
	require.NoError(t, migrateErr, "failed to run migrations")

	return db
}

// WithTx runs fn inside a transaction that is rolled back afterwards.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// ResetTables removes every row written by committed tests. It is needed
// only by tests that exercise the real commit path.
func ResetTables(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`TRUNCATE trips, privilege_cards, cards, card_type_privileges, card_types, privileges`)
	require.NoError(t, err, "failed to reset tables")
}
