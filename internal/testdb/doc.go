//go:build integration

// Package testdb provides helpers for PostgreSQL integration tests.
//
// Tests run inside a transaction that is rolled back when they finish, so
// they can run in parallel against one database without cleanup:
//
//	func TestCardStore(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDB(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        repos := postgres.Repositories(tx, nil)
//	        ...
//	    })
//	}
//
// GetTestDB skips the test when no database URL is configured.
package testdb
