// Package store defines the persistence contracts the fare card engines run
// against. Implementations live under internal/platform: a PostgreSQL store
// for production and an in-memory store used by tests and local runs.
//
// Every engine operation reads and mutates records through a Repositories
// value handed out by a Transactor, and the Transactor commits all changes
// made in the callback at once or none of them.
package store
