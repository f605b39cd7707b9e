package store

import "context"

// Repositories bundles the stores bound to one unit of work.
type Repositories struct {
	Cards      CardStore
	CardTypes  CardTypeStore
	Privileges PrivilegeStore
}

// UnitOfWork is the body of a transaction. Changes made through repos are
// committed together when it returns nil and discarded when it returns an
// error.
type UnitOfWork func(ctx context.Context, repos Repositories) error

// Transactor runs units of work atomically. The PostgreSQL implementation
// wraps RunInTransaction; the in-memory one swaps in a cloned snapshot.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn UnitOfWork) error
}
