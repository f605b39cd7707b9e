// Package postgres provides the PostgreSQL implementation of the record store
// contracts defined in internal/store. It opens the pgx-backed database pool,
// applies the embedded goose migrations and maps rows between the cards,
// card_types, privileges and trips tables and the domain types.
package postgres
