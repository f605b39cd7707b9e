// Package domain contains the fare card entities and the rules that belong to
// a single entity: field validation of card types and privileges, trip state
// of a card, expiry arithmetic. Rules that span entities or need the record
// store live in internal/service.
//
// Money is represented with decimal.Decimal throughout; identifiers are UUIDs
// with uuid.Nil as the "not given" sentinel.
package domain
