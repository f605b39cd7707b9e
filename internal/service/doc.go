// Package service contains the fare card rule engines.
//
// AdministrationService validates and persists card types and privileges.
// TicketingService performs point-of-sale operations: activation, balance
// inquiry and reload. GateService settles trips at station gates. Every
// operation runs in one store transaction, consults the strategy catalog where
// fares are involved, and reports rule violations as *RuleError values whose
// Kind is one of the sentinel errors declared in errors.go.
//
// Engines depend only on the interfaces in internal/store, never on a
// specific storage implementation.
package service
