// Package domain defines the core domain types for budgetmirror.
//
// This package contains the snapshots decoded from the remote budgeting
// service and mirrored into the local database: budgets, accounts, category
// groups, categories and transactions.
//
// # Snapshots
//
// Every entity is an immutable value identified by an opaque string ID. A
// changed remote record produces a new snapshot with the same ID; nothing is
// mutated in place. Entities are comparable with ==, which is the structural
// equality the reconciler uses to decide between update and no-op. Optional
// fields use sql.NullString so that the zero value means "absent" and the
// struct stays comparable.
//
// # Money
//
// Monetary values are Milliunits: integer thousandths of the budget currency.
//
// # Filters
//
// Filter is a small structured predicate (column, operator, value) used to
// narrow mirrored rows. It never carries raw SQL.
//
// # Design Principles
//
// - Immutable value objects
// - No dependency on the storage or transport layers
// - Pure domain logic without infrastructure concerns
package domain
