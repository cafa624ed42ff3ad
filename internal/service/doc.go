// Package service keeps the local mirror in step with the remote budgeting
// service.
//
// # Reconciliation
//
// Reconcile is the upsert decision procedure shared by every entity type:
// for each remote record, insert it when its id is new, update it when the
// stored row differs, and leave it alone otherwise. Rows the remote no longer
// lists are kept; deleted records arrive with their deleted flag set and are
// mirrored like any other change.
//
// # Gateway
//
// Gateway drives a sync pass over every listing (budgets, then per budget
// accounts, category groups, categories and transactions) and answers read
// queries from the mirror. Refresh is non-destructive; FullResync and
// FactoryReset are the only operations that wipe the mirror.
//
// # Event System
//
// The gateway publishes sync progress on an EventBus. Publishing never
// blocks; a subscriber that is not ready misses the event.
package service
