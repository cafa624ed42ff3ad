// Package repository defines the data access interfaces for budgetmirror.
//
// This package provides the repository abstraction layer for the local
// relational mirror of the remote budgeting service. The actual
// implementation is in the sqlite subpackage.
//
// # Repository Interfaces
//
// Table is a typed view of one entity table: select by id, select all, a
// parent-scoped structured filter, insert and update. Store covers the
// operations that span every table, such as resetting the schema.
//
// # SQLite Implementation
//
// The sqlite implementation maps each entity type through a row codec that
// knows the type's query text, how to read a result row and how to bind a
// value's named parameters. It handles:
//
// - Typed reads that fail loudly on missing or mistyped columns
// - NULL for absent optional values, 0/1 integers for booleans
// - Filters built only from an allow-list of columns, values always bound
// - A destructive schema reset for full resyncs
//
// # Testing
//
// The sqlite repository is tested with in-memory databases.
package repository
