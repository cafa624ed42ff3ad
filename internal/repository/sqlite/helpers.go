package sqlite

import (
	"database/sql"
	"fmt"
)

// ============================================================================
// Value Conversion Helpers
// ============================================================================

// boolToInt stores a bool as the 0/1 integer SQLite expects
func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// intToBool reads a 0/1 integer column back into a bool.
// Anything else means the column does not hold a boolean.
func intToBool(column string, v int64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("column %s: %d is not a boolean", column, v)
	}
}

// nullArg binds an optional string, NULL when absent
func nullArg(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

// ============================================================================
// Flag Scanner
// ============================================================================

// flag scans an INTEGER NOT NULL column holding a boolean. NULL or a
// non-integer value fails the scan.
type flag struct {
	column string
	raw    int64
	target *bool
}

// scanFlag returns a scan destination that writes into target on decode
func scanFlag(column string, target *bool) *flag {
	return &flag{column: column, target: target}
}

// Scan implements sql.Scanner
func (f *flag) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		f.raw = v
	case nil:
		return fmt.Errorf("column %s: NULL is not a boolean", f.column)
	default:
		return fmt.Errorf("column %s: %T is not a boolean", f.column, src)
	}
	b, err := intToBool(f.column, f.raw)
	if err != nil {
		return err
	}
	*f.target = b
	return nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a column to a mirrored table:
// 1. Add the field to the domain type
// 2. Add the column to createSchema in sqlite.go
// 3. APPEND the column to the codec's column constant
// 4. APPEND the matching destination to the codec's Read scan list
// 5. Add the named parameter to Bind and to the insert/update query text
// 6. Add the column to the codec's filter allow-list if it should be filterable
// 7. Update the round-trip tests
//
// CRITICAL: column order must match between the column constant and the
// Read scan list. Bind uses names, so its order is free.
