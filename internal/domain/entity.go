package domain

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Entity is a mirrored remote record. Key returns the record's primary key.
type Entity interface {
	comparable
	Key() string
}

// Milliunits is a monetary amount in thousandths of the currency unit.
type Milliunits int64

// Decimal returns the amount in whole currency units.
func (m Milliunits) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -3)
}

// String renders the amount with two decimal places, e.g. -4.20, or three
// when the last milliunit digit is set, e.g. -4.205. It never rounds.
func (m Milliunits) String() string {
	if m%10 != 0 {
		return m.Decimal().StringFixed(3)
	}
	return m.Decimal().StringFixed(2)
}

// Some wraps a present optional string.
func Some(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// StringOrEmpty returns the optional value or "" when absent.
func StringOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
