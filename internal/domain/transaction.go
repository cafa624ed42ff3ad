package domain

import "database/sql"

// ClearedStatus is the reconciliation state of a transaction
type ClearedStatus string

const (
	ClearedStatusCleared    ClearedStatus = "cleared"
	ClearedStatusUncleared  ClearedStatus = "uncleared"
	ClearedStatusReconciled ClearedStatus = "reconciled"
)

// Transaction is a single budget transaction.
// Date is the ISO calendar date (e.g. 2016-12-01); ISO dates sort lexically.
type Transaction struct {
	ID                    string
	BudgetID              string
	Date                  string
	Amount                Milliunits
	Memo                  sql.NullString
	Cleared               ClearedStatus
	Approved              bool
	AccountID             string
	AccountName           string
	PayeeID               sql.NullString
	PayeeName             sql.NullString
	CategoryID            sql.NullString
	CategoryName          sql.NullString
	TransferAccountID     sql.NullString
	TransferTransactionID sql.NullString
	MatchedTransactionID  sql.NullString
	Deleted               bool
}

// Key returns the transaction ID
func (t Transaction) Key() string { return t.ID }

// IsTransfer reports whether the transaction moves money between two accounts
func (t Transaction) IsTransfer() bool {
	return t.TransferAccountID.Valid
}
