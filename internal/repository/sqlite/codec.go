package sqlite

import (
	"database/sql"

	"budgetmirror/internal/domain"
)

// RowScanner is satisfied by *sql.Row and *sql.Rows
type RowScanner interface {
	Scan(dest ...any) error
}

// ColumnKind is the storage kind of a filterable column
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindBool
)

// Codec maps one entity type onto its table.
//
// Query text uses named parameters. SelectAllQuery must be a bare
// SELECT ... FROM table so a WHERE clause can be appended to it.
type Codec[T domain.Entity] interface {
	Table() string
	// ParentColumn is the scoping column ("" when the table is not scoped)
	ParentColumn() string
	// Columns is the allow-list for structured filters
	Columns() map[string]ColumnKind

	SelectByIDQuery() string
	SelectAllQuery() string
	InsertQuery() string
	UpdateQuery() string

	// Read scans one row; required columns must be present and well typed
	Read(row RowScanner) (T, error)
	// Bind returns every named parameter of the insert and update queries
	Bind(v T) []any
}

// Codecs for every mirrored entity type
var (
	Budgets        Codec[domain.Budget]        = budgetCodec{}
	Accounts       Codec[domain.Account]       = accountCodec{}
	CategoryGroups Codec[domain.CategoryGroup] = categoryGroupCodec{}
	Categories     Codec[domain.Category]      = categoryCodec{}
	Transactions   Codec[domain.Transaction]   = transactionCodec{}
)

// ============================================================================
// Budget Codec
// ============================================================================

// budgetColumns is the SELECT column list for budget queries
const budgetColumns = `id, name, last_modified_on, first_month, last_month, date_format`

type budgetCodec struct{}

func (budgetCodec) Table() string        { return "budgets" }
func (budgetCodec) ParentColumn() string { return "" }

func (budgetCodec) Columns() map[string]ColumnKind {
	return map[string]ColumnKind{
		"id":               KindText,
		"name":             KindText,
		"last_modified_on": KindText,
		"first_month":      KindText,
		"last_month":       KindText,
	}
}

func (budgetCodec) SelectByIDQuery() string {
	return `SELECT ` + budgetColumns + ` FROM budgets WHERE id = :id`
}

func (budgetCodec) SelectAllQuery() string {
	return `SELECT ` + budgetColumns + ` FROM budgets`
}

func (budgetCodec) InsertQuery() string {
	return `
		INSERT INTO budgets (id, name, last_modified_on, first_month, last_month, date_format)
		VALUES (:id, :name, :last_modified_on, :first_month, :last_month, :date_format)`
}

func (budgetCodec) UpdateQuery() string {
	return `
		UPDATE budgets SET
			name = :name,
			last_modified_on = :last_modified_on,
			first_month = :first_month,
			last_month = :last_month,
			date_format = :date_format
		WHERE id = :id`
}

// Read MUST scan in budgetColumns order
func (budgetCodec) Read(row RowScanner) (domain.Budget, error) {
	var b domain.Budget
	err := row.Scan(
		&b.ID,             // 1
		&b.Name,           // 2
		&b.LastModifiedOn, // 3
		&b.FirstMonth,     // 4
		&b.LastMonth,      // 5
		&b.DateFormat,     // 6
	)
	return b, err
}

func (budgetCodec) Bind(b domain.Budget) []any {
	return []any{
		sql.Named("id", b.ID),
		sql.Named("name", b.Name),
		sql.Named("last_modified_on", b.LastModifiedOn),
		sql.Named("first_month", b.FirstMonth),
		sql.Named("last_month", b.LastMonth),
		sql.Named("date_format", b.DateFormat),
	}
}

// ============================================================================
// Account Codec
// ============================================================================

// accountColumns is the SELECT column list for account queries
const accountColumns = `id, budget_id, name, type, on_budget, closed, note,
	balance, cleared_balance, uncleared_balance, transfer_payee_id,
	direct_import_linked, direct_import_in_error, deleted`

type accountCodec struct{}

func (accountCodec) Table() string        { return "accounts" }
func (accountCodec) ParentColumn() string { return "budget_id" }

func (accountCodec) Columns() map[string]ColumnKind {
	return map[string]ColumnKind{
		"id":                KindText,
		"name":              KindText,
		"type":              KindText,
		"on_budget":         KindBool,
		"closed":            KindBool,
		"note":              KindText,
		"balance":           KindInteger,
		"cleared_balance":   KindInteger,
		"uncleared_balance": KindInteger,
		"deleted":           KindBool,
	}
}

func (accountCodec) SelectByIDQuery() string {
	return `SELECT ` + accountColumns + ` FROM accounts WHERE id = :id`
}

func (accountCodec) SelectAllQuery() string {
	return `SELECT ` + accountColumns + ` FROM accounts`
}

func (accountCodec) InsertQuery() string {
	return `
		INSERT INTO accounts (id, budget_id, name, type, on_budget, closed, note,
			balance, cleared_balance, uncleared_balance, transfer_payee_id,
			direct_import_linked, direct_import_in_error, deleted)
		VALUES (:id, :budget_id, :name, :type, :on_budget, :closed, :note,
			:balance, :cleared_balance, :uncleared_balance, :transfer_payee_id,
			:direct_import_linked, :direct_import_in_error, :deleted)`
}

func (accountCodec) UpdateQuery() string {
	return `
		UPDATE accounts SET
			budget_id = :budget_id,
			name = :name,
			type = :type,
			on_budget = :on_budget,
			closed = :closed,
			note = :note,
			balance = :balance,
			cleared_balance = :cleared_balance,
			uncleared_balance = :uncleared_balance,
			transfer_payee_id = :transfer_payee_id,
			direct_import_linked = :direct_import_linked,
			direct_import_in_error = :direct_import_in_error,
			deleted = :deleted
		WHERE id = :id`
}

// Read MUST scan in accountColumns order
func (accountCodec) Read(row RowScanner) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,                                                      // 1
		&a.BudgetID,                                                // 2
		&a.Name,                                                    // 3
		&a.Type,                                                    // 4
		scanFlag("on_budget", &a.OnBudget),                         // 5
		scanFlag("closed", &a.Closed),                              // 6
		&a.Note,                                                    // 7
		&a.Balance,                                                 // 8
		&a.ClearedBalance,                                          // 9
		&a.UnclearedBalance,                                        // 10
		&a.TransferPayeeID,                                         // 11
		scanFlag("direct_import_linked", &a.DirectImportLinked),    // 12
		scanFlag("direct_import_in_error", &a.DirectImportInError), // 13
		scanFlag("deleted", &a.Deleted),                            // 14
	)
	return a, err
}

func (accountCodec) Bind(a domain.Account) []any {
	return []any{
		sql.Named("id", a.ID),
		sql.Named("budget_id", a.BudgetID),
		sql.Named("name", a.Name),
		sql.Named("type", string(a.Type)),
		sql.Named("on_budget", boolToInt(a.OnBudget)),
		sql.Named("closed", boolToInt(a.Closed)),
		sql.Named("note", nullArg(a.Note)),
		sql.Named("balance", int64(a.Balance)),
		sql.Named("cleared_balance", int64(a.ClearedBalance)),
		sql.Named("uncleared_balance", int64(a.UnclearedBalance)),
		sql.Named("transfer_payee_id", nullArg(a.TransferPayeeID)),
		sql.Named("direct_import_linked", boolToInt(a.DirectImportLinked)),
		sql.Named("direct_import_in_error", boolToInt(a.DirectImportInError)),
		sql.Named("deleted", boolToInt(a.Deleted)),
	}
}

// ============================================================================
// Category Group Codec
// ============================================================================

// categoryGroupColumns is the SELECT column list for category group queries
const categoryGroupColumns = `id, budget_id, name, hidden, deleted`

type categoryGroupCodec struct{}

func (categoryGroupCodec) Table() string        { return "category_groups" }
func (categoryGroupCodec) ParentColumn() string { return "budget_id" }

func (categoryGroupCodec) Columns() map[string]ColumnKind {
	return map[string]ColumnKind{
		"id":      KindText,
		"name":    KindText,
		"hidden":  KindBool,
		"deleted": KindBool,
	}
}

func (categoryGroupCodec) SelectByIDQuery() string {
	return `SELECT ` + categoryGroupColumns + ` FROM category_groups WHERE id = :id`
}

func (categoryGroupCodec) SelectAllQuery() string {
	return `SELECT ` + categoryGroupColumns + ` FROM category_groups`
}

func (categoryGroupCodec) InsertQuery() string {
	return `
		INSERT INTO category_groups (id, budget_id, name, hidden, deleted)
		VALUES (:id, :budget_id, :name, :hidden, :deleted)`
}

func (categoryGroupCodec) UpdateQuery() string {
	return `
		UPDATE category_groups SET
			budget_id = :budget_id,
			name = :name,
			hidden = :hidden,
			deleted = :deleted
		WHERE id = :id`
}

// Read MUST scan in categoryGroupColumns order
func (categoryGroupCodec) Read(row RowScanner) (domain.CategoryGroup, error) {
	var g domain.CategoryGroup
	err := row.Scan(
		&g.ID,                           // 1
		&g.BudgetID,                     // 2
		&g.Name,                         // 3
		scanFlag("hidden", &g.Hidden),   // 4
		scanFlag("deleted", &g.Deleted), // 5
	)
	return g, err
}

func (categoryGroupCodec) Bind(g domain.CategoryGroup) []any {
	return []any{
		sql.Named("id", g.ID),
		sql.Named("budget_id", g.BudgetID),
		sql.Named("name", g.Name),
		sql.Named("hidden", boolToInt(g.Hidden)),
		sql.Named("deleted", boolToInt(g.Deleted)),
	}
}

// ============================================================================
// Category Codec
// ============================================================================

// categoryColumns is the SELECT column list for category queries
const categoryColumns = `id, budget_id, category_group_id, name, hidden,
	original_category_group_id, note, budgeted, activity, balance, deleted`

type categoryCodec struct{}

func (categoryCodec) Table() string        { return "categories" }
func (categoryCodec) ParentColumn() string { return "budget_id" }

func (categoryCodec) Columns() map[string]ColumnKind {
	return map[string]ColumnKind{
		"id":                KindText,
		"category_group_id": KindText,
		"name":              KindText,
		"hidden":            KindBool,
		"note":              KindText,
		"budgeted":          KindInteger,
		"activity":          KindInteger,
		"balance":           KindInteger,
		"deleted":           KindBool,
	}
}

func (categoryCodec) SelectByIDQuery() string {
	return `SELECT ` + categoryColumns + ` FROM categories WHERE id = :id`
}

func (categoryCodec) SelectAllQuery() string {
	return `SELECT ` + categoryColumns + ` FROM categories`
}

func (categoryCodec) InsertQuery() string {
	return `
		INSERT INTO categories (id, budget_id, category_group_id, name, hidden,
			original_category_group_id, note, budgeted, activity, balance, deleted)
		VALUES (:id, :budget_id, :category_group_id, :name, :hidden,
			:original_category_group_id, :note, :budgeted, :activity, :balance, :deleted)`
}

func (categoryCodec) UpdateQuery() string {
	return `
		UPDATE categories SET
			budget_id = :budget_id,
			category_group_id = :category_group_id,
			name = :name,
			hidden = :hidden,
			original_category_group_id = :original_category_group_id,
			note = :note,
			budgeted = :budgeted,
			activity = :activity,
			balance = :balance,
			deleted = :deleted
		WHERE id = :id`
}

// Read MUST scan in categoryColumns order
func (categoryCodec) Read(row RowScanner) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(
		&c.ID,                           // 1
		&c.BudgetID,                     // 2
		&c.CategoryGroupID,              // 3
		&c.Name,                         // 4
		scanFlag("hidden", &c.Hidden),   // 5
		&c.OriginalCategoryGroupID,      // 6
		&c.Note,                         // 7
		&c.Budgeted,                     // 8
		&c.Activity,                     // 9
		&c.Balance,                      // 10
		scanFlag("deleted", &c.Deleted), // 11
	)
	return c, err
}

func (categoryCodec) Bind(c domain.Category) []any {
	return []any{
		sql.Named("id", c.ID),
		sql.Named("budget_id", c.BudgetID),
		sql.Named("category_group_id", c.CategoryGroupID),
		sql.Named("name", c.Name),
		sql.Named("hidden", boolToInt(c.Hidden)),
		sql.Named("original_category_group_id", nullArg(c.OriginalCategoryGroupID)),
		sql.Named("note", nullArg(c.Note)),
		sql.Named("budgeted", int64(c.Budgeted)),
		sql.Named("activity", int64(c.Activity)),
		sql.Named("balance", int64(c.Balance)),
		sql.Named("deleted", boolToInt(c.Deleted)),
	}
}

// ============================================================================
// Transaction Codec
// ============================================================================

// transactionColumns is the SELECT column list for transaction queries
const transactionColumns = `id, budget_id, date, amount, memo, cleared, approved,
	account_id, account_name, payee_id, payee_name, category_id, category_name,
	transfer_account_id, transfer_transaction_id, matched_transaction_id, deleted`

type transactionCodec struct{}

func (transactionCodec) Table() string        { return "transactions" }
func (transactionCodec) ParentColumn() string { return "budget_id" }

func (transactionCodec) Columns() map[string]ColumnKind {
	return map[string]ColumnKind{
		"id":                  KindText,
		"date":                KindText,
		"amount":              KindInteger,
		"memo":                KindText,
		"cleared":             KindText,
		"approved":            KindBool,
		"account_id":          KindText,
		"account_name":        KindText,
		"payee_id":            KindText,
		"payee_name":          KindText,
		"category_id":         KindText,
		"category_name":       KindText,
		"transfer_account_id": KindText,
		"deleted":             KindBool,
	}
}

func (transactionCodec) SelectByIDQuery() string {
	return `SELECT ` + transactionColumns + ` FROM transactions WHERE id = :id`
}

func (transactionCodec) SelectAllQuery() string {
	return `SELECT ` + transactionColumns + ` FROM transactions`
}

func (transactionCodec) InsertQuery() string {
	return `
		INSERT INTO transactions (id, budget_id, date, amount, memo, cleared, approved,
			account_id, account_name, payee_id, payee_name, category_id, category_name,
			transfer_account_id, transfer_transaction_id, matched_transaction_id, deleted)
		VALUES (:id, :budget_id, :date, :amount, :memo, :cleared, :approved,
			:account_id, :account_name, :payee_id, :payee_name, :category_id, :category_name,
			:transfer_account_id, :transfer_transaction_id, :matched_transaction_id, :deleted)`
}

func (transactionCodec) UpdateQuery() string {
	return `
		UPDATE transactions SET
			budget_id = :budget_id,
			date = :date,
			amount = :amount,
			memo = :memo,
			cleared = :cleared,
			approved = :approved,
			account_id = :account_id,
			account_name = :account_name,
			payee_id = :payee_id,
			payee_name = :payee_name,
			category_id = :category_id,
			category_name = :category_name,
			transfer_account_id = :transfer_account_id,
			transfer_transaction_id = :transfer_transaction_id,
			matched_transaction_id = :matched_transaction_id,
			deleted = :deleted
		WHERE id = :id`
}

// Read MUST scan in transactionColumns order
func (transactionCodec) Read(row RowScanner) (domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID,                             // 1
		&t.BudgetID,                       // 2
		&t.Date,                           // 3
		&t.Amount,                         // 4
		&t.Memo,                           // 5
		&t.Cleared,                        // 6
		scanFlag("approved", &t.Approved), // 7
		&t.AccountID,                      // 8
		&t.AccountName,                    // 9
		&t.PayeeID,                        // 10
		&t.PayeeName,                      // 11
		&t.CategoryID,                     // 12
		&t.CategoryName,                   // 13
		&t.TransferAccountID,              // 14
		&t.TransferTransactionID,          // 15
		&t.MatchedTransactionID,           // 16
		scanFlag("deleted", &t.Deleted),   // 17
	)
	return t, err
}

func (transactionCodec) Bind(t domain.Transaction) []any {
	return []any{
		sql.Named("id", t.ID),
		sql.Named("budget_id", t.BudgetID),
		sql.Named("date", t.Date),
		sql.Named("amount", int64(t.Amount)),
		sql.Named("memo", nullArg(t.Memo)),
		sql.Named("cleared", string(t.Cleared)),
		sql.Named("approved", boolToInt(t.Approved)),
		sql.Named("account_id", t.AccountID),
		sql.Named("account_name", t.AccountName),
		sql.Named("payee_id", nullArg(t.PayeeID)),
		sql.Named("payee_name", nullArg(t.PayeeName)),
		sql.Named("category_id", nullArg(t.CategoryID)),
		sql.Named("category_name", nullArg(t.CategoryName)),
		sql.Named("transfer_account_id", nullArg(t.TransferAccountID)),
		sql.Named("transfer_transaction_id", nullArg(t.TransferTransactionID)),
		sql.Named("matched_transaction_id", nullArg(t.MatchedTransactionID)),
		sql.Named("deleted", boolToInt(t.Deleted)),
	}
}
