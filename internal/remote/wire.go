package remote

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"budgetmirror/internal/domain"
)

// Wire records use pointers so an absent field can be told apart from a
// zero value. Unknown fields are ignored.

type wireBudget struct {
	ID             *string `json:"id"`
	Name           *string `json:"name"`
	LastModifiedOn *string `json:"last_modified_on"`
	FirstMonth     *string `json:"first_month"`
	LastMonth      *string `json:"last_month"`
	DateFormat     *struct {
		Format string `json:"format"`
	} `json:"date_format"`
}

func (w wireBudget) toDomain() (domain.Budget, error) {
	var f fields
	b := domain.Budget{
		ID:             required(&f, "id", w.ID),
		Name:           required(&f, "name", w.Name),
		LastModifiedOn: optional(w.LastModifiedOn),
		FirstMonth:     optional(w.FirstMonth),
		LastMonth:      optional(w.LastMonth),
	}
	if w.DateFormat != nil {
		b.DateFormat = w.DateFormat.Format
	}
	return b, f.err()
}

type wireAccount struct {
	ID                  *string `json:"id"`
	Name                *string `json:"name"`
	Type                *string `json:"type"`
	OnBudget            *bool   `json:"on_budget"`
	Closed              *bool   `json:"closed"`
	Note                *string `json:"note"`
	Balance             *int64  `json:"balance"`
	ClearedBalance      *int64  `json:"cleared_balance"`
	UnclearedBalance    *int64  `json:"uncleared_balance"`
	TransferPayeeID     *string `json:"transfer_payee_id"`
	DirectImportLinked  *bool   `json:"direct_import_linked"`
	DirectImportInError *bool   `json:"direct_import_in_error"`
	Deleted             *bool   `json:"deleted"`
}

func (w wireAccount) toDomain(budgetID string) (domain.Account, error) {
	var f fields
	a := domain.Account{
		ID:                  required(&f, "id", w.ID),
		BudgetID:            budgetID,
		Name:                required(&f, "name", w.Name),
		Type:                domain.AccountType(required(&f, "type", w.Type)),
		OnBudget:            optional(w.OnBudget),
		Closed:              optional(w.Closed),
		Note:                nullable(w.Note),
		Balance:             domain.Milliunits(required(&f, "balance", w.Balance)),
		ClearedBalance:      domain.Milliunits(optional(w.ClearedBalance)),
		UnclearedBalance:    domain.Milliunits(optional(w.UnclearedBalance)),
		TransferPayeeID:     nullable(w.TransferPayeeID),
		DirectImportLinked:  optional(w.DirectImportLinked),
		DirectImportInError: optional(w.DirectImportInError),
		Deleted:             optional(w.Deleted),
	}
	return a, f.err()
}

type wireCategoryGroup struct {
	ID         *string           `json:"id"`
	Name       *string           `json:"name"`
	Hidden     *bool             `json:"hidden"`
	Deleted    *bool             `json:"deleted"`
	Categories []json.RawMessage `json:"categories"`
}

func (w wireCategoryGroup) toDomain(budgetID string) (domain.CategoryGroup, error) {
	var f fields
	g := domain.CategoryGroup{
		ID:       required(&f, "id", w.ID),
		BudgetID: budgetID,
		Name:     required(&f, "name", w.Name),
		Hidden:   optional(w.Hidden),
		Deleted:  optional(w.Deleted),
	}
	return g, f.err()
}

type wireCategory struct {
	ID                      *string `json:"id"`
	CategoryGroupID         *string `json:"category_group_id"`
	Name                    *string `json:"name"`
	Hidden                  *bool   `json:"hidden"`
	OriginalCategoryGroupID *string `json:"original_category_group_id"`
	Note                    *string `json:"note"`
	Budgeted                *int64  `json:"budgeted"`
	Activity                *int64  `json:"activity"`
	Balance                 *int64  `json:"balance"`
	Deleted                 *bool   `json:"deleted"`
}

// toDomain falls back to the enclosing group's id when the record omits
// category_group_id
func (w wireCategory) toDomain(budgetID string, groupID *string) (domain.Category, error) {
	if w.CategoryGroupID == nil {
		w.CategoryGroupID = groupID
	}

	var f fields
	c := domain.Category{
		ID:                      required(&f, "id", w.ID),
		BudgetID:                budgetID,
		CategoryGroupID:         required(&f, "category_group_id", w.CategoryGroupID),
		Name:                    required(&f, "name", w.Name),
		Hidden:                  optional(w.Hidden),
		OriginalCategoryGroupID: nullable(w.OriginalCategoryGroupID),
		Note:                    nullable(w.Note),
		Budgeted:                domain.Milliunits(optional(w.Budgeted)),
		Activity:                domain.Milliunits(optional(w.Activity)),
		Balance:                 domain.Milliunits(optional(w.Balance)),
		Deleted:                 optional(w.Deleted),
	}
	return c, f.err()
}

type wireTransaction struct {
	ID                    *string `json:"id"`
	Date                  *string `json:"date"`
	Amount                *int64  `json:"amount"`
	Memo                  *string `json:"memo"`
	Cleared               *string `json:"cleared"`
	Approved              *bool   `json:"approved"`
	AccountID             *string `json:"account_id"`
	AccountName           *string `json:"account_name"`
	PayeeID               *string `json:"payee_id"`
	PayeeName             *string `json:"payee_name"`
	CategoryID            *string `json:"category_id"`
	CategoryName          *string `json:"category_name"`
	TransferAccountID     *string `json:"transfer_account_id"`
	TransferTransactionID *string `json:"transfer_transaction_id"`
	MatchedTransactionID  *string `json:"matched_transaction_id"`
	Deleted               *bool   `json:"deleted"`
}

func (w wireTransaction) toDomain(budgetID string) (domain.Transaction, error) {
	var f fields
	t := domain.Transaction{
		ID:                    required(&f, "id", w.ID),
		BudgetID:              budgetID,
		Date:                  required(&f, "date", w.Date),
		Amount:                domain.Milliunits(required(&f, "amount", w.Amount)),
		Memo:                  nullable(w.Memo),
		Cleared:               domain.ClearedStatus(optional(w.Cleared)),
		Approved:              optional(w.Approved),
		AccountID:             required(&f, "account_id", w.AccountID),
		AccountName:           required(&f, "account_name", w.AccountName),
		PayeeID:               nullable(w.PayeeID),
		PayeeName:             nullable(w.PayeeName),
		CategoryID:            nullable(w.CategoryID),
		CategoryName:          nullable(w.CategoryName),
		TransferAccountID:     nullable(w.TransferAccountID),
		TransferTransactionID: nullable(w.TransferTransactionID),
		MatchedTransactionID:  nullable(w.MatchedTransactionID),
		Deleted:               optional(w.Deleted),
	}
	if t.Cleared == "" {
		t.Cleared = domain.ClearedStatusUncleared
	}
	return t, f.err()
}

// fields collects the names of missing required fields
type fields struct {
	missing []string
}

func (f *fields) err() error {
	if len(f.missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required field(s): %s", strings.Join(f.missing, ", "))
}

func required[V any](f *fields, name string, p *V) V {
	if p == nil {
		f.missing = append(f.missing, name)
		var zero V
		return zero
	}
	return *p
}

func optional[V any](p *V) V {
	if p == nil {
		var zero V
		return zero
	}
	return *p
}

func nullable(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
