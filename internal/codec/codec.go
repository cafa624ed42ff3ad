// Package codec renders mirrored transactions for export.
//
// Every format works from the same Document so that JSON, YAML and CSV
// output agree field for field.
package codec

import (
	"fmt"
	"io"
	"sort"
	"time"

	"budgetmirror/internal/domain"
)

// Exporter writes a Document in one format
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Format() string
}

// Document is an export of one budget's transactions
type Document struct {
	BudgetID     string              `json:"budget_id" yaml:"budget_id"`
	BudgetName   string              `json:"budget_name,omitempty" yaml:"budget_name,omitempty"`
	Filter       string              `json:"filter,omitempty" yaml:"filter,omitempty"`
	ExportedAt   time.Time           `json:"exported_at" yaml:"exported_at"`
	Count        int                 `json:"count" yaml:"count"`
	Total        string              `json:"total" yaml:"total"`
	Transactions []TransactionRecord `json:"transactions" yaml:"transactions"`
}

// TransactionRecord is the export view of a transaction. Amount is the
// decimal rendering; Milliunits keeps the exact stored value.
type TransactionRecord struct {
	ID         string `json:"id" yaml:"id"`
	Date       string `json:"date" yaml:"date"`
	Amount     string `json:"amount" yaml:"amount"`
	Milliunits int64  `json:"milliunits" yaml:"milliunits"`
	Payee      string `json:"payee,omitempty" yaml:"payee,omitempty"`
	Category   string `json:"category,omitempty" yaml:"category,omitempty"`
	Account    string `json:"account" yaml:"account"`
	Memo       string `json:"memo,omitempty" yaml:"memo,omitempty"`
	Cleared    string `json:"cleared" yaml:"cleared"`
	Approved   bool   `json:"approved" yaml:"approved"`
	Transfer   bool   `json:"transfer,omitempty" yaml:"transfer,omitempty"`
	Deleted    bool   `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// NewDocument builds a Document. Transactions are exported in the order given.
func NewDocument(budget domain.Budget, filter domain.Filter, txs []domain.Transaction, exportedAt time.Time) *Document {
	doc := &Document{
		BudgetID:     budget.ID,
		BudgetName:   budget.Name,
		Filter:       filter.String(),
		ExportedAt:   exportedAt.UTC(),
		Count:        len(txs),
		Transactions: make([]TransactionRecord, 0, len(txs)),
	}

	var total domain.Milliunits
	for _, t := range txs {
		total += t.Amount
		doc.Transactions = append(doc.Transactions, TransactionRecord{
			ID:         t.ID,
			Date:       t.Date,
			Amount:     t.Amount.String(),
			Milliunits: int64(t.Amount),
			Payee:      domain.StringOrEmpty(t.PayeeName),
			Category:   domain.StringOrEmpty(t.CategoryName),
			Account:    t.AccountName,
			Memo:       domain.StringOrEmpty(t.Memo),
			Cleared:    string(t.Cleared),
			Approved:   t.Approved,
			Transfer:   t.IsTransfer(),
			Deleted:    t.Deleted,
		})
	}
	doc.Total = total.String()
	return doc
}

var exporters = map[string]Exporter{}

func register(e Exporter) {
	exporters[e.Format()] = e
}

func init() {
	register(NewJSONCodec())
	register(NewYAMLCodec())
	register(NewCSVCodec())
}

// ForFormat returns the exporter for a format name
func ForFormat(format string) (Exporter, error) {
	e, ok := exporters[format]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q (have %v)", format, Formats())
	}
	return e, nil
}

// Formats lists the registered format names
func Formats() []string {
	names := make([]string, 0, len(exporters))
	for name := range exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
