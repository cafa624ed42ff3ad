package codec

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the column order of CSV exports
var csvHeader = []string{"id", "date", "amount", "payee", "category", "account", "memo", "cleared", "approved", "transfer", "deleted"}

// CSVCodec handles spreadsheet-friendly export. Only the transactions are
// written; the document header fields have no place in a flat file.
type CSVCodec struct{}

// NewCSVCodec creates a new CSV codec
func NewCSVCodec() *CSVCodec {
	return &CSVCodec{}
}

// Format returns the codec format identifier
func (c *CSVCodec) Format() string {
	return "csv"
}

// Export writes one row per transaction after a header row
func (c *CSVCodec) Export(doc *Document, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, t := range doc.Transactions {
		row := []string{
			t.ID,
			t.Date,
			t.Amount,
			t.Payee,
			t.Category,
			t.Account,
			t.Memo,
			t.Cleared,
			strconv.FormatBool(t.Approved),
			strconv.FormatBool(t.Transfer),
			strconv.FormatBool(t.Deleted),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
