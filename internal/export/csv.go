// Package export renders a user's transaction history as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"perfect_vault/internal/domain"

	"github.com/shopspring/decimal"
)

// Header is the first CSV row
var Header = []string{"Type", "Amount", "Description"}

// Filename suggested to browsers downloading the export
const Filename = "transactions.csv"

// WriteCSV writes txs to w in the given order, preceded by Header
func WriteCSV(w io.Writer, txs []domain.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range txs {
		row := []string{t.Type, decimal.NewFromFloat(t.Amount).StringFixed(2), t.Description}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
