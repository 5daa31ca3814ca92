package ledger

import (
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// NormalizeDate brings a broker timestamp to the instant the database stores:
// UTC with microsecond precision. Commission matching and deduplication both
// compare normalized dates.
func NormalizeDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Commissions maps the normalized date of every executed broker commission to
// its payment. A later commission with the same date replaces an earlier one.
func Commissions(raw []model.BrokerOperation) map[int64]decimal.Decimal {
	commissions := make(map[int64]decimal.Decimal)
	for _, op := range raw {
		if op.Type == model.BrokerCommission && op.Status == model.Done {
			commissions[NormalizeDate(op.Date).UnixNano()] = op.Payment
		}
	}
	return commissions
}

// BuildOperations turns a broker batch into ledger rows: only executed
// operations are kept, broker commissions are folded into the operation with
// the exact same date and are not rows themselves.
func BuildOperations(accountID int64, raw []model.BrokerOperation) []model.Operation {
	commissions := Commissions(raw)

	rows := make([]model.Operation, 0, len(raw))
	for _, op := range raw {
		if op.Status != model.Done || op.Type == model.BrokerCommission {
			continue
		}

		date := NormalizeDate(op.Date)
		row := model.Operation{
			AccountID:      accountID,
			Type:           op.Type,
			Date:           date,
			Status:         op.Status,
			Payment:        op.Payment,
			Commission:     decimal.Zero,
			Currency:       op.Currency,
			InstrumentType: op.InstrumentType,
			Quantity:       op.Quantity,
			SecondaryID:    op.ID,
			IsMarginCall:   op.IsMarginCall,
		}
		if c, ok := commissions[date.UnixNano()]; ok {
			row.Commission = c
		}
		if op.FIGI != "" {
			figi := op.FIGI
			row.FIGI = &figi
		}
		rows = append(rows, row)
	}

	return rows
}

// FIGIs lists the distinct instruments referenced by rows.
func FIGIs(rows []model.Operation) []string {
	seen := make(map[string]struct{})
	figis := make([]string, 0)
	for _, r := range rows {
		f := r.Figi()
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		figis = append(figis, f)
	}
	return figis
}
