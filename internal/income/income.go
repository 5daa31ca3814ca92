// Package income derives realized and unrealized income from reconciled deals.
package income

import (
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type Report struct {
	Realized   decimal.Decimal `json:"realized"`
	Unrealized decimal.Decimal `json:"unrealized"`
	Total      decimal.Decimal `json:"total"`
}

// Realized sums payment plus commission over every operation of closed deals.
func Realized(deals []model.DealOperations) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		if d.IsOpen() {
			continue
		}
		for _, op := range d.Operations {
			total = total.Add(op.Total())
		}
	}
	return total
}

// Unrealized sums, over open deals, the mean buy price plus the mean sell
// price times the sold quantity. Buy prices are negative, so the sum is the
// per unit result of what was already sold.
func Unrealized(deals []model.DealOperations) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deals {
		if !d.IsOpen() {
			continue
		}
		total = total.Add(openDealIncome(d))
	}
	return total
}

func openDealIncome(d model.DealOperations) decimal.Decimal {
	var (
		buySum, sellSum     decimal.Decimal
		buyCount, sellCount int64
		sold                int64
	)
	for _, op := range d.Operations {
		if op.Quantity == 0 {
			continue
		}
		price := op.Total().Div(decimal.NewFromInt(op.Quantity))
		switch {
		case op.Type.IsBuy():
			buySum = buySum.Add(price)
			buyCount++
		case op.Type.IsSell():
			sellSum = sellSum.Add(price)
			sellCount++
			sold += op.Quantity
		}
	}
	if buyCount == 0 || sellCount == 0 {
		return decimal.Zero
	}

	avgBuy := buySum.Div(decimal.NewFromInt(buyCount))
	avgSell := sellSum.Div(decimal.NewFromInt(sellCount))
	return avgBuy.Add(avgSell).Mul(decimal.NewFromInt(sold))
}

func Calculate(deals []model.DealOperations) Report {
	r := Report{
		Realized:   Realized(deals),
		Unrealized: Unrealized(deals),
	}
	r.Total = r.Realized.Add(r.Unrealized)
	return r
}
