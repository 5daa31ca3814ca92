package tools

import (
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"
)

const _nanoExp = -9

// QuotationToDecimal keeps the full nano precision ToFloat would lose.
func QuotationToDecimal(q *investapi.Quotation) decimal.Decimal {
	if q == nil {
		return decimal.Zero
	}
	return unitsNano(q.GetUnits(), q.GetNano())
}

func MoneyValueToDecimal(m *investapi.MoneyValue) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	return unitsNano(m.GetUnits(), m.GetNano())
}

func unitsNano(units int64, nano int32) decimal.Decimal {
	return decimal.New(units, 0).Add(decimal.New(int64(nano), _nanoExp))
}
