package tools

import (
	"testing"

	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestQuotationToDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   *investapi.Quotation
		want string
	}{
		{"nil", nil, "0"},
		{"positive", &investapi.Quotation{Units: 114, Nano: 250000000}, "114.25"},
		{"negative", &investapi.Quotation{Units: -200, Nano: -200000000}, "-200.2"},
		{"nano only", &investapi.Quotation{Nano: 1}, "0.000000001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(QuotationToDecimal(tt.in)),
				"got %s", QuotationToDecimal(tt.in))
		})
	}
}

func TestMoneyValueToDecimal(t *testing.T) {
	m := &investapi.MoneyValue{Currency: "usd", Units: -1000, Nano: -500000000}
	assert.Equal(t, "-1000.5", MoneyValueToDecimal(m).String())
	assert.True(t, MoneyValueToDecimal(nil).IsZero())
}
