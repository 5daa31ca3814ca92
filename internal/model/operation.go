package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationType string

const (
	Buy                OperationType = "Buy"
	BuyCard            OperationType = "BuyCard"
	Sell               OperationType = "Sell"
	BrokerCommission   OperationType = "BrokerCommission"
	ExchangeCommission OperationType = "ExchangeCommission"
	ServiceCommission  OperationType = "ServiceCommission"
	MarginCommission   OperationType = "MarginCommission"
	OtherCommission    OperationType = "OtherCommission"
	PayIn              OperationType = "PayIn"
	PayOut             OperationType = "PayOut"
	Tax                OperationType = "Tax"
	TaxLucre           OperationType = "TaxLucre"
	TaxDividend        OperationType = "TaxDividend"
	TaxCoupon          OperationType = "TaxCoupon"
	TaxBack            OperationType = "TaxBack"
	Repayment          OperationType = "Repayment"
	PartRepayment      OperationType = "PartRepayment"
	Coupon             OperationType = "Coupon"
	Dividend           OperationType = "Dividend"
	SecurityIn         OperationType = "SecurityIn"
	SecurityOut        OperationType = "SecurityOut"
	Unspecified        OperationType = "Unspecified"
)

// IsBuy reports whether the operation opens or grows a position.
func (t OperationType) IsBuy() bool {
	return t == Buy || t == BuyCard
}

func (t OperationType) IsSell() bool {
	return t == Sell
}

// IsDealType reports whether operations of this type are folded into deals.
func (t OperationType) IsDealType() bool {
	switch t {
	case Buy, BuyCard, Sell, Dividend, TaxDividend:
		return true
	}
	return false
}

// DealTypes lists every type IsDealType accepts, in a stable order for queries.
var DealTypes = []OperationType{Buy, BuyCard, Sell, Dividend, TaxDividend}

// CapitalTypes are the operation types summed into a creator's capital.
var CapitalTypes = []OperationType{PayIn, PayOut, ServiceCommission}

func TypeNames(types []OperationType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

type OperationStatus string

const (
	Done     OperationStatus = "Done"
	Decline  OperationStatus = "Decline"
	Progress OperationStatus = "Progress"
)

// BrokerOperation is an operation as reported by the broker, before filtering
// and commission merge.
type BrokerOperation struct {
	ID             string
	Type           OperationType
	Date           time.Time
	Status         OperationStatus
	Payment        decimal.Decimal
	Commission     *decimal.Decimal
	Currency       string
	FIGI           string
	InstrumentType string
	Quantity       int64
	IsMarginCall   bool
}

// Operation is a persisted ledger row.
type Operation struct {
	ID             int64           `db:"id" json:"id"`
	AccountID      int64           `db:"account_id" json:"account_id"`
	Type           OperationType   `db:"type" json:"type"`
	Date           time.Time       `db:"date" json:"date"`
	Status         OperationStatus `db:"status" json:"status"`
	Payment        decimal.Decimal `db:"payment" json:"payment"`
	Commission     decimal.Decimal `db:"commission" json:"commission"`
	Currency       string          `db:"currency" json:"currency"`
	FIGI           *string         `db:"figi" json:"figi"`
	InstrumentType string          `db:"instrument_type" json:"instrument_type"`
	Quantity       int64           `db:"quantity" json:"quantity"`
	SecondaryID    string          `db:"secondary_id" json:"secondary_id"`
	IsMarginCall   bool            `db:"is_margin_call" json:"is_margin_call"`
	DealID         *int64          `db:"deal_id" json:"deal_id"`
}

func (o Operation) Figi() string {
	if o.FIGI == nil {
		return ""
	}
	return *o.FIGI
}

// Total is payment plus commission, the amount the operation moved.
func (o Operation) Total() decimal.Decimal {
	return o.Payment.Add(o.Commission)
}

// OperationView is an operation joined with its instrument for listings.
type OperationView struct {
	Operation
	InstrumentName *string         `db:"instrument_name" json:"instrument_name"`
	Ticker         *string         `db:"ticker" json:"ticker"`
	Lot            int64           `db:"lot" json:"-"`
	Lots           decimal.Decimal `db:"-" json:"lots"`
}
