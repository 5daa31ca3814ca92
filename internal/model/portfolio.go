package model

import "github.com/shopspring/decimal"

// CurrencyBalance is a broker-reported money position.
type CurrencyBalance struct {
	Currency string
	Balance  decimal.Decimal
}

type CurrencyAsset struct {
	AccountID int64           `db:"account_id" json:"account_id"`
	Currency  string          `db:"currency" json:"currency"`
	Value     decimal.Decimal `db:"value" json:"value"`
}

// PortfolioPosition is one held instrument from a live broker snapshot.
type PortfolioPosition struct {
	FIGI                 string
	AveragePositionPrice decimal.Decimal
	Balance              decimal.Decimal
	ExpectedYield        decimal.Decimal
	Lots                 decimal.Decimal
}

// BrokerAccount identifies the account a credential trades on.
type BrokerAccount struct {
	ID        string
	IsSandbox bool
}
