package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Deal struct {
	ID        int64  `db:"id" json:"id"`
	AccountID int64  `db:"account_id" json:"account_id"`
	FIGI      string `db:"figi" json:"figi"`
}

// DealSummary is a deal annotated for listings.
type DealSummary struct {
	Deal
	OpenedAt       time.Time       `db:"earliest_operation_date" json:"earliest_operation_date"`
	LatestAt       time.Time       `db:"latest_operation_date" json:"latest_operation_date"`
	NetQuantity    int64           `db:"net_quantity" json:"net_quantity"`
	Profit         decimal.Decimal `db:"profit" json:"profit"`
	Currency       *string         `db:"currency" json:"currency"`
	InstrumentName *string         `db:"instrument_name" json:"instrument_name"`
	Ticker         *string         `db:"ticker" json:"ticker"`
}

func (d DealSummary) IsOpen() bool {
	return d.NetQuantity != 0
}

// DealOperations is a deal together with its member operations.
type DealOperations struct {
	Deal
	Operations []Operation
}

// NetQuantity is the signed quantity implied by the BUY/SELL members.
func (d DealOperations) NetQuantity() int64 {
	var q int64
	for _, op := range d.Operations {
		switch {
		case op.Type.IsBuy():
			q += op.Quantity
		case op.Type.IsSell():
			q -= op.Quantity
		}
	}
	return q
}

func (d DealOperations) IsOpen() bool {
	return d.NetQuantity() != 0
}

// OpenedAt is the earliest member date, zero for an empty deal.
func (d DealOperations) OpenedAt() time.Time {
	var t time.Time
	for i, op := range d.Operations {
		if i == 0 || op.Date.Before(t) {
			t = op.Date
		}
	}
	return t
}
