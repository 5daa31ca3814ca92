package model

import (
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
)

type Instrument struct {
	FIGI           string         `json:"figi" db:"figi"`
	Ticker         string         `json:"ticker" db:"ticker"`
	ISIN           string         `json:"isin" db:"isin"`
	Name           string         `json:"name" db:"name"`
	Lot            int64          `json:"lot" db:"lot"`
	Currency       string         `json:"currency" db:"currency"`
	InstrumentType InstrumentType `json:"instrument_type" db:"instrument_type"`
}

type InstrumentType string

const (
	Bond     InstrumentType = "bond"
	Share    InstrumentType = "share"
	Currency InstrumentType = "currency"
	Etf      InstrumentType = "etf"
)

func FromInvestAPIType(t investapi.InstrumentType) InstrumentType {
	switch t {
	case investapi.InstrumentType_INSTRUMENT_TYPE_BOND:
		return Bond
	case investapi.InstrumentType_INSTRUMENT_TYPE_SHARE:
		return Share
	case investapi.InstrumentType_INSTRUMENT_TYPE_CURRENCY:
		return Currency
	case investapi.InstrumentType_INSTRUMENT_TYPE_ETF:
		return Etf
	default:
		return ""
	}
}

// FromBrokerTypeName maps broker type names ("share", "Stock", "Etf", ...) to
// an InstrumentType.
func FromBrokerTypeName(s string) InstrumentType {
	switch s {
	case "bond", "Bond":
		return Bond
	case "share", "Stock", "stock":
		return Share
	case "currency", "Currency":
		return Currency
	case "etf", "Etf":
		return Etf
	default:
		return InstrumentType(s)
	}
}
