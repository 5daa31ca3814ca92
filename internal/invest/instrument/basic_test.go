package instrument

import (
	"testing"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/stretchr/testify/assert"
)

func TestToInstruments(t *testing.T) {
	got := toInstruments([]*investapi.Share{
		{Figi: "BBG004730N88", Ticker: "SBER", Isin: "RU0009029540", Name: "Сбер Банк", Lot: 10, Currency: "rub"},
		{Figi: "BBG000B9XRY4", Ticker: "AAPL", Name: "Apple", Currency: "usd"},
	}, model.Share)

	assert.Equal(t, []model.Instrument{
		{FIGI: "BBG004730N88", Ticker: "SBER", ISIN: "RU0009029540", Name: "Сбер Банк", Lot: 10, Currency: "rub", InstrumentType: model.Share},
		{FIGI: "BBG000B9XRY4", Ticker: "AAPL", Name: "Apple", Lot: 1, Currency: "usd", InstrumentType: model.Share},
	}, got)
}
