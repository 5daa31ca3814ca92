package instrument

import (
	"fmt"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
)

type instrumentInfo interface {
	GetFigi() string
	GetTicker() string
	GetIsin() string
	GetName() string
	GetLot() int32
	GetCurrency() string
}

func toInstrument(i instrumentInfo, t model.InstrumentType) model.Instrument {
	lot := int64(i.GetLot())
	if lot <= 0 {
		lot = 1
	}
	return model.Instrument{
		FIGI:           i.GetFigi(),
		Ticker:         i.GetTicker(),
		ISIN:           i.GetIsin(),
		Name:           i.GetName(),
		Lot:            lot,
		Currency:       i.GetCurrency(),
		InstrumentType: t,
	}
}

func toInstruments[T instrumentInfo](items []T, t model.InstrumentType) []model.Instrument {
	res := make([]model.Instrument, 0, len(items))
	for _, i := range items {
		res = append(res, toInstrument(i, t))
	}
	return res
}

// GetCatalog loads the broker's base instrument lists of the given types.
func (s *InstrumentsService) GetCatalog(types ...model.InstrumentType) ([]model.Instrument, error) {
	res := make([]model.Instrument, 0, 1000)
	for _, t := range types {
		s.rateLimiter.Take()
		switch t {
		case model.Share:
			resp, err := s.instrClient.Shares(investapi.InstrumentStatus_INSTRUMENT_STATUS_BASE)
			if err != nil {
				return nil, fmt.Errorf("%w: can't get shares", err)
			}
			res = append(res, toInstruments(resp.GetInstruments(), t)...)
		case model.Etf:
			resp, err := s.instrClient.Etfs(investapi.InstrumentStatus_INSTRUMENT_STATUS_BASE)
			if err != nil {
				return nil, fmt.Errorf("%w: can't get etfs", err)
			}
			res = append(res, toInstruments(resp.GetInstruments(), t)...)
		case model.Bond:
			resp, err := s.instrClient.Bonds(investapi.InstrumentStatus_INSTRUMENT_STATUS_BASE)
			if err != nil {
				return nil, fmt.Errorf("%w: can't get bonds", err)
			}
			res = append(res, toInstruments(resp.GetInstruments(), t)...)
		case model.Currency:
			resp, err := s.instrClient.Currencies(investapi.InstrumentStatus_INSTRUMENT_STATUS_BASE)
			if err != nil {
				return nil, fmt.Errorf("%w: can't get currencies", err)
			}
			res = append(res, toInstruments(resp.GetInstruments(), t)...)
		default:
			s.logger.Warnf("unknown instrument type %s in catalog request", t)
		}
	}
	return res, nil
}
