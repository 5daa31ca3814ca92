package income

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/shopspring/decimal"
)

var ErrPositionNotFound = errors.New("position not found in portfolio")

var _hundred = decimal.NewFromInt(100)

// Estimate is the live valuation of an open deal from a portfolio snapshot.
// Err is set instead of the figures when the deal could not be priced.
type Estimate struct {
	DealID                int64           `json:"deal_id"`
	FIGI                  string          `json:"figi"`
	OpenedAt              time.Time       `json:"earliest_operation_date"`
	Price                 decimal.Decimal `json:"price"`
	ExpectedPrice         decimal.Decimal `json:"expected_price"`
	ExpectedPercentProfit decimal.Decimal `json:"expected_percent_profit"`
	ExpectedProfit        decimal.Decimal `json:"expected_profit"`
	LotsLeft              decimal.Decimal `json:"lots_left"`
	Err                   error           `json:"-"`
	Error                 string          `json:"error,omitempty"`
}

// PortfolioSource is the live broker snapshot, broker.Client satisfies it.
type PortfolioSource interface {
	Portfolio(ctx context.Context) ([]model.PortfolioPosition, error)
}

// Estimates prices every open deal against one portfolio snapshot. A deal
// whose instrument is missing from the snapshot gets ErrPositionNotFound on
// its own estimate; only a failed snapshot fails the call.
func Estimates(ctx context.Context, source PortfolioSource, deals []model.DealOperations) ([]Estimate, error) {
	positions, err := source.Portfolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: can't load portfolio", err)
	}

	byFIGI := make(map[string]model.PortfolioPosition, len(positions))
	for _, p := range positions {
		byFIGI[p.FIGI] = p
	}

	estimates := make([]Estimate, 0, len(deals))
	for _, d := range deals {
		if !d.IsOpen() {
			continue
		}
		e := Estimate{DealID: d.ID, FIGI: d.FIGI, OpenedAt: d.OpenedAt()}
		p, ok := byFIGI[d.FIGI]
		if !ok {
			e.Err = fmt.Errorf("%w: %s", ErrPositionNotFound, d.FIGI)
			e.Error = e.Err.Error()
			estimates = append(estimates, e)
			continue
		}
		estimates = append(estimates, estimate(e, p))
	}
	return estimates, nil
}

func estimate(e Estimate, p model.PortfolioPosition) Estimate {
	e.Price = p.AveragePositionPrice.Mul(p.Balance)
	e.ExpectedPrice = e.Price.Add(p.ExpectedYield)
	e.ExpectedProfit = p.ExpectedYield
	e.LotsLeft = p.Lots
	e.ExpectedPercentProfit = decimal.Zero
	if !e.Price.IsZero() {
		e.ExpectedPercentProfit = e.ExpectedPrice.Div(e.Price).Sub(decimal.NewFromInt(1)).Mul(_hundred)
	}
	return e
}
