package openapi

import (
	"strings"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type response[T any] struct {
	TrackingID string `json:"trackingId"`
	Status     string `json:"status"`
	Payload    T      `json:"payload"`
}

type moneyAmount struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

type accountsPayload struct {
	Accounts []struct {
		BrokerAccountType string `json:"brokerAccountType"`
		BrokerAccountID   string `json:"brokerAccountId"`
	} `json:"accounts"`
}

type operation struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	Commission       *moneyAmount    `json:"commission"`
	Currency         string          `json:"currency"`
	Payment          decimal.Decimal `json:"payment"`
	Price            decimal.Decimal `json:"price"`
	Quantity         int64           `json:"quantity"`
	QuantityExecuted int64           `json:"quantityExecuted"`
	FIGI             string          `json:"figi"`
	InstrumentType   string          `json:"instrumentType"`
	IsMarginCall     bool            `json:"isMarginCall"`
	Date             time.Time       `json:"date"`
	OperationType    string          `json:"operationType"`
}

type operationsPayload struct {
	Operations []operation `json:"operations"`
}

func (o operation) toModel() model.BrokerOperation {
	op := model.BrokerOperation{
		ID:             o.ID,
		Type:           model.OperationType(o.OperationType),
		Date:           o.Date,
		Status:         model.OperationStatus(o.Status),
		Payment:        o.Payment,
		Currency:       strings.ToUpper(o.Currency),
		FIGI:           o.FIGI,
		InstrumentType: o.InstrumentType,
		Quantity:       o.Quantity,
		IsMarginCall:   o.IsMarginCall,
	}
	if o.Commission != nil {
		c := o.Commission.Value
		op.Commission = &c
	}
	return op
}

type position struct {
	FIGI                 string          `json:"figi"`
	Ticker               string          `json:"ticker"`
	InstrumentType       string          `json:"instrumentType"`
	Balance              decimal.Decimal `json:"balance"`
	ExpectedYield        *moneyAmount    `json:"expectedYield"`
	Lots                 decimal.Decimal `json:"lots"`
	AveragePositionPrice *moneyAmount    `json:"averagePositionPrice"`
	Name                 string          `json:"name"`
}

type portfolioPayload struct {
	Positions []position `json:"positions"`
}

func (p position) toModel() model.PortfolioPosition {
	res := model.PortfolioPosition{
		FIGI:    p.FIGI,
		Balance: p.Balance,
		Lots:    p.Lots,
	}
	if p.AveragePositionPrice != nil {
		res.AveragePositionPrice = p.AveragePositionPrice.Value
	}
	if p.ExpectedYield != nil {
		res.ExpectedYield = p.ExpectedYield.Value
	}
	return res
}

type currenciesPayload struct {
	Currencies []struct {
		Currency string          `json:"currency"`
		Balance  decimal.Decimal `json:"balance"`
	} `json:"currencies"`
}

type instrument struct {
	FIGI     string `json:"figi"`
	Ticker   string `json:"ticker"`
	ISIN     string `json:"isin"`
	Lot      int64  `json:"lot"`
	Currency string `json:"currency"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

func (i instrument) toModel() model.Instrument {
	lot := i.Lot
	if lot <= 0 {
		lot = 1
	}
	return model.Instrument{
		FIGI:           i.FIGI,
		Ticker:         i.Ticker,
		ISIN:           i.ISIN,
		Name:           i.Name,
		Lot:            lot,
		Currency:       strings.ToUpper(i.Currency),
		InstrumentType: model.FromBrokerTypeName(i.Type),
	}
}

type instrumentsPayload struct {
	Instruments []instrument `json:"instruments"`
}
