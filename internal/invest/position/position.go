package position

import (
	"fmt"
	"strings"

	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/tools"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"go.uber.org/ratelimit"
)

type PositionsService struct {
	opsClient   *investgo.OperationsServiceClient
	rateLimiter ratelimit.Limiter

	accountID string
	logger    logger.Logger
}

func NewPositionsService(c *investgo.Client, accountID string, rateLimiter ratelimit.Limiter, logger logger.Logger) *PositionsService {
	return &PositionsService{
		opsClient:   c.NewOperationsServiceClient(),
		rateLimiter: rateLimiter,
		accountID:   accountID,
		logger:      logger,
	}
}

// UnaryGetCurrencies returns money positions with upper-case currency codes.
func (s *PositionsService) UnaryGetCurrencies() ([]model.CurrencyBalance, error) {
	s.rateLimiter.Take()
	resp, err := s.opsClient.GetPositions(s.accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: can't get positions", err)
	}

	b := make([]model.CurrencyBalance, 0, len(resp.GetMoney()))
	for _, m := range resp.GetMoney() {
		b = append(b, model.CurrencyBalance{
			Currency: strings.ToUpper(m.GetCurrency()),
			Balance:  tools.MoneyValueToDecimal(m),
		})
	}

	return b, nil
}

func (s *PositionsService) UnaryGetPortfolio() ([]model.PortfolioPosition, error) {
	s.rateLimiter.Take()
	resp, err := s.opsClient.GetPortfolio(s.accountID, investapi.PortfolioRequest_RUB)
	if err != nil {
		return nil, fmt.Errorf("%w: can't get portfolio", err)
	}

	positions := make([]model.PortfolioPosition, 0, len(resp.GetPositions()))
	for _, p := range resp.GetPositions() {
		if p.GetInstrumentType() == string(model.Currency) {
			continue
		}
		positions = append(positions, model.PortfolioPosition{
			FIGI:                 p.GetFigi(),
			AveragePositionPrice: tools.MoneyValueToDecimal(p.GetAveragePositionPrice()),
			Balance:              tools.QuotationToDecimal(p.GetQuantity()),
			ExpectedYield:        tools.QuotationToDecimal(p.GetExpectedYield()),
			Lots:                 tools.QuotationToDecimal(p.GetQuantityLots()),
		})
	}

	return positions, nil
}
