package operation

import (
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/tools"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"go.uber.org/ratelimit"
)

type OperationsService struct {
	opsClient   *investgo.OperationsServiceClient
	rateLimiter ratelimit.Limiter

	accountID string
	logger    logger.Logger
}

func NewOperationsService(c *investgo.Client, accountID string, rateLimiter ratelimit.Limiter, logger logger.Logger) *OperationsService {
	return &OperationsService{
		opsClient:   c.NewOperationsServiceClient(),
		rateLimiter: rateLimiter,
		accountID:   accountID,
		logger:      logger,
	}
}

// GetOperations returns operations of every state, the ledger filters them.
func (s *OperationsService) GetOperations(from, to time.Time) ([]model.BrokerOperation, error) {
	s.logger.Debugf("getting operations from %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))

	s.rateLimiter.Take()
	resp, err := s.opsClient.GetOperations(&investgo.GetOperationsRequest{
		AccountId: s.accountID,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: can't get operations", err)
	}

	ops := make([]model.BrokerOperation, 0, len(resp.GetOperations()))
	for _, op := range resp.GetOperations() {
		ops = append(ops, FromInvestOperation(op))
	}

	return ops, nil
}

func FromInvestOperation(op *investapi.Operation) model.BrokerOperation {
	res := model.BrokerOperation{
		ID:             op.GetId(),
		Type:           FromInvestOperationType(op.GetOperationType()),
		Status:         FromInvestOperationState(op.GetState()),
		Payment:        tools.MoneyValueToDecimal(op.GetPayment()),
		Currency:       op.GetCurrency(),
		FIGI:           op.GetFigi(),
		InstrumentType: op.GetInstrumentType(),
		Quantity:       op.GetQuantity(),
	}
	if op.GetDate() != nil {
		res.Date = op.GetDate().AsTime()
	}
	return res
}

func FromInvestOperationType(t investapi.OperationType) model.OperationType {
	switch t {
	case investapi.OperationType_OPERATION_TYPE_BUY:
		return model.Buy
	case investapi.OperationType_OPERATION_TYPE_BUY_CARD:
		return model.BuyCard
	case investapi.OperationType_OPERATION_TYPE_SELL:
		return model.Sell
	case investapi.OperationType_OPERATION_TYPE_BROKER_FEE:
		return model.BrokerCommission
	case investapi.OperationType_OPERATION_TYPE_SERVICE_FEE:
		return model.ServiceCommission
	case investapi.OperationType_OPERATION_TYPE_MARGIN_FEE:
		return model.MarginCommission
	case investapi.OperationType_OPERATION_TYPE_INPUT:
		return model.PayIn
	case investapi.OperationType_OPERATION_TYPE_OUTPUT:
		return model.PayOut
	case investapi.OperationType_OPERATION_TYPE_TAX:
		return model.Tax
	case investapi.OperationType_OPERATION_TYPE_DIVIDEND_TAX:
		return model.TaxDividend
	case investapi.OperationType_OPERATION_TYPE_DIVIDEND:
		return model.Dividend
	case investapi.OperationType_OPERATION_TYPE_COUPON:
		return model.Coupon
	case investapi.OperationType_OPERATION_TYPE_UNSPECIFIED:
		return model.Unspecified
	default:
		return model.OperationType(t.String())
	}
}

func FromInvestOperationState(s investapi.OperationState) model.OperationStatus {
	switch s {
	case investapi.OperationState_OPERATION_STATE_EXECUTED:
		return model.Done
	case investapi.OperationState_OPERATION_STATE_CANCELED:
		return model.Decline
	default:
		return model.Progress
	}
}
