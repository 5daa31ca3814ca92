package operation

import (
	"testing"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestFromInvestOperation(t *testing.T) {
	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	op := FromInvestOperation(&investapi.Operation{
		Id:             "42",
		Currency:       "rub",
		Payment:        &investapi.MoneyValue{Currency: "rub", Units: -1000, Nano: -500000000},
		State:          investapi.OperationState_OPERATION_STATE_EXECUTED,
		Quantity:       10,
		Figi:           "BBG000B9XRY4",
		InstrumentType: "share",
		Date:           timestamppb.New(date),
		OperationType:  investapi.OperationType_OPERATION_TYPE_BUY,
	})

	assert.Equal(t, "42", op.ID)
	assert.Equal(t, model.Buy, op.Type)
	assert.Equal(t, model.Done, op.Status)
	assert.Equal(t, "-1000.5", op.Payment.String())
	assert.Equal(t, int64(10), op.Quantity)
	assert.True(t, op.Date.Equal(date))
}

func TestFromInvestOperationType(t *testing.T) {
	assert.Equal(t, model.BrokerCommission, FromInvestOperationType(investapi.OperationType_OPERATION_TYPE_BROKER_FEE))
	assert.Equal(t, model.TaxDividend, FromInvestOperationType(investapi.OperationType_OPERATION_TYPE_DIVIDEND_TAX))
	assert.Equal(t, model.Unspecified, FromInvestOperationType(investapi.OperationType_OPERATION_TYPE_UNSPECIFIED))
}

func TestFromInvestOperationState(t *testing.T) {
	assert.Equal(t, model.Done, FromInvestOperationState(investapi.OperationState_OPERATION_STATE_EXECUTED))
	assert.Equal(t, model.Decline, FromInvestOperationState(investapi.OperationState_OPERATION_STATE_CANCELED))
	assert.Equal(t, model.Progress, FromInvestOperationState(investapi.OperationState_OPERATION_STATE_PROGRESS))
}
