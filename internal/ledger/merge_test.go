package ledger

import (
	"testing"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOperations_FoldsCommissions(t *testing.T) {
	t1 := time.Date(2024, 1, 10, 10, 0, 0, 123456789, time.FixedZone("MSK", 3*3600))
	t2 := t1.Add(time.Hour)

	raw := []model.BrokerOperation{
		{ID: "1", Type: model.Buy, Date: t1, Status: model.Done, Payment: decimal.NewFromInt(-1000), Currency: "RUB", FIGI: "BBG000B9XRY4", Quantity: 10},
		{ID: "2", Type: model.BrokerCommission, Date: t1, Status: model.Done, Payment: decimal.NewFromFloat(-3.5), Currency: "RUB"},
		{ID: "3", Type: model.Sell, Date: t2, Status: model.Done, Payment: decimal.NewFromInt(1200), Currency: "RUB", FIGI: "BBG000B9XRY4", Quantity: 10},
		{ID: "4", Type: model.PayIn, Date: t2, Status: model.Decline, Payment: decimal.NewFromInt(5000), Currency: "RUB"},
	}

	rows := BuildOperations(7, raw)
	require.Len(t, rows, 2)

	buy := rows[0]
	assert.Equal(t, int64(7), buy.AccountID)
	assert.Equal(t, model.Buy, buy.Type)
	assert.True(t, buy.Commission.Equal(decimal.NewFromFloat(-3.5)))
	assert.Equal(t, "BBG000B9XRY4", buy.Figi())
	assert.Equal(t, "1", buy.SecondaryID)
	assert.Equal(t, time.UTC, buy.Date.Location())
	assert.Equal(t, 123456000, buy.Date.Nanosecond())

	sell := rows[1]
	assert.True(t, sell.Commission.IsZero())
	assert.True(t, sell.Total().Equal(decimal.NewFromInt(1200)))
}

func TestBuildOperations_CommissionNeedsExactDate(t *testing.T) {
	t1 := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	raw := []model.BrokerOperation{
		{Type: model.Buy, Date: t1, Status: model.Done, Payment: decimal.NewFromInt(-100), FIGI: "F", Quantity: 1},
		{Type: model.BrokerCommission, Date: t1.Add(time.Millisecond), Status: model.Done, Payment: decimal.NewFromInt(-1)},
	}

	rows := BuildOperations(1, raw)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Commission.IsZero())
}

func TestBuildOperations_IgnoresUnexecutedCommission(t *testing.T) {
	t1 := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	raw := []model.BrokerOperation{
		{Type: model.Buy, Date: t1, Status: model.Done, Payment: decimal.NewFromInt(-100), FIGI: "F", Quantity: 1},
		{Type: model.BrokerCommission, Date: t1, Status: model.Progress, Payment: decimal.NewFromInt(-1)},
	}

	rows := BuildOperations(1, raw)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Commission.IsZero())
}

func TestBuildOperations_WithoutInstrument(t *testing.T) {
	rows := BuildOperations(1, []model.BrokerOperation{
		{Type: model.PayIn, Date: time.Now(), Status: model.Done, Payment: decimal.NewFromInt(100), Currency: "RUB"},
	})

	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].FIGI)
	assert.Empty(t, rows[0].Figi())
}

func TestFIGIs(t *testing.T) {
	a, b := "A", "B"
	rows := []model.Operation{{FIGI: &a}, {}, {FIGI: &b}, {FIGI: &a}}

	assert.Equal(t, []string{"A", "B"}, FIGIs(rows))
}

func TestLots(t *testing.T) {
	assert.True(t, Lots(20, 10).Equal(decimal.NewFromInt(2)))
	assert.True(t, Lots(5, 0).Equal(decimal.NewFromInt(5)))
	assert.True(t, Lots(-15, 10).Equal(decimal.NewFromFloat(-1.5)))
}
