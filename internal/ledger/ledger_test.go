package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewLedger(sqlx.NewDb(raw, "postgres"), logger.NewNop()), mock
}

func sampleBatch() []model.BrokerOperation {
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []model.BrokerOperation{
		{ID: "1", Type: model.PayIn, Date: date, Status: model.Done, Payment: decimal.NewFromInt(10000), Currency: "RUB"},
		{ID: "2", Type: model.Buy, Date: date.Add(time.Minute), Status: model.Done, Payment: decimal.NewFromInt(-5000), Currency: "RUB", FIGI: "F", Quantity: 10},
	}
}

func TestLedger_Ingest(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO operations").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := l.Ingest(context.Background(), 1, sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_IngestRepeatedBatchAddsNothing(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectExec("ON CONFLICT \\(type, date, account_id\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := l.Ingest(context.Background(), 1, sampleBatch())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_IngestRollsBack(t *testing.T) {
	l, mock := newMockLedger(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO operations").WillReturnError(boom)
	mock.ExpectRollback()

	_, err := l.Ingest(context.Background(), 1, sampleBatch())
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_IngestEmpty(t *testing.T) {
	l, mock := newMockLedger(t)

	n, err := l.Ingest(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Operations(t *testing.T) {
	l, mock := newMockLedger(t)
	date := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "account_id", "type", "date", "status", "payment", "commission", "currency",
		"figi", "instrument_type", "quantity", "secondary_id", "is_margin_call", "deal_id",
		"instrument_name", "ticker", "lot",
	}).AddRow(5, 1, "Buy", date, "Done", "-5000", "-2.5", "RUB",
		"F", "Stock", 20, "2", false, 3,
		"Foo", "FOO", 10)
	mock.ExpectQuery("FROM operations o").WithArgs(int64(1), "F").WillReturnRows(rows)

	ops, err := l.Operations(context.Background(), 1, "F")
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, model.Buy, ops[0].Type)
	assert.True(t, ops[0].Total().Equal(decimal.NewFromFloat(-5002.5)))
	assert.True(t, ops[0].Lots.Equal(decimal.NewFromInt(2)))
	require.NotNil(t, ops[0].DealID)
	assert.Equal(t, int64(3), *ops[0].DealID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Capital(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(payment\\), 0\\)").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("15000.5"))

	capital, err := l.Capital(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, capital.Equal(decimal.NewFromFloat(15000.5)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
