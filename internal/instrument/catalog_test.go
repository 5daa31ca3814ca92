package instrument

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupFunc func(ctx context.Context, figi string) (model.Instrument, error)

func (f lookupFunc) Instrument(ctx context.Context, figi string) (model.Instrument, error) {
	return f(ctx, figi)
}

type listerFunc func(ctx context.Context, types ...model.InstrumentType) ([]model.Instrument, error)

func (f listerFunc) Catalog(ctx context.Context, types ...model.InstrumentType) ([]model.Instrument, error) {
	return f(ctx, types...)
}

func newMockCatalog(t *testing.T) (*Catalog, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return NewCatalog(sqlx.NewDb(raw, "postgres"), logger.NewNop()), mock
}

func TestCatalog_EnsureResolvesOnlyUnknown(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectQuery("SELECT figi FROM instruments").
		WillReturnRows(sqlmock.NewRows([]string{"figi"}).AddRow("KNOWN"))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO instruments").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	var asked []string
	lookup := lookupFunc(func(_ context.Context, figi string) (model.Instrument, error) {
		asked = append(asked, figi)
		if figi == "GONE" {
			return model.Instrument{}, broker.ErrInstrumentNotFound
		}
		return model.Instrument{FIGI: figi, Ticker: "NEW", Lot: 10}, nil
	})

	require.NoError(t, c.Ensure(context.Background(), lookup, []string{"KNOWN", "NEW", "GONE"}))
	assert.Equal(t, []string{"NEW", "GONE"}, asked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalog_EnsureAllKnown(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectQuery("SELECT figi FROM instruments").
		WillReturnRows(sqlmock.NewRows([]string{"figi"}).AddRow("A"))

	lookup := lookupFunc(func(context.Context, string) (model.Instrument, error) {
		t.Fatal("lookup must not be called")
		return model.Instrument{}, nil
	})

	require.NoError(t, c.Ensure(context.Background(), lookup, []string{"A"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalog_EnsureTransportError(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectQuery("SELECT figi FROM instruments").
		WillReturnRows(sqlmock.NewRows([]string{"figi"}))

	lookup := lookupFunc(func(context.Context, string) (model.Instrument, error) {
		return model.Instrument{}, &broker.TransportError{Op: "instrument", Err: errors.New("timeout")}
	})

	err := c.Ensure(context.Background(), lookup, []string{"A"})
	assert.True(t, broker.IsTransport(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalog_Refresh(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectBegin()
	mock.ExpectExec("ON CONFLICT \\(figi\\)").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	lister := listerFunc(func(_ context.Context, types ...model.InstrumentType) ([]model.Instrument, error) {
		assert.Equal(t, []model.InstrumentType{model.Share}, types)
		return []model.Instrument{
			{FIGI: "A", Lot: 1},
			{FIGI: "B", Lot: 10},
			{FIGI: "A", Lot: 100},
			{},
		}, nil
	})

	n, err := c.Refresh(context.Background(), lister, model.Share)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalog_GetUnknown(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectQuery("FROM instruments WHERE figi = \\$1").
		WillReturnRows(sqlmock.NewRows([]string{"figi"}))

	_, err := c.Get(context.Background(), "X")
	assert.ErrorIs(t, err, broker.ErrInstrumentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDedup(t *testing.T) {
	res := dedup([]model.Instrument{{FIGI: "A", Lot: 1}, {FIGI: "A", Lot: 5}, {FIGI: "B"}})

	require.Len(t, res, 2)
	assert.Equal(t, int64(5), res[0].Lot)
	assert.Equal(t, "B", res[1].FIGI)
}
