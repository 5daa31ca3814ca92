package share

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildShares(t *testing.T) {
	coOwners := []model.CoOwner{
		{ID: 1, DefaultShare: decimal.NewFromInt(70)},
		{ID: 2, DefaultShare: decimal.NewFromInt(30)},
	}

	shares := BuildShares([]int64{10, 11}, coOwners)
	require.Len(t, shares, 4)

	total := map[int64]decimal.Decimal{}
	for _, s := range shares {
		total[s.OperationID] = total[s.OperationID].Add(s.Share)
	}
	assert.True(t, total[10].Equal(decimal.NewFromInt(100)))
	assert.True(t, total[11].Equal(decimal.NewFromInt(100)))
	assert.Equal(t, model.Share{OperationID: 11, CoOwnerID: 2, Share: decimal.NewFromInt(30)}, shares[3])
}

func TestBuildShares_NoCoOwners(t *testing.T) {
	assert.Empty(t, BuildShares([]int64{1}, nil))
}

func TestAudit(t *testing.T) {
	coOwners := []model.CoOwner{
		{ID: 1, DefaultShare: decimal.NewFromInt(70)},
		{ID: 2, DefaultShare: decimal.NewFromInt(50)},
	}

	incs := Audit([]int64{1, 2, 3, 4}, []model.ShareSum{
		{OperationID: 1, Rows: 2, Sum: decimal.NewFromInt(120)},
		{OperationID: 2, Rows: 1, Sum: decimal.NewFromInt(70)},
		{OperationID: 3, Rows: 2, Sum: decimal.NewFromInt(100)},
	}, coOwners)

	require.Len(t, incs, 3)
	assert.Equal(t, int64(2), incs[0].OperationID)
	assert.Equal(t, 2, incs[0].ExpectedRows)
	assert.True(t, incs[0].ExpectedSum.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, int64(3), incs[1].OperationID)
	assert.Equal(t, int64(4), incs[2].OperationID)
	assert.Zero(t, incs[2].Rows)
	assert.Contains(t, incs[2].Error(), "operation 4 has 0 shares")
}

func TestAudit_SumAbove100IsConsistent(t *testing.T) {
	coOwners := []model.CoOwner{
		{ID: 1, DefaultShare: decimal.NewFromInt(100)},
		{ID: 2, DefaultShare: decimal.NewFromInt(20)},
	}

	incs := Audit([]int64{7}, []model.ShareSum{
		{OperationID: 7, Rows: 2, Sum: decimal.NewFromInt(120)},
	}, coOwners)
	assert.Empty(t, incs)
}

func newMockAllocator(t *testing.T) (*Allocator, sqlmock.Sqlmock, *observer.ObservedLogs) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	core, logs := observer.New(zapcore.WarnLevel)
	return NewAllocator(sqlx.NewDb(raw, "postgres"), logger.NewFromZap(zap.New(core))), mock, logs
}

var _coOwnerCols = []string{"id", "account_id", "person_id", "capital", "default_share"}

func TestAllocator_Allocate(t *testing.T) {
	a, mock, logs := newMockAllocator(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM co_owners").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(_coOwnerCols).
			AddRow(1, 1, 100, "1000", "60").
			AddRow(2, 1, 200, "0", "40"))
	mock.ExpectQuery("NOT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
	mock.ExpectExec("INSERT INTO shares").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectQuery("WHERE operation_id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"operation_id", "rows", "sum"}).
			AddRow(10, 2, "100").AddRow(11, 2, "100"))
	mock.ExpectCommit()

	n, err := a.Allocate(context.Background(), 1, from, from.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Zero(t, logs.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocator_AllocateSharesAbove100(t *testing.T) {
	a, mock, logs := newMockAllocator(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM co_owners").
		WillReturnRows(sqlmock.NewRows(_coOwnerCols).
			AddRow(1, 1, 100, "0", "100").
			AddRow(2, 1, 200, "0", "20"))
	mock.ExpectQuery("NOT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectExec("INSERT INTO shares").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("WHERE operation_id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"operation_id", "rows", "sum"}).AddRow(10, 2, "120"))
	mock.ExpectCommit()

	n, err := a.Allocate(context.Background(), 1, from, from.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, logs.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocator_AllocateWarnsOnMissingShare(t *testing.T) {
	a, mock, logs := newMockAllocator(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM co_owners").
		WillReturnRows(sqlmock.NewRows(_coOwnerCols).
			AddRow(1, 1, 100, "0", "60").
			AddRow(2, 1, 200, "0", "40"))
	mock.ExpectQuery("NOT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectExec("INSERT INTO shares").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("WHERE operation_id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"operation_id", "rows", "sum"}).AddRow(10, 1, "60"))
	mock.ExpectCommit()

	n, err := a.Allocate(context.Background(), 1, from, from.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "operation 10 has 1 shares summing to 60")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocator_AllocateNothingPending(t *testing.T) {
	a, mock, _ := newMockAllocator(t)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM co_owners").
		WillReturnRows(sqlmock.NewRows(_coOwnerCols).AddRow(1, 1, 100, "0", "100"))
	mock.ExpectQuery("NOT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	n, err := a.Allocate(context.Background(), 1, from, from.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocator_Sums(t *testing.T) {
	a, mock, _ := newMockAllocator(t)

	mock.ExpectQuery("JOIN operations o").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"operation_id", "rows", "sum"}).
			AddRow(5, 2, "100").AddRow(6, 3, "130"))

	sums, err := a.Sums(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, 3, sums[1].Rows)
	assert.True(t, sums[1].Sum.Equal(decimal.NewFromInt(130)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
