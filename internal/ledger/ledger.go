package ledger

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// _batchSize keeps one insert below the postgres bind parameter limit.
const _batchSize = 1000

type Ledger struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewLedger(db *sqlx.DB, logger logger.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: logger,
	}
}

// Ingest stores rows built from raw in one transaction and returns how many
// were new. Rows already known by (type, date, account) are skipped by the
// unique constraint.
func (l *Ledger) Ingest(ctx context.Context, accountID int64, raw []model.BrokerOperation) (int64, error) {
	rows := BuildOperations(accountID, raw)
	if len(rows) == 0 {
		return 0, nil
	}

	var inserted int64
	err := postgres.WithTx(ctx, l.db, func(tx *sqlx.Tx) error {
		for start := 0; start < len(rows); start += _batchSize {
			end := min(start+_batchSize, len(rows))
			n, err := insertOperations(ctx, tx, rows[start:end])
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: can't ingest operations", err)
	}

	l.logger.Infof("ingested %d of %d operations for account %d", inserted, len(rows), accountID)
	return inserted, nil
}

// Operations lists the account operations newest first with lots computed.
func (l *Ledger) Operations(ctx context.Context, accountID int64, figi string) ([]model.OperationView, error) {
	ops, err := selectOperations(ctx, l.db, accountID, figi)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		ops[i].Lots = Lots(ops[i].Quantity, ops[i].Lot)
	}
	return ops, nil
}

// Capital sums payments of deposits, withdrawals and service commissions.
func (l *Ledger) Capital(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return sumCapital(ctx, l.db, accountID)
}
