package ledger

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	_insertOperations = `INSERT INTO operations (
								account_id,
								type,
								date,
								status,
								payment,
								commission,
								currency,
								figi,
								instrument_type,
								quantity,
								secondary_id,
								is_margin_call
							) VALUES (
								:account_id,
								:type,
								:date,
								:status,
								:payment,
								:commission,
								:currency,
								:figi,
								:instrument_type,
								:quantity,
								:secondary_id,
								:is_margin_call
							)
							ON CONFLICT (type, date, account_id) DO NOTHING`
	_operationColumns = `o.id, o.account_id, o.type, o.date, o.status, o.payment, o.commission, o.currency,
								o.figi, o.instrument_type, o.quantity, o.secondary_id, o.is_margin_call, o.deal_id`
	_queryOperations = `SELECT ` + _operationColumns + `,
								i.name AS instrument_name,
								i.ticker AS ticker,
								COALESCE(i.lot, 1) AS lot
							FROM operations o
							LEFT JOIN instruments i ON i.figi = o.figi
							WHERE o.account_id = $1 AND ($2 = '' OR o.figi = $2)
							ORDER BY o.date DESC, o.id DESC`
	_queryCapital = `SELECT COALESCE(SUM(payment), 0)
							FROM operations
							WHERE account_id = $1 AND type = ANY($2)`
)

func insertOperations(ctx context.Context, tx *sqlx.Tx, rows []model.Operation) (int64, error) {
	res, err := tx.NamedExecContext(ctx, _insertOperations, rows)
	if err != nil {
		return 0, fmt.Errorf("%w: can't insert operations", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: can't count inserted operations", err)
	}
	return n, nil
}

func selectOperations(ctx context.Context, db sqlx.QueryerContext, accountID int64, figi string) ([]model.OperationView, error) {
	ops := make([]model.OperationView, 0)
	if err := sqlx.SelectContext(ctx, db, &ops, _queryOperations, accountID, figi); err != nil {
		return nil, fmt.Errorf("%w: can't query operations", err)
	}
	return ops, nil
}

func sumCapital(ctx context.Context, db sqlx.QueryerContext, accountID int64) (decimal.Decimal, error) {
	var capital decimal.Decimal
	if err := sqlx.GetContext(ctx, db, &capital, _queryCapital, accountID, pq.Array(model.TypeNames(model.CapitalTypes))); err != nil {
		return decimal.Zero, fmt.Errorf("%w: can't sum account capital", err)
	}
	return capital, nil
}

// Lots converts a quantity of units into instrument lots.
func Lots(quantity, lot int64) decimal.Decimal {
	if lot <= 0 {
		lot = 1
	}
	return decimal.NewFromInt(quantity).Div(decimal.NewFromInt(lot))
}
