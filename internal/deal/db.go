package deal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// _netQuantity is the signed BUY/SELL quantity of deal members, open iff non zero.
const _netQuantity = `SUM(CASE
								WHEN o.type IN ('Buy', 'BuyCard') THEN o.quantity
								WHEN o.type = 'Sell' THEN -o.quantity
								ELSE 0
							END)`

const (
	_queryOpenDeal = `SELECT d.id, d.account_id, d.figi
							FROM deals d
							JOIN operations o ON o.deal_id = d.id
							WHERE d.account_id = $1 AND d.figi = $2
							GROUP BY d.id
							HAVING ` + _netQuantity + ` <> 0
							ORDER BY MIN(o.date) DESC, d.id DESC
							LIMIT 1`
	_queryLatestDeal = `SELECT d.id, d.account_id, d.figi
							FROM deals d
							JOIN operations o ON o.deal_id = d.id
							WHERE d.account_id = $1 AND d.figi = $2
							GROUP BY d.id
							ORDER BY MIN(o.date) DESC, d.id DESC
							LIMIT 1`
	_insertDeal       = "INSERT INTO deals (account_id, figi) VALUES ($1, $2) RETURNING id, account_id, figi"
	_attachOperation  = "UPDATE operations SET deal_id = $1 WHERE id = $2 AND deal_id IS NULL"
	_operationColumns = `o.id, o.account_id, o.type, o.date, o.status, o.payment, o.commission, o.currency,
								o.figi, o.instrument_type, o.quantity, o.secondary_id, o.is_margin_call, o.deal_id`
	_queryUnclassified = `SELECT ` + _operationColumns + `
							FROM operations o
							WHERE o.account_id = $1
								AND o.deal_id IS NULL
								AND o.figi IS NOT NULL
								AND o.type = ANY($2)
								AND o.date >= $3 AND o.date <= $4
							ORDER BY o.date, o.id`
	_querySummaries = `SELECT d.id, d.account_id, d.figi,
								MIN(o.date) AS earliest_operation_date,
								MAX(o.date) AS latest_operation_date,
								` + _netQuantity + ` AS net_quantity,
								SUM(o.payment + o.commission) AS profit,
								MAX(o.currency) AS currency,
								i.name AS instrument_name,
								i.ticker AS ticker
							FROM deals d
							JOIN operations o ON o.deal_id = d.id
							LEFT JOIN instruments i ON i.figi = d.figi
							WHERE d.account_id = $1 AND ($2 = '' OR d.figi = $2)
							GROUP BY d.id, i.name, i.ticker
							ORDER BY earliest_operation_date DESC, d.id DESC`
	_queryDeals       = "SELECT id, account_id, figi FROM deals WHERE account_id = $1 ORDER BY id"
	_queryDealMembers = `SELECT ` + _operationColumns + `
							FROM operations o
							WHERE o.account_id = $1 AND o.deal_id IS NOT NULL
							ORDER BY o.date, o.id`
)

// txStore is the Store of one classification transaction.
type txStore struct {
	tx *sqlx.Tx
}

func (s txStore) OpenDeal(ctx context.Context, accountID int64, figi string) (model.Deal, bool, error) {
	return getDeal(ctx, s.tx, _queryOpenDeal, accountID, figi)
}

func (s txStore) LatestDeal(ctx context.Context, accountID int64, figi string) (model.Deal, bool, error) {
	return getDeal(ctx, s.tx, _queryLatestDeal, accountID, figi)
}

func (s txStore) CreateDeal(ctx context.Context, accountID int64, figi string) (model.Deal, error) {
	var d model.Deal
	if err := s.tx.GetContext(ctx, &d, _insertDeal, accountID, figi); err != nil {
		return model.Deal{}, fmt.Errorf("%w: can't insert deal", err)
	}
	return d, nil
}

func (s txStore) Attach(ctx context.Context, dealID, operationID int64) (bool, error) {
	res, err := s.tx.ExecContext(ctx, _attachOperation, dealID, operationID)
	if err != nil {
		return false, fmt.Errorf("%w: can't update operation deal", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: can't count attached operations", err)
	}
	return n > 0, nil
}

func getDeal(ctx context.Context, q sqlx.QueryerContext, query string, accountID int64, figi string) (model.Deal, bool, error) {
	var d model.Deal
	if err := sqlx.GetContext(ctx, q, &d, query, accountID, figi); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Deal{}, false, nil
		}
		return model.Deal{}, false, fmt.Errorf("%w: can't query deal", err)
	}
	return d, true, nil
}

func selectUnclassified(ctx context.Context, q sqlx.QueryerContext, accountID int64, from, to time.Time) ([]model.Operation, error) {
	ops := make([]model.Operation, 0)
	if err := sqlx.SelectContext(ctx, q, &ops, _queryUnclassified,
		accountID, pq.Array(model.TypeNames(model.DealTypes)), from, to); err != nil {
		return nil, fmt.Errorf("%w: can't query unclassified operations", err)
	}
	return ops, nil
}

func selectSummaries(ctx context.Context, q sqlx.QueryerContext, accountID int64, figi string) ([]model.DealSummary, error) {
	deals := make([]model.DealSummary, 0)
	if err := sqlx.SelectContext(ctx, q, &deals, _querySummaries, accountID, figi); err != nil {
		return nil, fmt.Errorf("%w: can't query deals", err)
	}
	return deals, nil
}

func selectDealOperations(ctx context.Context, q sqlx.QueryerContext, accountID int64) ([]model.DealOperations, error) {
	var deals []model.Deal
	if err := sqlx.SelectContext(ctx, q, &deals, _queryDeals, accountID); err != nil {
		return nil, fmt.Errorf("%w: can't query deals", err)
	}
	var members []model.Operation
	if err := sqlx.SelectContext(ctx, q, &members, _queryDealMembers, accountID); err != nil {
		return nil, fmt.Errorf("%w: can't query deal operations", err)
	}

	byDeal := make(map[int64][]model.Operation, len(deals))
	for _, op := range members {
		byDeal[*op.DealID] = append(byDeal[*op.DealID], op)
	}

	res := make([]model.DealOperations, 0, len(deals))
	for _, d := range deals {
		ops, ok := byDeal[d.ID]
		if !ok {
			continue
		}
		res = append(res, model.DealOperations{Deal: d, Operations: ops})
	}
	return res, nil
}
