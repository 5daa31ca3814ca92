package share

import (
	"context"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const _batchSize = 10000

const (
	_queryCoOwners   = "SELECT id, account_id, person_id, capital, default_share FROM co_owners WHERE account_id = $1 ORDER BY id"
	_queryCandidates = `SELECT o.id
							FROM operations o
							WHERE o.account_id = $1
								AND o.type = ANY($2)
								AND o.date >= $3 AND o.date <= $4
								AND NOT EXISTS (SELECT 1 FROM shares s WHERE s.operation_id = o.id)
							ORDER BY o.date, o.id`
	_insertShares = `INSERT INTO shares (operation_id, co_owner_id, share)
							VALUES (:operation_id, :co_owner_id, :share)
							ON CONFLICT (operation_id, co_owner_id) DO NOTHING`
	_querySumsByOperations = `SELECT operation_id, COUNT(*) AS rows, SUM(share) AS sum
							FROM shares
							WHERE operation_id = ANY($1)
							GROUP BY operation_id
							ORDER BY operation_id`
	_querySumsByAccount = `SELECT s.operation_id, COUNT(*) AS rows, SUM(s.share) AS sum
							FROM shares s
							JOIN operations o ON o.id = s.operation_id
							WHERE o.account_id = $1
							GROUP BY s.operation_id
							ORDER BY s.operation_id`
)

func selectCoOwners(ctx context.Context, q sqlx.QueryerContext, accountID int64) ([]model.CoOwner, error) {
	var coOwners []model.CoOwner
	if err := sqlx.SelectContext(ctx, q, &coOwners, _queryCoOwners, accountID); err != nil {
		return nil, fmt.Errorf("%w: can't query co-owners", err)
	}
	return coOwners, nil
}

func selectCandidates(ctx context.Context, q sqlx.QueryerContext, accountID int64, from, to time.Time) ([]int64, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, q, &ids, _queryCandidates,
		accountID, pq.Array(model.TypeNames(model.DealTypes)), from, to); err != nil {
		return nil, fmt.Errorf("%w: can't query operations without shares", err)
	}
	return ids, nil
}

func insertShares(ctx context.Context, tx *sqlx.Tx, shares []model.Share) (int64, error) {
	res, err := tx.NamedExecContext(ctx, _insertShares, shares)
	if err != nil {
		return 0, fmt.Errorf("%w: can't insert shares", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: can't count inserted shares", err)
	}
	return n, nil
}

func selectSums(ctx context.Context, q sqlx.QueryerContext, query string, arg any) ([]model.ShareSum, error) {
	sums := make([]model.ShareSum, 0)
	if err := sqlx.SelectContext(ctx, q, &sums, query, arg); err != nil {
		return nil, fmt.Errorf("%w: can't query share sums", err)
	}
	return sums, nil
}
