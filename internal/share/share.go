// Package share snapshots co-owner ownership onto ledger operations.
package share

import (
	"context"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// AllocationInconsistency is logged when the shares of an operation differ
// from the co-owner snapshot they were allocated from: a missing row or a
// different total. It is never returned from Allocate.
type AllocationInconsistency struct {
	OperationID  int64
	Rows         int
	Sum          decimal.Decimal
	ExpectedRows int
	ExpectedSum  decimal.Decimal
}

func (e *AllocationInconsistency) Error() string {
	return fmt.Sprintf("operation %d has %d shares summing to %s, co-owners expect %d summing to %s",
		e.OperationID, e.Rows, e.Sum, e.ExpectedRows, e.ExpectedSum)
}

// BuildShares gives every operation one share per co-owner, taken from the
// co-owner's current default share.
func BuildShares(operationIDs []int64, coOwners []model.CoOwner) []model.Share {
	shares := make([]model.Share, 0, len(operationIDs)*len(coOwners))
	for _, opID := range operationIDs {
		for _, c := range coOwners {
			shares = append(shares, model.Share{
				OperationID: opID,
				CoOwnerID:   c.ID,
				Share:       c.DefaultShare,
			})
		}
	}
	return shares
}

// Audit compares the shares of every operation with the co-owners they were
// built from. The expected total is the sum of default shares, which is not
// necessarily 100. Operations absent from sums have no shares at all.
func Audit(operationIDs []int64, sums []model.ShareSum, coOwners []model.CoOwner) []*AllocationInconsistency {
	expectedSum := decimal.Zero
	for _, c := range coOwners {
		expectedSum = expectedSum.Add(c.DefaultShare)
	}

	byOperation := make(map[int64]model.ShareSum, len(sums))
	for _, s := range sums {
		byOperation[s.OperationID] = s
	}

	var res []*AllocationInconsistency
	for _, opID := range operationIDs {
		s, ok := byOperation[opID]
		if !ok {
			s = model.ShareSum{OperationID: opID, Sum: decimal.Zero}
		}
		if s.Rows != len(coOwners) || !s.Sum.Equal(expectedSum) {
			res = append(res, &AllocationInconsistency{
				OperationID:  opID,
				Rows:         s.Rows,
				Sum:          s.Sum,
				ExpectedRows: len(coOwners),
				ExpectedSum:  expectedSum,
			})
		}
	}
	return res
}

type Allocator struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewAllocator(db *sqlx.DB, logger logger.Logger) *Allocator {
	return &Allocator{
		db:     db,
		logger: logger,
	}
}

// Allocate snapshots the current co-owner shares onto deal operations of
// [from, to] that have no shares yet and returns the number of rows written.
// Existing shares are never changed. The written shares are audited in the
// same transaction and inconsistencies are only logged.
func (a *Allocator) Allocate(ctx context.Context, accountID int64, from, to time.Time) (int64, error) {
	var (
		inserted int64
		incs     []*AllocationInconsistency
	)
	err := postgres.WithTx(ctx, a.db, func(tx *sqlx.Tx) error {
		coOwners, err := selectCoOwners(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if len(coOwners) == 0 {
			return nil
		}

		opIDs, err := selectCandidates(ctx, tx, accountID, from, to)
		if err != nil {
			return err
		}
		if len(opIDs) == 0 {
			return nil
		}

		shares := BuildShares(opIDs, coOwners)
		for start := 0; start < len(shares); start += _batchSize {
			end := min(start+_batchSize, len(shares))
			n, err := insertShares(ctx, tx, shares[start:end])
			if err != nil {
				return err
			}
			inserted += n
		}

		sums, err := selectSums(ctx, tx, _querySumsByOperations, pq.Array(opIDs))
		if err != nil {
			return err
		}
		incs = Audit(opIDs, sums, coOwners)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: can't allocate shares", err)
	}

	for _, inc := range incs {
		a.logger.Warnf("%v", inc)
	}
	return inserted, nil
}

// Sums lists raw share totals of the account operations, unnormalized.
func (a *Allocator) Sums(ctx context.Context, accountID int64) ([]model.ShareSum, error) {
	return selectSums(ctx, a.db, _querySumsByAccount, accountID)
}
