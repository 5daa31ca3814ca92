// Package deal folds ledger operations into per-instrument deal lifecycles.
package deal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
)

// Store is the deal state the reconciler reads and appends to. Open and
// closed are derived from membership, the reconciler never closes a deal.
type Store interface {
	// OpenDeal returns the deal of the instrument whose BUY/SELL members don't net to zero.
	OpenDeal(ctx context.Context, accountID int64, figi string) (model.Deal, bool, error)
	// LatestDeal returns the deal of the instrument opened last, open or closed.
	LatestDeal(ctx context.Context, accountID int64, figi string) (model.Deal, bool, error)
	CreateDeal(ctx context.Context, accountID int64, figi string) (model.Deal, error)
	// Attach links an operation to a deal unless it is already linked.
	Attach(ctx context.Context, dealID, operationID int64) (bool, error)
}

type Reconciler struct {
	logger logger.Logger
}

func NewReconciler(logger logger.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile attaches ops to deals in ascending date order and returns how many
// were attached. from and to only annotate errors.
func (r *Reconciler) Reconcile(ctx context.Context, store Store, from, to time.Time, ops []model.Operation) (int, error) {
	sorted := slices.Clone(ops)
	slices.SortStableFunc(sorted, func(a, b model.Operation) int {
		return a.Date.Compare(b.Date)
	})

	attached := 0
	for _, op := range sorted {
		if op.DealID != nil || !op.Type.IsDealType() || op.Figi() == "" {
			continue
		}

		d, err := r.dealFor(ctx, store, op)
		if err != nil {
			return attached, r.wrap(err, op, from, to)
		}

		ok, err := store.Attach(ctx, d.ID, op.ID)
		if err != nil {
			return attached, fmt.Errorf("%w: can't attach operation %d to deal %d", err, op.ID, d.ID)
		}
		if ok {
			attached++
		}
	}

	return attached, nil
}

var (
	errNoOpenDeal = errors.New("no open deal")
	errNoDeal     = errors.New("no deal for instrument")
)

func (r *Reconciler) dealFor(ctx context.Context, store Store, op model.Operation) (model.Deal, error) {
	figi := op.Figi()

	switch {
	case op.Type.IsBuy():
		d, ok, err := store.OpenDeal(ctx, op.AccountID, figi)
		if err != nil {
			return model.Deal{}, err
		}
		if ok {
			return d, nil
		}
		d, err = store.CreateDeal(ctx, op.AccountID, figi)
		if err != nil {
			return model.Deal{}, err
		}
		r.logger.Debugf("opened deal %d for %s", d.ID, figi)
		return d, nil
	case op.Type.IsSell():
		d, ok, err := store.OpenDeal(ctx, op.AccountID, figi)
		if err != nil {
			return model.Deal{}, err
		}
		if !ok {
			return model.Deal{}, errNoOpenDeal
		}
		return d, nil
	default:
		d, ok, err := store.LatestDeal(ctx, op.AccountID, figi)
		if err != nil {
			return model.Deal{}, err
		}
		if !ok {
			return model.Deal{}, errNoDeal
		}
		return d, nil
	}
}

func (r *Reconciler) wrap(err error, op model.Operation, from, to time.Time) error {
	if !errors.Is(err, errNoOpenDeal) && !errors.Is(err, errNoDeal) {
		return fmt.Errorf("%w: can't find deal for operation %d", err, op.ID)
	}
	return &ReconciliationError{
		AccountID:   op.AccountID,
		FIGI:        op.Figi(),
		Type:        op.Type,
		Date:        op.Date,
		SecondaryID: op.SecondaryID,
		From:        from,
		To:          to,
		Reason:      err.Error(),
	}
}
