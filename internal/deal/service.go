package deal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Service struct {
	db         *sqlx.DB
	reconciler *Reconciler
	logger     logger.Logger
}

func NewService(db *sqlx.DB, logger logger.Logger) *Service {
	return &Service{
		db:         db,
		reconciler: NewReconciler(logger),
		logger:     logger,
	}
}

// Classify attaches the unclassified deal operations of [from, to] in one
// transaction. On a ReconciliationError nothing of the window is attached.
func (s *Service) Classify(ctx context.Context, accountID int64, from, to time.Time) (int, error) {
	var attached int
	err := postgres.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		ops, err := selectUnclassified(ctx, tx, accountID, from, to)
		if err != nil {
			return err
		}
		attached, err = s.reconciler.Reconcile(ctx, txStore{tx: tx}, from, to, ops)
		return err
	})
	if err != nil {
		var recErr *ReconciliationError
		if errors.As(err, &recErr) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: can't classify operations", err)
	}

	s.logger.Infof("attached %d operations to deals for account %d", attached, accountID)
	return attached, nil
}

// Summaries lists the account deals, newest first. Profit is reported for
// closed deals only.
func (s *Service) Summaries(ctx context.Context, accountID int64, figi string) ([]model.DealSummary, error) {
	deals, err := selectSummaries(ctx, s.db, accountID, figi)
	if err != nil {
		return nil, err
	}
	for i := range deals {
		if deals[i].IsOpen() {
			deals[i].Profit = decimal.Zero
		}
	}
	return deals, nil
}

// WithOperations lists every deal of the account with its member operations.
func (s *Service) WithOperations(ctx context.Context, accountID int64) ([]model.DealOperations, error) {
	return selectDealOperations(ctx, s.db, accountID)
}

func (s *Service) OpenDeals(ctx context.Context, accountID int64) ([]model.DealOperations, error) {
	return s.filter(ctx, accountID, true)
}

func (s *Service) ClosedDeals(ctx context.Context, accountID int64) ([]model.DealOperations, error) {
	return s.filter(ctx, accountID, false)
}

func (s *Service) filter(ctx context.Context, accountID int64, open bool) ([]model.DealOperations, error) {
	deals, err := selectDealOperations(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	res := make([]model.DealOperations, 0, len(deals))
	for _, d := range deals {
		if d.IsOpen() == open {
			res = append(res, d)
		}
	}
	return res, nil
}
