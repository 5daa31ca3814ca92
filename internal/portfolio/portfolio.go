// Package portfolio keeps the cached currency positions of an account in line
// with the broker.
package portfolio

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/postgres"
	"github.com/jmoiron/sqlx"
)

type Portfolio struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewPortfolio(db *sqlx.DB, logger logger.Logger) *Portfolio {
	return &Portfolio{
		db:     db,
		logger: logger,
	}
}

// ReconcileCurrencies makes the cached currency assets of the account equal
// to balances: currencies the broker no longer reports are deleted, the rest
// are overwritten.
func (p *Portfolio) ReconcileCurrencies(ctx context.Context, accountID int64, balances []model.CurrencyBalance) error {
	latest := make(map[string]model.CurrencyBalance, len(balances))
	for _, b := range balances {
		latest[b.Currency] = b
	}

	currencies := make([]string, 0, len(latest))
	for c := range latest {
		currencies = append(currencies, c)
	}

	err := postgres.WithTx(ctx, p.db, func(tx *sqlx.Tx) error {
		if err := deleteAbsent(ctx, tx, accountID, currencies); err != nil {
			return err
		}
		for _, b := range latest {
			if err := upsertCurrency(ctx, tx, accountID, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: can't reconcile currencies", err)
	}

	p.logger.Debugf("reconciled %d currencies for account %d", len(latest), accountID)
	return nil
}

func (p *Portfolio) Currencies(ctx context.Context, accountID int64) ([]model.CurrencyAsset, error) {
	return selectCurrencies(ctx, p.db, accountID)
}
