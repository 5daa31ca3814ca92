package portfolio

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	_queryCurrencies = "SELECT account_id, currency, value FROM currency_assets WHERE account_id = $1 ORDER BY currency"
	_deleteAbsent    = "DELETE FROM currency_assets WHERE account_id = $1 AND NOT (currency = ANY($2))"
	_upsertCurrency  = `INSERT INTO currency_assets (
								account_id, currency, value
							) VALUES ($1,$2,$3)
							ON CONFLICT ON CONSTRAINT currency_asset_account
							DO UPDATE SET
								value = EXCLUDED.value;`
)

func selectCurrencies(ctx context.Context, db sqlx.QueryerContext, accountID int64) ([]model.CurrencyAsset, error) {
	assets := make([]model.CurrencyAsset, 0)
	if err := sqlx.SelectContext(ctx, db, &assets, _queryCurrencies, accountID); err != nil {
		return nil, fmt.Errorf("%w: can't query currency assets", err)
	}
	return assets, nil
}

func deleteAbsent(ctx context.Context, tx *sqlx.Tx, accountID int64, currencies []string) error {
	if _, err := tx.ExecContext(ctx, _deleteAbsent, accountID, pq.Array(currencies)); err != nil {
		return fmt.Errorf("%w: can't delete stale currency assets", err)
	}
	return nil
}

func upsertCurrency(ctx context.Context, tx *sqlx.Tx, accountID int64, b model.CurrencyBalance) error {
	if _, err := tx.ExecContext(ctx, _upsertCurrency, accountID, b.Currency, b.Balance); err != nil {
		return fmt.Errorf("%w: can't update currency asset", err)
	}
	return nil
}
