package instrument

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const _batchSize = 2000

const (
	_queryKnown        = "SELECT figi FROM instruments WHERE figi = ANY($1)"
	_queryInstrument   = "SELECT figi, ticker, isin, name, lot, currency, instrument_type FROM instruments WHERE figi = $1"
	_upsertInstruments = `INSERT INTO instruments (
								figi,
								ticker,
								isin,
								name,
								lot,
								currency,
								instrument_type
							) VALUES (
								:figi,
								:ticker,
								:isin,
								:name,
								:lot,
								:currency,
								:instrument_type
							)
							ON CONFLICT (figi)
							DO UPDATE SET
								ticker = EXCLUDED.ticker,
								isin = EXCLUDED.isin,
								name = EXCLUDED.name,
								lot = EXCLUDED.lot,
								currency = EXCLUDED.currency,
								instrument_type = EXCLUDED.instrument_type`
)

func selectKnown(ctx context.Context, db sqlx.QueryerContext, figis []string) (map[string]struct{}, error) {
	var rows []string
	if err := sqlx.SelectContext(ctx, db, &rows, _queryKnown, pq.StringArray(figis)); err != nil {
		return nil, fmt.Errorf("%w: can't query known instruments", err)
	}
	known := make(map[string]struct{}, len(rows))
	for _, f := range rows {
		known[f] = struct{}{}
	}
	return known, nil
}

func selectInstrument(ctx context.Context, db sqlx.QueryerContext, figi string) (model.Instrument, error) {
	var i model.Instrument
	if err := sqlx.GetContext(ctx, db, &i, _queryInstrument, figi); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Instrument{}, broker.ErrInstrumentNotFound
		}
		return model.Instrument{}, fmt.Errorf("%w: can't query instrument", err)
	}
	return i, nil
}

func upsertInstruments(ctx context.Context, tx *sqlx.Tx, instruments []model.Instrument) error {
	if _, err := tx.NamedExecContext(ctx, _upsertInstruments, instruments); err != nil {
		return fmt.Errorf("%w: can't upsert instruments", err)
	}
	return nil
}
