// Package instrument keeps the instrument metadata used by listings and lot
// calculations.
package instrument

import (
	"context"
	"errors"
	"fmt"

	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/postgres"
	"github.com/jmoiron/sqlx"
)

// Lookup resolves a single instrument, broker.Client satisfies it.
type Lookup interface {
	Instrument(ctx context.Context, figi string) (model.Instrument, error)
}

// Lister returns whole broker catalogs.
type Lister interface {
	Catalog(ctx context.Context, types ...model.InstrumentType) ([]model.Instrument, error)
}

type Catalog struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewCatalog(db *sqlx.DB, logger logger.Logger) *Catalog {
	return &Catalog{
		db:     db,
		logger: logger,
	}
}

// Ensure stores metadata for every figi the catalog does not know yet. A figi
// the broker can't resolve is stored with lot 1 so listings still work.
func (c *Catalog) Ensure(ctx context.Context, lookup Lookup, figis []string) error {
	if len(figis) == 0 {
		return nil
	}

	known, err := selectKnown(ctx, c.db, figis)
	if err != nil {
		return err
	}

	missing := make([]model.Instrument, 0)
	for _, figi := range figis {
		if _, ok := known[figi]; ok {
			continue
		}
		i, err := lookup.Instrument(ctx, figi)
		switch {
		case errors.Is(err, broker.ErrInstrumentNotFound):
			c.logger.Warnf("instrument %s is unknown to broker, storing placeholder", figi)
			i = model.Instrument{FIGI: figi, Lot: 1}
		case err != nil:
			return fmt.Errorf("%w: can't resolve instrument %s", err, figi)
		}
		known[figi] = struct{}{}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return nil
	}
	return postgres.WithTx(ctx, c.db, func(tx *sqlx.Tx) error {
		return upsertInstruments(ctx, tx, missing)
	})
}

// Refresh reloads the broker catalogs of the given types and returns how many
// instruments were written.
func (c *Catalog) Refresh(ctx context.Context, lister Lister, types ...model.InstrumentType) (int, error) {
	instruments, err := lister.Catalog(ctx, types...)
	if err != nil {
		return 0, fmt.Errorf("%w: can't load instrument catalog", err)
	}
	instruments = dedup(instruments)
	if len(instruments) == 0 {
		return 0, nil
	}

	err = postgres.WithTx(ctx, c.db, func(tx *sqlx.Tx) error {
		for start := 0; start < len(instruments); start += _batchSize {
			end := min(start+_batchSize, len(instruments))
			if err := upsertInstruments(ctx, tx, instruments[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.Infof("refreshed %d instruments", len(instruments))
	return len(instruments), nil
}

func (c *Catalog) Get(ctx context.Context, figi string) (model.Instrument, error) {
	return selectInstrument(ctx, c.db, figi)
}

// dedup keeps the last instrument of every figi, one upsert statement can't
// touch a row twice.
func dedup(instruments []model.Instrument) []model.Instrument {
	index := make(map[string]int, len(instruments))
	res := make([]model.Instrument, 0, len(instruments))
	for _, i := range instruments {
		if i.FIGI == "" {
			continue
		}
		if n, ok := index[i.FIGI]; ok {
			res[n] = i
			continue
		}
		index[i.FIGI] = len(res)
		res = append(res, i)
	}
	return res
}
