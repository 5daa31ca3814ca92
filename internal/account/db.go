package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const (
	_queryAccount  = "SELECT id, name, creator_id, token, broker_account_id, is_sandbox, last_synced_at FROM accounts WHERE id = $1"
	_insertAccount = `INSERT INTO accounts (
								name, creator_id, token, broker_account_id, is_sandbox, last_synced_at
							) VALUES ($1,$2,$3,$4,$5,$6)
							RETURNING id, name, creator_id, token, broker_account_id, is_sandbox, last_synced_at`
	_advanceAccount = "UPDATE accounts SET last_synced_at = $1 WHERE id = $2 AND last_synced_at = $3"

	_queryCoOwners = "SELECT id, account_id, person_id, capital, default_share FROM co_owners WHERE account_id = $1 ORDER BY id"
	_insertCoOwner = `INSERT INTO co_owners (
								account_id, person_id, capital, default_share
							) VALUES ($1,$2,$3,$4)
							RETURNING id, account_id, person_id, capital, default_share`
	_updateShare   = "UPDATE co_owners SET default_share = $1 WHERE account_id = $2 AND person_id = $3"
	_updateCapital = "UPDATE co_owners SET capital = $1 WHERE account_id = $2 AND person_id = $3"
)

// Store is the postgres side of accounts and co-owners.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, accountID int64) (model.Account, error) {
	var acc model.Account
	if err := s.db.GetContext(ctx, &acc, _queryAccount, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("%w: %d", ErrAccountNotFound, accountID)
		}
		return model.Account{}, fmt.Errorf("%w: can't query account", err)
	}
	return acc, nil
}

func (s *Store) Advance(ctx context.Context, accountID int64, prev, next time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, _advanceAccount, next, accountID, prev)
	if err != nil {
		return false, fmt.Errorf("%w: can't advance last_synced_at", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: can't count advanced accounts", err)
	}
	return n > 0, nil
}

// insertWithCreator stores the account and its creator co-owner in one
// transaction.
func (s *Store) insertWithCreator(ctx context.Context, acc model.Account, share decimal.Decimal) (model.Account, model.CoOwner, error) {
	var (
		created model.Account
		creator model.CoOwner
	)
	err := postgres.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &created, _insertAccount,
			acc.Name, acc.CreatorID, acc.Token, acc.BrokerAccountID, acc.IsSandbox, acc.LastSyncedAt,
		); err != nil {
			if postgres.IsUniqueViolation(err) {
				return ErrAccountExists
			}
			return fmt.Errorf("%w: can't insert account", err)
		}
		if err := tx.GetContext(ctx, &creator, _insertCoOwner,
			created.ID, created.CreatorID, decimal.Zero, share,
		); err != nil {
			return fmt.Errorf("%w: can't insert creator co-owner", err)
		}
		return nil
	})
	return created, creator, err
}

func (s *Store) CoOwners(ctx context.Context, accountID int64) ([]model.CoOwner, error) {
	coOwners := make([]model.CoOwner, 0)
	if err := s.db.SelectContext(ctx, &coOwners, _queryCoOwners, accountID); err != nil {
		return nil, fmt.Errorf("%w: can't query co-owners", err)
	}
	return coOwners, nil
}

func (s *Store) insertCoOwner(ctx context.Context, accountID, personID int64, share decimal.Decimal) (model.CoOwner, error) {
	var c model.CoOwner
	if err := s.db.GetContext(ctx, &c, _insertCoOwner, accountID, personID, decimal.Zero, share); err != nil {
		if postgres.IsUniqueViolation(err) {
			return model.CoOwner{}, ErrCoOwnerExists
		}
		return model.CoOwner{}, fmt.Errorf("%w: can't insert co-owner", err)
	}
	return c, nil
}

func (s *Store) updateCoOwner(ctx context.Context, query string, value decimal.Decimal, accountID, personID int64) error {
	res, err := s.db.ExecContext(ctx, query, value, accountID, personID)
	if err != nil {
		return fmt.Errorf("%w: can't update co-owner", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: can't count updated co-owners", err)
	}
	if n == 0 {
		return ErrCoOwnerNotFound
	}
	return nil
}
