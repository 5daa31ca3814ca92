// Package account creates brokerage accounts and manages their co-owners.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/STTM-NSU/invest-ledger/internal/syncer"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrCoOwnerExists   = errors.New("co-owner already exists")
	ErrCoOwnerNotFound = errors.New("co-owner not found")
	ErrInvalidShare    = errors.New("share must be between 0 and 100")
	ErrInvalidParams   = errors.New("account name and token are required")
)

// CreatorShare is the default share the creator co-owner starts with.
var CreatorShare = decimal.NewFromInt(100)

type Syncer interface {
	Sync(ctx context.Context, accountID int64, now time.Time) (syncer.Result, error)
}

type CapitalSource interface {
	Capital(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

type CreateParams struct {
	Name      string `json:"name"`
	CreatorID int64  `json:"creator_id"`
	Token     string `json:"token"`
}

type Service struct {
	store         *Store
	dialer        broker.Dialer
	brokerTimeout time.Duration
	syncer        Syncer
	capital       CapitalSource
	logger        logger.Logger
	now           func() time.Time
}

func NewService(store *Store, dialer broker.Dialer, brokerTimeout time.Duration, syncer Syncer, capital CapitalSource, logger logger.Logger) *Service {
	return &Service{
		store:         store,
		dialer:        dialer,
		brokerTimeout: brokerTimeout,
		syncer:        syncer,
		capital:       capital,
		logger:        logger,
		now:           time.Now,
	}
}

// Create registers an account: the token is checked against the broker, the
// creator becomes its only co-owner with the full share, then the first sync
// runs and the creator capital is computed from it. A failed first sync is
// returned together with the stored account.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Account, error) {
	if p.Name == "" || p.Token == "" {
		return model.Account{}, ErrInvalidParams
	}

	ba, err := s.brokerAccount(ctx, p.Token)
	if err != nil {
		return model.Account{}, fmt.Errorf("%w: can't check account token", err)
	}

	acc, _, err := s.store.insertWithCreator(ctx, model.Account{
		Name:            p.Name,
		CreatorID:       p.CreatorID,
		Token:           p.Token,
		BrokerAccountID: ba.ID,
		IsSandbox:       ba.IsSandbox,
		LastSyncedAt:    model.NeverSynced,
	}, CreatorShare)
	if err != nil {
		return model.Account{}, err
	}
	s.logger.Infof("created account %d (%s) for person %d", acc.ID, acc.Name, acc.CreatorID)

	res, err := s.syncer.Sync(ctx, acc.ID, s.now())
	if err != nil {
		return acc, fmt.Errorf("%w: initial sync of account %d", err, acc.ID)
	}
	if res.Advanced {
		acc.LastSyncedAt = res.To
	}

	if err := s.RecalculateCapital(ctx, acc.ID, acc.CreatorID); err != nil {
		return acc, err
	}
	return acc, nil
}

// brokerAccount dials the broker under the broker timeout and reads the
// account the token resolves to.
func (s *Service) brokerAccount(ctx context.Context, token string) (model.BrokerAccount, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.brokerTimeout)
	defer cancel()

	client, err := s.dialer.Dial(dialCtx, broker.Credentials{Token: token})
	if err != nil {
		return model.BrokerAccount{}, broker.Wrap("dial", err)
	}
	ba := client.Account()
	if err := client.Close(); err != nil {
		s.logger.Warnf("can't close broker client: %v", err)
	}
	return ba, nil
}

func (s *Service) Get(ctx context.Context, accountID int64) (model.Account, error) {
	return s.store.Get(ctx, accountID)
}

// RecalculateCapital sets the person's capital to the sum of deposits,
// withdrawals and service commissions of the account.
func (s *Service) RecalculateCapital(ctx context.Context, accountID, personID int64) error {
	capital, err := s.capital.Capital(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.store.updateCoOwner(ctx, _updateCapital, capital, accountID, personID); err != nil {
		return fmt.Errorf("%w: can't update capital", err)
	}
	return nil
}

func (s *Service) AddCoOwner(ctx context.Context, accountID, personID int64, share decimal.Decimal) (model.CoOwner, error) {
	if err := validateShare(share); err != nil {
		return model.CoOwner{}, err
	}
	if _, err := s.store.Get(ctx, accountID); err != nil {
		return model.CoOwner{}, err
	}
	return s.store.insertCoOwner(ctx, accountID, personID, share)
}

// SetDefaultShare changes the share used for future operations only.
func (s *Service) SetDefaultShare(ctx context.Context, accountID, personID int64, share decimal.Decimal) error {
	if err := validateShare(share); err != nil {
		return err
	}
	return s.store.updateCoOwner(ctx, _updateShare, share, accountID, personID)
}

func (s *Service) CoOwners(ctx context.Context, accountID int64) ([]model.CoOwner, error) {
	return s.store.CoOwners(ctx, accountID)
}

func validateShare(share decimal.Decimal) error {
	if share.IsNegative() || share.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: got %s", ErrInvalidShare, share)
	}
	return nil
}
