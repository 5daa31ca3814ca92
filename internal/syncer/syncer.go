// Package syncer runs the time-gated account synchronization: currencies,
// ledger ingestion, deal classification and share allocation.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/config"
	"github.com/STTM-NSU/invest-ledger/internal/instrument"
	"github.com/STTM-NSU/invest-ledger/internal/ledger"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/google/uuid"
)

type AccountStore interface {
	Get(ctx context.Context, accountID int64) (model.Account, error)
	// Advance sets last_synced_at to next only if it still equals prev.
	Advance(ctx context.Context, accountID int64, prev, next time.Time) (bool, error)
}

type CurrencyReconciler interface {
	ReconcileCurrencies(ctx context.Context, accountID int64, balances []model.CurrencyBalance) error
}

type InstrumentCatalog interface {
	Ensure(ctx context.Context, lookup instrument.Lookup, figis []string) error
}

type Ledger interface {
	Ingest(ctx context.Context, accountID int64, raw []model.BrokerOperation) (int64, error)
}

type Classifier interface {
	Classify(ctx context.Context, accountID int64, from, to time.Time) (int, error)
}

type Allocator interface {
	Allocate(ctx context.Context, accountID int64, from, to time.Time) (int64, error)
}

// Result describes one Sync call. A skipped sync did nothing, not even a
// broker call.
type Result struct {
	RunID    string    `json:"run_id,omitempty"`
	Skipped  bool      `json:"skipped"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Inserted int64     `json:"inserted"`
	Attached int       `json:"attached"`
	Shares   int64     `json:"shares"`
	Advanced bool      `json:"advanced"`
}

type Syncer struct {
	cfg    config.SyncConfig
	logger logger.Logger

	accounts   AccountStore
	dialer     broker.Dialer
	currencies CurrencyReconciler
	catalog    InstrumentCatalog
	ledger     Ledger
	classifier Classifier
	allocator  Allocator

	mu sync.Mutex
	// locks holds one mutex per account synced by this process and never
	// shrinks; accounts are not deleted.
	locks map[int64]*sync.Mutex
}

func NewSyncer(
	cfg config.SyncConfig,
	accounts AccountStore,
	dialer broker.Dialer,
	currencies CurrencyReconciler,
	catalog InstrumentCatalog,
	ledger Ledger,
	classifier Classifier,
	allocator Allocator,
	logger logger.Logger) *Syncer {
	cfg.Setup()
	return &Syncer{
		cfg:        cfg,
		logger:     logger,
		accounts:   accounts,
		dialer:     dialer,
		currencies: currencies,
		catalog:    catalog,
		ledger:     ledger,
		classifier: classifier,
		allocator:  allocator,
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (s *Syncer) lock(accountID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[accountID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Sync brings the account up to now unless it was synced less than the
// configured interval ago. last_synced_at moves only after every stage
// succeeded; a failed sync is repeated in full by the next call.
func (s *Syncer) Sync(ctx context.Context, accountID int64, now time.Time) (Result, error) {
	unlock := s.lock(accountID)
	defer unlock()

	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return Result{}, err
	}
	if now.Sub(acc.LastSyncedAt) <= s.cfg.Interval {
		return Result{Skipped: true}, nil
	}

	res := Result{
		RunID: uuid.NewString(),
		From:  ledger.NormalizeDate(acc.LastSyncedAt.Add(-s.cfg.Overlap)),
		To:    ledger.NormalizeDate(now),
	}
	log := s.logger.With("sync_run", res.RunID, "account_id", accountID)
	log.Infof("sync window [%s, %s]", res.From.Format(time.RFC3339), res.To.Format(time.RFC3339))

	if err := s.run(ctx, acc, &res, log); err != nil {
		log.Errorf("sync failed: %v", err)
		return res, fmt.Errorf("%w: can't sync account %d", err, accountID)
	}

	advanced, err := s.accounts.Advance(ctx, accountID, acc.LastSyncedAt, res.To)
	if err != nil {
		return res, err
	}
	res.Advanced = advanced
	if !advanced {
		log.Warnf("last_synced_at was advanced concurrently, keeping the other value")
	}

	log.Infof("sync done: %d operations inserted, %d attached, %d shares", res.Inserted, res.Attached, res.Shares)
	return res, nil
}

func (s *Syncer) run(ctx context.Context, acc model.Account, res *Result, log logger.Logger) error {
	brokerCtx, cancel := context.WithTimeout(ctx, s.cfg.BrokerTimeout)
	defer cancel()

	client, err := s.dialer.Dial(brokerCtx, broker.Credentials{
		Token:           acc.Token,
		BrokerAccountID: acc.BrokerAccountID,
	})
	if err != nil {
		return broker.Wrap("dial", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Warnf("can't close broker client: %v", err)
		}
	}()

	balances, err := client.Currencies(brokerCtx)
	if err != nil {
		return broker.Wrap("currencies", err)
	}
	if err := s.currencies.ReconcileCurrencies(ctx, acc.ID, balances); err != nil {
		return err
	}

	if err := broker.ValidateWindow(res.From, res.To); err != nil {
		return err
	}
	raw, err := client.Operations(brokerCtx, res.From, res.To)
	if err != nil {
		return broker.Wrap("operations", err)
	}
	log.Debugf("broker returned %d operations", len(raw))

	figis := ledger.FIGIs(ledger.BuildOperations(acc.ID, raw))
	if err := s.catalog.Ensure(brokerCtx, client, figis); err != nil {
		return err
	}

	if res.Inserted, err = s.ledger.Ingest(ctx, acc.ID, raw); err != nil {
		return err
	}
	if res.Attached, err = s.classifier.Classify(ctx, acc.ID, res.From, res.To); err != nil {
		return err
	}
	if res.Shares, err = s.allocator.Allocate(ctx, acc.ID, res.From, res.To); err != nil {
		return err
	}
	return nil
}
