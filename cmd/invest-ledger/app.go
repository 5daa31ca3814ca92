package main

import (
	"context"
	"fmt"

	"github.com/STTM-NSU/invest-ledger/internal/account"
	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/config"
	"github.com/STTM-NSU/invest-ledger/internal/deal"
	"github.com/STTM-NSU/invest-ledger/internal/income"
	"github.com/STTM-NSU/invest-ledger/internal/instrument"
	"github.com/STTM-NSU/invest-ledger/internal/invest"
	"github.com/STTM-NSU/invest-ledger/internal/ledger"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/openapi"
	"github.com/STTM-NSU/invest-ledger/internal/portfolio"
	"github.com/STTM-NSU/invest-ledger/internal/postgres"
	"github.com/STTM-NSU/invest-ledger/internal/server"
	"github.com/STTM-NSU/invest-ledger/internal/share"
	"github.com/STTM-NSU/invest-ledger/internal/syncer"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

// app holds every wired component of one process.
type app struct {
	cfg    config.LedgerConfig
	logger logger.Logger
	db     *sqlx.DB
	dialer broker.Dialer

	ledger    *ledger.Ledger
	catalog   *instrument.Catalog
	deals     *deal.Service
	allocator *share.Allocator
	portfolio *portfolio.Portfolio
	income    *income.Service
	accounts  *account.Service
	syncer    *syncer.Syncer

	closers []func()
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadLedgerConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: can't load ledger cfg", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapLogger, loggerSync, err := logger.NewZapLogger(level)
	if err != nil {
		return nil, fmt.Errorf("%w: can't init logger", err)
	}
	a := &app{cfg: cfg, logger: zapLogger, closers: []func(){loggerSync}}

	if err := godotenv.Load(); err != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	pgCfg := postgres.NewConfigFromEnv().Setup()
	a.db, err = postgres.NewDB(pgCfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%w: can't connect to %s", err, pgCfg)
	}
	a.closers = append(a.closers, func() {
		if err := a.db.Close(); err != nil {
			zapLogger.Warnf("can't close db: %v", err)
		}
	})

	a.dialer, err = newDialer(cfg.Broker, zapLogger)
	if err != nil {
		a.close()
		return nil, err
	}

	a.ledger = ledger.NewLedger(a.db, zapLogger)
	a.catalog = instrument.NewCatalog(a.db, zapLogger)
	a.deals = deal.NewService(a.db, zapLogger)
	a.allocator = share.NewAllocator(a.db, zapLogger)
	a.portfolio = portfolio.NewPortfolio(a.db, zapLogger)
	a.income = income.NewService(a.deals)

	store := account.NewStore(a.db)
	a.syncer = syncer.NewSyncer(cfg.Sync, store, a.dialer,
		a.portfolio, a.catalog, a.ledger, a.deals, a.allocator, zapLogger)
	a.accounts = account.NewService(store, a.dialer, cfg.Sync.BrokerTimeout, a.syncer, a.ledger, zapLogger)

	return a, nil
}

func newDialer(cfg config.BrokerConfig, logger logger.Logger) (broker.Dialer, error) {
	switch cfg.Transport {
	case config.REST:
		return openapi.NewDialer(cfg.REST, cfg.RequestsPerMinute, logger), nil
	default:
		investCfg, err := config.LoadInvestConfig(cfg.InvestConfigPath)
		if err != nil {
			return nil, fmt.Errorf("%w: can't load invest cfg", err)
		}
		return invest.NewDialer(investCfg, cfg.RequestsPerMinute, logger), nil
	}
}

func (a *app) handler() *server.Handler {
	return server.NewHandler(server.Deps{
		Accounts:      a.accounts,
		Syncer:        a.syncer,
		Operations:    a.ledger,
		Deals:         a.deals,
		Income:        a.income,
		Currencies:    a.portfolio,
		Shares:        a.allocator,
		Dialer:        a.dialer,
		BrokerTimeout: a.cfg.Sync.BrokerTimeout,
	}, a.logger)
}

// cataloger is implemented by both broker adapters, outside of broker.Client.
type cataloger interface {
	broker.Client
	instrument.Lister
}

// refreshCatalog loads the instrument catalogs with the credentials of an
// existing account.
func (a *app) refreshCatalog(ctx context.Context, accountID int64) (int, error) {
	acc, err := a.accounts.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	brokerCtx, cancel := context.WithTimeout(ctx, a.cfg.Sync.BrokerTimeout)
	defer cancel()

	client, err := a.dialer.Dial(brokerCtx, broker.Credentials{Token: acc.Token, BrokerAccountID: acc.BrokerAccountID})
	if err != nil {
		return 0, broker.Wrap("dial", err)
	}
	defer client.Close()

	lister, ok := client.(cataloger)
	if !ok {
		return 0, fmt.Errorf("broker transport %s has no instrument catalog", a.cfg.Broker.Transport)
	}
	return a.catalog.Refresh(brokerCtx, lister)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
