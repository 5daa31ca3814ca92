// Package invest adapts the T-Invest gRPC API to broker.Client.
package invest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/invest/instrument"
	"github.com/STTM-NSU/invest-ledger/internal/invest/operation"
	"github.com/STTM-NSU/invest-ledger/internal/invest/position"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/russianinvestments/invest-api-go-sdk/investgo"
	investapi "github.com/russianinvestments/invest-api-go-sdk/proto"
	"go.uber.org/ratelimit"
)

type Dialer struct {
	cfg               investgo.Config
	requestsPerMinute int
	logger            logger.Logger
}

func NewDialer(cfg investgo.Config, requestsPerMinute int, logger logger.Logger) *Dialer {
	return &Dialer{
		cfg:               cfg,
		requestsPerMinute: requestsPerMinute,
		logger:            logger,
	}
}

// Dial creates an investgo client living as long as ctx.
func (d *Dialer) Dial(ctx context.Context, creds broker.Credentials) (broker.Client, error) {
	if creds.Token == "" {
		return nil, &broker.AuthenticationError{Err: errors.New("empty token")}
	}

	cfg := d.cfg
	cfg.Token = creds.Token
	cfg.AccountId = creds.BrokerAccountID

	c, err := investgo.NewClient(ctx, cfg, d.logger)
	if err != nil {
		return nil, classify("dial", err)
	}

	account := model.BrokerAccount{
		ID:        creds.BrokerAccountID,
		IsSandbox: strings.Contains(cfg.EndPoint, "sandbox"),
	}
	if account.ID == "" {
		account.ID, err = firstAccountID(c)
		if err != nil {
			_ = c.Stop()
			return nil, err
		}
	}

	limiter := ratelimit.New(d.requestsPerMinute, ratelimit.Per(time.Minute))
	return &Client{
		client:      c,
		account:     account,
		operations:  operation.NewOperationsService(c, account.ID, limiter, d.logger),
		positions:   position.NewPositionsService(c, account.ID, limiter, d.logger),
		instruments: instrument.NewInstrumentsService(c, limiter, d.logger),
	}, nil
}

func firstAccountID(c *investgo.Client) (string, error) {
	status := investapi.AccountStatus_ACCOUNT_STATUS_OPEN
	resp, err := c.NewUsersServiceClient().GetAccounts(&status)
	if err != nil {
		return "", classify("accounts", err)
	}
	// TODO: let the user pick the account when a token sees several of them
	for _, a := range resp.GetAccounts() {
		if a.GetId() != "" {
			return a.GetId(), nil
		}
	}
	return "", &broker.AuthenticationError{Err: errors.New("token has no open accounts")}
}

type Client struct {
	client  *investgo.Client
	account model.BrokerAccount

	operations  *operation.OperationsService
	positions   *position.PositionsService
	instruments *instrument.InstrumentsService
}

func (c *Client) Account() model.BrokerAccount {
	return c.account
}

func (c *Client) Operations(ctx context.Context, from, to time.Time) ([]model.BrokerOperation, error) {
	if err := broker.ValidateWindow(from, to); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &broker.TransportError{Op: "operations", Err: err}
	}
	ops, err := c.operations.GetOperations(from, to)
	return ops, classify("operations", err)
}

func (c *Client) Portfolio(ctx context.Context) ([]model.PortfolioPosition, error) {
	if err := ctx.Err(); err != nil {
		return nil, &broker.TransportError{Op: "portfolio", Err: err}
	}
	positions, err := c.positions.UnaryGetPortfolio()
	return positions, classify("portfolio", err)
}

func (c *Client) Currencies(ctx context.Context) ([]model.CurrencyBalance, error) {
	if err := ctx.Err(); err != nil {
		return nil, &broker.TransportError{Op: "currencies", Err: err}
	}
	balances, err := c.positions.UnaryGetCurrencies()
	return balances, classify("currencies", err)
}

func (c *Client) Instrument(ctx context.Context, figi string) (model.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return model.Instrument{}, &broker.TransportError{Op: "instrument", Err: err}
	}
	i, err := c.instruments.GetInstrument(figi)
	return i, classify("instrument", err)
}

// Catalog is not part of broker.Client, it backs the instruments refresh command.
func (c *Client) Catalog(ctx context.Context, types ...model.InstrumentType) ([]model.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, &broker.TransportError{Op: "catalog", Err: err}
	}
	instruments, err := c.instruments.GetCatalog(types...)
	return instruments, classify("catalog", err)
}

func (c *Client) Close() error {
	if err := c.client.Stop(); err != nil {
		return fmt.Errorf("%w: can't stop invest client", err)
	}
	return nil
}
