// Package openapi adapts the legacy T-Invest OpenAPI v1 REST interface to
// broker.Client.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"github.com/STTM-NSU/invest-ledger/internal/config"
	"github.com/STTM-NSU/invest-ledger/internal/logger"
	"github.com/STTM-NSU/invest-ledger/internal/model"
	"github.com/bytedance/sonic"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const _sandboxAccountPrefix = "SB"

type Dialer struct {
	cfg               config.RESTConfig
	requestsPerMinute int
	logger            logger.Logger
}

func NewDialer(cfg config.RESTConfig, requestsPerMinute int, logger logger.Logger) *Dialer {
	return &Dialer{
		cfg:               cfg,
		requestsPerMinute: requestsPerMinute,
		logger:            logger,
	}
}

func newRestyClient(token string, logger logger.Logger) *resty.Client {
	return resty.New().
		SetLogger(logger).
		SetAuthToken(token).
		AddContentTypeDecoder("json", func(r io.Reader, v any) error {
			return sonic.ConfigStd.NewDecoder(r).Decode(v)
		}).
		AddContentTypeEncoder("json", func(w io.Writer, v any) error {
			return sonic.ConfigStd.NewEncoder(w).Encode(v)
		})
}

// Dial authenticates against production first and sandbox second, the same
// token is valid for only one of them.
func (d *Dialer) Dial(ctx context.Context, creds broker.Credentials) (broker.Client, error) {
	if creds.Token == "" {
		return nil, &broker.AuthenticationError{Err: errors.New("empty token")}
	}

	c := &Client{
		c:           newRestyClient(creds.Token, d.logger),
		ctx:         ctx,
		rateLimiter: ratelimit.New(d.requestsPerMinute, ratelimit.Per(time.Minute)),
		logger:      d.logger,
	}

	var lastErr error
	for _, base := range []string{d.cfg.ProductionURL, d.cfg.SandboxURL} {
		c.base = base
		payload, err := get[accountsPayload](ctx, c, UserAccounts, nil)
		if err != nil {
			lastErr = err
			if broker.IsAuthentication(err) {
				continue
			}
			_ = c.Close()
			return nil, err
		}

		c.account.ID = creds.BrokerAccountID
		if c.account.ID == "" {
			// TODO: let the user pick the account when a token sees several of them
			if len(payload.Accounts) == 0 {
				_ = c.Close()
				return nil, &broker.AuthenticationError{Err: errors.New("token has no accounts")}
			}
			c.account.ID = payload.Accounts[0].BrokerAccountID
		}
		c.account.IsSandbox = strings.HasPrefix(c.account.ID, _sandboxAccountPrefix)
		return c, nil
	}

	_ = c.Close()
	return nil, lastErr
}

type Client struct {
	c           *resty.Client
	ctx         context.Context
	base        string
	account     model.BrokerAccount
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

func (c *Client) Account() model.BrokerAccount {
	return c.account
}

// get returns the payload of a successful response. Every call is bound both
// to the dial context and to ctx.
func get[T any](ctx context.Context, c *Client, e Endpoint, query map[string]string) (T, error) {
	var zero T
	u, err := e.URL(c.base)
	if err != nil {
		return zero, err
	}

	if c.ctx != nil {
		if err := c.ctx.Err(); err != nil {
			return zero, &broker.TransportError{Op: e.String(), Err: err}
		}
	}

	c.rateLimiter.Take()
	result := &response[T]{}
	resp, err := c.c.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(result).
		Get(u)
	if err != nil {
		return zero, &broker.TransportError{Op: e.String(), Err: err}
	}

	c.logger.Debugf("got response %s status: %s, %s", u, resp.Status(), resp.Duration())

	switch {
	case resp.IsSuccess():
		return result.Payload, nil
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return zero, &broker.AuthenticationError{Err: fmt.Errorf("%s returned %s", e, resp.Status())}
	case e == SearchByFigi && resp.StatusCode() == http.StatusNotFound:
		return zero, broker.ErrInstrumentNotFound
	default:
		return zero, &broker.TransportError{Op: e.String(), Err: fmt.Errorf("unexpected status %s", resp.Status())}
	}
}

func (c *Client) Operations(ctx context.Context, from, to time.Time) ([]model.BrokerOperation, error) {
	if err := broker.ValidateWindow(from, to); err != nil {
		return nil, err
	}
	c.logger.Infof("getting operations from %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))

	payload, err := get[operationsPayload](ctx, c, Operations, map[string]string{
		"from":            from.Format(time.RFC3339Nano),
		"to":              to.Format(time.RFC3339Nano),
		"brokerAccountId": c.account.ID,
	})
	if err != nil {
		return nil, err
	}

	ops := make([]model.BrokerOperation, 0, len(payload.Operations))
	for _, op := range payload.Operations {
		ops = append(ops, op.toModel())
	}
	return ops, nil
}

func (c *Client) Portfolio(ctx context.Context) ([]model.PortfolioPosition, error) {
	payload, err := get[portfolioPayload](ctx, c, Portfolio, map[string]string{"brokerAccountId": c.account.ID})
	if err != nil {
		return nil, err
	}

	positions := make([]model.PortfolioPosition, 0, len(payload.Positions))
	for _, p := range payload.Positions {
		positions = append(positions, p.toModel())
	}
	return positions, nil
}

func (c *Client) Currencies(ctx context.Context) ([]model.CurrencyBalance, error) {
	payload, err := get[currenciesPayload](ctx, c, PortfolioCurrencies, map[string]string{"brokerAccountId": c.account.ID})
	if err != nil {
		return nil, err
	}

	balances := make([]model.CurrencyBalance, 0, len(payload.Currencies))
	for _, cur := range payload.Currencies {
		balances = append(balances, model.CurrencyBalance{
			Currency: strings.ToUpper(cur.Currency),
			Balance:  cur.Balance,
		})
	}
	return balances, nil
}

func (c *Client) Instrument(ctx context.Context, figi string) (model.Instrument, error) {
	payload, err := get[instrument](ctx, c, SearchByFigi, map[string]string{"figi": figi})
	if err != nil {
		return model.Instrument{}, err
	}
	if payload.FIGI == "" {
		return model.Instrument{}, broker.ErrInstrumentNotFound
	}
	return payload.toModel(), nil
}

var _catalogEndpoints = map[model.InstrumentType]Endpoint{
	model.Share:    MarketStocks,
	model.Bond:     MarketBonds,
	model.Etf:      MarketEtfs,
	model.Currency: MarketCurrencies,
}

// Catalog loads the market lists of the given types, all of them when none
// is given. It backs the instruments refresh command.
func (c *Client) Catalog(ctx context.Context, types ...model.InstrumentType) ([]model.Instrument, error) {
	if len(types) == 0 {
		types = []model.InstrumentType{model.Share, model.Bond, model.Etf, model.Currency}
	}

	instruments := make([]model.Instrument, 0)
	for _, t := range types {
		e, ok := _catalogEndpoints[t]
		if !ok {
			return nil, fmt.Errorf("unsupported instrument type %q", t)
		}
		payload, err := get[instrumentsPayload](ctx, c, e, nil)
		if err != nil {
			return nil, err
		}
		for _, i := range payload.Instruments {
			instruments = append(instruments, i.toModel())
		}
	}
	return instruments, nil
}

func (c *Client) Close() error {
	return c.c.Close()
}
