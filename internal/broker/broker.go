// Package broker is the contract between the ledger and a broker API adapter.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/STTM-NSU/invest-ledger/internal/model"
)

type Client interface {
	// Account is the broker account resolved while dialing.
	Account() model.BrokerAccount
	Operations(ctx context.Context, from, to time.Time) ([]model.BrokerOperation, error)
	Portfolio(ctx context.Context) ([]model.PortfolioPosition, error)
	Currencies(ctx context.Context) ([]model.CurrencyBalance, error)
	Instrument(ctx context.Context, figi string) (model.Instrument, error)
	Close() error
}

type Credentials struct {
	Token string
	// BrokerAccountID may be empty, the first account of the token is used then.
	BrokerAccountID string
}

// Dialer authenticates credentials and returns a client bound to ctx: a
// deadline on ctx bounds every call made through the client.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Client, error)
}

type DialerFunc func(ctx context.Context, creds Credentials) (Client, error)

func (f DialerFunc) Dial(ctx context.Context, creds Credentials) (Client, error) {
	return f(ctx, creds)
}

func ValidateWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("empty operations window bound")
	}
	if !from.Before(to) {
		return fmt.Errorf("window start %s is not before end %s", from, to)
	}
	return nil
}
