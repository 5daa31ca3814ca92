package openapi

import (
	"fmt"
	"net/url"
)

// Endpoint is an operation of the legacy OpenAPI v1, mapped to its path by
// _endpointPaths.
type Endpoint int

const (
	UserAccounts Endpoint = iota
	Operations
	Portfolio
	PortfolioCurrencies
	SearchByFigi
	MarketStocks
	MarketBonds
	MarketEtfs
	MarketCurrencies
)

var _endpointPaths = map[Endpoint]string{
	UserAccounts:        "user/accounts",
	Operations:          "operations",
	Portfolio:           "portfolio",
	PortfolioCurrencies: "portfolio/currencies",
	SearchByFigi:        "market/search/by-figi",
	MarketStocks:        "market/stocks",
	MarketBonds:         "market/bonds",
	MarketEtfs:          "market/etfs",
	MarketCurrencies:    "market/currencies",
}

func (e Endpoint) String() string {
	if p, ok := _endpointPaths[e]; ok {
		return p
	}
	return fmt.Sprintf("Endpoint(%d)", int(e))
}

// URL resolves the endpoint against a production or sandbox base.
func (e Endpoint) URL(base string) (string, error) {
	p, ok := _endpointPaths[e]
	if !ok {
		return "", fmt.Errorf("unknown endpoint %d", int(e))
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: bad base url", err)
	}
	if b.Path == "" || b.Path[len(b.Path)-1] != '/' {
		b.Path += "/"
	}
	return b.ResolveReference(&url.URL{Path: p}).String(), nil
}
