package config

import (
	"fmt"

	"github.com/russianinvestments/invest-api-go-sdk/investgo"
)

// LoadInvestConfig loads the endpoint part of the investgo config. Tokens are
// per account and are set by the dialer.
func LoadInvestConfig(filename string) (investgo.Config, error) {
	cfg, err := investgo.LoadConfig(filename)
	if err != nil {
		return investgo.Config{}, fmt.Errorf("%w: can't load config", err)
	}

	if cfg.EndPoint == "" {
		return investgo.Config{}, fmt.Errorf("empty t-invest api endpoint")
	}

	return cfg, nil
}
