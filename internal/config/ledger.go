package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type BrokerTransport string

const (
	GRPC BrokerTransport = "grpc"
	REST BrokerTransport = "rest"
)

type SyncConfig struct {
	Interval      time.Duration `yaml:"interval"`       // minimal age of last_synced_at before a new sync
	Overlap       time.Duration `yaml:"overlap"`        // backdate of the operations window
	BrokerTimeout time.Duration `yaml:"broker_timeout"` // deadline for all broker calls of one sync
}

const (
	_syncIntervalDefault  = 60 * time.Second
	_syncOverlapDefault   = 12 * time.Hour
	_brokerTimeoutDefault = 30 * time.Second
)

func (c *SyncConfig) Setup() {
	if c.Interval <= 0 {
		c.Interval = _syncIntervalDefault
	}
	if c.Overlap <= 0 {
		c.Overlap = _syncOverlapDefault
	}
	if c.BrokerTimeout <= 0 {
		c.BrokerTimeout = _brokerTimeoutDefault
	}
}

type RESTConfig struct {
	ProductionURL string `yaml:"production_url"`
	SandboxURL    string `yaml:"sandbox_url"`
}

const (
	_productionURLDefault = "https://api-invest.tinkoff.ru/openapi/"
	_sandboxURLDefault    = "https://api-invest.tinkoff.ru/openapi/sandbox/"
)

func (c *RESTConfig) Setup() error {
	if c.ProductionURL == "" {
		c.ProductionURL = _productionURLDefault
	}
	if c.SandboxURL == "" {
		c.SandboxURL = _sandboxURLDefault
	}
	for _, u := range []string{c.ProductionURL, c.SandboxURL} {
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("%w: bad openapi url %s", err, u)
		}
	}
	return nil
}

type BrokerConfig struct {
	Transport         BrokerTransport `yaml:"transport"`
	InvestConfigPath  string          `yaml:"invest_config"`
	RequestsPerMinute int             `yaml:"requests_per_minute"`
	REST              RESTConfig      `yaml:"rest"`
}

const (
	_investConfigPathDefault  = "./configs/invest.yaml"
	_requestsPerMinuteDefault = 200
)

func (c *BrokerConfig) Setup() error {
	switch c.Transport {
	case "":
		c.Transport = GRPC
	case GRPC, REST:
	default:
		return fmt.Errorf("unknown broker transport %q", c.Transport)
	}
	if c.InvestConfigPath == "" {
		c.InvestConfigPath = _investConfigPathDefault
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = _requestsPerMinuteDefault
	}
	return c.REST.Setup()
}

type HTTPConfig struct {
	Port string `yaml:"port"`
}

type LedgerConfig struct {
	LogLevel string       `yaml:"log_level"`
	HTTP     HTTPConfig   `yaml:"http"`
	Sync     SyncConfig   `yaml:"sync"`
	Broker   BrokerConfig `yaml:"broker"`
}

func (c *LedgerConfig) ValidateAndSetup() error {
	if c.HTTP.Port == "" {
		c.HTTP.Port = "8080"
	}
	c.Sync.Setup()
	if err := c.Broker.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup broker", err)
	}
	return nil
}

func LoadLedgerConfig(filename string) (LedgerConfig, error) {
	var cfg LedgerConfig
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
