package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/datasource/synthetic"
	"github.com/peter-kozarec/sandbox/pkg/exchange"
	"github.com/peter-kozarec/sandbox/pkg/exchange/sandbox"
	"github.com/peter-kozarec/sandbox/pkg/simulation"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

const EnvConfigFile = "SANDBOX_CONFIG"

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	TapeMemory     = "memory"
	TapeHistorical = "historical"
	TapeDuckDB     = "duckdb"
	TapePostgres   = "postgres"
	TapeSynthetic  = "synthetic"
)

type Config struct {
	Log        Log        `yaml:"log"`
	Simulation Simulation `yaml:"simulation"`
	Account    Account    `yaml:"account"`
	Commission Commission `yaml:"commission"`
	Symbols    []Symbol   `yaml:"symbols"`
	Tape       Tape       `yaml:"tape"`
	Monitor    []string   `yaml:"monitor"`
	// Journal writes executions to the postgres tape database.
	Journal bool    `yaml:"journal"`
	Orders  []Order `yaml:"orders"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Simulation struct {
	Start                time.Time     `yaml:"start"`
	End                  time.Time     `yaml:"end"`
	Compression          float64       `yaml:"compression"`
	CoarseTimerThreshold time.Duration `yaml:"coarse_timer_threshold"`
	ProgressInterval     time.Duration `yaml:"progress_interval"`
	RouterCapacity       int           `yaml:"router_capacity"`
	SnapshotInterval     time.Duration `yaml:"snapshot_interval"`
}

type Account struct {
	Code     string      `yaml:"code"`
	Currency string      `yaml:"currency"`
	Balance  fixed.Point `yaml:"balance"`
}

type Commission struct {
	Rate        fixed.Point `yaml:"rate"`
	Minimum     fixed.Point `yaml:"minimum"`
	MaximumRate fixed.Point `yaml:"maximum_rate"`
}

type Symbol struct {
	Ticker   string `yaml:"ticker"`
	Currency string `yaml:"currency"`
}

type Tape struct {
	Driver  string  `yaml:"driver"`
	DSN     string  `yaml:"dsn"`
	Retries uint64  `yaml:"retries"`
	Cache   bool    `yaml:"cache"`
	Quotes  []Quote `yaml:"quotes"`

	Synthetic Synthetic `yaml:"synthetic"`
}

// Synthetic tunes the generated tape. Zero values keep the generator defaults.
type Synthetic struct {
	Seed       uint64        `yaml:"seed"`
	StartPrice float64       `yaml:"start_price"`
	Spread     float64       `yaml:"spread"`
	Mu         float64       `yaml:"mu"`
	Sigma      float64       `yaml:"sigma"`
	Interval   time.Duration `yaml:"interval"`
}

func (s Synthetic) Parameters() synthetic.Parameters {
	params := synthetic.DefaultParameters
	if s.StartPrice > 0 {
		params.StartPrice = s.StartPrice
	}
	if s.Spread > 0 {
		params.Spread = s.Spread
	}
	if s.Mu != 0 {
		params.Mu = s.Mu
	}
	if s.Sigma > 0 {
		params.Sigma = s.Sigma
	}
	if s.Interval > 0 {
		params.Interval = s.Interval
	}
	return params
}

// Quote is an inline observation for the memory tape.
type Quote struct {
	Ticker    string      `yaml:"ticker"`
	TimeStamp time.Time   `yaml:"ts"`
	Bid       fixed.Point `yaml:"bid"`
	Ask       fixed.Point `yaml:"ask"`
	BidSize   fixed.Point `yaml:"bid_size"`
	AskSize   fixed.Point `yaml:"ask_size"`
}

// Load reads path, or the file named by SANDBOX_CONFIG when path is empty.
// Environment variables in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no config file given and %s is not set", ErrInvalidConfig, EnvConfigFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config %q: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Simulation.CoarseTimerThreshold == 0 {
		c.Simulation.CoarseTimerThreshold = simulation.DefaultCoarseTimerThreshold
	}
	if c.Simulation.RouterCapacity == 0 {
		c.Simulation.RouterCapacity = 4096
	}
	if c.Account.Code == "" {
		c.Account.Code = sandbox.DefaultAccountCode
	}
	if c.Account.Currency == "" {
		c.Account.Currency = sandbox.DefaultCurrency
	}
	if c.Account.Balance.IsZero() {
		c.Account.Balance = sandbox.DefaultBalance
	}
	if c.Commission.Rate.IsZero() && c.Commission.Minimum.IsZero() && c.Commission.MaximumRate.IsZero() {
		c.Commission = Commission(sandbox.DefaultCommissionSchedule)
	}
	if c.Tape.Driver == "" {
		c.Tape.Driver = TapeMemory
	}
	for i := range c.Symbols {
		if c.Symbols[i].Currency == "" {
			c.Symbols[i].Currency = c.Account.Currency
		}
	}
}

func (c *Config) Validate() error {
	if c.Simulation.Start.IsZero() {
		return invalid("simulation.start", "is required")
	}
	if err := c.SimulationConfiguration().Validate(); err != nil {
		return invalid("simulation.end", err.Error())
	}
	if c.Simulation.RouterCapacity < 0 {
		return invalid("simulation.router_capacity", "must not be negative")
	}
	if !c.Account.Balance.IsPositive() {
		return invalid("account.balance", "must be positive")
	}
	if c.Commission.Rate.IsNegative() || c.Commission.Minimum.IsNegative() || c.Commission.MaximumRate.IsNegative() {
		return invalid("commission", "values must not be negative")
	}
	if len(c.Symbols) == 0 {
		return invalid("symbols", "at least one symbol is required")
	}
	for i, symbol := range c.Symbols {
		if strings.TrimSpace(symbol.Ticker) == "" {
			return invalid(fmt.Sprintf("symbols[%d].ticker", i), "is required")
		}
	}

	switch c.Tape.Driver {
	case TapeMemory, TapeSynthetic:
	case TapeHistorical, TapeDuckDB, TapePostgres:
		if c.Tape.DSN == "" && c.Tape.Driver != TapeDuckDB {
			return invalid("tape.dsn", "is required for driver "+c.Tape.Driver)
		}
	default:
		return invalid("tape.driver", fmt.Sprintf("unknown driver %q", c.Tape.Driver))
	}
	if c.Journal && c.Tape.Driver != TapePostgres {
		return invalid("journal", "requires the postgres tape driver")
	}

	for i, order := range c.Orders {
		if _, err := order.ToOrder(); err != nil {
			return invalid(fmt.Sprintf("orders[%d]", i), err.Error())
		}
	}
	return nil
}

func (c *Config) SimulationConfiguration() simulation.Configuration {
	return simulation.Configuration{
		Start:                c.Simulation.Start,
		End:                  c.Simulation.End,
		Compression:          c.Simulation.Compression,
		CoarseTimerThreshold: c.Simulation.CoarseTimerThreshold,
		ProgressInterval:     c.Simulation.ProgressInterval,
	}
}

func (c *Config) CommissionSchedule() sandbox.CommissionSchedule {
	return sandbox.CommissionSchedule(c.Commission)
}

func (c *Config) SymbolInfos() []exchange.SymbolInfo {
	symbols := make([]exchange.SymbolInfo, 0, len(c.Symbols))
	for _, symbol := range c.Symbols {
		symbols = append(symbols, exchange.SymbolInfo(symbol))
	}
	return symbols
}

// Observations converts the inline memory tape quotes.
func (c *Config) Observations() []common.BidAsk {
	observations := make([]common.BidAsk, 0, len(c.Tape.Quotes))
	for _, quote := range c.Tape.Quotes {
		observations = append(observations, common.BidAsk(quote))
	}
	return observations
}

func invalid(key, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, key, reason)
}
