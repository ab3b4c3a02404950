package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/datasource/synthetic"
	"github.com/peter-kozarec/sandbox/pkg/exchange/sandbox"
	"github.com/peter-kozarec/sandbox/pkg/simulation"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

const sample = `
log: {level: debug, development: true}
simulation:
  start: 2024-03-01T14:30:00Z
  end:   2024-03-01T21:00:00Z
  compression: 60
  progress_interval: 1m
account: {code: DU000001, currency: USD, balance: "100000"}
commission: {rate: "0.005", minimum: "1", maximum_rate: "0.01"}
symbols: [{ticker: AAPL}]
tape:
  driver: postgres
  dsn: ${SANDBOX_TEST_DSN}
  retries: 3
journal: true
monitor: [executions, errors]
orders:
  - {ticker: AAPL, side: buy, quantity: 50, type: market}
  - ticker: AAPL
    side: buy
    quantity: "100"
    type: limit
    limit_price: "28.00"
    children:
      - {ticker: AAPL, side: sell, quantity: "100", type: trailing, trailing_amount: "0.01", trailing_unit: percent}
`

func TestParse(t *testing.T) {
	t.Setenv("SANDBOX_TEST_DSN", "postgres://test@localhost/quotes")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres://test@localhost/quotes", cfg.Tape.DSN)
	assert.Equal(t, time.Minute, cfg.Simulation.ProgressInterval)
	assert.Equal(t, simulation.DefaultCoarseTimerThreshold, cfg.Simulation.CoarseTimerThreshold)
	assert.Equal(t, 4096, cfg.Simulation.RouterCapacity)
	assert.True(t, cfg.Account.Balance.Eq(fixed.MustParse("100000")))
	assert.Equal(t, "USD", cfg.Symbols[0].Currency)
	assert.Equal(t, []string{"executions", "errors"}, cfg.Monitor)

	sim := cfg.SimulationConfiguration()
	assert.Equal(t, 6*time.Hour+30*time.Minute, sim.End.Sub(sim.Start))
	assert.Equal(t, time.Second/60, sim.SecondDuration())

	require.Len(t, cfg.Orders, 2)
	bracket, err := cfg.Orders[1].ToOrder()
	require.NoError(t, err)
	assert.Equal(t, common.OrderTypeLimit, bracket.Type())
	require.Len(t, bracket.Children, 1)
	trailing, ok := bracket.Children[0].Kind.(*common.TrailingStopOrder)
	require.True(t, ok)
	assert.Equal(t, common.TrailingUnitPercent, trailing.Unit)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T14:31:00Z}
symbols: [{ticker: AAPL}]
`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, TapeMemory, cfg.Tape.Driver)
	assert.Equal(t, sandbox.DefaultAccountCode, cfg.Account.Code)
	assert.True(t, cfg.Account.Balance.Eq(sandbox.DefaultBalance))
	assert.Equal(t, sandbox.DefaultCommissionSchedule, cfg.CommissionSchedule())
}

func TestParse_ValidationNamesTheKey(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		key  string
	}{
		{"end before start", `
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T14:00:00Z}
symbols: [{ticker: AAPL}]`, "simulation.end"},
		{"no symbols", `
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T15:00:00Z}`, "symbols"},
		{"unknown driver", `
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T15:00:00Z}
symbols: [{ticker: AAPL}]
tape: {driver: csv}`, "tape.driver"},
		{"missing dsn", `
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T15:00:00Z}
symbols: [{ticker: AAPL}]
tape: {driver: historical}`, "tape.dsn"},
		{"journal without postgres", `
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T15:00:00Z}
symbols: [{ticker: AAPL}]
journal: true`, "journal"},
		{"bad order", `
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T15:00:00Z}
symbols: [{ticker: AAPL}]
orders: [{ticker: AAPL, side: hold, quantity: 1}]`, "orders[0]"},
		{"bad child", `
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T15:00:00Z}
symbols: [{ticker: AAPL}]
orders: [{ticker: AAPL, side: buy, quantity: 1, children: [{ticker: AAPL, side: sell, quantity: 1, type: iceberg}]}]`, "children[0].type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T14:31:00Z}
symbols: [{ticker: AAPL}]
`), 0o600))
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Symbols, 1)
}

func TestLoad_NoPath(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSynthetic_Parameters(t *testing.T) {
	cfg, err := Parse([]byte(`
simulation: {start: 2024-03-01T14:30:00Z, end: 2024-03-01T14:31:00Z}
symbols: [{ticker: AAPL}]
tape:
  driver: synthetic
  synthetic: {seed: 9, start_price: 28.5, interval: 500ms}
`))
	require.NoError(t, err)

	params := cfg.Tape.Synthetic.Parameters()
	assert.Equal(t, uint64(9), cfg.Tape.Synthetic.Seed)
	assert.Equal(t, 28.5, params.StartPrice)
	assert.Equal(t, 500*time.Millisecond, params.Interval)
	assert.Equal(t, synthetic.DefaultParameters.Sigma, params.Sigma)
}
