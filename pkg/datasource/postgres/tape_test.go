package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/datasource/memory"
	"github.com/peter-kozarec/sandbox/pkg/utility"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

var start = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func setupTape(t *testing.T) *Tape {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("quotes"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	tape, err := NewTape(ctx, zap.NewNop(), dsn)
	require.NoError(t, err)
	t.Cleanup(tape.Close)

	require.NoError(t, tape.CreateSchema(ctx))
	return tape
}

func TestTape_Fetch(t *testing.T) {
	tape := setupTape(t)
	ctx := context.Background()

	require.NoError(t, tape.Insert(ctx, memory.Series("aapl", start,
		[2]string{"28.00", "28.10"},
		[2]string{"28.05", "28.15"},
		[2]string{"28.10", "28.20"},
	)...))

	observations, err := tape.Fetch(ctx, "AAPL", start.Add(time.Second), start.Add(2*time.Second))
	require.NoError(t, err)
	require.Len(t, observations, 1)

	assert.Equal(t, "AAPL", observations[0].Ticker)
	assert.True(t, observations[0].TimeStamp.Equal(start.Add(time.Second)))
	assert.True(t, observations[0].Bid.Eq(fixed.MustParse("28.05")))
	assert.True(t, observations[0].Ask.Eq(fixed.MustParse("28.15")))
}

func TestTape_FetchUnknownTicker(t *testing.T) {
	tape := setupTape(t)

	observations, err := tape.Fetch(context.Background(), "MSFT", start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, observations)
}

func TestTape_InsertExecutionIsIdempotent(t *testing.T) {
	tape := setupTape(t)
	ctx := context.Background()

	execution := common.Execution{
		Id:       1,
		OrderId:  3,
		Ticker:   "AAPL",
		Side:     common.OrderSideBuy,
		Quantity: fixed.MustParse("50"),
		AvgPrice: fixed.MustParse("28.10"),
		Commission: common.CommissionReport{
			Commission: fixed.One,
			Currency:   "USD",
		},
		Meta: common.Meta{RunId: utility.NewRunID(), TimeStamp: start},
	}

	require.NoError(t, tape.InsertExecution(ctx, execution))
	require.NoError(t, tape.InsertExecution(ctx, execution))

	count, err := tape.CountExecutions(ctx, execution.RunId.String())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
