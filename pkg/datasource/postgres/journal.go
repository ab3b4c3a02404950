package postgres

import (
	"context"
	"fmt"

	"github.com/peter-kozarec/sandbox/pkg/common"
)

// InsertExecution records a fill. Replaying the same run is a no-op.
func (t *Tape) InsertExecution(ctx context.Context, execution common.Execution) error {
	_, err := t.pool.Exec(ctx, `
		INSERT INTO executions (
			run_id, execution_id, order_id, ticker, side, quantity, price,
			commission, currency, realized_pnl, ts
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9, $10::numeric, $11)
		ON CONFLICT (run_id, execution_id) DO NOTHING`,
		execution.RunId.String(),
		execution.Id,
		execution.OrderId,
		execution.Ticker,
		execution.Side.String(),
		execution.Quantity.String(),
		execution.AvgPrice.String(),
		execution.Commission.Commission.String(),
		execution.Commission.Currency,
		execution.Commission.RealizedPnL.String(),
		execution.TimeStamp,
	)
	if err != nil {
		return fmt.Errorf("insert execution %d: %w", execution.Id, err)
	}
	return nil
}

// CountExecutions returns the number of fills recorded for a run.
func (t *Tape) CountExecutions(ctx context.Context, runId string) (int, error) {
	var count int
	if err := t.pool.QueryRow(ctx, `SELECT count(*) FROM executions WHERE run_id = $1`, runId).Scan(&count); err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return count, nil
}
