package simulation

import (
	"sync"
	"time"

	"github.com/peter-kozarec/sandbox/pkg/common"
	"github.com/peter-kozarec/sandbox/pkg/utility/fixed"
)

type equitySnapshot struct {
	equity fixed.Point
	t      time.Time
}

// Audit collects the equity curve and the fills of a run.
type Audit struct {
	mu                  sync.Mutex
	minSnapshotInterval time.Duration

	snapshots  []equitySnapshot
	executions []common.Execution
}

func NewAudit(minSnapshotInterval time.Duration) *Audit {
	return &Audit{
		minSnapshotInterval: minSnapshotInterval,
	}
}

func (a *Audit) AddEquitySnapshot(equity fixed.Point, t time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.snapshots) == 0 || t.Sub(a.snapshots[len(a.snapshots)-1].t) >= a.minSnapshotInterval {
		a.snapshots = append(a.snapshots, equitySnapshot{equity: equity, t: t})
	}
}

func (a *Audit) AddExecution(execution common.Execution) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.executions = append(a.executions, execution)
}

func (a *Audit) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snapshots = nil
	a.executions = nil
}

func (a *Audit) GenerateReport() Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := Report{}

	if len(a.snapshots) > 0 {
		first, last := a.snapshots[0], a.snapshots[len(a.snapshots)-1]
		report.StartDate = first.t
		report.EndDate = last.t
		report.InitialEquity = first.equity
		report.FinalEquity = last.equity

		if first.equity.IsPositive() {
			report.TotalProfit = last.equity.Div(first.equity).Sub(fixed.One).MulInt64(100).Rescale(2)
		}

		maxEquity := first.equity
		for _, snapshot := range a.snapshots {
			if snapshot.equity.Gt(maxEquity) {
				maxEquity = snapshot.equity
			}
			if !maxEquity.IsPositive() {
				continue
			}
			drawdown := maxEquity.Sub(snapshot.equity).Div(maxEquity)
			if drawdown.Gt(report.MaxDrawdown) {
				report.MaxDrawdown = drawdown
			}
		}
		report.MaxDrawdown = report.MaxDrawdown.MulInt64(100).Rescale(2)
	}

	var (
		totalProfit fixed.Point
		totalLoss   fixed.Point
	)
	for _, execution := range a.executions {
		report.Executions++
		report.TotalCommission = report.TotalCommission.Add(execution.Commission.Commission)
		report.Turnover = report.Turnover.Add(execution.Notional())

		// Only sells close quantity and realize PnL.
		if execution.Side != common.OrderSideSell {
			continue
		}
		report.TotalTrades++

		pnl := execution.Commission.RealizedPnL
		if pnl.IsPositive() {
			totalProfit = totalProfit.Add(pnl)
			report.WinningTrades++
		} else {
			totalLoss = totalLoss.Add(pnl.Neg())
			report.LosingTrades++
		}
	}

	if report.WinningTrades > 0 {
		report.AverageWin = totalProfit.DivInt64(int64(report.WinningTrades))
	}
	if report.LosingTrades > 0 {
		report.AverageLoss = totalLoss.DivInt64(int64(report.LosingTrades))
	}
	if totalLoss.IsPositive() {
		report.ProfitFactor = totalProfit.Div(totalLoss)
	}
	if report.AverageLoss.IsPositive() {
		report.RiskRewardRatio = report.AverageWin.Div(report.AverageLoss)
	}
	if report.TotalTrades > 0 {
		report.Expectancy = totalProfit.Sub(totalLoss).DivInt64(int64(report.TotalTrades))
		report.WinRate = fixed.FromInt(report.WinningTrades, 0).DivInt64(int64(report.TotalTrades)).MulInt64(100).Rescale(2)
	}

	return report
}
