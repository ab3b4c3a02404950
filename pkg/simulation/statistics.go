package simulation

import (
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/sandbox/pkg/utility"
)

// RunStatistics resolves the future returned by Scheduler.Start.
type RunStatistics struct {
	RunId   utility.RunID
	Start   time.Time
	End     time.Time
	Ticks   uint64
	Runtime time.Duration
}

func (s RunStatistics) Print(logger *zap.Logger) {
	logger.Info("run statistics",
		zap.Stringer("run_id", s.RunId),
		zap.Time("start", s.Start),
		zap.Time("end", s.End),
		zap.Uint64("ticks", s.Ticks),
		zap.Duration("runtime", s.Runtime))
}
