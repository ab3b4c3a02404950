package utility

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RunID identifies one simulated run. A reset starts a new run.
type RunID = uuid.UUID

// TraceID correlates an emitted event with the request or tick that caused it.
type TraceID = uint64

const (
	machineBits  = 10
	sequenceBits = 13

	maxSequence = 1<<sequenceBits - 1
	maxMachine  = 1<<machineBits - 1

	timestampShift = machineBits + sequenceBits
	machineShift   = sequenceBits
)

var (
	traceSequence atomic.Uint64
	machineID     = uint64(uuid.New().ID()) & maxMachine
	epoch         = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
)

func NewRunID() RunID {
	return uuid.Must(uuid.NewV7())
}

// NewTraceID packs wall-clock milliseconds, a machine id and a rolling sequence.
func NewTraceID() TraceID {
	timestamp := uint64(time.Now().UnixMilli() - epoch)
	seq := traceSequence.Add(1) & maxSequence
	return (timestamp << timestampShift) | (machineID << machineShift) | seq
}

func ParseTraceID(id TraceID) (timestamp time.Time, machine uint64, seq uint64) {
	seq = id & maxSequence
	machine = (id >> machineShift) & maxMachine
	timestamp = time.UnixMilli(epoch + int64(id>>timestampShift))
	return
}

// Sequence hands out strictly increasing identifiers starting at 1.
// The zero value is ready to use and safe for concurrent callers.
type Sequence struct {
	last atomic.Int64
}

func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

func (s *Sequence) Last() int64 {
	return s.last.Load()
}
