package simulation

import (
	"fmt"
	"time"
)

type Configuration struct {
	Start time.Time
	End   time.Time
	// Compression is simulated seconds per wall second. Zero or less runs unthrottled.
	Compression          float64
	CoarseTimerThreshold time.Duration
	// ProgressInterval is simulated time between progress events. Zero disables them.
	ProgressInterval time.Duration
}

func (c Configuration) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidRange)
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidRange, c.End, c.Start)
	}
	return nil
}

// SecondDuration is the wall time one simulated second takes.
func (c Configuration) SecondDuration() time.Duration {
	if c.Compression <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.Compression)
}

func (c Configuration) withDefaults() Configuration {
	if c.CoarseTimerThreshold <= 0 {
		c.CoarseTimerThreshold = DefaultCoarseTimerThreshold
	}
	c.Start = c.Start.Truncate(time.Second)
	return c
}
