package simulation

import "time"

// WallClock reads the host clock. It is used when the engine is driven by a live feed.
type WallClock struct{}

func (WallClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
