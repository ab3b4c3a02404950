package sandbox

import (
	"time"

	"github.com/peter-kozarec/sandbox/pkg/common"
)

// cursor walks the tape of one ticker forward, one second at a time.
type cursor struct {
	observations []common.BidAsk
	idx          int
	last         common.BidAsk
	seen         bool
}

func newCursor(observations []common.BidAsk) *cursor {
	return &cursor{observations: observations}
}

// Advance returns the observations stamped with second t and skips anything older.
func (c *cursor) Advance(t time.Time) []common.BidAsk {
	for c.idx < len(c.observations) && c.observations[c.idx].Second().Before(t) {
		c.last = c.observations[c.idx]
		c.seen = true
		c.idx++
	}

	begin := c.idx
	for c.idx < len(c.observations) && c.observations[c.idx].Second().Equal(t) {
		c.idx++
	}
	current := c.observations[begin:c.idx]
	if len(current) > 0 {
		c.last = current[len(current)-1]
		c.seen = true
	}
	return current
}

// Last is the most recent observation at or before the last advanced second.
func (c *cursor) Last() (common.BidAsk, bool) {
	return c.last, c.seen
}

func (c *cursor) Rewind() {
	c.idx = 0
	c.last = common.BidAsk{}
	c.seen = false
}
