package common

import (
	"time"

	"github.com/peter-kozarec/sandbox/pkg/utility"
)

// Meta is stamped on every event the engine publishes.
type Meta struct {
	Source    string          `json:"src,omitempty"`
	RunId     utility.RunID   `json:"rid,omitempty"`
	TraceID   utility.TraceID `json:"tid,omitempty"`
	TimeStamp time.Time       `json:"ts"`
}
