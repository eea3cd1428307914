package ratelimit

import "time"

// Clock abstracts wall-clock time so tests can run without real waits.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
