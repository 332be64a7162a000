package engagement

import "time"

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// SetSessionsClock replaces the clock used for idle tracking.
func SetSessionsClock(s *Sessions, now func() time.Time) { s.now = now }
