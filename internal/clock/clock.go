// Package clock supplies the time source used for every server-generated
// timestamp. Services never call time.Now directly.
package clock

import (
	"context"
	"sync"
	"time"

	"dojo/internal/dates"
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock, in UTC at microsecond precision.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Ticking is a deterministic clock that advances by a fixed step on every call.
type Ticking struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewTicking returns a clock whose first reading is start.
func NewTicking(start time.Time, step time.Duration) *Ticking {
	return &Ticking{now: start.UTC(), step: step}
}

// Now implements Clock.
func (c *Ticking) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Set moves the clock to t.
func (c *Ticking) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

type todayKey struct{}

// WithToday returns a context that pins the ledger's notion of "today" to day.
// Timestamps still come from the Clock.
func WithToday(ctx context.Context, day time.Time) context.Context {
	return context.WithValue(ctx, todayKey{}, dates.Day(day))
}

// Pinned reports the day set by WithToday, if any.
func Pinned(ctx context.Context) (time.Time, bool) {
	day, ok := ctx.Value(todayKey{}).(time.Time)
	return day, ok
}

// Today returns the calendar day used for defaulting and future-date checks.
func Today(ctx context.Context, c Clock) time.Time {
	if day, ok := Pinned(ctx); ok {
		return day
	}
	return dates.Day(c.Now())
}
