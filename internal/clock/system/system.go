// Package system provides the clocks used to stamp pipeline artifacts.
package system

import (
	"fmt"
	"strings"
	"time"
)

// Clock reads the wall clock in UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Frozen reports the same instant on every call. Enriching the same capture
// against the same Frozen clock yields an identical catalog.
type Frozen struct {
	at time.Time
}

// NewFrozen pins a clock at t.
func NewFrozen(t time.Time) Frozen {
	return Frozen{at: t.UTC()}
}

// Now returns the pinned instant.
func (f Frozen) Now() time.Time {
	return f.at
}

// ParseReference accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date.
func ParseReference(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse reference time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
