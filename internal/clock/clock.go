// Package clock abstracts time for the bond engine. Every engine operation
// reads the current moment exactly once, so a manual clock can replay full
// bond lifetimes deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current unix time in seconds.
type Clock interface {
	Now() int64
}

// System reads the host clock.
type System struct{}

// Now returns the current unix time.
func (System) Now() int64 {
	return time.Now().Unix()
}

// Manual is a settable clock for tests and simulations. Time never moves
// unless told to, and never moves backwards.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual creates a manual clock set to the given unix time.
func NewManual(now int64) *Manual {
	return &Manual{now: now}
}

// Now returns the clock's current time.
func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to the given time. Panics on an attempt to move
// backwards: a rewinding clock would invalidate every deadline check made
// since.
func (m *Manual) Set(now int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now < m.now {
		panic("clock: cannot move backwards")
	}
	m.now = now
}

// Advance moves the clock forward by d seconds.
func (m *Manual) Advance(d int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		panic("clock: cannot move backwards")
	}
	m.now += d
}
