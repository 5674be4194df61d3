// Package countdown drives an exam timer from an absolute deadline.
//
// Remaining time is always recomputed as deadline minus now, so a process
// that was suspended (laptop lid closed, terminal stopped) reports the time
// actually lost instead of resuming where the ticks left off.
package countdown

import (
	"fmt"
	"sync"
	"time"

	"github.com/stemsi/exstem-review/internal/clock"
)

// TickInterval is the refresh period of a running countdown.
const TickInterval = time.Second

// Reading is one observation of the countdown.
type Reading struct {
	Remaining int    // whole seconds, rounded up
	Display   string // HH:MM:SS
	Expired   bool
}

// FormatHMS renders seconds as zero-padded HH:MM:SS. Values <= 0 render as 00:00:00.
func FormatHMS(total int) string {
	if total <= 0 {
		return "00:00:00"
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Driver owns one deadline and at most one ticker.
type Driver struct {
	clock    clock.Clock
	onTick   func(Reading)
	onExpire func()

	mu       sync.Mutex
	deadline time.Time
	active   bool
	expired  bool
	ticker   clock.Ticker
	done     chan struct{}
	// epoch changes on every Cancel. An expiry observed under an older
	// epoch belongs to a deadline that no longer exists.
	epoch uint64
}

// New creates a Driver. onTick receives every reading produced by the
// running ticker; onExpire is called exactly once when the deadline passes.
// Either callback may be nil. Callbacks run without the driver's lock held.
func New(c clock.Clock, onTick func(Reading), onExpire func()) *Driver {
	if c == nil {
		c = clock.Real()
	}
	return &Driver{clock: c, onTick: onTick, onExpire: onExpire}
}

// Activate fixes the deadline at now + remainingSeconds. It returns false and
// changes nothing when the session is untimed (nil or <= 0) or the driver is
// already active; a new deadline requires Cancel first.
func (d *Driver) Activate(remainingSeconds *int) bool {
	if remainingSeconds == nil || *remainingSeconds <= 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return false
	}
	d.deadline = d.clock.Now().Add(time.Duration(*remainingSeconds) * time.Second)
	d.active = true
	d.expired = false
	return true
}

// Active reports whether a deadline is set.
func (d *Driver) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Remaining returns the live remaining seconds. ok is false when no deadline is set.
func (d *Driver) Remaining() (secs int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return 0, false
	}
	return d.remainingLocked(), true
}

// Tick recomputes the remaining time. The first tick that observes zero
// stops the ticker and fires onExpire; later ticks only report Expired.
func (d *Driver) Tick() Reading {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return Reading{}
	}

	remaining := d.remainingLocked()
	fire := false
	if remaining == 0 && !d.expired {
		d.expired = true
		fire = true
		d.stopLocked()
	}
	r := Reading{Remaining: remaining, Display: FormatHMS(remaining), Expired: d.expired}
	epoch := d.epoch
	d.mu.Unlock()

	if fire {
		d.fireExpiry(epoch)
	}
	return r
}

// fireExpiry calls onExpire unless the driver was cancelled since epoch.
func (d *Driver) fireExpiry(epoch uint64) {
	d.mu.Lock()
	stale := d.epoch != epoch
	d.mu.Unlock()
	if stale || d.onExpire == nil {
		return
	}
	d.onExpire()
}

// Expired reports whether the current deadline has passed and fired.
func (d *Driver) Expired() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active && d.expired
}

// Start launches the 1-second ticker. It is a no-op when the driver has no
// deadline, has expired, or is already running.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active || d.expired || d.ticker != nil {
		return
	}

	t := d.clock.NewTicker(TickInterval)
	done := make(chan struct{})
	d.ticker = t
	d.done = done

	go d.loop(t, done)
}

func (d *Driver) loop(t clock.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-t.C():
			r := d.Tick()
			if d.onTick != nil {
				d.onTick(r)
			}
			if r.Expired {
				return
			}
		}
	}
}

// Cancel stops the ticker and clears the deadline so the driver can be
// activated again for a new attempt. Safe to call repeatedly.
func (d *Driver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.active = false
	d.expired = false
	d.epoch++
}

// Running reports whether a ticker is currently scheduled.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticker != nil
}

func (d *Driver) remainingLocked() int {
	left := d.deadline.Sub(d.clock.Now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func (d *Driver) stopLocked() {
	if d.ticker == nil {
		return
	}
	d.ticker.Stop()
	close(d.done)
	d.ticker = nil
	d.done = nil
}
