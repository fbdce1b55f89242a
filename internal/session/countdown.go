package session

import (
	"sync"
	"time"
)

// Clock is an injectable time source.
type Clock func() time.Time

// Ticker abstracts the periodic scheduler so tests can drive ticks by hand
// instead of waiting on the wall clock.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a Ticker with the given period.
type TickerFactory func(d time.Duration) Ticker

// NewWallTicker is the production TickerFactory, backed by time.Ticker.
func NewWallTicker(d time.Duration) Ticker {
	return wallTicker{time.NewTicker(d)}
}

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// CountdownState enumerates the countdown lifecycle.
type CountdownState string

const (
	CountdownNotStarted CountdownState = "NOT_STARTED"
	CountdownRunning    CountdownState = "RUNNING"
	CountdownExpired    CountdownState = "EXPIRED"
)

// Countdown derives remaining time from a deadline fixed once at session
// start. Each tick recomputes remaining = deadline - now() rather than
// decrementing a counter, so suspended processes and missed ticks cannot
// drift the cutoff. Expiry invokes the callback exactly once.
type Countdown struct {
	mu       sync.Mutex
	state    CountdownState
	deadline time.Time
	lowTime  time.Duration

	clock     Clock
	newTicker TickerFactory

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCountdown creates a countdown against the given hard deadline.
// lowTime is the presentation urgency threshold, not a separate state.
func NewCountdown(deadline time.Time, lowTime time.Duration, clock Clock, newTicker TickerFactory) *Countdown {
	if clock == nil {
		clock = time.Now
	}
	if newTicker == nil {
		newTicker = NewWallTicker
	}
	return &Countdown{
		state:     CountdownNotStarted,
		deadline:  deadline,
		lowTime:   lowTime,
		clock:     clock,
		newTicker: newTicker,
		stop:      make(chan struct{}),
	}
}

// Start begins ticking once per second. onTick (optional) receives the
// freshly recomputed remaining time; onExpire fires exactly once when the
// deadline passes, including when it already passed before Start.
func (c *Countdown) Start(onTick func(remaining time.Duration), onExpire func()) {
	c.mu.Lock()
	if c.state != CountdownNotStarted {
		c.mu.Unlock()
		return
	}
	c.state = CountdownRunning
	c.mu.Unlock()

	go c.run(onTick, onExpire)
}

func (c *Countdown) run(onTick func(time.Duration), onExpire func()) {
	// A session reopened after its deadline must expire immediately,
	// not one tick later.
	if c.checkExpiry(onTick, onExpire) {
		return
	}

	t := c.newTicker(time.Second)
	defer t.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-t.C():
			if c.checkExpiry(onTick, onExpire) {
				return
			}
		}
	}
}

// checkExpiry recomputes remaining time and fires expiry when it hits zero.
// Returns true when the countdown is finished.
func (c *Countdown) checkExpiry(onTick func(time.Duration), onExpire func()) bool {
	remaining := c.Remaining()
	if onTick != nil {
		onTick(remaining)
	}
	if remaining > 0 {
		return false
	}

	// A Stop racing with a delivered tick must win: a stale timer may
	// never force-submit a closed session.
	select {
	case <-c.stop:
		return true
	default:
	}

	c.mu.Lock()
	if c.state != CountdownRunning {
		c.mu.Unlock()
		return true
	}
	c.state = CountdownExpired
	c.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
	return true
}

// Remaining returns max(0, deadline - now). The local value is
// authoritative for forced submission; no server round trip is consulted.
func (c *Countdown) Remaining() time.Duration {
	rem := c.deadline.Sub(c.clock())
	if rem < 0 {
		return 0
	}
	return rem
}

// LowTime reports whether the urgency presentation threshold is reached.
func (c *Countdown) LowTime() bool {
	return c.Remaining() <= c.lowTime
}

// State returns the current countdown state.
func (c *Countdown) State() CountdownState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop tears the countdown down without firing expiry. Must be called when
// the session view terminates so a stale timer can never force-submit a
// closed session. Idempotent.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
