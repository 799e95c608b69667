package circuit

import (
	"sync/atomic"
	"time"
)

// State is the breaker position.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker shields callers from a repeatedly failing optional backend. After
// maxFailures consecutive failures it opens and Allow reports false until the
// cooldown elapses; then a single probe is admitted and its outcome closes or
// reopens the circuit. All methods are safe for concurrent use.
type Breaker struct {
	maxFailures int32
	cooldown    time.Duration

	state    int32 // atomic State
	failures int32 // atomic, consecutive
	openedAt int64 // atomic, unix nanos of the last trip
}

// New creates a breaker that opens after maxFailures consecutive failures
// and re-probes after cooldown.
func New(maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{maxFailures: int32(maxFailures), cooldown: cooldown}
}

// Allow reports whether the next call may proceed. In the open state it
// admits exactly one probe per cooldown window.
func (b *Breaker) Allow() bool {
	switch State(atomic.LoadInt32(&b.state)) {
	case StateClosed:
		return true
	case StateOpen:
		opened := time.Unix(0, atomic.LoadInt64(&b.openedAt))
		if time.Since(opened) < b.cooldown {
			return false
		}
		// CAS so concurrent callers race for the single probe slot.
		return atomic.CompareAndSwapInt32(&b.state, int32(StateOpen), int32(StateHalfOpen))
	default:
		return false
	}
}

// Success records a completed call and closes the circuit.
func (b *Breaker) Success() {
	atomic.StoreInt32(&b.failures, 0)
	atomic.StoreInt32(&b.state, int32(StateClosed))
}

// Failure records a failed call. A failed probe reopens immediately; in the
// closed state the circuit trips once the consecutive threshold is reached.
func (b *Breaker) Failure() {
	if State(atomic.LoadInt32(&b.state)) == StateHalfOpen {
		b.trip()
		return
	}
	if atomic.AddInt32(&b.failures, 1) >= b.maxFailures {
		b.trip()
	}
}

func (b *Breaker) trip() {
	atomic.StoreInt32(&b.failures, 0)
	atomic.StoreInt64(&b.openedAt, time.Now().UnixNano())
	atomic.StoreInt32(&b.state, int32(StateOpen))
}

// State returns the current position.
func (b *Breaker) State() State {
	return State(atomic.LoadInt32(&b.state))
}
