package gesture

import (
	"sync"
	"time"
)

// Callbacks receive dispatched intents. Nil callbacks are skipped.
type Callbacks struct {
	OnComplete func()
	OnRemove   func()
	OnEdit     func()
}

// Dispatcher routes results to callbacks. Swipes fire immediately; a tap
// fires OnEdit only after the debounce delay, and a gesture that begins in
// the meantime cancels it, so one touch is never read as both.
type Dispatcher struct {
	mu       sync.Mutex
	debounce time.Duration
	cb       Callbacks
	timer    *time.Timer
}

// NewDispatcher creates a Dispatcher with the given tap debounce.
func NewDispatcher(debounce time.Duration, cb Callbacks) *Dispatcher {
	return &Dispatcher{debounce: debounce, cb: cb}
}

// Begin must be called when a new gesture starts.
func (d *Dispatcher) Begin() {
	d.mu.Lock()
	d.stopLocked()
	d.mu.Unlock()
}

// Dispatch acts on res.
func (d *Dispatcher) Dispatch(res Result) {
	switch res.Intent {
	case IntentComplete:
		d.Begin()
		call(d.cb.OnComplete)
	case IntentRemove:
		d.Begin()
		call(d.cb.OnRemove)
	case IntentEdit:
		d.mu.Lock()
		d.stopLocked()
		d.timer = time.AfterFunc(d.debounce, func() { call(d.cb.OnEdit) })
		d.mu.Unlock()
	}
}

// Stop cancels a pending tap.
func (d *Dispatcher) Stop() {
	d.Begin()
}

func (d *Dispatcher) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
