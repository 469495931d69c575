package occurrence

import (
	"sync"
	"time"

	"medtrack-server/internal/events"
)

// DefaultUndoWindow is how long a completion or removal can be reversed.
const DefaultUndoWindow = 5 * time.Second

// Action is the kind of mutation an UndoAction reverses.
type Action string

const (
	ActionComplete Action = "complete"
	ActionRemove   Action = "remove"
)

// UndoAction records the last mutation so it can be reversed. Previous is
// the acted-on occurrence as it was before the mutation.
type UndoAction struct {
	ItemID     string          `json:"itemId"`
	ItemType   events.ItemType `json:"itemType"`
	PatientID  string          `json:"patientId,omitempty"`
	Action     Action          `json:"action"`
	Hora       string          `json:"hora"`
	Timestamp  time.Time       `json:"timestamp"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	Previous   Occurrence      `json:"-"`
	StockTaken bool            `json:"-"`

	// replaced is the action that was live before this one, so a failed
	// write can hand the slot back.
	replaced *UndoAction
}

// Event is the bus event announcing the mutation u records.
func (u UndoAction) Event() events.Event {
	typ := events.TypeRemove
	if u.Action == ActionComplete {
		typ = events.TypeComplete
	}
	return events.Event{
		Type:      typ,
		ItemID:    u.ItemID,
		ItemType:  u.ItemType,
		PatientID: u.PatientID,
		Hora:      u.Hora,
		Timestamp: u.Timestamp,
	}
}

func (u UndoAction) is(o *UndoAction) bool {
	return o != nil &&
		o.ItemID == u.ItemID &&
		o.ItemType == u.ItemType &&
		o.Action == u.Action &&
		o.Hora == u.Hora &&
		o.Timestamp.Equal(u.Timestamp)
}

// produced reports whether o is still the occurrence u left behind. Stored
// timestamps may lose sub-second precision.
func (u UndoAction) produced(o Occurrence) bool {
	switch u.Action {
	case ActionComplete:
		return o.Status == StatusCompleted && o.CompletedAt != nil &&
			o.CompletedAt.Truncate(time.Second).Equal(u.Timestamp.Truncate(time.Second))
	case ActionRemove:
		return o.Status == StatusExcluded
	}
	return false
}

// Tracker applies occurrence transitions and keeps at most one live
// UndoAction. A newer action replaces an older one. Transitions publish
// nothing; the caller announces them once stored.
type Tracker struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	pub     events.Publisher
	pending *UndoAction
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker publishing to pub. pub may be nil.
func NewTracker(window time.Duration, pub events.Publisher, opts ...Option) *Tracker {
	if window <= 0 {
		window = DefaultUndoWindow
	}
	t := &Tracker{window: window, now: time.Now, pub: pub}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Complete marks the pending occurrence at hora as completed.
func (t *Tracker) Complete(it Item, hora string) (Item, UndoAction, error) {
	return t.transition(it, hora, ActionComplete)
}

// Remove marks the pending occurrence at hora as excluded.
func (t *Tracker) Remove(it Item, hora string) (Item, UndoAction, error) {
	return t.transition(it, hora, ActionRemove)
}

func (t *Tracker) transition(it Item, hora string, action Action) (Item, UndoAction, error) {
	idx := it.Find(hora)
	if idx < 0 || !it.Occurrences[idx].Real() {
		return it, UndoAction{}, ErrUnknownOccurrence
	}
	if it.Occurrences[idx].Status != StatusPending {
		return it, UndoAction{}, ErrNotPending
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	undo := UndoAction{
		ItemID:    it.ID,
		ItemType:  it.Type,
		PatientID: it.PatientID,
		Action:    action,
		Hora:      hora,
		Timestamp: now,
		ExpiresAt: now.Add(t.window),
		Previous:  cloneOccurrences(it.Occurrences[idx : idx+1])[0],
	}

	next := it.Clone()
	occ := &next.Occurrences[idx]
	if action == ActionComplete {
		occ.Status = StatusCompleted
		stamp := now
		occ.CompletedAt = &stamp
		if next.TracksStock && next.Stock > 0 {
			next.Stock--
			undo.StockTaken = true
		}
	} else {
		occ.Status = StatusExcluded
	}
	Recompute(&next)

	if t.pending != nil {
		prev := *t.pending
		prev.replaced = nil
		undo.replaced = &prev
	}
	live := undo
	t.pending = &live
	return next, undo, nil
}

// Pending returns the live UndoAction, if any. An action whose window has
// elapsed is dropped.
func (t *Tracker) Pending() (UndoAction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.livePending()
}

func (t *Tracker) livePending() (UndoAction, bool) {
	if t.pending == nil {
		return UndoAction{}, false
	}
	if t.now().After(t.pending.ExpiresAt) {
		t.pending = nil
		return UndoAction{}, false
	}
	return *t.pending, true
}

// Undo reverses the live action on current, the item as it is now. Only
// the acted-on occurrence and the stock it took are put back, so changes
// made since by others survive. When that occurrence is no longer what the
// action left, the action is dropped and ErrUndoMismatch returned. No bus
// event is published.
func (t *Tracker) Undo(current Item) (Item, UndoAction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	action, ok := t.livePending()
	if !ok {
		return current, UndoAction{}, ErrNoPendingUndo
	}
	if action.ItemID != current.ID || action.ItemType != current.Type {
		return current, UndoAction{}, ErrUndoMismatch
	}
	t.pending = nil
	idx := current.Find(action.Hora)
	if idx < 0 || !action.produced(current.Occurrences[idx]) {
		return current, UndoAction{}, ErrUndoMismatch
	}

	next := current.Clone()
	next.Occurrences[idx] = cloneOccurrences([]Occurrence{action.Previous})[0]
	if action.StockTaken && next.TracksStock {
		next.Stock++
	}
	Recompute(&next)
	action.replaced = nil
	return next, action, nil
}

// Rollback withdraws undo after the write it describes failed. The action
// that was live before it becomes live again.
func (t *Tracker) Rollback(undo UndoAction) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case undo.is(t.pending):
		t.pending = t.pending.replaced
	case t.pending != nil && undo.is(t.pending.replaced):
		t.pending.replaced = nil
	}
}

// Publish announces a stored mutation.
func (t *Tracker) Publish(e events.Event) {
	if t.pub != nil {
		t.pub.Publish(e)
	}
}

func (t *Tracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.livePending()
	return !ok
}

// Restore brings an item removed from today's view back into it. It has no
// time limit and leaves occurrence statuses untouched. The returned event is
// for the caller to publish once the item is stored. The boolean is false
// when the item was not removed.
func (t *Tracker) Restore(it Item) (Item, events.Event, bool) {
	if !it.RemovedFromToday {
		return it, events.Event{}, false
	}
	next := it.Clone()
	next.RemovedFromToday = false
	next.RemovalReason = RemovalNone

	t.mu.Lock()
	now := t.now()
	t.mu.Unlock()

	return next, events.Event{
		Type:      events.TypeRestore,
		ItemID:    it.ID,
		ItemType:  it.Type,
		PatientID: it.PatientID,
		Timestamp: now,
	}, true
}

// Registry hands out one Tracker per account, so each account has its own
// undo slot. A tracker with no live action that nobody asked for during
// idleAfter is evicted.
type Registry struct {
	mu        sync.Mutex
	window    time.Duration
	pub       events.Publisher
	opts      []Option
	now       func() time.Time
	idleAfter time.Duration
	lastSweep time.Time
	trackers  map[string]*registered
}

type registered struct {
	tracker *Tracker
	used    time.Time
}

// NewRegistry creates a Registry whose trackers share window, pub and opts.
func NewRegistry(window time.Duration, pub events.Publisher, opts ...Option) *Registry {
	// The registry reads the same clock as its trackers.
	base := NewTracker(window, nil, opts...)
	return &Registry{
		window:    base.window,
		pub:       pub,
		opts:      opts,
		now:       base.now,
		idleAfter: 12 * base.window,
		trackers:  make(map[string]*registered),
	}
}

// For returns the tracker of accountID, creating it on first use.
func (r *Registry) For(accountID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)
	e, ok := r.trackers[accountID]
	if !ok {
		e = &registered{tracker: NewTracker(r.window, r.pub, r.opts...)}
		r.trackers[accountID] = e
	}
	e.used = now
	return e.tracker
}

// sweep runs at most once per idleAfter. r.mu must be held.
func (r *Registry) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < r.idleAfter {
		return
	}
	r.lastSweep = now
	for id, e := range r.trackers {
		if now.Sub(e.used) >= r.idleAfter && e.tracker.idle() {
			delete(r.trackers, id)
		}
	}
}

// Len returns how many trackers are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}

// Forget drops the tracker of accountID, e.g. on logout.
func (r *Registry) Forget(accountID string) {
	r.mu.Lock()
	delete(r.trackers, accountID)
	r.mu.Unlock()
}
