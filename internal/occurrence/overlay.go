package occurrence

import "sync"

// Overlay holds optimistic item states keyed by item id while a write to the
// store is in flight. Reads layer it over stored data until the write is
// reconciled with the authoritative state or discarded.
type Overlay struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewOverlay creates an empty Overlay.
func NewOverlay() *Overlay {
	return &Overlay{items: make(map[string]Item)}
}

// Put records the optimistic state of it.
func (o *Overlay) Put(it Item) {
	o.mu.Lock()
	o.items[it.ID] = it.Clone()
	o.mu.Unlock()
}

// Get returns the optimistic state for id, if any.
func (o *Overlay) Get(id string) (Item, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	it, ok := o.items[id]
	if !ok {
		return Item{}, false
	}
	return it.Clone(), true
}

// Apply returns it, or its optimistic replacement when one exists.
func (o *Overlay) Apply(it Item) Item {
	if pending, ok := o.Get(it.ID); ok {
		return pending
	}
	return it
}

// Reconcile drops the optimistic entry for authoritative.ID and returns the
// authoritative state, which always wins.
func (o *Overlay) Reconcile(authoritative Item) Item {
	o.Discard(authoritative.ID)
	return authoritative
}

// Discard drops the optimistic entry for id.
func (o *Overlay) Discard(id string) {
	o.mu.Lock()
	delete(o.items, id)
	o.mu.Unlock()
}

// Len returns the number of in-flight entries.
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}
