// Package occurrence tracks the daily occurrences of a medication dose or an
// appointment: which one is due next, completion and exclusion, and the
// single-level undo that reverses the last action within a short window.
package occurrence

import (
	"errors"
	"sort"
	"time"

	"medtrack-server/internal/events"
)

// Status of a single occurrence.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusExcluded  Status = "excluded"
)

// NoTime marks an entity with no scheduled times. It never counts as due.
const NoTime = "-"

// RemovalReason explains why an entity left today's view.
type RemovalReason string

const (
	RemovalNone      RemovalReason = ""
	RemovalCompleted RemovalReason = "completed"
	RemovalExcluded  RemovalReason = "excluded"
)

var (
	ErrUnknownOccurrence = errors.New("occurrence not found")
	ErrNotPending        = errors.New("occurrence is not pending")
	ErrNoPendingUndo     = errors.New("nothing to undo")
	ErrUndoMismatch      = errors.New("pending undo belongs to another item")
)

// Occurrence is one scheduled instance of a dose or appointment on a day.
type Occurrence struct {
	Hora         string     `json:"hora"`
	Status       Status     `json:"status"`
	OccurrenceID string     `json:"occurrence_id,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Real reports whether o has an actual scheduled time.
func (o Occurrence) Real() bool {
	return o.Hora != "" && o.Hora != NoTime
}

// Item is the tracked state of one medication or appointment for today.
type Item struct {
	ID               string
	Type             events.ItemType
	PatientID        string
	Occurrences      []Occurrence
	NextDue          string
	AllCompleted     bool
	RemovedFromToday bool
	RemovalReason    RemovalReason
	TracksStock      bool
	Stock            int
}

// Find returns the index of the occurrence scheduled at hora, or -1.
func (it Item) Find(hora string) int {
	for i, o := range it.Occurrences {
		if o.Hora == hora {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of it; the occurrence slice and its time
// pointers are not shared with the original.
func (it Item) Clone() Item {
	out := it
	out.Occurrences = cloneOccurrences(it.Occurrences)
	return out
}

func cloneOccurrences(in []Occurrence) []Occurrence {
	if in == nil {
		return nil
	}
	out := make([]Occurrence, len(in))
	for i, o := range in {
		out[i] = o
		if o.ScheduledAt != nil {
			t := *o.ScheduledAt
			out[i].ScheduledAt = &t
		}
		if o.CompletedAt != nil {
			t := *o.CompletedAt
			out[i].CompletedAt = &t
		}
	}
	return out
}

// SortOccurrences orders occurrences ascending by hora. Horas are expected
// to be zero-padded already; the sentinel sorts last.
func SortOccurrences(occ []Occurrence) {
	sort.SliceStable(occ, func(i, j int) bool {
		a, b := occ[i], occ[j]
		if a.Real() != b.Real() {
			return a.Real()
		}
		return a.Hora < b.Hora
	})
}

// Recompute derives NextDue, AllCompleted and the removal marker from the
// occurrence list. The earliest pending hora is due next. When every real
// occurrence is finalized the item leaves today's view; any completed
// occurrence makes the reason "completed", otherwise "excluded".
func Recompute(it *Item) {
	it.NextDue = ""
	scheduled, completed, pending := 0, 0, 0
	for _, o := range it.Occurrences {
		if !o.Real() {
			continue
		}
		scheduled++
		switch o.Status {
		case StatusPending:
			pending++
			if it.NextDue == "" || o.Hora < it.NextDue {
				it.NextDue = o.Hora
			}
		case StatusCompleted:
			completed++
		}
	}

	it.AllCompleted = scheduled > 0 && pending == 0
	if !it.AllCompleted {
		it.RemovedFromToday = false
		it.RemovalReason = RemovalNone
		return
	}
	it.RemovedFromToday = true
	if completed > 0 {
		it.RemovalReason = RemovalCompleted
	} else {
		it.RemovalReason = RemovalExcluded
	}
}
