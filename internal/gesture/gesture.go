// Package gesture turns a stream of pointer positions on a list card into a
// discrete intent: complete (swipe right), remove (swipe left), edit (tap)
// or nothing. Vertical movement is left to native scrolling.
package gesture

import (
	"math"
	"time"
)

// Phase of a gesture in progress.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseTracking        Phase = "tracking"
	PhaseHorizontalSwipe Phase = "horizontal-swipe"
	PhaseVerticalScroll  Phase = "vertical-scroll"
)

// Intent is what a finished gesture asks for.
type Intent string

const (
	IntentNone     Intent = "none"
	IntentComplete Intent = "complete"
	IntentRemove   Intent = "remove"
	IntentEdit     Intent = "edit"
)

// Point is one pointer sample.
type Point struct {
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	At time.Time `json:"at"`
}

// Config holds the gesture thresholds, in pixels unless noted.
type Config struct {
	LockDistance     float64
	CommitDistance   float64
	TapMaxDistance   float64
	TapMaxDuration   time.Duration
	TapDebounce      time.Duration
	FeedbackDistance float64
	MaxTranslate     float64
}

// DefaultConfig returns the thresholds used by the list cards.
func DefaultConfig() Config {
	return Config{
		LockDistance:     15,
		CommitDistance:   100,
		TapMaxDistance:   16,
		TapMaxDuration:   350 * time.Millisecond,
		TapDebounce:      50 * time.Millisecond,
		FeedbackDistance: 80,
		MaxTranslate:     120,
	}
}

// Feedback describes how the card should look for the current sample.
type Feedback struct {
	Phase         Phase   `json:"phase"`
	TranslateX    float64 `json:"translateX"`
	Opacity       float64 `json:"opacity"`
	PreventScroll bool    `json:"preventScroll"`
}

// Result is the outcome of a released gesture.
type Result struct {
	Intent   Intent        `json:"intent"`
	Phase    Phase         `json:"phase"`
	DeltaX   float64       `json:"deltaX"`
	DeltaY   float64       `json:"deltaY"`
	Duration time.Duration `json:"duration"`
}

// Interpreter follows one gesture at a time. It is not safe for concurrent
// use.
type Interpreter struct {
	cfg   Config
	phase Phase
	start Point
	last  Point
}

// NewInterpreter creates an idle Interpreter.
func NewInterpreter(cfg Config) *Interpreter {
	return &Interpreter{cfg: cfg, phase: PhaseIdle}
}

// Phase returns the current phase.
func (in *Interpreter) Phase() Phase {
	return in.phase
}

// Start begins tracking at p, abandoning any gesture in progress.
func (in *Interpreter) Start(p Point) {
	in.phase = PhaseTracking
	in.start = p
	in.last = p
}

// Move feeds a new sample. Once a direction is locked it stays locked for
// the rest of the gesture.
func (in *Interpreter) Move(p Point) Feedback {
	if in.phase == PhaseIdle {
		return Feedback{Phase: PhaseIdle}
	}
	in.last = p
	dx, dy := in.delta()

	if in.phase == PhaseTracking {
		switch {
		case math.Abs(dx) > in.cfg.LockDistance && math.Abs(dx) > math.Abs(dy):
			in.phase = PhaseHorizontalSwipe
		case math.Abs(dy) > in.cfg.LockDistance:
			in.phase = PhaseVerticalScroll
		}
	}

	if in.phase != PhaseHorizontalSwipe {
		return Feedback{Phase: in.phase}
	}
	return Feedback{
		Phase:         in.phase,
		TranslateX:    clamp(dx, -in.cfg.MaxTranslate, in.cfg.MaxTranslate),
		Opacity:       math.Min(math.Abs(dx)/in.cfg.FeedbackDistance, 1),
		PreventScroll: true,
	}
}

// End releases the gesture at p and resets the interpreter to idle.
func (in *Interpreter) End(p Point) Result {
	if in.phase == PhaseIdle {
		return Result{Intent: IntentNone, Phase: PhaseIdle}
	}
	in.last = p
	dx, dy := in.delta()
	res := Result{
		Intent:   IntentNone,
		Phase:    in.phase,
		DeltaX:   dx,
		DeltaY:   dy,
		Duration: p.At.Sub(in.start.At),
	}

	switch in.phase {
	case PhaseHorizontalSwipe:
		if math.Abs(dx) > in.cfg.CommitDistance {
			if dx > 0 {
				res.Intent = IntentComplete
			} else {
				res.Intent = IntentRemove
			}
		}
	case PhaseTracking:
		if math.Hypot(dx, dy) <= in.cfg.TapMaxDistance && res.Duration <= in.cfg.TapMaxDuration {
			res.Intent = IntentEdit
		}
	}

	in.phase = PhaseIdle
	return res
}

// Cancel abandons the gesture without an intent.
func (in *Interpreter) Cancel() {
	in.phase = PhaseIdle
}

func (in *Interpreter) delta() (float64, float64) {
	return in.last.X - in.start.X, in.last.Y - in.start.Y
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Interpret replays a recorded trace: the first point starts the gesture,
// the last releases it. An empty trace yields IntentNone.
func Interpret(cfg Config, points []Point) Result {
	if len(points) == 0 {
		return Result{Intent: IntentNone, Phase: PhaseIdle}
	}
	in := NewInterpreter(cfg)
	in.Start(points[0])
	for _, p := range points[1:] {
		in.Move(p)
	}
	return in.End(points[len(points)-1])
}
