package gesture

import (
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

// horizontalTrace drags from 0 to dx in ten steps over 300ms.
func horizontalTrace(dx float64) []Point {
	points := make([]Point, 0, 11)
	for i := 0; i <= 10; i++ {
		points = append(points, Point{X: dx * float64(i) / 10, Y: 2, At: at(i * 30)})
	}
	return points
}

func TestInterpret_SwipeIntents(t *testing.T) {
	tests := []struct {
		name string
		dx   float64
		want Intent
	}{
		{"right past threshold completes", 150, IntentComplete},
		{"left past threshold removes", -150, IntentRemove},
		{"short right does nothing", 50, IntentNone},
		{"short left does nothing", -50, IntentNone},
		{"exactly threshold does nothing", 100, IntentNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Interpret(DefaultConfig(), horizontalTrace(tt.dx))
			if res.Intent != tt.want {
				t.Errorf("expected %s, got %s (phase %s)", tt.want, res.Intent, res.Phase)
			}
			if res.Phase != PhaseHorizontalSwipe {
				t.Errorf("expected horizontal phase, got %s", res.Phase)
			}
		})
	}
}

func TestInterpret_Tap(t *testing.T) {
	res := Interpret(DefaultConfig(), []Point{
		{X: 10, Y: 10, At: at(0)},
		{X: 14, Y: 12, At: at(80)},
		{X: 15, Y: 12, At: at(120)},
	})
	if res.Intent != IntentEdit {
		t.Fatalf("expected edit, got %s", res.Intent)
	}
}

func TestInterpret_SlowPressIsNotTap(t *testing.T) {
	res := Interpret(DefaultConfig(), []Point{
		{X: 10, Y: 10, At: at(0)},
		{X: 12, Y: 10, At: at(400)},
	})
	if res.Intent != IntentNone {
		t.Fatalf("expected none for a long press, got %s", res.Intent)
	}
}

func TestInterpret_TapNeverCompletesOrRemoves(t *testing.T) {
	for _, dx := range []float64{-16, -8, 0, 8, 15} {
		res := Interpret(DefaultConfig(), []Point{{X: 0, At: at(0)}, {X: dx, At: at(100)}})
		if res.Intent == IntentComplete || res.Intent == IntentRemove {
			t.Errorf("dx=%v: short touch produced %s", dx, res.Intent)
		}
	}
}

func TestInterpret_VerticalScrollIsIgnored(t *testing.T) {
	res := Interpret(DefaultConfig(), []Point{
		{X: 0, Y: 0, At: at(0)},
		{X: 5, Y: 20, At: at(30)},
		{X: 150, Y: 40, At: at(200)},
	})
	if res.Phase != PhaseVerticalScroll {
		t.Fatalf("expected vertical lock, got %s", res.Phase)
	}
	if res.Intent != IntentNone {
		t.Fatalf("vertical gesture must not commit, got %s", res.Intent)
	}
}

func TestInterpret_EmptyTrace(t *testing.T) {
	if res := Interpret(DefaultConfig(), nil); res.Intent != IntentNone {
		t.Fatalf("expected none, got %s", res.Intent)
	}
	if res := Interpret(DefaultConfig(), []Point{{At: at(0)}}); res.Intent != IntentEdit {
		t.Fatalf("single sample is a tap, got %s", res.Intent)
	}
}

func TestInterpreter_HorizontalLockNeedsDominance(t *testing.T) {
	in := NewInterpreter(DefaultConfig())
	in.Start(Point{At: at(0)})

	fb := in.Move(Point{X: 16, Y: 16, At: at(20)})
	if fb.Phase == PhaseHorizontalSwipe {
		t.Fatal("equal displacement must not lock horizontally")
	}
	if fb.Phase != PhaseVerticalScroll {
		t.Fatalf("expected vertical lock, got %s", fb.Phase)
	}
}

func TestInterpreter_Feedback(t *testing.T) {
	in := NewInterpreter(DefaultConfig())
	in.Start(Point{At: at(0)})

	fb := in.Move(Point{X: 10, At: at(10)})
	if fb.Phase != PhaseTracking || fb.Opacity != 0 || fb.TranslateX != 0 {
		t.Fatalf("expected no feedback before lock, got %+v", fb)
	}

	fb = in.Move(Point{X: 40, At: at(20)})
	if !fb.PreventScroll {
		t.Error("horizontal swipe must suppress scrolling")
	}
	if fb.Opacity != 0.5 {
		t.Errorf("expected opacity 0.5 at 40px, got %v", fb.Opacity)
	}

	fb = in.Move(Point{X: 200, At: at(30)})
	if fb.Opacity != 1 {
		t.Errorf("expected opacity capped at 1, got %v", fb.Opacity)
	}
	if fb.TranslateX != 120 {
		t.Errorf("expected translateX clamped to 120, got %v", fb.TranslateX)
	}

	fb = in.Move(Point{X: -300, Y: 100, At: at(40)})
	if fb.Phase != PhaseHorizontalSwipe {
		t.Error("horizontal lock must persist for the whole gesture")
	}
	if fb.TranslateX != -120 {
		t.Errorf("expected translateX clamped to -120, got %v", fb.TranslateX)
	}
}

func TestInterpreter_ResetsAfterEnd(t *testing.T) {
	in := NewInterpreter(DefaultConfig())
	in.Start(Point{At: at(0)})
	in.Move(Point{X: 150, At: at(50)})
	in.End(Point{X: 150, At: at(60)})

	if in.Phase() != PhaseIdle {
		t.Fatalf("expected idle after release, got %s", in.Phase())
	}
	if res := in.End(Point{X: 300, At: at(70)}); res.Intent != IntentNone {
		t.Errorf("release without start must be ignored, got %s", res.Intent)
	}
}

func TestDispatcher_SwipeFiresImmediately(t *testing.T) {
	var completed, removed int32
	d := NewDispatcher(50*time.Millisecond, Callbacks{
		OnComplete: func() { atomic.AddInt32(&completed, 1) },
		OnRemove:   func() { atomic.AddInt32(&removed, 1) },
	})

	d.Dispatch(Result{Intent: IntentComplete})
	d.Dispatch(Result{Intent: IntentRemove})
	d.Dispatch(Result{Intent: IntentNone})

	if atomic.LoadInt32(&completed) != 1 || atomic.LoadInt32(&removed) != 1 {
		t.Errorf("expected one complete and one remove, got %d/%d", completed, removed)
	}
}

func TestDispatcher_TapIsDebounced(t *testing.T) {
	edited := make(chan struct{}, 1)
	d := NewDispatcher(20*time.Millisecond, Callbacks{OnEdit: func() { edited <- struct{}{} }})

	d.Dispatch(Result{Intent: IntentEdit})

	select {
	case <-edited:
		t.Fatal("edit fired before the debounce delay")
	default:
	}

	select {
	case <-edited:
	case <-time.After(time.Second):
		t.Fatal("edit never fired")
	}
}

func TestDispatcher_NewGestureCancelsTap(t *testing.T) {
	var edits int32
	d := NewDispatcher(30*time.Millisecond, Callbacks{OnEdit: func() { atomic.AddInt32(&edits, 1) }})

	d.Dispatch(Result{Intent: IntentEdit})
	d.Begin()

	time.Sleep(80 * time.Millisecond)
	if atomic.LoadInt32(&edits) != 0 {
		t.Fatal("a gesture starting inside the debounce must cancel the tap")
	}
}
