package schedule

import (
	"sync"
	"testing"
	"time"
)

func TestTimer_FiresImmediatelyThenOnInterval(t *testing.T) {
	tm := NewTimer(2 * time.Second)
	if !tm.Advance(16 * time.Millisecond) {
		t.Fatalf("expected primed first cycle")
	}
	if tm.Advance(time.Second) {
		t.Fatalf("fired before interval")
	}
	if !tm.Advance(time.Second) {
		t.Fatalf("expected cycle at interval")
	}
	if tm.Advance(1999 * time.Millisecond) {
		t.Fatalf("accumulator was not reset")
	}
}

func TestTimer_ZeroIntervalDisablesSampling(t *testing.T) {
	tm := NewTimer(0)
	for i := 0; i < 100; i++ {
		if tm.Advance(time.Hour) {
			t.Fatalf("disabled timer fired")
		}
	}
	tm.SetInterval(time.Second)
	if tm.Advance(500 * time.Millisecond) {
		t.Fatalf("time accumulated while disabled")
	}
	tm.Prime()
	if !tm.Advance(0) {
		t.Fatalf("Prime should force the next cycle")
	}
}

func TestInbox_DrainCoalesces(t *testing.T) {
	in := NewInbox()
	in.Post(LayoutChanged{})
	in.Post(LayoutChanged{Geometry: true})
	in.Post(LayoutChanged{})
	in.Post(LanguageChanged{})

	select {
	case <-in.Notify():
	default:
		t.Fatalf("expected notification")
	}

	b := in.Drain()
	if !b.Layout || !b.Geometry || !b.Language || b.Position || b.Events != 4 {
		t.Fatalf("batch=%+v", b)
	}
	if !in.Drain().Empty() {
		t.Fatalf("second drain should be empty")
	}
}

func TestInbox_ConcurrentPost(t *testing.T) {
	in := NewInbox()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				in.Post(PositionChanged{})
			}
		}()
	}
	wg.Wait()
	if b := in.Drain(); b.Events != 800 || !b.Position {
		t.Fatalf("batch=%+v", b)
	}
}
