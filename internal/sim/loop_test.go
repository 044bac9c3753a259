package sim

import (
	"testing"
	"time"
)

func TestLoopEnqueueEnforcesPerPlayerLimit(t *testing.T) {
	loop := NewLoop(LoopConfig{
		TickInterval:   time.Hour, // never fires in this test
		InputCapacity:  16,
		PerPlayerLimit: 2,
	}, Deps{}, LoopHooks{})

	if ok, _ := loop.Enqueue(InputEvent{PlayerID: 1, Seq: 1}); !ok {
		t.Fatalf("first enqueue failed")
	}
	if ok, _ := loop.Enqueue(InputEvent{PlayerID: 1, Seq: 2}); !ok {
		t.Fatalf("second enqueue failed")
	}
	ok, reason := loop.Enqueue(InputEvent{PlayerID: 1, Seq: 3})
	if ok || reason != InputRejectQueueLimit {
		t.Fatalf("third enqueue ok=%v reason=%q, want throttled", ok, reason)
	}

	// Other players are unaffected by one player's flood.
	if ok, _ := loop.Enqueue(InputEvent{PlayerID: 2, Seq: 1}); !ok {
		t.Fatalf("other player throttled")
	}
}

func TestLoopEnqueueReportsFullBuffer(t *testing.T) {
	var dropped []string
	loop := NewLoop(LoopConfig{
		TickInterval:   time.Hour,
		InputCapacity:  2,
		PerPlayerLimit: 0, // unlimited per player, exercise the ring bound
	}, Deps{}, LoopHooks{
		OnInputDrop: func(reason string, ev InputEvent) {
			dropped = append(dropped, reason)
		},
	})

	loop.Enqueue(InputEvent{PlayerID: 1, Seq: 1})
	loop.Enqueue(InputEvent{PlayerID: 1, Seq: 2})
	ok, reason := loop.Enqueue(InputEvent{PlayerID: 1, Seq: 3})
	if ok || reason != InputRejectQueueFull {
		t.Fatalf("ok=%v reason=%q, want full buffer", ok, reason)
	}
	if len(dropped) != 1 || dropped[0] != InputRejectQueueFull {
		t.Fatalf("drop hook saw %v", dropped)
	}
	if loop.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", loop.Pending())
	}
}

func TestLoopDeliversDrainedInputsToAdvance(t *testing.T) {
	received := make(chan []InputEvent, 1)
	loop := NewLoop(LoopConfig{
		TickInterval:   time.Millisecond,
		InputCapacity:  16,
		PerPlayerLimit: 4,
	}, Deps{}, LoopHooks{
		Advance: func(_ LoopTickContext, events []InputEvent) {
			if len(events) > 0 {
				select {
				case received <- events:
				default:
				}
			}
		},
	})

	if ok, _ := loop.Enqueue(InputEvent{PlayerID: 1, Seq: 9, DX: 1}); !ok {
		t.Fatalf("enqueue failed")
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		loop.Run(stop)
		close(done)
	}()

	select {
	case events := <-received:
		if len(events) != 1 || events[0].Seq != 9 {
			t.Fatalf("advance got %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("advance never saw the staged input")
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not stop")
	}

	if loop.Pending() != 0 {
		t.Fatalf("pending = %d after drain, want 0", loop.Pending())
	}
}
