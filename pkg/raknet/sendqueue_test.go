package raknet

import "testing"

// TestSendQueueFlushLeavesOtherBandsUntouched is the contract spec.md
// §4.4 names explicitly.
func TestSendQueueFlushLeavesOtherBandsUntouched(t *testing.T) {
	q := NewSendQueue()
	q.InsertRaw(PriorityHigh, NewFrame(Unreliable, []byte("h")))
	q.InsertRaw(PriorityMedium, NewFrame(Unreliable, []byte("m")))
	q.InsertRaw(PriorityLow, NewFrame(Unreliable, []byte("l")))

	frames, ok := q.Flush(PriorityHigh)
	if !ok || len(frames) != 1 || string(frames[0].Body) != "h" {
		t.Fatalf("unexpected high flush: %+v ok=%v", frames, ok)
	}

	if _, ok := q.Flush(PriorityHigh); ok {
		t.Error("expected high band to be empty after flush")
	}

	medium, ok := q.Flush(PriorityMedium)
	if !ok || len(medium) != 1 || string(medium[0].Body) != "m" {
		t.Fatalf("medium band was disturbed by the earlier high flush: %+v", medium)
	}

	low, ok := q.Flush(PriorityLow)
	if !ok || len(low) != 1 || string(low[0].Body) != "l" {
		t.Fatalf("low band was disturbed by earlier flushes: %+v", low)
	}
}

func TestSendQueueFlushEmptyBandReturnsFalse(t *testing.T) {
	q := NewSendQueue()
	if _, ok := q.Flush(PriorityHigh); ok {
		t.Error("expected ok=false flushing an empty band")
	}
}

func TestSendQueuePreservesFIFOOrderWithinBand(t *testing.T) {
	q := NewSendQueue()
	for _, body := range []string{"1", "2", "3"} {
		q.InsertRaw(PriorityMedium, NewFrame(Unreliable, []byte(body)))
	}
	frames, ok := q.Flush(PriorityMedium)
	if !ok || len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %+v", frames)
	}
	for i, want := range []string{"1", "2", "3"} {
		if string(frames[i].Body) != want {
			t.Errorf("frame %d: expected %q, got %q", i, want, frames[i].Body)
		}
	}
}
