package raknet

import "testing"

// TestOrderChannelReleasesOutOfOrderRun covers spec.md §8 invariant 2
// and scenario S4: frames submitted to a channel emerge at the
// receiver in submission order regardless of arrival order.
func TestOrderChannelReleasesOutOfOrderRun(t *testing.T) {
	c := NewOrderChannel()

	a := Frame{OrderIndex: 0, Body: []byte("A")}
	b := Frame{OrderIndex: 1, Body: []byte("B")}
	cc := Frame{OrderIndex: 2, Body: []byte("C")}

	// peer receives B, A, C
	if out := c.receive(b); len(out) != 0 {
		t.Fatalf("expected B to be buffered, got %d released", len(out))
	}
	out := c.receive(a)
	if len(out) != 2 || string(out[0].Body) != "A" || string(out[1].Body) != "B" {
		t.Fatalf("expected A then B released, got %+v", out)
	}
	out = c.receive(cc)
	if len(out) != 1 || string(out[0].Body) != "C" {
		t.Fatalf("expected C released, got %+v", out)
	}
}

func TestOrderChannelDropsDuplicate(t *testing.T) {
	c := NewOrderChannel()
	c.receive(Frame{OrderIndex: 0, Body: []byte("A")})
	if out := c.receive(Frame{OrderIndex: 0, Body: []byte("A-dup")}); len(out) != 0 {
		t.Errorf("expected duplicate order-index to be dropped, got %+v", out)
	}
}

func TestOrderChannelOutboundIndicesAreMonotonic(t *testing.T) {
	c := NewOrderChannel()
	for i := uint32(0); i < 5; i++ {
		if got := c.nextOutboundIndex(); got != i {
			t.Fatalf("expected outbound index %d, got %d", i, got)
		}
	}
}
