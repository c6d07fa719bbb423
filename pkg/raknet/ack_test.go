package raknet

import "testing"

func TestAckAggregatorFoldsContiguousRuns(t *testing.T) {
	a := &ackAggregator{}
	for _, seq := range []uint32{5, 1, 2, 3, 10, 4} {
		a.add(seq)
	}

	records, ok := a.drain()
	if !ok {
		t.Fatal("expected records after adding sequences")
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (1-5, 10), got %d: %+v", len(records), records)
	}
	lo, hi := records[0].Bounds()
	if lo != 1 || hi != 5 {
		t.Errorf("expected first record to cover 1-5, got %d-%d", lo, hi)
	}
	if !records[1].IsSingle() {
		t.Error("expected second record to be a single")
	}
	lo, hi = records[1].Bounds()
	if lo != 10 || hi != 10 {
		t.Errorf("expected second record to cover 10, got %d-%d", lo, hi)
	}
}

// TestAckAggregatorTrailingRunIsFlushed guards the boundary condition
// noted in DESIGN.md: a run that ends at the final element must still
// be emitted.
func TestAckAggregatorTrailingRunIsFlushed(t *testing.T) {
	a := &ackAggregator{}
	a.add(1)
	a.add(2)
	a.add(3)

	records, ok := a.drain()
	if !ok || len(records) != 1 {
		t.Fatalf("expected a single run covering 1-3, got %+v (ok=%v)", records, ok)
	}
	lo, hi := records[0].Bounds()
	if lo != 1 || hi != 3 {
		t.Errorf("expected run 1-3, got %d-%d", lo, hi)
	}
}

func TestAckAggregatorDropsDuplicates(t *testing.T) {
	a := &ackAggregator{}
	a.add(7)
	a.add(7)
	a.add(7)

	records, ok := a.drain()
	if !ok || len(records) != 1 {
		t.Fatalf("expected a single deduplicated record, got %+v", records)
	}
	if lo, hi := records[0].Bounds(); lo != 7 || hi != 7 {
		t.Errorf("expected record covering only 7, got %d-%d", lo, hi)
	}
}

func TestAckAggregatorDrainEmptyReturnsFalse(t *testing.T) {
	a := &ackAggregator{}
	if _, ok := a.drain(); ok {
		t.Error("expected ok=false draining an empty aggregator")
	}
}

func TestAckDatagramEncodeDecodeRoundTrip(t *testing.T) {
	records := []AckRecord{SingleAckRecord(3), RangeAckRecord(10, 20)}
	encoded := encodeAckDatagram(idACK, records)

	decoded, err := decodeAckDatagram(encoded)
	if err != nil {
		t.Fatalf("decodeAckDatagram failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}
	if !decoded[0].IsSingle() {
		t.Error("expected first decoded record to be single")
	}
	if lo, hi := decoded[1].Bounds(); lo != 10 || hi != 20 {
		t.Errorf("expected range 10-20, got %d-%d", lo, hi)
	}
}
