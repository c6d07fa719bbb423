package raknet

import "testing"

// TestRecoveryQueueConfirmRemovesAcked covers spec.md §8 invariant 1
// and scenario S1: an ACKed batch leaves the recovery queue.
func TestRecoveryQueueConfirmRemovesAcked(t *testing.T) {
	q := NewRecoveryQueue()
	q.Insert(FrameBatch{SequenceNumber: 0, Frames: []Frame{NewFrame(Reliable, []byte("x"))}})

	if q.Len() != 1 {
		t.Fatalf("expected 1 in-flight batch, got %d", q.Len())
	}
	q.Confirm([]AckRecord{SingleAckRecord(0)})
	if q.Len() != 0 {
		t.Errorf("expected recovery queue empty after ack, got %d", q.Len())
	}
}

// TestRecoveryQueueRecoverReturnsInSequenceOrder covers scenario S3:
// a NACK{Range(3..5)} resends batches 3, 4, 5 in that order.
func TestRecoveryQueueRecoverReturnsInSequenceOrder(t *testing.T) {
	q := NewRecoveryQueue()
	for seq := uint32(0); seq < 10; seq++ {
		q.Insert(FrameBatch{SequenceNumber: seq, Frames: []Frame{NewFrame(Reliable, []byte{byte(seq)})}})
	}

	recovered := q.Recover([]AckRecord{RangeAckRecord(3, 5)})
	if len(recovered) != 3 {
		t.Fatalf("expected 3 recovered batches, got %d", len(recovered))
	}
	for i, want := range []uint32{3, 4, 5} {
		if recovered[i].SequenceNumber != want {
			t.Errorf("recovered[%d]: expected sequence %d, got %d", i, want, recovered[i].SequenceNumber)
		}
	}
	if q.Len() != 7 {
		t.Errorf("expected 7 batches left after recovery, got %d", q.Len())
	}
}

func TestRecoveryQueueInsertClonesBody(t *testing.T) {
	body := []byte{1, 2, 3}
	batch := FrameBatch{SequenceNumber: 1, Frames: []Frame{{Reliability: Reliable, Body: body}}}

	q := NewRecoveryQueue()
	q.Insert(batch)
	body[0] = 0xff // mutate the original after insertion

	recovered := q.Recover([]AckRecord{SingleAckRecord(1)})
	if recovered[0].Frames[0].Body[0] != 1 {
		t.Error("expected recovery queue to hold an independent clone of the batch")
	}
}

func TestRecoveryQueueConfirmUnknownSequenceIsNoop(t *testing.T) {
	q := NewRecoveryQueue()
	q.Confirm([]AckRecord{SingleAckRecord(42)})
	if q.Len() != 0 {
		t.Error("expected confirming an unknown sequence to be a no-op")
	}
}
