package raknet

import "sync"

// RecoveryQueue maps batch sequence number to a cloned FrameBatch,
// retained pending ACK so it can be resent on NACK (spec.md §4.5).
// Turnover is driven by ACKs; callers that run long-lived sessions
// against an unresponsive peer should bound memory themselves by
// periodically dropping entries older than a configured window — this
// queue keeps no implicit cap.
type RecoveryQueue struct {
	mu      sync.Mutex
	batches map[uint32]FrameBatch
}

// NewRecoveryQueue creates an empty queue.
func NewRecoveryQueue() *RecoveryQueue {
	return &RecoveryQueue{batches: make(map[uint32]FrameBatch)}
}

// Insert records a clone of batch, keyed by its sequence number.
func (q *RecoveryQueue) Insert(batch FrameBatch) {
	clone := batch.clone()
	q.mu.Lock()
	q.batches[batch.SequenceNumber] = clone
	q.mu.Unlock()
}

// Confirm removes every sequence number covered by records: the peer
// has acknowledged them and they no longer need retransmission.
func (q *RecoveryQueue) Confirm(records []AckRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, rec := range records {
		lo, hi := rec.bounds()
		for seq := lo; seq <= hi; seq++ {
			delete(q.batches, seq)
		}
	}
}

// Recover removes and returns the batches covered by records, in the
// order the records list them and ascending within each record, for
// the caller to resend verbatim.
func (q *RecoveryQueue) Recover(records []AckRecord) []FrameBatch {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []FrameBatch
	for _, rec := range records {
		lo, hi := rec.bounds()
		for seq := lo; seq <= hi; seq++ {
			if batch, ok := q.batches[seq]; ok {
				out = append(out, batch)
				delete(q.batches, seq)
			}
		}
	}
	return out
}

// Len reports the number of in-flight batches awaiting acknowledgement.
func (q *RecoveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.batches)
}
