package raknet

import (
	"fmt"
	"sort"
	"sync"
)

// AckRecord represents one or more confirmed (or missing, for NACK)
// batch sequence numbers (spec.md §3).
type AckRecord struct {
	single bool
	lo, hi uint32
}

// SingleAckRecord confirms exactly one sequence number.
func SingleAckRecord(seq uint32) AckRecord {
	return AckRecord{single: true, lo: seq, hi: seq}
}

// RangeAckRecord confirms every sequence number in [lo, hi].
func RangeAckRecord(lo, hi uint32) AckRecord {
	return AckRecord{single: false, lo: lo, hi: hi}
}

// IsSingle reports whether the record names exactly one sequence.
func (r AckRecord) IsSingle() bool { return r.single }

// Bounds returns the inclusive [lo, hi] range the record covers; for a
// single record lo == hi.
func (r AckRecord) Bounds() (uint32, uint32) { return r.lo, r.hi }

func (r AckRecord) bounds() (uint32, uint32) { return r.Bounds() }

func (r AckRecord) encode(w *writer) {
	if r.single {
		w.writeByte(1)
		w.writeUint24LE(r.lo)
	} else {
		w.writeByte(0)
		w.writeUint24LE(r.lo)
		w.writeUint24LE(r.hi)
	}
}

func decodeAckRecord(r *reader) (AckRecord, error) {
	flag, err := r.readByte()
	if err != nil {
		return AckRecord{}, err
	}
	if flag != 0 {
		seq, err := r.readUint24LE()
		if err != nil {
			return AckRecord{}, err
		}
		return SingleAckRecord(seq), nil
	}
	lo, err := r.readUint24LE()
	if err != nil {
		return AckRecord{}, err
	}
	hi, err := r.readUint24LE()
	if err != nil {
		return AckRecord{}, err
	}
	return RangeAckRecord(lo, hi), nil
}

// encodeAckDatagram serializes records under the given datagram kind
// byte (idACK or idNACK).
func encodeAckDatagram(kind byte, records []AckRecord) []byte {
	w := newWriter()
	w.writeByte(kind)
	w.writeUint16LE(uint16(len(records)))
	for _, rec := range records {
		rec.encode(w)
	}
	return w.bytes()
}

// decodeAckDatagram parses an ACK/NACK datagram body, data[0] already
// identified by the caller as idACK or idNACK.
func decodeAckDatagram(data []byte) ([]AckRecord, error) {
	if len(data) < 3 {
		return nil, newErr(KindProtocol, "decode ack datagram", fmt.Errorf("datagram too short"))
	}
	r := newReader(data)
	r.offset = 1
	count, err := r.readUint16LE()
	if err != nil {
		return nil, newErr(KindProtocol, "decode ack count", err)
	}
	records := make([]AckRecord, 0, count)
	for i := uint16(0); i < count; i++ {
		rec, err := decodeAckRecord(r)
		if err != nil {
			return nil, newErr(KindProtocol, "decode ack record", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ackAggregator collapses received batch sequence numbers into a
// deduplicated, run-length-encoded set of AckRecords (spec.md §4.6).
type ackAggregator struct {
	mu      sync.Mutex
	pending []uint32
}

func (a *ackAggregator) add(seq uint32) {
	a.mu.Lock()
	a.pending = append(a.pending, seq)
	a.mu.Unlock()
}

// drain sorts, deduplicates and folds the pending sequence numbers
// into AckRecords, clearing the pending list. Returns ok=false if
// there was nothing to flush.
func (a *ackAggregator) drain() ([]AckRecord, bool) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(pending) == 0 {
		return nil, false
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	deduped := pending[:1]
	for _, v := range pending[1:] {
		if v != deduped[len(deduped)-1] {
			deduped = append(deduped, v)
		}
	}

	var records []AckRecord
	runStart := deduped[0]
	prev := deduped[0]
	flush := func() {
		if runStart == prev {
			records = append(records, SingleAckRecord(runStart))
		} else {
			records = append(records, RangeAckRecord(runStart, prev))
		}
	}
	for _, v := range deduped[1:] {
		if v == prev+1 {
			prev = v
			continue
		}
		flush()
		runStart, prev = v, v
	}
	flush() // always emit the final run, including a run that ends the slice

	return records, true
}
