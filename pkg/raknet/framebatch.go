package raknet

import "fmt"

// FrameBatch is a sequence-numbered envelope carrying 1..N frames. Its
// serialized size must never exceed the owning session's MTU
// (spec.md §3, §8 invariant 4).
type FrameBatch struct {
	SequenceNumber uint32
	Frames         []Frame
}

// estimateSize returns a conservative upper bound on the serialized
// size of the batch as it currently stands, used by the flusher to
// decide whether one more frame still fits.
func (b *FrameBatch) estimateSize() int {
	n := frameBatchHeaderSize
	for i := range b.Frames {
		n += b.Frames[i].size()
	}
	return n
}

func (b *FrameBatch) isEmpty() bool {
	return len(b.Frames) == 0
}

// clone deep-copies the batch for storage in the recovery queue.
func (b FrameBatch) clone() FrameBatch {
	frames := make([]Frame, len(b.Frames))
	for i := range b.Frames {
		frames[i] = b.Frames[i].clone()
	}
	b.Frames = frames
	return b
}

// Encode serializes the batch bit-exact with the RakNet variant
// Bedrock uses: 1-byte valid-bit header, 24-bit little-endian
// sequence number, concatenated frames (spec.md §4.1).
func (b *FrameBatch) Encode() []byte {
	w := newWriter()
	w.writeByte(datagramValidBit)
	w.writeUint24LE(b.SequenceNumber)
	for i := range b.Frames {
		b.Frames[i].encode(w)
	}
	return w.bytes()
}

// DecodeFrameBatch parses a datagram already identified as carrying a
// frame batch (i.e. not an ACK/NACK). Truncated or malformed input
// yields a Protocol error; the caller must drop the datagram rather
// than cancel the session (spec.md §7).
func DecodeFrameBatch(data []byte) (*FrameBatch, error) {
	if len(data) < frameBatchHeaderSize {
		return nil, newErr(KindProtocol, "decode frame batch", fmt.Errorf("datagram too short"))
	}
	if data[0]&datagramValidBit == 0 {
		return nil, newErr(KindProtocol, "decode frame batch", fmt.Errorf("valid bit not set"))
	}

	r := newReader(data)
	r.offset = 1
	seq, err := r.readUint24LE()
	if err != nil {
		return nil, newErr(KindProtocol, "decode frame batch sequence", err)
	}

	batch := &FrameBatch{SequenceNumber: seq}
	for r.remaining() > 0 {
		frame, err := decodeFrame(r)
		if err != nil {
			return nil, err
		}
		batch.Frames = append(batch.Frames, frame)
	}
	return batch, nil
}

// IsFrameBatch reports whether the first byte of a datagram marks it
// as a frame batch rather than an ACK or NACK record (spec.md §6).
func IsFrameBatch(firstByte byte) bool {
	return firstByte != idACK && firstByte != idNACK && firstByte&datagramValidBit != 0
}
