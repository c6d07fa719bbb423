package raknet

import "testing"

func TestFrameBatchEncodeDecodeRoundTrip(t *testing.T) {
	batch := &FrameBatch{
		SequenceNumber: 99,
		Frames: []Frame{
			NewFrame(Unreliable, []byte("a")),
			{Reliability: Reliable, ReliableIndex: 1, Body: []byte("bb")},
		},
	}

	encoded := batch.Encode()
	if !IsFrameBatch(encoded[0]) {
		t.Fatal("encoded batch should be recognized as a frame batch")
	}

	decoded, err := DecodeFrameBatch(encoded)
	if err != nil {
		t.Fatalf("DecodeFrameBatch failed: %v", err)
	}
	if decoded.SequenceNumber != 99 {
		t.Errorf("expected sequence 99, got %d", decoded.SequenceNumber)
	}
	if len(decoded.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(decoded.Frames))
	}
	if string(decoded.Frames[1].Body) != "bb" {
		t.Errorf("second frame body mismatch: %q", decoded.Frames[1].Body)
	}
}

func TestDecodeFrameBatchRejectsTruncated(t *testing.T) {
	if _, err := DecodeFrameBatch([]byte{0x80, 0x01}); err == nil {
		t.Error("expected error for truncated batch")
	}
}

func TestDecodeFrameBatchRejectsMissingValidBit(t *testing.T) {
	batch := &FrameBatch{SequenceNumber: 1, Frames: []Frame{NewFrame(Unreliable, []byte("x"))}}
	encoded := batch.Encode()
	encoded[0] = 0x00
	if _, err := DecodeFrameBatch(encoded); err == nil {
		t.Error("expected error when the valid bit is unset")
	}
}

func TestIsFrameBatchExcludesAckAndNack(t *testing.T) {
	if IsFrameBatch(idACK) {
		t.Error("idACK must not be classified as a frame batch")
	}
	if IsFrameBatch(idNACK) {
		t.Error("idNACK must not be classified as a frame batch")
	}
}
