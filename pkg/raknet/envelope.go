package raknet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
)

// envelope flag bits, carried as a single byte right after
// GamePacketMarker (inside the ciphertext when an Encryptor is set).
const (
	envelopeFlagCompressed byte = 1 << 0
	envelopeAlgoShift           = 1
	envelopeAlgoMask       byte = 0x3 << envelopeAlgoShift
)

// EncodePacket builds the wire form of one game packet (spec.md §6):
// a varint-prefixed packet id and payload, optionally compressed above
// Compression.Threshold and optionally encrypted, all behind the fixed
// GamePacketMarker byte.
func EncodePacket(id uint32, body []byte, compression CompressionConfig, enc Encryptor) ([]byte, error) {
	inner := newWriter()
	inner.writeVarUint32(id)
	inner.writeBytes(body)
	raw := inner.bytes()

	var flags byte
	payload := raw
	if len(raw) > compression.Threshold {
		compressed, err := compress(raw, compression.Algorithm)
		if err != nil {
			return nil, newErr(KindProtocol, "compress game packet", err)
		}
		flags = envelopeFlagCompressed | byte(compression.Algorithm)<<envelopeAlgoShift
		payload = compressed
	}

	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, flags)
	framed = append(framed, payload...)

	if enc != nil {
		ciphertext, err := enc.Encrypt(framed)
		if err != nil {
			return nil, newErr(KindCrypto, "encrypt game packet", err)
		}
		framed = ciphertext
	}

	out := make([]byte, 0, len(framed)+1)
	out = append(out, GamePacketMarker)
	out = append(out, framed...)
	return out, nil
}

// DecodePacket reverses EncodePacket, returning the packet id and its
// body.
func DecodePacket(data []byte, compression CompressionConfig, enc Encryptor) (uint32, []byte, error) {
	if len(data) == 0 || data[0] != GamePacketMarker {
		return 0, nil, newErr(KindProtocol, "decode game packet", fmt.Errorf("missing game packet marker"))
	}
	framed := data[1:]

	if enc != nil {
		plain, err := enc.Decrypt(framed)
		if err != nil {
			return 0, nil, newErr(KindCrypto, "decrypt game packet", err)
		}
		framed = plain
	}
	if len(framed) == 0 {
		return 0, nil, newErr(KindProtocol, "decode game packet", fmt.Errorf("empty envelope"))
	}

	flags := framed[0]
	payload := framed[1:]
	if flags&envelopeFlagCompressed != 0 {
		algo := CompressionAlgorithm((flags & envelopeAlgoMask) >> envelopeAlgoShift)
		raw, err := decompress(payload, algo)
		if err != nil {
			return 0, nil, newErr(KindProtocol, "decompress game packet", err)
		}
		payload = raw
	}

	r := newReader(payload)
	id, err := r.readVarUint32()
	if err != nil {
		return 0, nil, newErr(KindProtocol, "decode game packet id", err)
	}
	body, err := r.readBytes(r.remaining())
	if err != nil {
		return 0, nil, newErr(KindProtocol, "decode game packet body", err)
	}
	return id, append([]byte(nil), body...), nil
}

// compress shrinks raw using the configured algorithm, grounded on the
// flate/snappy usage surveyed across the example pack's storage and
// transport layers.
func compress(raw []byte, algo CompressionAlgorithm) ([]byte, error) {
	switch algo {
	case CompressionSnappy:
		return snappy.Encode(nil, raw), nil
	default:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

func decompress(data []byte, algo CompressionAlgorithm) ([]byte, error) {
	switch algo {
	case CompressionSnappy:
		return snappy.Decode(nil, data)
	default:
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		return io.ReadAll(r)
	}
}
