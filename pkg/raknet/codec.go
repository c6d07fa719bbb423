package raknet

import (
	"encoding/binary"
	"fmt"
)

// reader walks a byte slice left to right, the same way the teacher's
// BitStream did, generalized with varint support for the game-packet
// envelope (spec.md §6: "varint-prefixed game-packet id").
type reader struct {
	data   []byte
	offset int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.offset
}

func (r *reader) readByte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, fmt.Errorf("buffer overflow")
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.offset+n > len(r.data) {
		return nil, fmt.Errorf("buffer overflow")
	}
	out := r.data[r.offset : r.offset+n]
	r.offset += n
	return out, nil
}

func (r *reader) readUint16BE() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) readUint32BE() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) readUint16LE() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// readUint24LE reads RakNet's 24-bit little-endian sequence/index
// fields.
func (r *reader) readUint24LE() (uint32, error) {
	b, err := r.readBytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// readVarUint32 decodes an unsigned LEB128 varint, as used by the
// game-packet ID prefix above the transport envelope.
func (r *reader) readVarUint32() (uint32, error) {
	var value uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		value |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
	}
	return 0, fmt.Errorf("varint too long")
}

// writer accumulates bytes the same way the teacher's BitStream wrote
// them, generalized with a varint writer.
type writer struct {
	data []byte
}

func newWriter() *writer {
	return &writer{data: make([]byte, 0, 64)}
}

func (w *writer) writeByte(b byte) {
	w.data = append(w.data, b)
}

func (w *writer) writeBytes(b []byte) {
	w.data = append(w.data, b...)
}

func (w *writer) writeUint16BE(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

func (w *writer) writeUint32BE(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

func (w *writer) writeUint16LE(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.data = append(w.data, buf[:]...)
}

// writeUint24LE writes RakNet's 24-bit little-endian fields.
func (w *writer) writeUint24LE(v uint32) {
	w.data = append(w.data, byte(v), byte(v>>8), byte(v>>16))
}

func (w *writer) writeVarUint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			w.writeByte(b | 0x80)
		} else {
			w.writeByte(b)
			return
		}
	}
}

func (w *writer) bytes() []byte {
	return w.data
}
