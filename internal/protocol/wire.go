package protocol

import (
	"encoding/binary"
	"math"
)

// Strings carry an unsigned LEB128 byte-length prefix followed by UTF-8 bytes.
// This is the "7-bit encoded int" layout used by .NET BinaryWriter, so lengths
// below 2^31 are byte-identical with those peers.
const maxStringLen = math.MaxInt32

// Minimum encoded sizes of repeated WorldState elements; used to bound counts
// against the remaining buffer before allocating.
const (
	nodeStateSize      = 4 + 1 + 4 + 4 + 4 + 4 + 4
	minPlayerStateSize = 8 + 1 + 4 + 4 + 4 + 4*ResourceTypeCount + 4*ToolTypeCount + 1 + 4 + 4
)

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)     { w.buf = append(w.buf, v) }
func (w *writer) u64(v uint64)   { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *writer) i32(v int32)    { w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v)) }
func (w *writer) f32(v float32)  { w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v)) }
func (w *writer) boolean(v bool) { w.u8(boolByte(v)) }

func (w *writer) str(s string) {
	w.buf = binary.AppendUvarint(w.buf, uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// reader records the first failure and turns every later read into a no-op,
// so decoders can read a whole layout and check err once.
type reader struct {
	kind Kind
	b    []byte
	off  int
	err  error
}

func (r *reader) remaining() int { return len(r.b) - r.off }

func (r *reader) fail(reason string) {
	if r.err == nil {
		r.err = &MalformedError{Kind: r.kind, Offset: r.off, Reason: reason}
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.remaining() < n {
		r.fail("truncated")
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *reader) f32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *reader) boolean() bool { return r.u8() != 0 }

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	n, k := binary.Uvarint(r.b[r.off:])
	if k == 0 {
		r.fail("truncated string length")
		return ""
	}
	if k < 0 || n > maxStringLen {
		r.fail("string length overflow")
		return ""
	}
	r.off += k
	if uint64(r.remaining()) < n {
		r.fail("string length exceeds buffer")
		return ""
	}
	return string(r.take(int(n)))
}

// count reads an i32 element count and checks that count*minSize bytes remain.
func (r *reader) count(minSize int) int {
	n := r.i32()
	if r.err != nil {
		return 0
	}
	if n < 0 {
		r.fail("negative count")
		return 0
	}
	if int64(n)*int64(minSize) > int64(r.remaining()) {
		r.fail("count exceeds buffer")
		return 0
	}
	return int(n)
}

func (r *reader) resource() ResourceType {
	v := ResourceType(r.u8())
	if r.err == nil && !v.Valid() {
		r.fail("unknown resource type")
	}
	return v
}

func (r *reader) tool() ToolType {
	v := ToolType(r.u8())
	if r.err == nil && !v.Valid() {
		r.fail("unknown tool index")
	}
	return v
}
