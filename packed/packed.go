// Package packed implements the packed-sequence primitive: a single
// contiguous byte buffer storing a sequence of small entries (short byte
// strings or small integers) with O(n) insert/delete/find and O(1) length.
//
// Every mutating operation may reallocate the backing buffer, so callers
// never hold a pointer into it — all positions are byte offsets into the
// buffer and survive reallocation. This mirrors the "return the new base"
// discipline the teacher's Buffer/Vec types use for arena-backed slices,
// generalized here to plain heap buffers since this package carries no
// allocator of its own (see spec.md Non-goals).
package packed

import (
	"encoding/binary"
	"math"
)

// header layout: totalBytes(4) | tailOffset(4) | count(2), followed by
// entries, followed by a single 0xff terminator byte.
const (
	headerSize = 10
	terminator = 0xff
)

// entry encoding tags. A string entry is one of two widths depending on
// payload length; an integer entry is one of four widths depending on
// magnitude. This is a simplified, from-scratch encoding — not a byte-exact
// port of any upstream ziplist — sized for the operations spec.md §4.1 asks
// of it.
const (
	encStr8  = 0 // 1-byte length prefix, len fits in a byte
	encStr32 = 1 // 4-byte length prefix (LE)
	encInt8  = 2
	encInt16 = 3
	encInt32 = 4
	encInt64 = 5
)

// Value is a single packed-sequence entry as seen by callers: either a
// byte-string or a small integer, never both.
type Value struct {
	Bytes []byte
	Int   int64
	IsInt bool
}

// Str builds a string Value.
func Str(b []byte) Value { return Value{Bytes: b} }

// Int64 builds an integer Value.
func Int64(i int64) Value { return Value{Int: i, IsInt: true} }

// Equal reports whether two values hold the same logical entry.
func (v Value) Equal(o Value) bool {
	if v.IsInt != o.IsInt {
		return false
	}
	if v.IsInt {
		return v.Int == o.Int
	}
	return string(v.Bytes) == string(o.Bytes)
}

// Bytes of a value regardless of representation, for byte-lexicographic
// comparisons (sorted-set packed form orders by member bytes).
func (v Value) AsBytes() []byte {
	if v.IsInt {
		return []byte(itoa(v.Int))
	}
	return v.Bytes
}

func itoa(i int64) string {
	return intToString(i)
}

// New returns an empty packed sequence.
func New() []byte {
	buf := make([]byte, headerSize+1)
	putHeader(buf, headerSize+1, headerSize, 0)
	buf[headerSize] = terminator
	return buf
}

func putHeader(buf []byte, total, tail uint32, count uint16) {
	binary.LittleEndian.PutUint32(buf[0:4], total)
	binary.LittleEndian.PutUint32(buf[4:8], tail)
	binary.LittleEndian.PutUint16(buf[8:10], count)
}

func getHeader(buf []byte) (total, tail uint32, count uint16) {
	total = binary.LittleEndian.Uint32(buf[0:4])
	tail = binary.LittleEndian.Uint32(buf[4:8])
	count = binary.LittleEndian.Uint16(buf[8:10])
	return
}

// Len returns the number of entries, O(1).
func Len(buf []byte) int {
	_, _, count := getHeader(buf)
	return int(count)
}

// ByteSize returns the total buffer size in bytes.
func ByteSize(buf []byte) int {
	total, _, _ := getHeader(buf)
	return int(total)
}

// encodeEntry returns the wire bytes for a value, given the previous
// entry's total encoded length (for the prevlen prefix).
func encodeEntry(prevLen uint32, v Value) []byte {
	var body []byte
	if v.IsInt {
		switch {
		case v.Int >= math.MinInt8 && v.Int <= math.MaxInt8:
			body = []byte{encInt8, byte(v.Int)}
		case v.Int >= math.MinInt16 && v.Int <= math.MaxInt16:
			b := make([]byte, 3)
			b[0] = encInt16
			binary.LittleEndian.PutUint16(b[1:], uint16(int16(v.Int)))
			body = b
		case v.Int >= math.MinInt32 && v.Int <= math.MaxInt32:
			b := make([]byte, 5)
			b[0] = encInt32
			binary.LittleEndian.PutUint32(b[1:], uint32(int32(v.Int)))
			body = b
		default:
			b := make([]byte, 9)
			b[0] = encInt64
			binary.LittleEndian.PutUint64(b[1:], uint64(v.Int))
			body = b
		}
	} else if len(v.Bytes) <= 255 {
		b := make([]byte, 2+len(v.Bytes))
		b[0] = encStr8
		b[1] = byte(len(v.Bytes))
		copy(b[2:], v.Bytes)
		body = b
	} else {
		b := make([]byte, 5+len(v.Bytes))
		b[0] = encStr32
		binary.LittleEndian.PutUint32(b[1:5], uint32(len(v.Bytes)))
		copy(b[5:], v.Bytes)
		body = b
	}

	var prefix []byte
	if prevLen < 254 {
		prefix = []byte{byte(prevLen)}
	} else {
		prefix = make([]byte, 5)
		prefix[0] = 254
		binary.LittleEndian.PutUint32(prefix[1:], prevLen)
	}
	return append(prefix, body...)
}

// decodePrevLen reads the prevlen prefix at pos, returning its value and
// the number of bytes it occupies.
func decodePrevLen(buf []byte, pos int) (uint32, int) {
	if buf[pos] < 254 {
		return uint32(buf[pos]), 1
	}
	return binary.LittleEndian.Uint32(buf[pos+1 : pos+5]), 5
}

// decodeEntry reads the value at pos (which must point at the start of an
// entry, i.e. its prevlen prefix) and returns the value, the entry's total
// encoded length, and whether pos is valid (not the terminator).
func decodeEntry(buf []byte, pos int) (Value, int, bool) {
	if pos < headerSize || pos >= len(buf) || buf[pos] == terminator {
		return Value{}, 0, false
	}
	_, plen := decodePrevLen(buf, pos)
	enc := buf[pos+plen]
	switch enc {
	case encStr8:
		n := int(buf[pos+plen+1])
		start := pos + plen + 2
		return Value{Bytes: buf[start : start+n]}, plen + 2 + n, true
	case encStr32:
		n := int(binary.LittleEndian.Uint32(buf[pos+plen+1 : pos+plen+5]))
		start := pos + plen + 5
		return Value{Bytes: buf[start : start+n]}, plen + 5 + n, true
	case encInt8:
		return Value{Int: int64(int8(buf[pos+plen+1])), IsInt: true}, plen + 2, true
	case encInt16:
		v := int16(binary.LittleEndian.Uint16(buf[pos+plen+1 : pos+plen+3]))
		return Value{Int: int64(v), IsInt: true}, plen + 3, true
	case encInt32:
		v := int32(binary.LittleEndian.Uint32(buf[pos+plen+1 : pos+plen+5]))
		return Value{Int: int64(v), IsInt: true}, plen + 5, true
	case encInt64:
		v := int64(binary.LittleEndian.Uint64(buf[pos+plen+1 : pos+plen+9]))
		return Value{Int: v, IsInt: true}, plen + 9, true
	default:
		return Value{}, 0, false
	}
}

// First returns the position of the first entry, or false if empty.
func First(buf []byte) (int, bool) {
	if Len(buf) == 0 {
		return 0, false
	}
	return headerSize, true
}

// Last returns the position of the last entry, or false if empty.
func Last(buf []byte) (int, bool) {
	_, tail, count := getHeader(buf)
	if count == 0 {
		return 0, false
	}
	return int(tail), true
}

// Next returns the position following pos, or false at end of sequence.
func Next(buf []byte, pos int) (int, bool) {
	_, n, ok := decodeEntry(buf, pos)
	if !ok {
		return 0, false
	}
	np := pos + n
	if np >= len(buf) || buf[np] == terminator {
		return 0, false
	}
	return np, true
}

// Prev returns the position preceding pos, using the prevlen backlink, or
// false if pos is the first entry.
func Prev(buf []byte, pos int) (int, bool) {
	if pos <= headerSize {
		return 0, false
	}
	plen, pl := decodePrevLen(buf, pos)
	if plen == 0 {
		return 0, false
	}
	_ = pl
	return pos - int(plen), true
}

// Get decodes the entry at pos.
func Get(buf []byte, pos int) (Value, bool) {
	v, _, ok := decodeEntry(buf, pos)
	return v, ok
}

// Index walks from the head (or tail, for negative i) to the i'th entry
// (0-based) and returns its position.
func Index(buf []byte, i int) (int, bool) {
	count := Len(buf)
	if i < 0 {
		i += count
	}
	if i < 0 || i >= count {
		return 0, false
	}
	pos, ok := First(buf)
	if !ok {
		return 0, false
	}
	for j := 0; j < i; j++ {
		pos, ok = Next(buf, pos)
		if !ok {
			return 0, false
		}
	}
	return pos, true
}

// Find scans forward from the head, skipping `skip` matches, and returns
// the position of the next entry equal to needle.
func Find(buf []byte, needle Value, skip int) (int, bool) {
	pos, ok := First(buf)
	skipped := 0
	for ok {
		v, _ := Get(buf, pos)
		if v.Equal(needle) {
			if skipped >= skip {
				return pos, true
			}
			skipped++
		}
		pos, ok = Next(buf, pos)
	}
	return 0, false
}

// Compare reports whether the entry at pos equals the given bytes,
// comparing byte-lexicographically regardless of the entry's own encoding.
func Compare(buf []byte, pos int, other []byte) bool {
	v, ok := Get(buf, pos)
	if !ok {
		return false
	}
	return string(v.AsBytes()) == string(other)
}

// rebuild re-encodes the whole sequence from a slice of values, used by
// Push/Insert/Delete which all operate by decode-modify-reencode since the
// prevlen chain must stay consistent after any structural change.
func rebuild(values []Value) []byte {
	size := headerSize + 1
	encoded := make([][]byte, len(values))
	prev := uint32(0)
	for i, v := range values {
		e := encodeEntry(prev, v)
		encoded[i] = e
		prev = uint32(len(e))
		size += len(e)
	}
	buf := make([]byte, size)
	off := headerSize
	tail := headerSize
	for _, e := range encoded {
		tail = off
		copy(buf[off:], e)
		off += len(e)
	}
	buf[off] = terminator
	putHeader(buf, uint32(size), uint32(tail), uint16(len(values)))
	return buf
}

// All decodes the full sequence into a slice, for rebuild-style mutators
// and for callers that want to iterate without position bookkeeping.
func All(buf []byte) []Value {
	values := make([]Value, 0, Len(buf))
	pos, ok := First(buf)
	for ok {
		v, _ := Get(buf, pos)
		cp := v
		if !v.IsInt {
			cp.Bytes = append([]byte(nil), v.Bytes...)
		}
		values = append(values, cp)
		pos, ok = Next(buf, pos)
	}
	return values
}

// Push appends a value at the head or the tail and returns the new buffer
// plus the position of the inserted entry.
func Push(buf []byte, atTail bool, v Value) ([]byte, int) {
	values := All(buf)
	if atTail {
		values = append(values, v)
	} else {
		values = append([]Value{v}, values...)
	}
	nb := rebuild(values)
	if atTail {
		pos, _ := Last(nb)
		return nb, pos
	}
	pos, _ := First(nb)
	return nb, pos
}

// Insert places v immediately before the entry currently at pos.
func Insert(buf []byte, pos int, v Value) ([]byte, int) {
	idx := posToIndex(buf, pos)
	values := All(buf)
	if idx < 0 || idx > len(values) {
		idx = len(values)
	}
	values = append(values, Value{})
	copy(values[idx+1:], values[idx:])
	values[idx] = v
	nb := rebuild(values)
	p, _ := Index(nb, idx)
	return nb, p
}

// Delete removes the entry at pos.
func Delete(buf []byte, pos int) []byte {
	idx := posToIndex(buf, pos)
	if idx < 0 {
		return buf
	}
	values := All(buf)
	values = append(values[:idx], values[idx+1:]...)
	return rebuild(values)
}

// DeleteRange removes n entries starting at the 0-based index.
func DeleteRange(buf []byte, index, n int) []byte {
	values := All(buf)
	if index < 0 {
		index = 0
	}
	if index >= len(values) || n <= 0 {
		return buf
	}
	end := index + n
	if end > len(values) {
		end = len(values)
	}
	values = append(values[:index], values[end:]...)
	return rebuild(values)
}

func posToIndex(buf []byte, pos int) int {
	i := 0
	p, ok := First(buf)
	for ok {
		if p == pos {
			return i
		}
		p, ok = Next(buf, p)
		i++
	}
	return -1
}
