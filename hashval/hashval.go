// Package hashval implements the hash value type from spec.md §4.5: a
// field→value map stored packed for small hashes and promoted to an
// indexed hash table once either threshold is crossed.
package hashval

import (
	"fmt"
	"iter"
	"math"
	"strconv"

	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/htable"
	"github.com/thebagchi/valuestore/kverrors"
	"github.com/thebagchi/valuestore/numfmt"
	"github.com/thebagchi/valuestore/packed"
	"github.com/thebagchi/valuestore/value"
)

// Value is a hash-typed value in either representation.
type Value struct {
	cfg    *config.Config
	enc    value.Encoding
	packed []byte
	table  *htable.Table[string]
}

// New returns an empty hash value in Packed encoding.
func New(cfg *config.Config) *Value {
	return &Value{cfg: cfg, enc: value.Packed, packed: packed.New()}
}

func (v *Value) Type() value.Type         { return value.Hash }
func (v *Value) Encoding() value.Encoding { return v.enc }

// Len returns the number of fields.
func (v *Value) Len() int {
	if v.enc == value.Packed {
		return packed.Len(v.packed) / 2
	}
	return v.table.Len()
}

// Get returns field's value.
func (v *Value) Get(field string) (string, bool) {
	if v.enc == value.Packed {
		pos, ok := findPackedField(v.packed, field)
		if !ok {
			return "", false
		}
		valPos, ok := packed.Next(v.packed, pos)
		if !ok {
			return "", false
		}
		val, _ := packed.Get(v.packed, valPos)
		return string(val.AsBytes()), true
	}
	return v.table.Get(field)
}

func (v *Value) Exists(field string) bool {
	_, ok := v.Get(field)
	return ok
}

// SetOpts mirrors the set flags spec.md §4.5 describes.
type SetOpts struct {
	OnlyIfAbsent bool // HSETNX
}

// Set stores field=val, returning true if the field was newly created.
func (v *Value) Set(field, val string, opts SetOpts) bool {
	existed := v.Exists(field)
	if existed && opts.OnlyIfAbsent {
		return false
	}
	if v.enc == value.Packed {
		if existed {
			v.packed = deletePackedField(v.packed, field)
		}
		v.packed, _ = packed.Push(v.packed, true, packed.Str([]byte(field)))
		v.packed, _ = packed.Push(v.packed, true, packed.Str([]byte(val)))
		v.maybeConvert(field, val)
	} else {
		v.table.Set(field, val)
	}
	return !existed
}

// Delete removes field, returning true if it was present.
func (v *Value) Delete(field string) bool {
	if v.enc == value.Packed {
		if !v.Exists(field) {
			return false
		}
		v.packed = deletePackedField(v.packed, field)
		return true
	}
	return v.table.Delete(field)
}

// findPackedField returns the position of field's entry, looking only at
// field slots so a value equal to field is never taken for it.
func findPackedField(buf []byte, field string) (int, bool) {
	pos, ok := packed.First(buf)
	for ok {
		if packed.Compare(buf, pos, []byte(field)) {
			return pos, true
		}
		valPos, vok := packed.Next(buf, pos)
		if !vok {
			return 0, false
		}
		pos, ok = packed.Next(buf, valPos)
	}
	return 0, false
}

func deletePackedField(buf []byte, field string) []byte {
	pos, ok := findPackedField(buf, field)
	if !ok {
		return buf
	}
	idx := indexOfPos(buf, pos)
	buf = packed.DeleteRange(buf, idx, 2)
	return buf
}

func indexOfPos(buf []byte, target int) int {
	i := 0
	pos, ok := packed.First(buf)
	for ok {
		if pos == target {
			return i
		}
		pos, ok = packed.Next(buf, pos)
		i++
	}
	return -1
}

// All returns a range-over-func iterator of (field, value) pairs. Per
// spec.md §4.5, the iterator is invalidated by any Set/Delete that
// triggers a conversion; callers must not mutate the hash while ranging.
func (v *Value) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if v.enc == value.Packed {
			pos, ok := packed.First(v.packed)
			for ok {
				field, _ := packed.Get(v.packed, pos)
				valPos, vok := packed.Next(v.packed, pos)
				if !vok {
					return
				}
				val, _ := packed.Get(v.packed, valPos)
				if !yield(string(field.AsBytes()), string(val.AsBytes())) {
					return
				}
				pos, ok = packed.Next(v.packed, valPos)
			}
			return
		}
		v.table.Range(yield)
	}
}

// IncrementInt implements HINCRBY: adds delta to field's integer value
// (0 if absent), rejecting overflow and leaving the field unchanged on
// failure per spec.md §7.
func (v *Value) IncrementInt(field string, delta int64) (int64, error) {
	cur := int64(0)
	if s, ok := v.Get(field); ok {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, kverrors.New(kverrors.NotAnInteger, "HINCRBY")
		}
		cur = parsed
	}
	sum := cur + delta
	if (delta > 0 && sum < cur) || (delta < 0 && sum > cur) {
		return 0, kverrors.New(kverrors.Overflow, "HINCRBY")
	}
	v.Set(field, strconv.FormatInt(sum, 10), SetOpts{})
	return sum, nil
}

// IncrementFloat implements HINCRBYFLOAT: adds delta to field's float
// value, formatting the result deterministically so replication rewrite
// (spec.md §6) converges bit-for-bit across replicas.
func (v *Value) IncrementFloat(field string, delta float64) (string, error) {
	cur := 0.0
	if s, ok := v.Get(field); ok {
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", kverrors.New(kverrors.NotAFloat, "HINCRBYFLOAT")
		}
		cur = parsed
	}
	sum := cur + delta
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return "", kverrors.New(kverrors.NaN, "HINCRBYFLOAT")
	}
	formatted := numfmt.FormatFloat(sum)
	v.Set(field, formatted, SetOpts{})
	return formatted, nil
}

// maybeConvert promotes to HashTable encoding if field or val just crossed
// a threshold. Per spec.md §4.7 this is invoked immediately after the
// insertion that caused the threshold crossing, so the new field is
// already present in the packed form when conversion runs.
func (v *Value) maybeConvert(field, val string) {
	if v.enc != value.Packed {
		return
	}
	entries := v.Len()
	over := entries > v.cfg.HashMaxPackedEntries() ||
		len(field) > v.cfg.HashMaxPackedValue() ||
		len(val) > v.cfg.HashMaxPackedValue()
	if !over {
		return
	}
	v.convertToHashTable()
}

// convertToHashTable is the one conversion procedure for the hash type
// (spec.md §4.7): read every packed entry, insert into a fresh table, then
// atomically swap the payload and encoding.
func (v *Value) convertToHashTable() {
	tb := htable.New[string]()
	pos, ok := packed.First(v.packed)
	for ok {
		field, _ := packed.Get(v.packed, pos)
		valPos, vok := packed.Next(v.packed, pos)
		if !vok {
			panic(kverrors.InternalError("hash convert", "dangling field without value"))
		}
		val, _ := packed.Get(v.packed, valPos)
		key := string(field.AsBytes())
		if tb.Exists(key) {
			panic(kverrors.InternalError("hash convert", "duplicate key %q in packed hash", key))
		}
		tb.Set(key, string(val.AsBytes()))
		pos, ok = packed.Next(v.packed, valPos)
	}
	v.table = tb
	v.packed = nil
	v.enc = value.HashTable
}

// StrLen returns the byte length of field's value, or 0 if absent.
func (v *Value) StrLen(field string) int {
	s, ok := v.Get(field)
	if !ok {
		return 0
	}
	return len(s)
}

// String implements fmt.Stringer for debugging.
func (v *Value) String() string {
	return fmt.Sprintf("hash(encoding=%s, len=%d)", v.enc, v.Len())
}
