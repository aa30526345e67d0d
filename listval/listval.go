// Package listval implements the list value type from spec.md §4.6: an
// ordered sequence backed by the segmented list, always in Segmented
// encoding (spec.md §3 allows no alternative for List).
package listval

import (
	"fmt"

	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/packed"
	"github.com/thebagchi/valuestore/seglist"
	"github.com/thebagchi/valuestore/value"
)

// Value is a list-typed value.
type Value struct {
	cfg *config.Config
	sl  *seglist.List
}

// New returns an empty list, sized per the configured fill factor and
// compress depth.
func New(cfg *config.Config) *Value {
	return &Value{
		cfg: cfg,
		sl:  seglist.New(seglist.FillFactor(cfg.ListFillFactor()), int(cfg.ListCompressDepth())),
	}
}

func (v *Value) Type() value.Type         { return value.List }
func (v *Value) Encoding() value.Encoding { return value.Segmented }
func (v *Value) Len() int                 { return v.sl.Len() }

// PushHead implements LPUSH: prepend one or more values, returning the new
// length. Per spec.md §4.6, values are pushed one at a time in argument
// order, so the last argument ends up closest to the head.
func (v *Value) PushHead(vals ...string) int {
	for _, s := range vals {
		v.sl.PushHead(packed.Str([]byte(s)))
	}
	return v.sl.Len()
}

// PushTail implements RPUSH.
func (v *Value) PushTail(vals ...string) int {
	for _, s := range vals {
		v.sl.PushTail(packed.Str([]byte(s)))
	}
	return v.sl.Len()
}

// PopHead implements LPOP (count-less form).
func (v *Value) PopHead() (string, bool) {
	val, ok := v.sl.PopHead()
	if !ok {
		return "", false
	}
	return string(val.AsBytes()), true
}

// PopTail implements RPOP (count-less form).
func (v *Value) PopTail() (string, bool) {
	val, ok := v.sl.PopTail()
	if !ok {
		return "", false
	}
	return string(val.AsBytes()), true
}

// PopHeadN implements LPOP key count.
func (v *Value) PopHeadN(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, ok := v.PopHead()
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out
}

// PopTailN implements RPOP key count.
func (v *Value) PopTailN(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, ok := v.PopTail()
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out
}

// Index implements LINDEX.
func (v *Value) Index(i int) (string, bool) {
	val, ok := v.sl.Index(i)
	if !ok {
		return "", false
	}
	return string(val.AsBytes()), true
}

// Set implements LSET.
func (v *Value) Set(i int, val string) bool {
	return v.sl.Set(i, packed.Str([]byte(val)))
}

// Range implements LRANGE.
func (v *Value) Range(start, stop int) []string {
	return toStrings(v.sl.Range(start, stop))
}

// Trim implements LTRIM.
func (v *Value) Trim(start, stop int) {
	v.sl.Trim(start, stop)
}

// InsertBefore implements LINSERT key BEFORE pivot value.
func (v *Value) InsertBefore(pivot, val string) bool {
	return v.sl.InsertBefore(packed.Str([]byte(pivot)), packed.Str([]byte(val)))
}

// InsertAfter implements LINSERT key AFTER pivot value.
func (v *Value) InsertAfter(pivot, val string) bool {
	return v.sl.InsertAfter(packed.Str([]byte(pivot)), packed.Str([]byte(val)))
}

// Remove implements LREM.
func (v *Value) Remove(val string, count int) int {
	return v.sl.RemoveByValue(packed.Str([]byte(val)), count)
}

// Rotate moves the tail entry to the head and returns it, the building
// block for RPOPLPUSH/LMOVE when source and destination are the same key.
func (v *Value) Rotate() (string, bool) {
	val, ok := v.sl.Rotate()
	if !ok {
		return "", false
	}
	return string(val.AsBytes()), true
}

// MoveTailToHeadOf pops this list's tail and pushes it onto dst's head,
// implementing RPOPLPUSH/LMOVE RIGHT LEFT across two distinct keys. Callers
// must route the same-key case to Rotate instead, per spec.md §9.
func (v *Value) MoveTailToHeadOf(dst *Value) (string, bool) {
	val, ok := v.sl.PopTail()
	if !ok {
		return "", false
	}
	dst.sl.PushHead(val)
	return string(val.AsBytes()), true
}

// Compare reports whether the entry at i equals bytes.
func (v *Value) Compare(i int, bytes []byte) bool {
	return v.sl.Compare(i, bytes)
}

// String implements fmt.Stringer for debugging.
func (v *Value) String() string {
	return fmt.Sprintf("list(encoding=%s, len=%d)", v.Encoding(), v.Len())
}

func toStrings(vals []packed.Value) []string {
	if vals == nil {
		return nil
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v.AsBytes())
	}
	return out
}
