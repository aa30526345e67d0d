// Package seglist implements the segmented list from spec.md §4.4: a
// doubly-linked list of packed-sequence segments, each bounded by an
// entry-count or byte-size fill factor, with transparent compression of
// interior segments.
//
// Grounded on original_source/src/quicklist.h (node layout: prev/next,
// payload, byte size, entry count, encoding, recompress flag) and on the
// teacher's doubly-linked traversal style in thebagchi-arena-go/vec.go.
// The negative-fill-factor byte tiers (4/8/16/32/64 KiB) restate upstream
// Redis's own quicklist fill-factor table from memory, since quicklist.c
// (where that table actually lives) was not retrieved into the pack. The
// LZF codec quicklist.h specifies is replaced with
// github.com/klauspost/compress/s2, a maintained LZ-family codec the pack
// already depends on (see DESIGN.md) — block compression, not a byte-exact
// LZF port.
package seglist

import (
	"golang.org/x/sys/unix"

	"github.com/klauspost/compress/s2"
	"github.com/thebagchi/valuestore/kverrors"
	"github.com/thebagchi/valuestore/packed"
)

// pageSize floors every byte-size tier so a segment is never smaller than
// one OS page, regardless of how the tier table below is tuned.
var pageSize = unix.Getpagesize()

// FillFactor mirrors spec.md §3's list-wide configuration: a positive
// value caps entries per segment; a negative value selects one of five
// byte-size tiers.
type FillFactor int

var tierBytes = map[FillFactor]int{
	-1: 4 * 1024,
	-2: 8 * 1024,
	-3: 16 * 1024,
	-4: 32 * 1024,
	-5: 64 * 1024,
}

func (f FillFactor) byteCap() (int, bool) {
	if f >= 0 {
		return 0, false
	}
	b, ok := tierBytes[f]
	if !ok {
		b = tierBytes[-5]
	}
	if b < pageSize {
		b = pageSize
	}
	return b, true
}

func (f FillFactor) entryCap() (int, bool) {
	if f > 0 {
		return int(f), true
	}
	return 0, false
}

type segment struct {
	prev, next *segment
	buf        []byte // valid raw packed-sequence bytes when !compressed
	compBuf    []byte // valid compressed bytes when compressed
	rawSize    int    // uncompressed byte size, valid in both states
	count      int
	compressed bool
	recompress bool
}

func newSegment() *segment {
	buf := packed.New()
	return &segment{buf: buf, rawSize: len(buf), count: 0}
}

// materialize decompresses the segment in place if needed and returns its
// packed-sequence bytes.
func (s *segment) materialize() []byte {
	if !s.compressed {
		return s.buf
	}
	raw, err := s2.Decode(nil, s.compBuf)
	if err != nil {
		panic(kverrors.InternalError("seglist materialize", "corrupt compressed segment: %v", err))
	}
	s.buf = raw
	s.compressed = false
	s.recompress = true
	return s.buf
}

func (s *segment) syncFromBuf() {
	s.rawSize = len(s.buf)
	s.count = packed.Len(s.buf)
}

// compress converts a raw segment to its compressed form, clearing the
// in-memory raw buffer.
func (s *segment) compress() {
	if s.compressed {
		return
	}
	s.compBuf = s2.EncodeBetter(nil, s.buf)
	s.buf = nil
	s.compressed = true
	s.recompress = false
}

// List is a segmented list.
type List struct {
	head, tail    *segment
	length        int
	fillFactor    FillFactor
	compressDepth int
}

// New returns an empty segmented list governed by the given fill factor
// and compress depth.
func New(fillFactor FillFactor, compressDepth int) *List {
	return &List{fillFactor: fillFactor, compressDepth: compressDepth}
}

// Len returns the total entry count across all segments.
func (l *List) Len() int { return l.length }

func (l *List) segFull(s *segment) bool {
	if cap, ok := l.fillFactor.entryCap(); ok {
		return s.count >= cap
	}
	if capBytes, ok := l.fillFactor.byteCap(); ok {
		return s.rawSize >= capBytes
	}
	return s.count >= 128
}

func (l *List) appendSegment(s *segment) {
	if l.tail == nil {
		l.head, l.tail = s, s
		return
	}
	s.prev = l.tail
	l.tail.next = s
	l.tail = s
}

func (l *List) insertSegmentAfter(at, s *segment) {
	s.prev = at
	s.next = at.next
	if at.next != nil {
		at.next.prev = s
	} else {
		l.tail = s
	}
	at.next = s
}

// PushHead inserts v at the front of the list.
func (l *List) PushHead(v packed.Value) {
	if l.head == nil {
		l.appendSegment(newSegment())
	}
	s := l.head
	if l.segFull(s) {
		ns := newSegment()
		ns.next = s
		s.prev = ns
		l.head = ns
		s = ns
	}
	buf := s.materialize()
	buf, _ = packed.Push(buf, false, v)
	s.buf = buf
	s.syncFromBuf()
	l.length++
	l.settle()
}

// PushTail inserts v at the back of the list.
func (l *List) PushTail(v packed.Value) {
	if l.tail == nil {
		l.appendSegment(newSegment())
	}
	s := l.tail
	if l.segFull(s) {
		ns := newSegment()
		l.appendSegment(ns)
		s = ns
	}
	buf := s.materialize()
	buf, _ = packed.Push(buf, true, v)
	s.buf = buf
	s.syncFromBuf()
	l.length++
	l.settle()
}

// PopHead removes and returns the first entry.
func (l *List) PopHead() (packed.Value, bool) {
	if l.head == nil {
		return packed.Value{}, false
	}
	s := l.head
	buf := s.materialize()
	pos, ok := packed.First(buf)
	if !ok {
		return packed.Value{}, false
	}
	v, _ := packed.Get(buf, pos)
	cp := cloneValue(v)
	buf = packed.Delete(buf, pos)
	s.buf = buf
	s.syncFromBuf()
	l.length--
	l.dropIfEmpty(s)
	l.settle()
	return cp, true
}

// PopTail removes and returns the last entry.
func (l *List) PopTail() (packed.Value, bool) {
	if l.tail == nil {
		return packed.Value{}, false
	}
	s := l.tail
	buf := s.materialize()
	pos, ok := packed.Last(buf)
	if !ok {
		return packed.Value{}, false
	}
	v, _ := packed.Get(buf, pos)
	cp := cloneValue(v)
	buf = packed.Delete(buf, pos)
	s.buf = buf
	s.syncFromBuf()
	l.length--
	l.dropIfEmpty(s)
	l.settle()
	return cp, true
}

func cloneValue(v packed.Value) packed.Value {
	if v.IsInt {
		return v
	}
	return packed.Str(append([]byte(nil), v.Bytes...))
}

func (l *List) dropIfEmpty(s *segment) {
	if s.count > 0 {
		return
	}
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		l.head = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	} else {
		l.tail = s.prev
	}
}

// locate finds the segment and local (0-based) index holding the i'th
// entry overall (negative i counts from the end).
func (l *List) locate(i int) (*segment, int, bool) {
	if i < 0 {
		i += l.length
	}
	if i < 0 || i >= l.length {
		return nil, 0, false
	}
	s := l.head
	for s != nil {
		if i < s.count {
			return s, i, true
		}
		i -= s.count
		s = s.next
	}
	return nil, 0, false
}

// Index returns the entry at position i.
func (l *List) Index(i int) (packed.Value, bool) {
	s, local, ok := l.locate(i)
	if !ok {
		return packed.Value{}, false
	}
	buf := s.materialize()
	pos, ok := packed.Index(buf, local)
	if !ok {
		return packed.Value{}, false
	}
	v, _ := packed.Get(buf, pos)
	l.settle()
	return v, true
}

// Set replaces the entry at position i.
func (l *List) Set(i int, v packed.Value) bool {
	s, local, ok := l.locate(i)
	if !ok {
		return false
	}
	buf := s.materialize()
	values := packed.All(buf)
	if local < 0 || local >= len(values) {
		return false
	}
	values[local] = v
	nb := packed.New()
	for _, val := range values {
		nb, _ = packed.Push(nb, true, val)
	}
	s.buf = nb
	s.syncFromBuf()
	l.settle()
	return true
}

// Range returns entries at 0-based inclusive positions [start, stop],
// normalizing negative indices and clamping out-of-range bounds to an
// empty result, per spec.md §8 boundary case 11.
func (l *List) Range(start, stop int) []packed.Value {
	n := l.length
	if n == 0 {
		return nil
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil
	}
	out := make([]packed.Value, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		v, ok := l.Index(i)
		if !ok {
			break
		}
		out = append(out, cloneValue(v))
	}
	return out
}

// Trim keeps only entries within [start, stop], deleting the rest. Per
// spec.md §8 boundary case 10, start > stop deletes the whole list.
func (l *List) Trim(start, stop int) {
	n := l.length
	if n == 0 {
		return
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		l.head, l.tail, l.length = nil, nil, 0
		return
	}
	for i := 0; i < start; i++ {
		l.PopHead()
	}
	remaining := stop - start + 1
	for l.length > remaining {
		l.PopTail()
	}
}

// InsertBefore inserts v immediately before the first occurrence of pivot.
func (l *List) InsertBefore(pivot, v packed.Value) bool {
	return l.insertRelative(pivot, v, true)
}

// InsertAfter inserts v immediately after the first occurrence of pivot.
func (l *List) InsertAfter(pivot, v packed.Value) bool {
	return l.insertRelative(pivot, v, false)
}

func (l *List) insertRelative(pivot, v packed.Value, before bool) bool {
	idx := l.findIndex(pivot)
	if idx < 0 {
		return false
	}
	if !before {
		idx++
	}
	l.insertAtIndex(idx, v)
	return true
}

func (l *List) findIndex(needle packed.Value) int {
	s := l.head
	base := 0
	for s != nil {
		buf := s.materialize()
		if pos, ok := packed.Find(buf, needle, 0); ok {
			offset := 0
			p, ok2 := packed.First(buf)
			for ok2 && p != pos {
				offset++
				p, ok2 = packed.Next(buf, p)
			}
			return base + offset
		}
		base += s.count
		s = s.next
	}
	return -1
}

func (l *List) insertAtIndex(idx int, v packed.Value) {
	if idx <= 0 {
		l.PushHead(v)
		return
	}
	if idx >= l.length {
		l.PushTail(v)
		return
	}
	s, local, ok := l.locate(idx)
	if !ok {
		l.PushTail(v)
		return
	}
	if l.segFull(s) {
		if local == 0 && s.prev != nil && !l.segFull(s.prev) {
			pbuf := s.prev.materialize()
			pbuf, _ = packed.Push(pbuf, true, v)
			s.prev.buf = pbuf
			s.prev.syncFromBuf()
			l.length++
			l.settle()
			return
		}
		if local == s.count && s.next != nil && !l.segFull(s.next) {
			nbuf := s.next.materialize()
			nbuf, _ = packed.Push(nbuf, false, v)
			s.next.buf = nbuf
			s.next.syncFromBuf()
			l.length++
			l.settle()
			return
		}
		l.splitAndInsert(s, local, v)
		return
	}
	buf := s.materialize()
	pos, ok := packed.Index(buf, local)
	if !ok {
		buf, _ = packed.Push(buf, true, v)
	} else {
		buf, _ = packed.Insert(buf, pos, v)
	}
	s.buf = buf
	s.syncFromBuf()
	l.length++
	l.settle()
}

// splitAndInsert splits a full segment at local, both halves taking the
// parent segment's place in the list, and appends v to the left half so
// that it lands immediately before the entry that was at local.
func (l *List) splitAndInsert(s *segment, local int, v packed.Value) {
	buf := s.materialize()
	left := packed.New()
	right := packed.New()
	pos, ok := packed.First(buf)
	idx := 0
	for ok {
		val, _ := packed.Get(buf, pos)
		if idx < local {
			left, _ = packed.Push(left, true, cloneValue(val))
		} else {
			right, _ = packed.Push(right, true, cloneValue(val))
		}
		pos, ok = packed.Next(buf, pos)
		idx++
	}
	leftSeg := &segment{buf: left}
	leftSeg.syncFromBuf()
	rightSeg := &segment{buf: right}
	rightSeg.syncFromBuf()

	// v belongs immediately before index local regardless of which half
	// holds it: left holds exactly the entries with idx < local, so
	// appending v to left's tail is "insert before local" in both the
	// local==0 (left empty) and local>0 cases.
	leftSeg.buf, _ = packed.Push(leftSeg.buf, true, v)
	leftSeg.syncFromBuf()

	leftSeg.prev = s.prev
	if s.prev != nil {
		s.prev.next = leftSeg
	} else {
		l.head = leftSeg
	}
	leftSeg.next = rightSeg
	rightSeg.prev = leftSeg
	rightSeg.next = s.next
	if s.next != nil {
		s.next.prev = rightSeg
	} else {
		l.tail = rightSeg
	}
	l.length++
	l.settle()
}

// DeleteAt removes the entry at position i.
func (l *List) DeleteAt(i int) bool {
	s, local, ok := l.locate(i)
	if !ok {
		return false
	}
	buf := s.materialize()
	pos, ok := packed.Index(buf, local)
	if !ok {
		return false
	}
	buf = packed.Delete(buf, pos)
	s.buf = buf
	s.syncFromBuf()
	l.length--
	l.dropIfEmpty(s)
	l.mergeAround(s)
	l.settle()
	return true
}

// DeleteRange removes entries at 0-based inclusive positions [start, stop].
func (l *List) DeleteRange(start, stop int) int {
	n := l.length
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return 0
	}
	want := stop - start + 1
	removed := 0
	for removed < want {
		if !l.DeleteAt(start) {
			break
		}
		removed++
	}
	return removed
}

// RemoveByValue deletes up to |count| entries equal to v. count > 0 scans
// head-to-tail, count < 0 scans tail-to-head, count == 0 removes all
// matches.
func (l *List) RemoveByValue(v packed.Value, count int) int {
	removed := 0
	if count >= 0 {
		limit := count
		i := 0
		for i < l.length {
			cur, ok := l.Index(i)
			if ok && cur.Equal(v) {
				l.DeleteAt(i)
				removed++
				if limit > 0 && removed >= limit {
					break
				}
				continue
			}
			i++
		}
		return removed
	}
	limit := -count
	i := l.length - 1
	for i >= 0 {
		cur, ok := l.Index(i)
		if ok && cur.Equal(v) {
			l.DeleteAt(i)
			removed++
			if removed >= limit {
				break
			}
		}
		i--
	}
	return removed
}

// Compare reports whether the entry at position i equals bytes.
func (l *List) Compare(i int, bytes []byte) bool {
	v, ok := l.Index(i)
	if !ok {
		return false
	}
	return string(v.AsBytes()) == string(bytes)
}

// Rotate moves the tail entry to the head, atomically from the caller's
// perspective (no intermediate state is observable since this is a single
// Go call with no suspension point). This is the building block for
// RPOPLPUSH when source and destination are the same key — spec.md §9
// calls out that same-key RPOPLPUSH must behave as a rotation.
func (l *List) Rotate() (packed.Value, bool) {
	v, ok := l.PopTail()
	if !ok {
		return packed.Value{}, false
	}
	l.PushHead(v)
	return v, true
}

// mergeAround attempts to merge s with a neighbour if the combined size
// fits within the fill factor, per spec.md §4.4's post-mutation merge
// rule.
func (l *List) mergeAround(s *segment) {
	if s == nil || s.prev == nil {
		return
	}
	prev := s.prev
	pbuf := prev.materialize()
	sbuf := s.materialize()
	combinedEntries := packed.Len(pbuf) + packed.Len(sbuf)
	combinedBytes := packed.ByteSize(pbuf) + packed.ByteSize(sbuf) - headerOverlap()
	if cap, ok := l.fillFactor.entryCap(); ok && combinedEntries > cap {
		return
	}
	if capBytes, ok := l.fillFactor.byteCap(); ok && combinedBytes > capBytes {
		return
	}
	for _, v := range packed.All(sbuf) {
		pbuf, _ = packed.Push(pbuf, true, v)
	}
	prev.buf = pbuf
	prev.syncFromBuf()
	prev.next = s.next
	if s.next != nil {
		s.next.prev = prev
	} else {
		l.tail = prev
	}
}

func headerOverlap() int { return 10 }

// settle enforces the compress-depth window: the compressDepth segments
// closest to each end stay Raw; every other segment is compressed,
// including one that a recent access inflated and marked recompress.
func (l *List) settle() {
	depth := l.compressDepth
	segs := make([]*segment, 0, 8)
	for s := l.head; s != nil; s = s.next {
		segs = append(segs, s)
	}
	for i, s := range segs {
		fromHead := i
		fromTail := len(segs) - 1 - i
		inWindow := fromHead < depth || fromTail < depth
		if inWindow {
			s.materialize()
			continue
		}
		if !s.compressed {
			s.compress()
		}
	}
}
