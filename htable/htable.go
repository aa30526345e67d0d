// Package htable implements the hash-map primitive from spec.md §2: an
// open hash table, mapping short string keys to values, with
// find/insert/delete/iterate/resize.
//
// Shaped after the teacher's Map[K, V] in thebagchi-arena-go/map.go
// (separate chaining, grow-on-load-factor, iter.Seq2 iteration support),
// generalized from a type-parameterized key to the fixed string key this
// engine always uses (hash field names, sorted-set members), and switched
// from maphash to xxhash since this table is a genuinely hot path
// (every HSET/ZADD on an indexed value touches it), and xxhash is the hash
// function the broader pack reaches for when that matters.
package htable

import (
	"iter"

	"github.com/cespare/xxhash/v2"
)

const initialBuckets = 16

// Table is a string-keyed hash table with separate chaining.
// Table carries no internal synchronization: per spec.md §5, the engine is
// single-threaded cooperative and callers serialize access.
type Table[V any] struct {
	buckets []*entry[V]
	count   int
	mask    uint64
}

type entry[V any] struct {
	hash uint64
	key  string
	val  V
	next *entry[V]
}

// New returns an empty table.
func New[V any]() *Table[V] {
	return &Table[V]{
		buckets: make([]*entry[V], initialBuckets),
		mask:    initialBuckets - 1,
	}
}

func hashOf(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Set inserts or updates key's value.
func (t *Table[V]) Set(key string, val V) {
	if t.count > len(t.buckets)*3/4 {
		t.grow()
	}
	h := hashOf(key)
	idx := h & t.mask
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == h && e.key == key {
			e.val = val
			return
		}
	}
	t.buckets[idx] = &entry[V]{hash: h, key: key, val: val, next: t.buckets[idx]}
	t.count++
}

// Get returns key's value and whether it was present.
func (t *Table[V]) Get(key string) (V, bool) {
	h := hashOf(key)
	idx := h & t.mask
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == h && e.key == key {
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// Exists reports whether key is present.
func (t *Table[V]) Exists(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Delete removes key, reporting whether it was present.
func (t *Table[V]) Delete(key string) bool {
	h := hashOf(key)
	idx := h & t.mask
	var prev *entry[V]
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.hash == h && e.key == key {
			if prev == nil {
				t.buckets[idx] = e.next
			} else {
				prev.next = e.next
			}
			t.count--
			return true
		}
		prev = e
	}
	return false
}

// Len returns the number of entries.
func (t *Table[V]) Len() int { return t.count }

// Range calls f for each entry until f returns false.
func (t *Table[V]) Range(f func(key string, val V) bool) {
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			if !f(e.key, e.val) {
				return
			}
		}
	}
}

// All returns a range-over-func iterator over all entries.
func (t *Table[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		t.Range(yield)
	}
}

func (t *Table[V]) grow() {
	old := t.buckets
	ncap := len(old) * 2
	if ncap < initialBuckets {
		ncap = initialBuckets
	}
	t.buckets = make([]*entry[V], ncap)
	t.mask = uint64(ncap - 1)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			idx := e.hash & t.mask
			e.next = t.buckets[idx]
			t.buckets[idx] = e
			e = next
		}
	}
}
