// Package blocking implements the blocking-pop protocol from spec.md §4
// (BLPOP/BRPOP/BLMOVE/BZPOPMIN/BZPOPMAX): a waiter registry that wakes
// blocked clients in arrival order once a key they are waiting on gains an
// entry of the right type.
//
// The registry carries no internal locking of its own. Its Register,
// Signal, and Cancel methods are mutating operations and must only be
// called from the single goroutine that serializes command processing
// (store.Store's command loop) — the same single-threaded-cooperative
// model spec.md §5 describes, realized here as one goroutine instead of
// one OS thread. The channel each Waiter exposes is the one piece that
// safely crosses goroutines: the blocked client's goroutine reads from it
// without touching the registry directly, which is what lets the registry
// itself stay lock-free.
package blocking

import (
	"time"

	"github.com/google/uuid"
	"github.com/thebagchi/valuestore/value"
)

// Notification is delivered to a blocked client when it is woken, either
// because a key it waited on produced a value or because its deadline
// passed first.
type Notification struct {
	Key      string
	TimedOut bool
}

// Waiter is one blocked client's registration, possibly spanning several
// keys (BLPOP key1 key2 ... accepts the first of several keys to gain an
// entry).
type Waiter struct {
	ID       uuid.UUID
	Keys     []string
	Kind     value.Type
	Dest     string
	Deadline time.Time
	Ready    chan Notification
	woken    bool
}

// HasDeadline reports whether the waiter times out rather than blocking
// forever.
func (w *Waiter) HasDeadline() bool { return !w.Deadline.IsZero() }

// Registry tracks, per key, the FIFO of waiters blocked on it.
type Registry struct {
	byKey map[string][]*Waiter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string][]*Waiter)}
}

// Register enqueues a new waiter on the given keys, in arrival order
// relative to any waiters already queued on those keys. kind restricts
// which value type's arrival can wake it (List for BLPOP/BRPOP/BLMOVE,
// SortedSet for BZPOPMIN/BZPOPMAX), per spec.md §3's type boundary.
func (r *Registry) Register(keys []string, kind value.Type, deadline time.Time) *Waiter {
	return r.RegisterWithDest(keys, kind, "", deadline)
}

// RegisterWithDest is Register plus the destination key BRPOPLPUSH/BLMOVE
// records alongside its source keys, per spec.md §4.6's waiter record.
func (r *Registry) RegisterWithDest(keys []string, kind value.Type, dest string, deadline time.Time) *Waiter {
	w := &Waiter{
		ID:       uuid.New(),
		Keys:     append([]string(nil), keys...),
		Kind:     kind,
		Dest:     dest,
		Deadline: deadline,
		Ready:    make(chan Notification, 1),
	}
	for _, k := range keys {
		r.byKey[k] = append(r.byKey[k], w)
	}
	return w
}

// HasWaiters reports whether any waiter is queued on key for the given
// kind.
func (r *Registry) HasWaiters(key string, kind value.Type) bool {
	for _, w := range r.byKey[key] {
		if !w.woken && w.Kind == kind {
			return true
		}
	}
	return false
}

// Signal wakes the oldest still-waiting, kind-matching waiter on key, if
// any, and reports whether one was woken. The woken waiter is removed from
// every key it was registered under, since only one key can satisfy a
// multi-key BLPOP.
func (r *Registry) Signal(key string, kind value.Type) bool {
	queue := r.byKey[key]
	for i, w := range queue {
		if w.woken || w.Kind != kind {
			continue
		}
		w.woken = true
		r.removeFromAllKeys(w)
		w.Ready <- Notification{Key: key}
		close(w.Ready)
		_ = i
		return true
	}
	return false
}

// Cancel removes a waiter from the registry without waking it, used when
// its deadline has passed. Returns false if it had already been woken by
// a concurrent Signal.
func (r *Registry) Cancel(w *Waiter) bool {
	if w.woken {
		return false
	}
	w.woken = true
	r.removeFromAllKeys(w)
	w.Ready <- Notification{TimedOut: true}
	close(w.Ready)
	return true
}

func (r *Registry) removeFromAllKeys(w *Waiter) {
	for _, k := range w.Keys {
		queue := r.byKey[k]
		for i, other := range queue {
			if other == w {
				r.byKey[k] = append(queue[:i], queue[i+1:]...)
				break
			}
		}
		if len(r.byKey[k]) == 0 {
			delete(r.byKey, k)
		}
	}
}

// ShouldBlock reports whether a blocking command is allowed to actually
// block. Per spec.md §9, a blocking command issued inside a transaction
// batch must behave as its immediate, possibly-empty, non-blocking
// counterpart instead of suspending the batch.
func ShouldBlock(inTransaction bool) bool {
	return !inTransaction
}

// rewriteTable maps a blocking command to the effective non-blocking
// command replication must record in its place, per spec.md §6: replicas
// must never replay the suspend/wake choreography, only its outcome.
var rewriteTable = map[string]string{
	"BLPOP":      "LPOP",
	"BRPOP":      "RPOP",
	"BLMOVE":     "LMOVE",
	"BRPOPLPUSH": "RPOPLPUSH",
	"BZPOPMIN":   "ZPOPMIN",
	"BZPOPMAX":   "ZPOPMAX",
}

// ReplicationRewrite returns the non-blocking command name to replicate in
// place of cmd, if cmd is a blocking command.
func ReplicationRewrite(cmd string) (string, bool) {
	eff, ok := rewriteTable[cmd]
	return eff, ok
}
