package blocking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thebagchi/valuestore/value"
)

func TestSignalWakesOldestWaiterFirst(t *testing.T) {
	r := NewRegistry()
	w1 := r.Register([]string{"k"}, value.List, time.Time{})
	w2 := r.Register([]string{"k"}, value.List, time.Time{})

	require.True(t, r.Signal("k", value.List))

	select {
	case n := <-w1.Ready:
		require.Equal(t, "k", n.Key)
		require.False(t, n.TimedOut)
	default:
		t.Fatal("expected w1 (arrived first) to be woken")
	}

	select {
	case <-w2.Ready:
		t.Fatal("w2 should still be waiting")
	default:
	}
}

func TestSignalRespectsKindFilter(t *testing.T) {
	r := NewRegistry()
	w := r.Register([]string{"k"}, value.SortedSet, time.Time{})
	require.False(t, r.Signal("k", value.List))
	require.True(t, r.HasWaiters("k", value.SortedSet))
	require.True(t, r.Signal("k", value.SortedSet))
	_ = w
}

func TestMultiKeyWaiterRemovedFromAllKeysOnSignal(t *testing.T) {
	r := NewRegistry()
	w := r.Register([]string{"a", "b", "c"}, value.List, time.Time{})
	require.True(t, r.Signal("b", value.List))
	require.False(t, r.HasWaiters("a", value.List))
	require.False(t, r.HasWaiters("c", value.List))

	select {
	case n := <-w.Ready:
		require.Equal(t, "b", n.Key)
	default:
		t.Fatal("expected waiter to be woken")
	}
}

func TestCancelDeliversTimeout(t *testing.T) {
	r := NewRegistry()
	w := r.Register([]string{"k"}, value.List, time.Now().Add(time.Millisecond))
	require.True(t, r.Cancel(w))
	n := <-w.Ready
	require.True(t, n.TimedOut)
	require.False(t, r.HasWaiters("k", value.List))
}

func TestSignalAfterCancelIsNoOp(t *testing.T) {
	r := NewRegistry()
	w := r.Register([]string{"k"}, value.List, time.Time{})
	require.True(t, r.Cancel(w))
	require.False(t, r.Signal("k", value.List))
}

func TestShouldBlockRefusesInsideTransaction(t *testing.T) {
	require.False(t, ShouldBlock(true))
	require.True(t, ShouldBlock(false))
}

func TestReplicationRewrite(t *testing.T) {
	eff, ok := ReplicationRewrite("BLPOP")
	require.True(t, ok)
	require.Equal(t, "LPOP", eff)

	_, ok = ReplicationRewrite("LPOP")
	require.False(t, ok)
}
