package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/store"
)

func newTestStore(t *testing.T) (*store.Store, context.Context) {
	t.Helper()
	st := store.New(config.New(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go st.Run(ctx)
	return st, ctx
}

func TestHashRoundTrip(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	r := st.Submit(ctx, sink, "HSET", []string{"h", "f", "v"}, false)
	require.Equal(t, store.KindInt, r.Kind)
	require.Equal(t, int64(1), r.Int)

	r = st.Submit(ctx, sink, "HGET", []string{"h", "f"}, false)
	require.Equal(t, "v", r.Bulk)

	r = st.Submit(ctx, sink, "HDEL", []string{"h", "f"}, false)
	require.Equal(t, int64(1), r.Int)

	r = st.Submit(ctx, sink, "EXISTS", []string{"h"}, false)
	require.Equal(t, int64(0), r.Int, "hash emptied by HDEL should be removed")

	require.Len(t, sink.Replies, 4)
}

func TestHIncrByFloatReplicatesAsHSet(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	r := st.Submit(ctx, sink, "HINCRBYFLOAT", []string{"h", "f", "1.5"}, false)
	require.Equal(t, "1.5", r.Bulk)

	entries := st.Replication().Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "HSET", entries[0].Name)
	require.Equal(t, []string{"h", "f", "1.5"}, entries[0].Args)
}

func TestListPushRangePop(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	r := st.Submit(ctx, sink, "RPUSH", []string{"l", "a", "b", "c"}, false)
	require.Equal(t, int64(3), r.Int)

	r = st.Submit(ctx, sink, "LRANGE", []string{"l", "0", "-1"}, false)
	require.Equal(t, []string{"a", "b", "c"}, r.Array)

	r = st.Submit(ctx, sink, "LPOP", []string{"l"}, false)
	require.Equal(t, "a", r.Bulk)
}

func TestWrongTypeError(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	st.Submit(ctx, sink, "RPUSH", []string{"k", "a"}, false)
	r := st.Submit(ctx, sink, "HGET", []string{"k", "f"}, false)
	require.Equal(t, store.KindError, r.Kind)
}

func TestZAddRangeAndIncr(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	st.Submit(ctx, sink, "ZADD", []string{"z", "1", "a", "2", "b"}, false)
	r := st.Submit(ctx, sink, "ZRANGE", []string{"z", "0", "-1", "WITHSCORES"}, false)
	require.Equal(t, []string{"a", "1", "b", "2"}, r.Array)

	r = st.Submit(ctx, sink, "ZINCRBY", []string{"z", "5", "a"}, false)
	require.Equal(t, "6", r.Bulk)
}

func TestBlockingPopWakesOnPush(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	done := make(chan store.Reply, 1)
	go func() {
		done <- st.Submit(ctx, sink, "BLPOP", []string{"q", "5"}, false)
	}()

	time.Sleep(20 * time.Millisecond)
	st.Submit(ctx, sink, "RPUSH", []string{"q", "v"}, false)

	select {
	case r := <-done:
		require.Equal(t, store.KindBulk, r.Kind)
		require.Equal(t, "v", r.Bulk)
	case <-time.After(2 * time.Second):
		t.Fatal("BLPOP was not woken by RPUSH")
	}
}

func TestBlockingPopTimesOut(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	start := time.Now()
	r := st.Submit(ctx, sink, "BLPOP", []string{"empty", "0.05"}, false)
	require.Equal(t, store.KindNil, r.Kind)
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestBlockingPopRefusedInTransaction(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	r := st.Submit(ctx, sink, "BLPOP", []string{"empty", "5"}, true)
	require.Equal(t, store.KindNil, r.Kind)
}

func TestBlockingRPopLPushWakesOnPush(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	done := make(chan store.Reply, 1)
	go func() {
		done <- st.Submit(ctx, sink, "BRPOPLPUSH", []string{"src", "dst", "5"}, false)
	}()

	time.Sleep(20 * time.Millisecond)
	st.Submit(ctx, sink, "RPUSH", []string{"src", "v"}, false)

	select {
	case r := <-done:
		require.Equal(t, store.KindBulk, r.Kind)
		require.Equal(t, "v", r.Bulk)
	case <-time.After(2 * time.Second):
		t.Fatal("BRPOPLPUSH was not woken by RPUSH")
	}

	r := st.Submit(ctx, sink, "LRANGE", []string{"dst", "0", "-1"}, false)
	require.Equal(t, []string{"v"}, r.Array)
}

func TestZPopMinMax(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	st.Submit(ctx, sink, "ZADD", []string{"z", "1", "a", "2", "b", "3", "c"}, false)

	r := st.Submit(ctx, sink, "ZPOPMIN", []string{"z"}, false)
	require.Equal(t, []string{"a", "1"}, r.Array)

	r = st.Submit(ctx, sink, "ZPOPMAX", []string{"z"}, false)
	require.Equal(t, []string{"c", "3"}, r.Array)
}

func TestBlockingZPopWakesOnZAdd(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	done := make(chan store.Reply, 1)
	go func() {
		done <- st.Submit(ctx, sink, "BZPOPMIN", []string{"zq", "5"}, false)
	}()

	time.Sleep(20 * time.Millisecond)
	st.Submit(ctx, sink, "ZADD", []string{"zq", "1", "m"}, false)

	select {
	case r := <-done:
		require.Equal(t, store.KindArray, r.Kind)
		require.Equal(t, []string{"m", "1"}, r.Array)
	case <-time.After(2 * time.Second):
		t.Fatal("BZPOPMIN was not woken by ZADD")
	}
}

func TestBlockingPopWakesBothWaitersOnMultiPush(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	first := make(chan store.Reply, 1)
	second := make(chan store.Reply, 1)
	go func() { first <- st.Submit(ctx, sink, "BLPOP", []string{"q", "5"}, false) }()
	time.Sleep(10 * time.Millisecond)
	go func() { second <- st.Submit(ctx, sink, "BLPOP", []string{"q", "5"}, false) }()
	time.Sleep(10 * time.Millisecond)

	st.Submit(ctx, sink, "RPUSH", []string{"q", "a", "b"}, false)

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-first:
			got[r.Bulk] = true
		case r := <-second:
			got[r.Bulk] = true
		case <-time.After(2 * time.Second):
			t.Fatal("not all BLPOP waiters were woken by a two-element RPUSH")
		}
	}
	require.True(t, got["a"] && got["b"], "both pushed elements should have reached a waiter, got %v", got)
}

func TestZAddChFlag(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	r := st.Submit(ctx, sink, "ZADD", []string{"z", "CH", "1", "a", "2", "b"}, false)
	require.Equal(t, int64(2), r.Int, "CH counts newly added members same as plain ZADD")

	r = st.Submit(ctx, sink, "ZADD", []string{"z", "CH", "5", "a", "2", "b"}, false)
	require.Equal(t, int64(1), r.Int, "CH should count the changed score for a, not just new members")

	r = st.Submit(ctx, sink, "ZADD", []string{"z", "5", "a", "2", "b"}, false)
	require.Equal(t, int64(0), r.Int, "without CH, unchanged/updated-only members don't count")
}

func TestZRangeByScoreAndLex(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	st.Submit(ctx, sink, "ZADD", []string{"z", "1", "a", "2", "b", "3", "c"}, false)

	r := st.Submit(ctx, sink, "ZRANGEBYSCORE", []string{"z", "(1", "3"}, false)
	require.Equal(t, []string{"b", "c"}, r.Array)

	r = st.Submit(ctx, sink, "ZREVRANGEBYSCORE", []string{"z", "3", "-inf"}, false)
	require.Equal(t, []string{"c", "b", "a"}, r.Array)

	r = st.Submit(ctx, sink, "ZCOUNT", []string{"z", "1", "2"}, false)
	require.Equal(t, int64(2), r.Int)

	st.Submit(ctx, sink, "DEL", []string{"lex"}, false)
	st.Submit(ctx, sink, "ZADD", []string{"lex", "0", "a", "0", "b", "0", "c"}, false)
	r = st.Submit(ctx, sink, "ZRANGEBYLEX", []string{"lex", "[a", "(c"}, false)
	require.Equal(t, []string{"a", "b"}, r.Array)

	r = st.Submit(ctx, sink, "ZLEXCOUNT", []string{"lex", "-", "+"}, false)
	require.Equal(t, int64(3), r.Int)
}

func TestZRankAndRemRange(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	st.Submit(ctx, sink, "ZADD", []string{"z", "1", "a", "2", "b", "3", "c"}, false)

	r := st.Submit(ctx, sink, "ZRANK", []string{"z", "b"}, false)
	require.Equal(t, int64(1), r.Int)

	r = st.Submit(ctx, sink, "ZREVRANK", []string{"z", "b"}, false)
	require.Equal(t, int64(1), r.Int)

	r = st.Submit(ctx, sink, "ZREMRANGEBYRANK", []string{"z", "0", "0"}, false)
	require.Equal(t, int64(1), r.Int)

	r = st.Submit(ctx, sink, "ZRANGE", []string{"z", "0", "-1"}, false)
	require.Equal(t, []string{"b", "c"}, r.Array)
}

func TestZUnionStoreAndInterStore(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	st.Submit(ctx, sink, "ZADD", []string{"z1", "1", "a", "2", "b"}, false)
	st.Submit(ctx, sink, "ZADD", []string{"z2", "10", "b", "20", "c"}, false)

	r := st.Submit(ctx, sink, "ZUNIONSTORE", []string{"dest", "2", "z1", "z2"}, false)
	require.Equal(t, int64(3), r.Int)

	r = st.Submit(ctx, sink, "ZSCORE", []string{"dest", "b"}, false)
	require.Equal(t, "12", r.Bulk)

	r = st.Submit(ctx, sink, "ZINTERSTORE", []string{"dest2", "2", "z1", "z2", "AGGREGATE", "MAX"}, false)
	require.Equal(t, int64(1), r.Int)

	r = st.Submit(ctx, sink, "ZSCORE", []string{"dest2", "b"}, false)
	require.Equal(t, "10", r.Bulk)
}

func TestPushXDoesNotCreateKey(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	r := st.Submit(ctx, sink, "LPUSHX", []string{"missing", "v"}, false)
	require.Equal(t, int64(0), r.Int)
	r = st.Submit(ctx, sink, "EXISTS", []string{"missing"}, false)
	require.Equal(t, int64(0), r.Int)

	st.Submit(ctx, sink, "RPUSH", []string{"l", "a"}, false)
	r = st.Submit(ctx, sink, "RPUSHX", []string{"l", "b"}, false)
	require.Equal(t, int64(2), r.Int)
}

func TestHashMultiCommands(t *testing.T) {
	st, ctx := newTestStore(t)
	sink := &store.RecordingSink{}

	r := st.Submit(ctx, sink, "HMSET", []string{"h", "f1", "v1", "f2", "v2"}, false)
	require.Equal(t, store.KindOK, r.Kind)

	r = st.Submit(ctx, sink, "HMGET", []string{"h", "f1", "missing", "f2"}, false)
	require.Equal(t, []string{"v1", "", "v2"}, r.Array)

	r = st.Submit(ctx, sink, "HSTRLEN", []string{"h", "f1"}, false)
	require.Equal(t, int64(2), r.Int)

	r = st.Submit(ctx, sink, "HKEYS", []string{"h"}, false)
	require.ElementsMatch(t, []string{"f1", "f2"}, r.Array)

	r = st.Submit(ctx, sink, "HVALS", []string{"h"}, false)
	require.ElementsMatch(t, []string{"v1", "v2"}, r.Array)
}
