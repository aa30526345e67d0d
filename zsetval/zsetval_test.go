package zsetval

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/skiplist"
	"github.com/thebagchi/valuestore/value"
)

// S1: ZADD s 1 a -> 1; ZADD s 2 b -> 1; ZADD s 2 a -> 0 (update, CH absent);
// ZRANGE s 0 -1 WITHSCORES -> a 2 b 2; ZRANGEBYSCORE s 2 2 -> a b.
func TestScenarioS1(t *testing.T) {
	v := New(config.New())
	r, err := v.Add("a", 1, AddOpts{})
	require.NoError(t, err)
	require.True(t, r.Created)

	r, err = v.Add("b", 2, AddOpts{})
	require.NoError(t, err)
	require.True(t, r.Created)

	r, err = v.Add("a", 2, AddOpts{})
	require.NoError(t, err)
	require.False(t, r.Created)
	require.True(t, r.Changed)

	members := v.RangeByRank(0, -1, false)
	require.Equal(t, []Member{{"a", 2}, {"b", 2}}, members)

	byScore := v.RangeByScore(skiplist.ScoreRange{Min: 2, Max: 2}, false, 0, -1)
	require.Equal(t, []string{"a", "b"}, memberNames(byScore))
}

// S4: ZADD s1 1 a 2 b 3 c; ZADD s2 10 b 20 c 30 d;
// ZINTERSTORE out 2 s1 s2 WEIGHTS 1 2 AGGREGATE SUM -> 2 members;
// ZRANGE out 0 -1 WITHSCORES -> b 22 c 43.
func TestScenarioS4(t *testing.T) {
	cfg := config.New()
	s1 := New(cfg)
	s1.Add("a", 1, AddOpts{})
	s1.Add("b", 2, AddOpts{})
	s1.Add("c", 3, AddOpts{})

	s2 := New(cfg)
	s2.Add("b", 10, AddOpts{})
	s2.Add("c", 20, AddOpts{})
	s2.Add("d", 30, AddOpts{})

	out := Intersect(cfg, []Source{s1, s2}, []float64{1, 2}, Sum)
	require.Equal(t, 2, out.Len())

	got := out.RangeByRank(0, -1, false)
	require.Equal(t, []Member{{"b", 22}, {"c", 43}}, got)
}

// S6: ZADD s INCR 1.5 x -> 1.5; ZADD s INCR NX 2 x -> no-op; ZSCORE s x -> 1.5.
func TestScenarioS6(t *testing.T) {
	v := New(config.New())
	r, err := v.Add("x", 1.5, AddOpts{Incr: true})
	require.NoError(t, err)
	require.Equal(t, 1.5, r.Score)

	r, err = v.Add("x", 2, AddOpts{Incr: true, NX: true})
	require.NoError(t, err)
	require.True(t, r.NoOp)

	score, ok := v.ScoreOf("x")
	require.True(t, ok)
	require.Equal(t, 1.5, score)
}

func TestXXOnAbsentIsNoOp(t *testing.T) {
	v := New(config.New())
	r, err := v.Add("a", 1, AddOpts{XX: true})
	require.NoError(t, err)
	require.True(t, r.NoOp)
	require.Equal(t, 0, v.Len())
}

func TestNXOnPresentIsNoOp(t *testing.T) {
	v := New(config.New())
	v.Add("a", 1, AddOpts{})
	r, err := v.Add("a", 5, AddOpts{NX: true})
	require.NoError(t, err)
	require.True(t, r.NoOp)
	score, _ := v.ScoreOf("a")
	require.Equal(t, 1.0, score)
}

func TestInsertDeleteRoundTrip(t *testing.T) {
	v := New(config.New())
	v.Add("a", 1, AddOpts{})
	before := v.RangeByRank(0, -1, false)
	v.Add("b", 2, AddOpts{})
	require.True(t, v.Delete("b"))
	after := v.RangeByRank(0, -1, false)
	require.Equal(t, before, after)
}

func TestConversionThresholdAndNoReverse(t *testing.T) {
	cfg := config.New()
	cfg.SetZSetMaxPackedEntries(4)
	v := New(cfg)
	for i := 0; i < 10; i++ {
		v.Add(string(rune('a'+i)), float64(i), AddOpts{})
	}
	require.Equal(t, value.SkipListPlusHash, v.Encoding())
	v.Delete("a")
	require.Equal(t, value.SkipListPlusHash, v.Encoding(), "no reverse conversion on delete")
}

func TestBulkBuildStaysPackedWhenSmall(t *testing.T) {
	cfg := config.New()
	s1 := New(cfg)
	s1.Add("a", 1, AddOpts{})
	s2 := New(cfg)
	s2.Add("a", 2, AddOpts{})

	out := Union(cfg, []Source{s1, s2}, nil, Sum)
	require.Equal(t, value.Packed, out.Encoding())
	score, _ := out.ScoreOf("a")
	require.Equal(t, 3.0, score)
}

func TestNegativeIndexAndOutOfRangeEmpty(t *testing.T) {
	v := New(config.New())
	v.Add("a", 1, AddOpts{})
	v.Add("b", 2, AddOpts{})

	last := v.RangeByRank(-1, -1, false)
	require.Equal(t, []Member{{"b", 2}}, last)

	empty := v.RangeByRank(5, 10, false)
	require.Nil(t, empty)
}

func memberNames(ms []Member) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Member
	}
	return out
}
