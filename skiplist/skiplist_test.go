package skiplist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertRankAndOrder(t *testing.T) {
	l := New()
	l.Insert(1, "a")
	l.Insert(2, "b")
	l.Insert(2, "a") // distinct member, same score as "b"

	require.Equal(t, 3, l.Len())
	require.Equal(t, 1, l.RankOf(1, "a"))
	require.Equal(t, 2, l.RankOf(2, "a"))
	require.Equal(t, 3, l.RankOf(2, "b"))
	require.Equal(t, 0, l.RankOf(5, "z"))

	n := l.NodeAtRank(2)
	require.Equal(t, "a", n.Member)
	require.Equal(t, 2.0, n.Score)
}

func TestSingleElementSpansAreOne(t *testing.T) {
	l := New()
	n := l.Insert(1, "only")
	for i := range n.levels {
		require.Equal(t, 1, l.head.levels[i].span, "level %d span", i)
	}
}

func TestDeleteRoundTrip(t *testing.T) {
	l := New()
	l.Insert(1, "a")
	l.Insert(2, "b")
	l.Insert(3, "c")

	node, ok := l.Delete(2, "b")
	require.True(t, ok)
	require.Equal(t, "b", node.Member)
	require.Equal(t, 2, l.Len())
	require.Equal(t, 0, l.RankOf(2, "b"))

	_, ok = l.Delete(2, "b")
	require.False(t, ok, "deleting absent element must not mutate")

	l.Insert(2, "b")
	require.Equal(t, 3, l.Len())
	require.Equal(t, 2, l.RankOf(2, "b"))
}

func TestRangeByScore(t *testing.T) {
	l := New()
	l.Insert(1, "a")
	l.Insert(2, "b")
	l.Insert(3, "c")

	first := l.FirstInRange(ScoreRange{Min: 2, Max: 3})
	require.Equal(t, "b", first.Member)
	last := l.LastInRange(ScoreRange{Min: 2, Max: 3})
	require.Equal(t, "c", last.Member)

	first = l.FirstInRange(ScoreRange{Min: 2, Max: 2, MinExclusive: true})
	require.Nil(t, first)
}

func TestRangeByLexAllEqualScores(t *testing.T) {
	l := New()
	for _, m := range []string{"c", "a", "b"} {
		l.Insert(0, m)
	}
	first := l.FirstInLex(LexRange{MinInf: true, MaxInf: true})
	require.Equal(t, "a", first.Member)
	last := l.LastInLex(LexRange{MinInf: true, MaxInf: true})
	require.Equal(t, "c", last.Member)

	var order []string
	for n := l.First(); n != nil; n = n.Next() {
		order = append(order, n.Member)
	}
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestDeleteRangeByRank(t *testing.T) {
	l := New()
	for i := 1; i <= 5; i++ {
		l.Insert(float64(i), string(rune('a'+i-1)))
	}
	removed := l.DeleteRangeByRank(2, 4)
	require.Equal(t, 3, removed)
	require.Equal(t, 2, l.Len())

	var order []string
	for n := l.First(); n != nil; n = n.Next() {
		order = append(order, n.Member)
	}
	require.Equal(t, []string{"a", "e"}, order)
}

func TestSpansSumToRank(t *testing.T) {
	l := New()
	for i := 0; i < 100; i++ {
		l.Insert(float64(i), string(rune('a'))+string(rune(i)))
	}
	for rank := 1; rank <= l.Len(); rank++ {
		n := l.NodeAtRank(rank)
		require.NotNil(t, n)
		require.Equal(t, rank, l.RankOf(n.Score, n.Member))
	}
}

func TestUpdateScoreInPlaceVsMove(t *testing.T) {
	l := New()
	l.Insert(1, "a")
	l.Insert(2, "b")
	l.Insert(3, "c")

	// in place: stays strictly between neighbors
	n := l.UpdateScore(2, "b", 2.5)
	require.Equal(t, 2.5, n.Score)
	require.Equal(t, 2, l.RankOf(2.5, "b"))

	// must move: crosses a neighbor
	n = l.UpdateScore(2.5, "b", 10)
	require.Equal(t, 3, l.RankOf(10, "b"))
	require.Equal(t, 3, l.Len())
}
