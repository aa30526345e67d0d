package seglist

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thebagchi/valuestore/packed"
)

func str(s string) packed.Value { return packed.Str([]byte(s)) }

func TestPushAndIndex(t *testing.T) {
	l := New(128, 0)
	l.PushTail(str("b"))
	l.PushTail(str("c"))
	l.PushHead(str("a"))
	require.Equal(t, 3, l.Len())
	v, ok := l.Index(0)
	require.True(t, ok)
	require.Equal(t, "a", string(v.AsBytes()))
	v, ok = l.Index(-1)
	require.True(t, ok)
	require.Equal(t, "c", string(v.AsBytes()))
}

func TestPopHeadTail(t *testing.T) {
	l := New(128, 0)
	l.PushTail(str("a"))
	l.PushTail(str("b"))
	v, ok := l.PopHead()
	require.True(t, ok)
	require.Equal(t, "a", string(v.AsBytes()))
	v, ok = l.PopTail()
	require.True(t, ok)
	require.Equal(t, "b", string(v.AsBytes()))
	require.Equal(t, 0, l.Len())
	_, ok = l.PopHead()
	require.False(t, ok)
}

func TestSegmentSplitsOnSmallFillFactor(t *testing.T) {
	l := New(4, 0)
	for i := 0; i < 20; i++ {
		l.PushTail(str(strconv.Itoa(i)))
	}
	require.Equal(t, 20, l.Len())
	for i := 0; i < 20; i++ {
		v, ok := l.Index(i)
		require.True(t, ok)
		require.Equal(t, strconv.Itoa(i), string(v.AsBytes()))
	}
}

func TestRangeNormalizesNegativeIndices(t *testing.T) {
	l := New(128, 0)
	for _, s := range []string{"a", "b", "c", "d"} {
		l.PushTail(str(s))
	}
	got := l.Range(-2, -1)
	require.Len(t, got, 2)
	require.Equal(t, "c", string(got[0].AsBytes()))
	require.Equal(t, "d", string(got[1].AsBytes()))

	require.Nil(t, l.Range(10, 20))
}

func TestTrimStartGreaterThanStopEmptiesList(t *testing.T) {
	l := New(128, 0)
	l.PushTail(str("a"))
	l.PushTail(str("b"))
	l.Trim(2, 1)
	require.Equal(t, 0, l.Len())
}

func TestTrimKeepsRange(t *testing.T) {
	l := New(128, 0)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		l.PushTail(str(s))
	}
	l.Trim(1, 3)
	require.Equal(t, 3, l.Len())
	v, _ := l.Index(0)
	require.Equal(t, "b", string(v.AsBytes()))
	v, _ = l.Index(2)
	require.Equal(t, "d", string(v.AsBytes()))
}

func TestInsertBeforeAndAfter(t *testing.T) {
	l := New(128, 0)
	l.PushTail(str("a"))
	l.PushTail(str("c"))
	require.True(t, l.InsertBefore(str("c"), str("b")))
	require.True(t, l.InsertAfter(str("c"), str("d")))
	got := l.Range(0, -1)
	require.Equal(t, []string{"a", "b", "c", "d"}, valsToStrings(got))
	require.False(t, l.InsertBefore(str("zzz"), str("x")))
}

func TestRemoveByValue(t *testing.T) {
	l := New(128, 0)
	for _, s := range []string{"a", "b", "a", "c", "a"} {
		l.PushTail(str(s))
	}
	n := l.RemoveByValue(str("a"), 2)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"b", "c", "a"}, valsToStrings(l.Range(0, -1)))
}

func TestRemoveByValueFromTail(t *testing.T) {
	l := New(128, 0)
	for _, s := range []string{"a", "b", "a", "c", "a"} {
		l.PushTail(str(s))
	}
	n := l.RemoveByValue(str("a"), -1)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"a", "b", "a", "c"}, valsToStrings(l.Range(0, -1)))
}

func TestSetAtIndex(t *testing.T) {
	l := New(128, 0)
	l.PushTail(str("a"))
	l.PushTail(str("b"))
	require.True(t, l.Set(1, str("z")))
	v, _ := l.Index(1)
	require.Equal(t, "z", string(v.AsBytes()))
}

func TestRotate(t *testing.T) {
	l := New(128, 0)
	for _, s := range []string{"a", "b", "c"} {
		l.PushTail(str(s))
	}
	v, ok := l.Rotate()
	require.True(t, ok)
	require.Equal(t, "c", string(v.AsBytes()))
	require.Equal(t, []string{"c", "a", "b"}, valsToStrings(l.Range(0, -1)))
}

func TestDeleteRange(t *testing.T) {
	l := New(128, 0)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		l.PushTail(str(s))
	}
	n := l.DeleteRange(1, 3)
	require.Equal(t, 3, n)
	require.Equal(t, []string{"a", "e"}, valsToStrings(l.Range(0, -1)))
}

func TestCompressDepthDoesNotLoseData(t *testing.T) {
	l := New(4, 1)
	for i := 0; i < 40; i++ {
		l.PushTail(str(strconv.Itoa(i)))
	}
	for i := 0; i < 40; i++ {
		v, ok := l.Index(i)
		require.True(t, ok)
		require.Equal(t, strconv.Itoa(i), string(v.AsBytes()))
	}
}

func valsToStrings(vs []packed.Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v.AsBytes())
	}
	return out
}
