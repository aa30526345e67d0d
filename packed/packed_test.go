package packed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushAndIterate(t *testing.T) {
	buf := New()
	buf, _ = Push(buf, true, Str([]byte("a")))
	buf, _ = Push(buf, true, Str([]byte("b")))
	buf, _ = Push(buf, false, Int64(42))

	require.Equal(t, 3, Len(buf))

	var got []Value
	pos, ok := First(buf)
	for ok {
		v, _ := Get(buf, pos)
		got = append(got, v)
		pos, ok = Next(buf, pos)
	}
	require.True(t, got[0].IsInt)
	require.Equal(t, int64(42), got[0].Int)
	require.Equal(t, "a", string(got[1].Bytes))
	require.Equal(t, "b", string(got[2].Bytes))
}

func TestInsertAndDelete(t *testing.T) {
	buf := New()
	buf, _ = Push(buf, true, Str([]byte("a")))
	buf, _ = Push(buf, true, Str([]byte("c")))

	pos, ok := Index(buf, 1)
	require.True(t, ok)
	buf, _ = Insert(buf, pos, Str([]byte("b")))
	require.Equal(t, 3, Len(buf))

	all := All(buf)
	require.Equal(t, []string{"a", "b", "c"}, valuesToStrings(all))

	pos, _ = Index(buf, 1)
	buf = Delete(buf, pos)
	all = All(buf)
	require.Equal(t, []string{"a", "c"}, valuesToStrings(all))
}

func TestDeleteRange(t *testing.T) {
	buf := New()
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		buf, _ = Push(buf, true, Str([]byte(s)))
	}
	buf = DeleteRange(buf, 1, 2)
	require.Equal(t, []string{"a", "d", "e"}, valuesToStrings(All(buf)))
}

func TestFind(t *testing.T) {
	buf := New()
	for _, s := range []string{"a", "b", "a", "c"} {
		buf, _ = Push(buf, true, Str([]byte(s)))
	}
	pos, ok := Find(buf, Str([]byte("a")), 0)
	require.True(t, ok)
	v, _ := Get(buf, pos)
	require.Equal(t, "a", string(v.Bytes))

	pos, ok = Find(buf, Str([]byte("a")), 1)
	require.True(t, ok)
	require.Equal(t, 2, posToIndex(buf, pos))

	_, ok = Find(buf, Str([]byte("z")), 0)
	require.False(t, ok)
}

func TestNegativeIndexAndOutOfRange(t *testing.T) {
	buf := New()
	for _, s := range []string{"a", "b", "c"} {
		buf, _ = Push(buf, true, Str([]byte(s)))
	}
	pos, ok := Index(buf, -1)
	require.True(t, ok)
	v, _ := Get(buf, pos)
	require.Equal(t, "c", string(v.Bytes))

	_, ok = Index(buf, 100)
	require.False(t, ok)
}

func valuesToStrings(vs []Value) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		if v.IsInt {
			out[i] = intToString(v.Int)
		} else {
			out[i] = string(v.Bytes)
		}
	}
	return out
}
