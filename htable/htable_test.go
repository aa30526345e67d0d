package htable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	tb := New[int]()
	tb.Set("a", 1)
	tb.Set("b", 2)
	require.Equal(t, 2, tb.Len())

	v, ok := tb.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	require.True(t, tb.Delete("a"))
	require.False(t, tb.Exists("a"))
	require.False(t, tb.Delete("a"))
	require.Equal(t, 1, tb.Len())
}

func TestGrowPreservesAllEntries(t *testing.T) {
	tb := New[string]()
	for i := 0; i < 1000; i++ {
		tb.Set(fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i))
	}
	require.Equal(t, 1000, tb.Len())
	for i := 0; i < 1000; i++ {
		v, ok := tb.Get(fmt.Sprintf("k%d", i))
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("v%d", i), v)
	}
}

func TestUpdateOverwritesValue(t *testing.T) {
	tb := New[int]()
	tb.Set("a", 1)
	tb.Set("a", 2)
	require.Equal(t, 1, tb.Len())
	v, _ := tb.Get("a")
	require.Equal(t, 2, v)
}

func TestRangeVisitsAll(t *testing.T) {
	tb := New[int]()
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		tb.Set(k, v)
	}
	got := map[string]int{}
	for k, v := range tb.All() {
		got[k] = v
	}
	require.Equal(t, want, got)
}
