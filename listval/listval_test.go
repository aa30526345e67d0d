package listval

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/value"
)

// S2: RPUSH l a b c -> 3; LPUSH l z -> 4; LRANGE l 0 -1 -> z a b c;
// LPOP l -> z; RPOP l 2 -> [c b]; LRANGE l 0 -1 -> a.
func TestScenarioS2(t *testing.T) {
	v := New(config.New())
	require.Equal(t, 3, v.PushTail("a", "b", "c"))
	require.Equal(t, 4, v.PushHead("z"))
	require.Equal(t, []string{"z", "a", "b", "c"}, v.Range(0, -1))

	head, ok := v.PopHead()
	require.True(t, ok)
	require.Equal(t, "z", head)

	tail := v.PopTailN(2)
	require.Equal(t, []string{"c", "b"}, tail)
	require.Equal(t, []string{"a"}, v.Range(0, -1))
}

func TestEncodingIsAlwaysSegmented(t *testing.T) {
	v := New(config.New())
	require.Equal(t, value.List, v.Type())
	require.Equal(t, value.Segmented, v.Encoding())
	v.PushTail("a")
	require.Equal(t, value.Segmented, v.Encoding())
}

func TestIndexAndSet(t *testing.T) {
	v := New(config.New())
	v.PushTail("a", "b", "c")
	got, ok := v.Index(1)
	require.True(t, ok)
	require.Equal(t, "b", got)

	require.True(t, v.Set(1, "z"))
	got, _ = v.Index(1)
	require.Equal(t, "z", got)
}

func TestTrimLastEntryDeletionCase(t *testing.T) {
	v := New(config.New())
	v.PushTail("only")
	v.Trim(1, 0)
	require.Equal(t, 0, v.Len())
}

func TestInsertBeforeAfter(t *testing.T) {
	v := New(config.New())
	v.PushTail("a", "c")
	require.True(t, v.InsertBefore("c", "b"))
	require.True(t, v.InsertAfter("c", "d"))
	require.Equal(t, []string{"a", "b", "c", "d"}, v.Range(0, -1))
	require.False(t, v.InsertBefore("missing", "x"))
}

func TestRemoveByValue(t *testing.T) {
	v := New(config.New())
	v.PushTail("a", "b", "a", "a")
	n := v.Remove("a", 2)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"b", "a"}, v.Range(0, -1))
}

func TestRotateSameKey(t *testing.T) {
	v := New(config.New())
	v.PushTail("a", "b", "c")
	last, ok := v.Rotate()
	require.True(t, ok)
	require.Equal(t, "c", last)
	require.Equal(t, []string{"c", "a", "b"}, v.Range(0, -1))
}

func TestMoveTailToHeadOfAcrossKeys(t *testing.T) {
	cfg := config.New()
	src := New(cfg)
	dst := New(cfg)
	src.PushTail("a", "b", "c")
	dst.PushTail("x")

	moved, ok := src.MoveTailToHeadOf(dst)
	require.True(t, ok)
	require.Equal(t, "c", moved)
	require.Equal(t, []string{"a", "b"}, src.Range(0, -1))
	require.Equal(t, []string{"c", "x"}, dst.Range(0, -1))
}

func TestCompressDepthConfigKeepsLength(t *testing.T) {
	cfg := config.New()
	cfg.SetListFillFactor(4)
	cfg.SetListCompressDepth(1)
	v := New(cfg)
	for i := 0; i < 50; i++ {
		v.PushTail("x")
	}
	require.Equal(t, 50, v.Len())
}
