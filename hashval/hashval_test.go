package hashval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/value"
)

func TestSetGetDelete(t *testing.T) {
	v := New(config.New())
	require.True(t, v.Set("f1", "v1", SetOpts{}))
	require.True(t, v.Set("f2", "v2", SetOpts{}))
	require.Equal(t, 2, v.Len())

	got, ok := v.Get("f1")
	require.True(t, ok)
	require.Equal(t, "v1", got)

	require.True(t, v.Delete("f1"))
	require.False(t, v.Exists("f1"))
}

func TestSetNXDoesNotOverwrite(t *testing.T) {
	v := New(config.New())
	v.Set("f", "1", SetOpts{})
	created := v.Set("f", "2", SetOpts{OnlyIfAbsent: true})
	require.False(t, created)
	got, _ := v.Get("f")
	require.Equal(t, "1", got)
}

// S5: fill 512 fields, verify exactly-once conversion Packed -> HashTable.
func TestPackedToHashTableConversion(t *testing.T) {
	v := New(config.New())
	require.True(t, v.Set("f1", "v1", SetOpts{}))
	require.True(t, v.Set("f2", "v2", SetOpts{}))
	require.Equal(t, value.Packed, v.Encoding())

	for i := 0; i < 512; i++ {
		v.Set(fmt.Sprintf("field%d", i), fmt.Sprintf("val%d", i), SetOpts{})
	}
	require.Equal(t, value.HashTable, v.Encoding())
	require.Equal(t, 514, v.Len())

	require.True(t, v.Delete("f1"))
	require.Equal(t, value.HashTable, v.Encoding(), "no reverse conversion")
	require.Equal(t, 513, v.Len())
}

func TestIncrementIntOverflow(t *testing.T) {
	v := New(config.New())
	v.Set("n", "9223372036854775807", SetOpts{})
	_, err := v.IncrementInt("n", 1)
	require.Error(t, err)
	got, _ := v.Get("n")
	require.Equal(t, "9223372036854775807", got, "pre-update state preserved on overflow")
}

func TestIncrementFloatDeterministicFormat(t *testing.T) {
	v := New(config.New())
	s, err := v.IncrementFloat("f", 1.5)
	require.NoError(t, err)
	require.Equal(t, "1.5", s)

	s, err = v.IncrementFloat("f", 0.5)
	require.NoError(t, err)
	require.Equal(t, "2", s)
}

func TestConversionPreservesFieldValuePairs(t *testing.T) {
	v := New(config.New())
	v.Set("a", "1", SetOpts{})
	v.Set("b", "2", SetOpts{})

	before := map[string]string{}
	for k, val := range v.All() {
		before[k] = val
	}

	cfg := config.New()
	cfg.SetHashMaxPackedEntries(1)
	v2 := New(cfg)
	v2.Set("a", "1", SetOpts{})
	v2.Set("b", "2", SetOpts{})
	require.Equal(t, value.HashTable, v2.Encoding())

	after := map[string]string{}
	for k, val := range v2.All() {
		after[k] = val
	}
	require.Equal(t, before, after)
}
