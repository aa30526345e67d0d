// Package config holds the soft-reconfigurable options spec.md §6 declares:
// the packed-vs-indexed thresholds for hash and sorted-set values, and the
// segmented list's fill factor / compress depth. Each field is an
// atomic so changes made through Set* while the engine is running take
// effect only for values created or converted afterward, per spec.md §6,
// without any caller needing to take a lock.
package config

import (
	"math"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/thebagchi/valuestore/skiplist"
)

// Defaults mirror upstream Redis's listpack/ziplist thresholds.
const (
	DefaultHashMaxPackedEntries = 128
	DefaultHashMaxPackedValue   = 64
	DefaultZSetMaxPackedEntries = 128
	DefaultZSetMaxPackedValue   = 64
	DefaultListFillFactor       = 128
	DefaultListCompressDepth    = 0
)

// Config is the live, mutable configuration surface consumed by hashval,
// zsetval, and listval.
type Config struct {
	hashMaxPackedEntries atomic.Int64
	hashMaxPackedValue   atomic.Int64
	zsetMaxPackedEntries atomic.Int64
	zsetMaxPackedValue   atomic.Int64
	listFillFactor       atomic.Int64
	listCompressDepth    atomic.Int64
	skipListMaxLevel     atomic.Int64
	skipListProbability  atomic.Uint64 // math.Float64bits
}

// New returns a Config seeded with upstream-compatible defaults.
func New() *Config {
	c := &Config{}
	c.hashMaxPackedEntries.Store(DefaultHashMaxPackedEntries)
	c.hashMaxPackedValue.Store(DefaultHashMaxPackedValue)
	c.zsetMaxPackedEntries.Store(DefaultZSetMaxPackedEntries)
	c.zsetMaxPackedValue.Store(DefaultZSetMaxPackedValue)
	c.listFillFactor.Store(DefaultListFillFactor)
	c.listCompressDepth.Store(DefaultListCompressDepth)
	c.skipListMaxLevel.Store(skiplist.DefaultMaxLevel)
	c.skipListProbability.Store(math.Float64bits(skiplist.DefaultProbability))
	return c
}

func (c *Config) HashMaxPackedEntries() int { return int(c.hashMaxPackedEntries.Load()) }
func (c *Config) HashMaxPackedValue() int   { return int(c.hashMaxPackedValue.Load()) }
func (c *Config) ZSetMaxPackedEntries() int { return int(c.zsetMaxPackedEntries.Load()) }
func (c *Config) ZSetMaxPackedValue() int   { return int(c.zsetMaxPackedValue.Load()) }
func (c *Config) ListFillFactor() int       { return int(c.listFillFactor.Load()) }
func (c *Config) ListCompressDepth() int    { return int(c.listCompressDepth.Load()) }
func (c *Config) SkipListMaxLevel() int     { return int(c.skipListMaxLevel.Load()) }
func (c *Config) SkipListProbability() float64 {
	return math.Float64frombits(c.skipListProbability.Load())
}

func (c *Config) SetHashMaxPackedEntries(v int) { c.hashMaxPackedEntries.Store(int64(v)) }
func (c *Config) SetHashMaxPackedValue(v int)   { c.hashMaxPackedValue.Store(int64(v)) }
func (c *Config) SetZSetMaxPackedEntries(v int) { c.zsetMaxPackedEntries.Store(int64(v)) }
func (c *Config) SetZSetMaxPackedValue(v int)   { c.zsetMaxPackedValue.Store(int64(v)) }
func (c *Config) SetListFillFactor(v int)       { c.listFillFactor.Store(int64(v)) }
func (c *Config) SetListCompressDepth(v int)    { c.listCompressDepth.Store(int64(v)) }
func (c *Config) SetSkipListMaxLevel(v int)     { c.skipListMaxLevel.Store(int64(v)) }
func (c *Config) SetSkipListProbability(v float64) {
	c.skipListProbability.Store(math.Float64bits(v))
}

// fileFormat is the YAML shape Load reads.
type fileFormat struct {
	HashMaxPackedEntries int     `yaml:"hash_max_packed_entries"`
	HashMaxPackedValue   int     `yaml:"hash_max_packed_value_bytes"`
	ZSetMaxPackedEntries int     `yaml:"sorted_set_max_packed_entries"`
	ZSetMaxPackedValue   int     `yaml:"sorted_set_max_packed_value_bytes"`
	ListFillFactor       int     `yaml:"list_segment_fill"`
	ListCompressDepth    int     `yaml:"list_compress_depth"`
	SkipListMaxLevel     int     `yaml:"skip_list_max_level"`
	SkipListProbability  float64 `yaml:"skip_list_probability"`
}

// Load reads a YAML configuration file, falling back to defaults for any
// field omitted from the file.
func Load(path string) (*Config, error) {
	c := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, err
	}
	if ff.HashMaxPackedEntries != 0 {
		c.SetHashMaxPackedEntries(ff.HashMaxPackedEntries)
	}
	if ff.HashMaxPackedValue != 0 {
		c.SetHashMaxPackedValue(ff.HashMaxPackedValue)
	}
	if ff.ZSetMaxPackedEntries != 0 {
		c.SetZSetMaxPackedEntries(ff.ZSetMaxPackedEntries)
	}
	if ff.ZSetMaxPackedValue != 0 {
		c.SetZSetMaxPackedValue(ff.ZSetMaxPackedValue)
	}
	if ff.ListFillFactor != 0 {
		c.SetListFillFactor(ff.ListFillFactor)
	}
	if ff.ListCompressDepth != 0 {
		c.SetListCompressDepth(ff.ListCompressDepth)
	}
	if ff.SkipListMaxLevel != 0 {
		c.SetSkipListMaxLevel(ff.SkipListMaxLevel)
	}
	if ff.SkipListProbability != 0 {
		c.SetSkipListProbability(ff.SkipListProbability)
	}
	return c, nil
}
