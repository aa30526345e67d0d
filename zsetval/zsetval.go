// Package zsetval implements the sorted-set value type from spec.md §4.3:
// a dual index (skip list + member→score hash map) above threshold, a
// single score-ordered packed sequence below it.
package zsetval

import (
	"math"
	"sort"

	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/htable"
	"github.com/thebagchi/valuestore/kverrors"
	"github.com/thebagchi/valuestore/numfmt"
	"github.com/thebagchi/valuestore/packed"
	"github.com/thebagchi/valuestore/skiplist"
	"github.com/thebagchi/valuestore/value"
)

// Value is a sorted-set value in either representation.
type Value struct {
	cfg      *config.Config
	enc      value.Encoding
	packed   []byte // (member, score) pairs, kept (score, member)-ordered
	sl       *skiplist.List
	byMember *htable.Table[float64]
}

// New returns an empty sorted set in Packed encoding.
func New(cfg *config.Config) *Value {
	return &Value{cfg: cfg, enc: value.Packed, packed: packed.New()}
}

func (v *Value) Type() value.Type         { return value.SortedSet }
func (v *Value) Encoding() value.Encoding { return v.enc }

// Len returns the member count.
func (v *Value) Len() int {
	if v.enc == value.Packed {
		return packed.Len(v.packed) / 2
	}
	return v.sl.Len()
}

// ScoreOf returns member's score.
func (v *Value) ScoreOf(member string) (float64, bool) {
	if v.enc == value.Packed {
		// Walk member slots only, so a score string equal to member is never
		// taken for it.
		for _, p := range decodePairs(v.packed) {
			if p.member == member {
				return p.score, true
			}
		}
		return 0, false
	}
	return v.byMember.Get(member)
}

// AddOpts mirrors ZADD's flags (spec.md §6).
type AddOpts struct {
	NX, XX, CH, Incr bool
}

// AddResult reports what Add actually did: Created/Changed let the caller
// implement ZADD's CH accounting (count of elements added or changed,
// rather than just added), and NoOp signals the INCR nil-reply case.
type AddResult struct {
	Created bool
	Changed bool
	Score   float64
	NoOp    bool
}

// Add implements ZADD's per-member logic, including the NX/XX/INCR flag
// interactions and NaN rejection from spec.md §7.
func (v *Value) Add(member string, scoreOrDelta float64, opts AddOpts) (AddResult, error) {
	existing, has := v.ScoreOf(member)
	if opts.XX && !has {
		return AddResult{NoOp: true}, nil
	}
	if opts.NX && has {
		return AddResult{NoOp: true, Score: existing}, nil
	}

	newScore := scoreOrDelta
	if opts.Incr {
		base := 0.0
		if has {
			base = existing
		}
		newScore = base + scoreOrDelta
	}
	if math.IsNaN(newScore) {
		return AddResult{}, kverrors.New(kverrors.NaN, "ZADD")
	}

	if has {
		changed := newScore != existing
		if changed {
			v.updateScore(member, existing, newScore)
		}
		return AddResult{Changed: changed, Score: newScore}, nil
	}

	v.insert(member, newScore)
	v.maybeConvert(member)
	return AddResult{Created: true, Changed: true, Score: newScore}, nil
}

// Delete removes member, returning true if it was present. If the set
// becomes empty, the caller (store) is responsible for dropping the key
// per spec.md §3's lifecycle rule.
func (v *Value) Delete(member string) bool {
	score, ok := v.ScoreOf(member)
	if !ok {
		return false
	}
	if v.enc == value.Packed {
		v.packed = deletePackedPair(v.packed, member)
		return true
	}
	// invariant ordering: map first, then skip list (spec.md §5).
	v.byMember.Delete(member)
	v.sl.Delete(score, member)
	return true
}

func (v *Value) insert(member string, score float64) {
	if v.enc == value.Packed {
		v.packed = insertPackedOrdered(v.packed, member, score)
		return
	}
	v.sl.Insert(score, member)
	v.byMember.Set(member, score)
}

func (v *Value) updateScore(member string, oldScore, newScore float64) {
	if v.enc == value.Packed {
		v.packed = deletePackedPair(v.packed, member)
		v.packed = insertPackedOrdered(v.packed, member, newScore)
		return
	}
	v.sl.UpdateScore(oldScore, member, newScore)
	v.byMember.Set(member, newScore)
}

func scoreBytes(score float64) []byte { return []byte(numfmt.FormatFloat(score)) }

func insertPackedOrdered(buf []byte, member string, score float64) []byte {
	pairs := decodePairs(buf)
	idx := sort.Search(len(pairs), func(i int) bool {
		return less(score, member, pairs[i].score, pairs[i].member)
	})
	pairs = append(pairs, pair{})
	copy(pairs[idx+1:], pairs[idx:])
	pairs[idx] = pair{member: member, score: score}
	return encodePairs(pairs)
}

func deletePackedPair(buf []byte, member string) []byte {
	pairs := decodePairs(buf)
	for i, p := range pairs {
		if p.member == member {
			pairs = append(pairs[:i], pairs[i+1:]...)
			break
		}
	}
	return encodePairs(pairs)
}

type pair struct {
	member string
	score  float64
}

func less(score1 float64, member1 string, score2 float64, member2 string) bool {
	if score1 != score2 {
		return score1 < score2
	}
	return member1 < member2
}

func decodePairs(buf []byte) []pair {
	out := make([]pair, 0, packed.Len(buf)/2)
	pos, ok := packed.First(buf)
	for ok {
		m, _ := packed.Get(buf, pos)
		scorePos, sok := packed.Next(buf, pos)
		if !sok {
			panic(kverrors.InternalError("zset decode", "dangling member without score"))
		}
		s, _ := packed.Get(buf, scorePos)
		f, _ := numfmt.ParseFloat(string(s.AsBytes()))
		out = append(out, pair{member: string(m.AsBytes()), score: f})
		pos, ok = packed.Next(buf, scorePos)
	}
	return out
}

func encodePairs(pairs []pair) []byte {
	buf := packed.New()
	for _, p := range pairs {
		buf, _ = packed.Push(buf, true, packed.Str([]byte(p.member)))
		buf, _ = packed.Push(buf, true, packed.Str(scoreBytes(p.score)))
	}
	return buf
}

// maybeConvert promotes to SkipListPlusHash if member just crossed a
// threshold, per spec.md §4.3/§4.7.
func (v *Value) maybeConvert(member string) {
	if v.enc != value.Packed {
		return
	}
	over := v.Len() > v.cfg.ZSetMaxPackedEntries() || len(member) > v.cfg.ZSetMaxPackedValue()
	if !over {
		return
	}
	v.convertToSkipList()
}

func (v *Value) convertToSkipList() {
	sl := skiplist.NewWithLimits(v.cfg.SkipListMaxLevel(), v.cfg.SkipListProbability())
	tb := htable.New[float64]()
	for _, p := range decodePairs(v.packed) {
		if tb.Exists(p.member) {
			panic(kverrors.InternalError("zset convert", "duplicate member %q in packed zset", p.member))
		}
		sl.Insert(p.score, p.member)
		tb.Set(p.member, p.score)
	}
	v.sl = sl
	v.byMember = tb
	v.packed = nil
	v.enc = value.SkipListPlusHash
}

// Member pairs up a member with its score for range replies.
type Member struct {
	Member string
	Score  float64
}

// RangeByRank returns members at 0-based inclusive ranks [start, stop],
// normalizing negative indices (-1 = last) per spec.md §8 boundary case 11.
// Out-of-range inputs yield an empty slice, never an error.
func (v *Value) RangeByRank(start, stop int, reverse bool) []Member {
	n := v.Len()
	start, stop, ok := normalizeRange(start, stop, n)
	if !ok {
		return nil
	}
	all := v.sortedMembers()
	if reverse {
		all = reversed(all)
	}
	return all[start : stop+1]
}

func normalizeRange(start, stop, n int) (int, int, bool) {
	if n == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

func reversed(in []Member) []Member {
	out := make([]Member, len(in))
	for i, m := range in {
		out[len(in)-1-i] = m
	}
	return out
}

func (v *Value) sortedMembers() []Member {
	out := make([]Member, 0, v.Len())
	if v.enc == value.Packed {
		for _, p := range decodePairs(v.packed) {
			out = append(out, Member{Member: p.member, Score: p.score})
		}
		return out
	}
	for n := v.sl.First(); n != nil; n = n.Next() {
		out = append(out, Member{Member: n.Member, Score: n.Score})
	}
	return out
}

// RangeByScore returns members with scores in spec, in ascending (or, if
// reverse, descending) order, honoring limit/offset.
func (v *Value) RangeByScore(spec skiplist.ScoreRange, reverse bool, offset, count int) []Member {
	members := v.sortedMembers()
	var out []Member
	inRange := func(s float64) bool { return spec.Contains(s) }
	if reverse {
		for i := len(members) - 1; i >= 0; i-- {
			if inRange(members[i].Score) {
				out = append(out, members[i])
			}
		}
	} else {
		for _, m := range members {
			if inRange(m.Score) {
				out = append(out, m)
			}
		}
	}
	return applyLimit(out, offset, count)
}

// RangeByLex returns members with members in spec (caller must honor the
// all-equal-scores precondition from spec.md §8 boundary case 12).
func (v *Value) RangeByLex(spec skiplist.LexRange, reverse bool, offset, count int) []Member {
	members := v.sortedMembers()
	var out []Member
	inRange := func(m string) bool { return spec.Contains(m) }
	if reverse {
		for i := len(members) - 1; i >= 0; i-- {
			if inRange(members[i].Member) {
				out = append(out, members[i])
			}
		}
	} else {
		for _, m := range members {
			if inRange(m.Member) {
				out = append(out, m)
			}
		}
	}
	return applyLimit(out, offset, count)
}

func applyLimit(members []Member, offset, count int) []Member {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(members) {
		return nil
	}
	members = members[offset:]
	if count >= 0 && count < len(members) {
		members = members[:count]
	}
	return members
}

// RankOf returns the 0-based rank of member, or (0, false) if absent.
func (v *Value) RankOf(member string, reverse bool) (int, bool) {
	score, ok := v.ScoreOf(member)
	if !ok {
		return 0, false
	}
	if v.enc == value.SkipListPlusHash {
		r := v.sl.RankOf(score, member) - 1
		if reverse {
			r = v.sl.Len() - 1 - r
		}
		return r, true
	}
	pairs := decodePairs(v.packed)
	for i, p := range pairs {
		if p.member == member {
			if reverse {
				return len(pairs) - 1 - i, true
			}
			return i, true
		}
	}
	return 0, false
}

// CountInScoreRange counts members with scores in spec.
func (v *Value) CountInScoreRange(spec skiplist.ScoreRange) int {
	n := 0
	for _, m := range v.sortedMembers() {
		if spec.Contains(m.Score) {
			n++
		}
	}
	return n
}

// CountInLexRange counts members with members in spec.
func (v *Value) CountInLexRange(spec skiplist.LexRange) int {
	n := 0
	for _, m := range v.sortedMembers() {
		if spec.Contains(m.Member) {
			n++
		}
	}
	return n
}

// RemoveRangeByRank removes members at 0-based inclusive ranks [start,
// stop] and returns the count removed.
func (v *Value) RemoveRangeByRank(start, stop int) int {
	n := v.Len()
	s, e, ok := normalizeRange(start, stop, n)
	if !ok {
		return 0
	}
	victims := v.RangeByRank(s, e, false)
	for _, m := range victims {
		v.Delete(m.Member)
	}
	return len(victims)
}

// RemoveRangeByScore removes members with scores in spec and returns the
// count removed.
func (v *Value) RemoveRangeByScore(spec skiplist.ScoreRange) int {
	var victims []string
	for _, m := range v.sortedMembers() {
		if spec.Contains(m.Score) {
			victims = append(victims, m.Member)
		}
	}
	for _, m := range victims {
		v.Delete(m)
	}
	return len(victims)
}

// RemoveRangeByLex removes members with members in spec and returns the
// count removed.
func (v *Value) RemoveRangeByLex(spec skiplist.LexRange) int {
	var victims []string
	for _, m := range v.sortedMembers() {
		if spec.Contains(m.Member) {
			victims = append(victims, m.Member)
		}
	}
	for _, m := range victims {
		v.Delete(m)
	}
	return len(victims)
}

// PopMin removes and returns up to n members from the low end.
func (v *Value) PopMin(n int) []Member {
	return v.pop(n, false)
}

// PopMax removes and returns up to n members from the high end.
func (v *Value) PopMax(n int) []Member {
	return v.pop(n, true)
}

func (v *Value) pop(n int, fromMax bool) []Member {
	var out []Member
	for i := 0; i < n && v.Len() > 0; i++ {
		members := v.sortedMembers()
		var m Member
		if fromMax {
			m = members[len(members)-1]
		} else {
			m = members[0]
		}
		v.Delete(m.Member)
		out = append(out, m)
	}
	return out
}

// Aggregate is the score combination rule for ZUNIONSTORE/ZINTERSTORE.
type Aggregate int

const (
	Sum Aggregate = iota
	Min
	Max
)

func (a Aggregate) combine(x, y float64) float64 {
	switch a {
	case Min:
		return math.Min(x, y)
	case Max:
		return math.Max(x, y)
	default:
		return x + y
	}
}

// Source is one input to Union/Intersect: either a sorted set
// (ScoreOf/Members from this package) or a plain set whose members all
// carry score 1.0, per spec.md §4.3.
type Source interface {
	Members() []string
	ScoreOf(member string) (float64, bool)
}

// plainSetSource adapts a flat member list (a Set value) to Source.
type plainSetSource struct{ members []string }

func (s plainSetSource) Members() []string               { return s.members }
func (s plainSetSource) ScoreOf(member string) (float64, bool) {
	for _, m := range s.members {
		if m == member {
			return 1.0, true
		}
	}
	return 0, false
}

// PlainSet builds a Source from a flat set of members, each scored 1.0.
func PlainSet(members []string) Source { return plainSetSource{members: members} }

func (v *Value) Members() []string {
	out := make([]string, 0, v.Len())
	for _, m := range v.sortedMembers() {
		out = append(out, m.Member)
	}
	return out
}

// Union builds v from sources weighted and aggregated per spec.md §4.3,
// tolerating sources that are the same underlying value (its own members
// auto-match themselves).
func Union(cfg *config.Config, sources []Source, weights []float64, agg Aggregate) *Value {
	acc := map[string]float64{}
	seen := map[string]bool{}
	for i, src := range sources {
		w := weight(weights, i)
		for _, m := range src.Members() {
			s, _ := src.ScoreOf(m)
			s *= w
			if !seen[m] {
				acc[m] = s
				seen[m] = true
			} else {
				acc[m] = agg.combine(acc[m], s)
			}
		}
	}
	return buildFromMap(cfg, acc)
}

// Intersect builds v from the intersection of sources, iterating the
// smallest source and probing the rest, per spec.md §4.3.
func Intersect(cfg *config.Config, sources []Source, weights []float64, agg Aggregate) *Value {
	if len(sources) == 0 {
		return New(cfg)
	}
	smallest := 0
	for i, src := range sources {
		if len(src.Members()) < len(sources[smallest].Members()) {
			smallest = i
		}
	}
	acc := map[string]float64{}
	for _, m := range sources[smallest].Members() {
		score, ok := sources[smallest].ScoreOf(m)
		if !ok {
			continue
		}
		score *= weight(weights, smallest)
		inAll := true
		for i, src := range sources {
			if i == smallest {
				continue
			}
			s, ok := src.ScoreOf(m)
			if !ok {
				inAll = false
				break
			}
			score = agg.combine(score, s*weight(weights, i))
		}
		if inAll {
			acc[m] = score
		}
	}
	return buildFromMap(cfg, acc)
}

func weight(weights []float64, i int) float64 {
	if i < len(weights) {
		return weights[i]
	}
	return 1.0
}

func buildFromMap(cfg *config.Config, acc map[string]float64) *Value {
	v := New(cfg)
	members := make([]string, 0, len(acc))
	for m := range acc {
		members = append(members, m)
	}
	sort.Strings(members)
	for _, m := range members {
		v.insert(m, acc[m])
	}
	v.maybeConvertBulk()
	return v
}

// maybeConvertBulk applies the packed-vs-indexed threshold once after a
// bulk build. Because buildFromMap always starts from a fresh Packed
// Value, a small union/intersection result naturally stays Packed — this
// realizes spec.md §4.3's "bulk builders may emit Packed when the result
// is small" without a separate reverse-conversion path.
func (v *Value) maybeConvertBulk() {
	over := v.Len() > v.cfg.ZSetMaxPackedEntries()
	if !over {
		for _, m := range v.Members() {
			if len(m) > v.cfg.ZSetMaxPackedValue() {
				over = true
				break
			}
		}
	}
	if over && v.enc == value.Packed {
		v.convertToSkipList()
	}
}
