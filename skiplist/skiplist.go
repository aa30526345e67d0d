// Package skiplist implements the probabilistically-balanced ordered
// dictionary described in spec.md §4.2: nodes keyed by (score, member),
// forward links at multiple levels each carrying a span for O(log n) rank
// queries, and a backward link at level 0.
//
// The shape follows the teacher's generic SkipList[K, V] in
// thebagchi-arena-go/skiplist.go (head sentinel, per-level forward slice,
// randomized level via repeated coin flips drawn from the package-level
// math/rand source, RWMutex-free single-writer discipline) but the key is
// fixed to (score, member) rather than a type parameter, and span
// bookkeeping is added since spec.md requires rank queries the teacher's
// version never supported.
package skiplist

import (
	"math"
	"math/rand"
)

// DefaultMaxLevel and DefaultProbability are spec.md §3's values, unlike
// the teacher's DEFAULT_MAX_LEVEL=16 / DEFAULT_PROBABILITY=0.5. config.Config
// can override both per spec.md §6, mainly so tests can force small,
// deterministic fan-out (e.g. Probability 0 forces every node to level 1).
const (
	DefaultMaxLevel    = 32
	DefaultProbability = 0.25
)

// Node is a single (score, member) element. The head sentinel is a *Node
// with Score 0, Member "", and maxLevel forward links; it is never returned
// to callers.
type Node struct {
	Score    float64
	Member   string
	backward *Node
	levels   []level
}

type level struct {
	forward *Node
	span    int
}

// List is the skip list itself.
type List struct {
	head        *Node
	tail        *Node
	length      int
	level       int
	maxLevel    int
	probability float64
}

// New returns an empty skip list using spec.md §3's defaults.
func New() *List {
	return NewWithLimits(DefaultMaxLevel, DefaultProbability)
}

// NewWithLimits returns an empty skip list with an overridden maxLevel and
// level-promotion probability, per spec.md §6's soft-reconfigurable config.
func NewWithLimits(maxLevel int, probability float64) *List {
	if maxLevel < 1 {
		maxLevel = 1
	}
	head := &Node{levels: make([]level, maxLevel)}
	return &List{head: head, level: 1, maxLevel: maxLevel, probability: probability}
}

// randomLevel draws a level in [1, maxLevel] from a geometric distribution
// with parameter probability, i.e. Pr[level >= k] = probability^(k-1), using
// the shared math/rand source the way the teacher's own coin-flip draws do.
func (l *List) randomLevel() int {
	level := 1
	for level < l.maxLevel && rand.Float64() < l.probability {
		level++
	}
	return level
}

// Len returns the number of nodes.
func (l *List) Len() int { return l.length }

// less is the list's total order: score ascending, then member
// byte-lexicographically ascending.
func less(score1 float64, member1 string, score2 float64, member2 string) bool {
	if score1 != score2 {
		return score1 < score2
	}
	return member1 < member2
}

// Insert adds a (score, member) pair. The caller (zsetval) must ensure the
// pair is not already present; this mirrors spec.md §4.2's precondition
// that the companion map enforces absence.
func (l *List) Insert(score float64, member string) *Node {
	update := make([]*Node, l.maxLevel)
	rank := make([]int, l.maxLevel)

	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		if i == l.level-1 {
			rank[i] = 0
		} else {
			rank[i] = rank[i+1]
		}
		for x.levels[i].forward != nil && less(x.levels[i].forward.Score, x.levels[i].forward.Member, score, member) {
			rank[i] += x.levels[i].span
			x = x.levels[i].forward
		}
		update[i] = x
	}

	newLevel := l.randomLevel()
	if newLevel > l.level {
		for i := l.level; i < newLevel; i++ {
			rank[i] = 0
			update[i] = l.head
			update[i].levels[i].span = l.length
		}
		l.level = newLevel
	}

	node := &Node{Score: score, Member: member, levels: make([]level, newLevel)}
	for i := 0; i < newLevel; i++ {
		node.levels[i].forward = update[i].levels[i].forward
		update[i].levels[i].forward = node
		node.levels[i].span = update[i].levels[i].span - (rank[0] - rank[i])
		update[i].levels[i].span = (rank[0] - rank[i]) + 1
	}

	for i := newLevel; i < l.level; i++ {
		update[i].levels[i].span++
	}

	if update[0] == l.head {
		node.backward = nil
	} else {
		node.backward = update[0]
	}
	if node.levels[0].forward != nil {
		node.levels[0].forward.backward = node
	} else {
		l.tail = node
	}
	l.length++
	return node
}

// Delete removes the (score, member) pair. Returns the unlinked node and
// true if it was present, or (nil, false) without mutating otherwise.
func (l *List) Delete(score float64, member string) (*Node, bool) {
	update := make([]*Node, l.maxLevel)
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && less(x.levels[i].forward.Score, x.levels[i].forward.Member, score, member) {
			x = x.levels[i].forward
		}
		update[i] = x
	}
	x = x.levels[0].forward
	if x == nil || x.Score != score || x.Member != member {
		return nil, false
	}
	l.deleteNode(x, update)
	return x, true
}

func (l *List) deleteNode(x *Node, update []*Node) {
	for i := 0; i < l.level; i++ {
		if update[i].levels[i].forward == x {
			update[i].levels[i].span += x.levels[i].span - 1
			update[i].levels[i].forward = x.levels[i].forward
		} else {
			update[i].levels[i].span--
		}
	}
	if x.levels[0].forward != nil {
		x.levels[0].forward.backward = x.backward
	} else {
		l.tail = x.backward
	}
	for l.level > 1 && l.head.levels[l.level-1].forward == nil {
		l.level--
	}
	l.length--
}

// UpdateScore changes member's score. If the new score keeps the node
// strictly between its current neighbors, it is mutated in place;
// otherwise the node is deleted and reinserted, preserving member identity.
func (l *List) UpdateScore(oldScore float64, member string, newScore float64) *Node {
	update := make([]*Node, l.maxLevel)
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && less(x.levels[i].forward.Score, x.levels[i].forward.Member, oldScore, member) {
			x = x.levels[i].forward
		}
		update[i] = x
	}
	x = x.levels[0].forward
	if x == nil || x.Score != oldScore || x.Member != member {
		return nil
	}
	prevOK := x.backward == nil || less(x.backward.Score, x.backward.Member, newScore, member)
	nextOK := x.levels[0].forward == nil || less(newScore, member, x.levels[0].forward.Score, x.levels[0].forward.Member)
	if prevOK && nextOK {
		x.Score = newScore
		return x
	}
	l.deleteNode(x, update)
	return l.Insert(newScore, member)
}

// RankOf returns the 1-based rank of (score, member), or 0 if absent.
func (l *List) RankOf(score float64, member string) int {
	rank := 0
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil &&
			(less(x.levels[i].forward.Score, x.levels[i].forward.Member, score, member) ||
				(x.levels[i].forward.Score == score && x.levels[i].forward.Member == member)) {
			rank += x.levels[i].span
			x = x.levels[i].forward
			if x.Score == score && x.Member == member {
				return rank
			}
		}
	}
	return 0
}

// NodeAtRank returns the node at the given 1-based rank, or nil.
func (l *List) NodeAtRank(rank int) *Node {
	if rank <= 0 {
		return nil
	}
	traversed := 0
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && traversed+x.levels[i].span <= rank {
			traversed += x.levels[i].span
			x = x.levels[i].forward
		}
		if traversed == rank {
			return x
		}
	}
	return nil
}

// ScoreRange mirrors spec.md §4.2's range spec over scores.
type ScoreRange struct {
	Min, Max               float64
	MinExclusive, MaxExclusive bool
}

func (r ScoreRange) aboveMin(score float64) bool {
	if r.MinExclusive {
		return score > r.Min
	}
	return score >= r.Min
}

func (r ScoreRange) belowMax(score float64) bool {
	if r.MaxExclusive {
		return score < r.Max
	}
	return score <= r.Max
}

func (r ScoreRange) valid() bool { return r.Min <= r.Max }

// Contains reports whether score falls inside the range.
func (r ScoreRange) Contains(score float64) bool {
	return r.valid() && r.aboveMin(score) && r.belowMax(score)
}

// FirstInRange returns the first node whose score is inside spec, or nil.
func (l *List) FirstInRange(spec ScoreRange) *Node {
	if !spec.valid() {
		return nil
	}
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && !spec.aboveMin(x.levels[i].forward.Score) {
			x = x.levels[i].forward
		}
	}
	x = x.levels[0].forward
	if x == nil || !spec.belowMax(x.Score) {
		return nil
	}
	return x
}

// LastInRange returns the last node whose score is inside spec, or nil.
func (l *List) LastInRange(spec ScoreRange) *Node {
	if !spec.valid() {
		return nil
	}
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && spec.belowMax(x.levels[i].forward.Score) {
			x = x.levels[i].forward
		}
	}
	if x == l.head || !spec.aboveMin(x.Score) {
		return nil
	}
	return x
}

// LexRange mirrors spec.md §4.2's range spec over member byte-strings.
// MinInf/MaxInf represent the -inf/+inf sentinels.
type LexRange struct {
	Min, Max                   string
	MinInf, MaxInf             bool
	MinExclusive, MaxExclusive bool
}

func (r LexRange) aboveMin(member string) bool {
	if r.MinInf {
		return true
	}
	if r.MinExclusive {
		return member > r.Min
	}
	return member >= r.Min
}

func (r LexRange) belowMax(member string) bool {
	if r.MaxInf {
		return true
	}
	if r.MaxExclusive {
		return member < r.Max
	}
	return member <= r.Max
}

// Contains reports whether member falls inside the range.
func (r LexRange) Contains(member string) bool {
	return r.aboveMin(member) && r.belowMax(member)
}

// FirstInLex returns the first node whose member is inside spec, assuming
// the caller has honored the "all scores equal" precondition from
// spec.md §8 boundary case 12.
func (l *List) FirstInLex(spec LexRange) *Node {
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && !spec.aboveMin(x.levels[i].forward.Member) {
			x = x.levels[i].forward
		}
	}
	x = x.levels[0].forward
	if x == nil || !spec.belowMax(x.Member) {
		return nil
	}
	return x
}

// LastInLex returns the last node whose member is inside spec.
func (l *List) LastInLex(spec LexRange) *Node {
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.levels[i].forward != nil && spec.belowMax(x.levels[i].forward.Member) {
			x = x.levels[i].forward
		}
	}
	if x == l.head || !spec.aboveMin(x.Member) {
		return nil
	}
	return x
}

// DeleteRangeByScore removes every node whose score falls inside spec and
// returns the count removed.
func (l *List) DeleteRangeByScore(spec ScoreRange) int {
	removed := 0
	x := l.FirstInRange(spec)
	for x != nil && spec.belowMax(x.Score) {
		next := x.levels[0].forward
		l.Delete(x.Score, x.Member)
		removed++
		x = next
	}
	return removed
}

// DeleteRangeByLex removes every node whose member falls inside spec and
// returns the count removed.
func (l *List) DeleteRangeByLex(spec LexRange) int {
	removed := 0
	x := l.FirstInLex(spec)
	for x != nil && spec.belowMax(x.Member) {
		next := x.levels[0].forward
		l.Delete(x.Score, x.Member)
		removed++
		x = next
	}
	return removed
}

// DeleteRangeByRank removes nodes at 1-based inclusive ranks [start, end]
// and returns the count removed.
func (l *List) DeleteRangeByRank(start, end int) int {
	if start < 1 {
		start = 1
	}
	removed := 0
	x := l.NodeAtRank(start)
	for x != nil && start+removed <= end {
		next := x.levels[0].forward
		l.Delete(x.Score, x.Member)
		removed++
		x = next
	}
	return removed
}

// First returns the lowest-ranked node, or nil if empty.
func (l *List) First() *Node { return l.head.levels[0].forward }

// Last returns the highest-ranked node, or nil if empty.
func (l *List) Last() *Node { return l.tail }

// Next returns the node following n in rank order, or nil.
func (n *Node) Next() *Node {
	if n == nil {
		return nil
	}
	return n.levels[0].forward
}

// Prev returns the node preceding n in rank order, or nil.
func (n *Node) Prev() *Node {
	if n == nil {
		return nil
	}
	return n.backward
}

// NegInf and PosInf are score sentinels for open-ended ScoreRange queries.
var (
	NegInf = math.Inf(-1)
	PosInf = math.Inf(1)
)
