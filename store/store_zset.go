package store

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/thebagchi/valuestore/blocking"
	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/kverrors"
	"github.com/thebagchi/valuestore/numfmt"
	"github.com/thebagchi/valuestore/skiplist"
	"github.com/thebagchi/valuestore/value"
	"github.com/thebagchi/valuestore/zsetval"
)

func parseZAddFlags(args []string) (zsetval.AddOpts, int) {
	var opts zsetval.AddOpts
	i := 1
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "NX":
			opts.NX = true
		case "XX":
			opts.XX = true
		case "CH":
			opts.CH = true
		case "INCR":
			opts.Incr = true
		default:
			return opts, i
		}
		i++
	}
	return opts, i
}

func (s *Store) cmdZAdd(args []string) response {
	if len(args) < 3 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "ZADD"))}
	}
	opts, idx := parseZAddFlags(args)
	pairs := args[idx:]
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "ZADD"))}
	}
	z, err := s.zsetFor(args[0], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	if opts.Incr {
		if len(pairs) != 2 {
			return response{reply: Err(kverrors.New(kverrors.Syntax, "ZADD"))}
		}
		delta, err := strconv.ParseFloat(pairs[0], 64)
		if err != nil {
			return response{reply: Err(kverrors.New(kverrors.NotAFloat, "ZADD"))}
		}
		r, err := z.Add(pairs[1], delta, opts)
		if err != nil {
			return response{reply: Err(err)}
		}
		if r.NoOp {
			return response{reply: Nil()}
		}
		if r.Created {
			s.signalModified(args[0], value.SortedSet, 1)
		}
		s.repl.Append("ZADD", args...)
		return response{reply: Bulk(numfmt.FormatFloat(r.Score))}
	}
	added, changed, created := int64(0), int64(0), 0
	for i := 0; i+1 < len(pairs); i += 2 {
		score, err := strconv.ParseFloat(pairs[i], 64)
		if err != nil {
			return response{reply: Err(kverrors.New(kverrors.NotAFloat, "ZADD"))}
		}
		r, err := z.Add(pairs[i+1], score, opts)
		if err != nil {
			return response{reply: Err(err)}
		}
		if r.Created {
			added++
			created++
		} else if r.Changed {
			changed++
		}
	}
	s.signalModified(args[0], value.SortedSet, created)
	s.repl.Append("ZADD", args...)
	if opts.CH {
		return response{reply: Int(added + changed)}
	}
	return response{reply: Int(added)}
}

func (s *Store) cmdZScore(args []string) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Nil()}
	}
	score, ok := z.ScoreOf(args[1])
	if !ok {
		return response{reply: Nil()}
	}
	return response{reply: Bulk(numfmt.FormatFloat(score))}
}

func (s *Store) cmdZCard(args []string) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Int(0)}
	}
	return response{reply: Int(int64(z.Len()))}
}

func (s *Store) cmdZIncrBy(args []string) response {
	delta, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAFloat, "ZINCRBY"))}
	}
	z, err := s.zsetFor(args[0], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	r, err := z.Add(args[2], delta, zsetval.AddOpts{Incr: true})
	if err != nil {
		return response{reply: Err(err)}
	}
	if r.Created {
		s.signalModified(args[0], value.SortedSet, 1)
	}
	s.repl.Append("ZINCRBY", args...)
	return response{reply: Bulk(numfmt.FormatFloat(r.Score))}
}

func (s *Store) cmdZRem(args []string) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Int(0)}
	}
	n := int64(0)
	for _, m := range args[1:] {
		if z.Delete(m) {
			n++
		}
	}
	s.dropIfEmptyZSet(args[0], z)
	if n > 0 {
		s.repl.Append("ZREM", args...)
	}
	return response{reply: Int(n)}
}

func (s *Store) cmdZRange(args []string) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Array(nil)}
	}
	start, err1 := strconv.Atoi(args[1])
	stop, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "ZRANGE"))}
	}
	withScores := len(args) > 3 && strings.EqualFold(args[3], "WITHSCORES")
	members := z.RangeByRank(start, stop, false)
	out := make([]string, 0, len(members)*2)
	for _, m := range members {
		out = append(out, m.Member)
		if withScores {
			out = append(out, numfmt.FormatFloat(m.Score))
		}
	}
	return response{reply: Array(out)}
}

func (s *Store) dropIfEmptyZSet(key string, z *zsetval.Value) {
	if z.Len() == 0 {
		delete(s.data, key)
		s.notifyEvent("del", key)
	}
}

func (s *Store) cmdZPop(args []string, fromMax bool) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Array(nil)}
	}
	n := 1
	if len(args) > 1 {
		n, err = strconv.Atoi(args[1])
		if err != nil {
			return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "ZPOP"))}
		}
	}
	var members []zsetval.Member
	if fromMax {
		members = z.PopMax(n)
	} else {
		members = z.PopMin(n)
	}
	s.dropIfEmptyZSet(args[0], z)
	if len(members) == 0 {
		return response{reply: Array(nil)}
	}
	name := "ZPOPMIN"
	if fromMax {
		name = "ZPOPMAX"
	}
	s.repl.Append(name, args...)
	out := make([]string, 0, len(members)*2)
	for _, m := range members {
		out = append(out, m.Member, numfmt.FormatFloat(m.Score))
	}
	return response{reply: Array(out)}
}

// cmdBlockingZPop implements BZPOPMIN/BZPOPMAX the same way cmdBlockingPop
// implements BLPOP/BRPOP: try every candidate key immediately, and if none
// has a member, register a waiter and leave the off-loop wait to
// Store.submit.
func (s *Store) cmdBlockingZPop(args []string, fromMax bool, inTransaction bool) response {
	if len(args) < 2 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "BZPOP"))}
	}
	keys := args[:len(args)-1]
	timeout, err := parseTimeout(args[len(args)-1])
	if err != nil {
		return response{reply: Err(err)}
	}
	for _, k := range keys {
		z, err := s.zsetFor(k, false)
		if err != nil {
			return response{reply: Err(err)}
		}
		if z == nil {
			continue
		}
		var members []zsetval.Member
		if fromMax {
			members = z.PopMax(1)
		} else {
			members = z.PopMin(1)
		}
		if len(members) == 0 {
			continue
		}
		s.dropIfEmptyZSet(k, z)
		name := "ZPOPMIN"
		if fromMax {
			name = "ZPOPMAX"
		}
		s.repl.Append(name, k)
		return response{reply: Array([]string{members[0].Member, numfmt.FormatFloat(members[0].Score)})}
	}
	if !blocking.ShouldBlock(inTransaction) {
		return response{reply: Nil()}
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	w := s.waiters.Register(keys, value.SortedSet, deadline)
	return response{pending: w, timeout: timeout}
}

func formatMembers(members []zsetval.Member, withScores bool) []string {
	out := make([]string, 0, len(members)*2)
	for _, m := range members {
		out = append(out, m.Member)
		if withScores {
			out = append(out, numfmt.FormatFloat(m.Score))
		}
	}
	return out
}

// parseRangeTail scans the trailing WITHSCORES/LIMIT tokens shared by
// ZRANGE's score/lex variants per spec.md §6.
func parseRangeTail(args []string) (withScores bool, offset, count int) {
	count = -1
	for i := 0; i < len(args); i++ {
		switch strings.ToUpper(args[i]) {
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 < len(args) {
				offset, _ = strconv.Atoi(args[i+1])
				count, _ = strconv.Atoi(args[i+2])
				i += 2
			}
		}
	}
	return withScores, offset, count
}

func parseScoreBound(s string) (float64, bool, error) {
	exclusive := false
	if strings.HasPrefix(s, "(") {
		exclusive = true
		s = s[1:]
	}
	switch strings.ToLower(s) {
	case "-inf":
		return math.Inf(-1), exclusive, nil
	case "+inf", "inf":
		return math.Inf(1), exclusive, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, kverrors.New(kverrors.NotAFloat, "score")
	}
	return f, exclusive, nil
}

func parseScoreRange(minArg, maxArg string) (skiplist.ScoreRange, error) {
	min, minExcl, err := parseScoreBound(minArg)
	if err != nil {
		return skiplist.ScoreRange{}, err
	}
	max, maxExcl, err := parseScoreBound(maxArg)
	if err != nil {
		return skiplist.ScoreRange{}, err
	}
	return skiplist.ScoreRange{Min: min, Max: max, MinExclusive: minExcl, MaxExclusive: maxExcl}, nil
}

// parseLexRange parses Redis's "-"/"+"/"[member"/"(member" lex bound
// syntax into a skiplist.LexRange, per spec.md §6.
func parseLexRange(minArg, maxArg string) (skiplist.LexRange, error) {
	var r skiplist.LexRange
	switch {
	case minArg == "-":
		r.MinInf = true
	case len(minArg) > 0 && minArg[0] == '[':
		r.Min = minArg[1:]
	case len(minArg) > 0 && minArg[0] == '(':
		r.Min = minArg[1:]
		r.MinExclusive = true
	default:
		return skiplist.LexRange{}, kverrors.New(kverrors.Syntax, "lex bound")
	}
	switch {
	case maxArg == "+":
		r.MaxInf = true
	case len(maxArg) > 0 && maxArg[0] == '[':
		r.Max = maxArg[1:]
	case len(maxArg) > 0 && maxArg[0] == '(':
		r.Max = maxArg[1:]
		r.MaxExclusive = true
	default:
		return skiplist.LexRange{}, kverrors.New(kverrors.Syntax, "lex bound")
	}
	return r, nil
}

func (s *Store) cmdZRevRange(args []string) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Array(nil)}
	}
	start, err1 := strconv.Atoi(args[1])
	stop, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "ZREVRANGE"))}
	}
	withScores := len(args) > 3 && strings.EqualFold(args[3], "WITHSCORES")
	members := z.RangeByRank(start, stop, true)
	return response{reply: Array(formatMembers(members, withScores))}
}

func (s *Store) cmdZRangeByScore(args []string) response    { return s.zRangeByScore(args, false) }
func (s *Store) cmdZRevRangeByScore(args []string) response { return s.zRangeByScore(args, true) }

func (s *Store) zRangeByScore(args []string, reverse bool) response {
	if len(args) < 3 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "ZRANGEBYSCORE"))}
	}
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	minArg, maxArg := args[1], args[2]
	if reverse {
		minArg, maxArg = args[2], args[1]
	}
	spec, err := parseScoreRange(minArg, maxArg)
	if err != nil {
		return response{reply: Err(err)}
	}
	withScores, offset, count := parseRangeTail(args[3:])
	if z == nil {
		return response{reply: Array(nil)}
	}
	members := z.RangeByScore(spec, reverse, offset, count)
	return response{reply: Array(formatMembers(members, withScores))}
}

func (s *Store) cmdZRangeByLex(args []string) response    { return s.zRangeByLex(args, false) }
func (s *Store) cmdZRevRangeByLex(args []string) response { return s.zRangeByLex(args, true) }

func (s *Store) zRangeByLex(args []string, reverse bool) response {
	if len(args) < 3 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "ZRANGEBYLEX"))}
	}
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	minArg, maxArg := args[1], args[2]
	if reverse {
		minArg, maxArg = args[2], args[1]
	}
	spec, err := parseLexRange(minArg, maxArg)
	if err != nil {
		return response{reply: Err(err)}
	}
	_, offset, count := parseRangeTail(args[3:])
	if z == nil {
		return response{reply: Array(nil)}
	}
	members := z.RangeByLex(spec, reverse, offset, count)
	return response{reply: Array(formatMembers(members, false))}
}

func (s *Store) cmdZCount(args []string) response {
	if len(args) != 3 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "ZCOUNT"))}
	}
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	spec, err := parseScoreRange(args[1], args[2])
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Int(0)}
	}
	return response{reply: Int(int64(z.CountInScoreRange(spec)))}
}

func (s *Store) cmdZLexCount(args []string) response {
	if len(args) != 3 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "ZLEXCOUNT"))}
	}
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	spec, err := parseLexRange(args[1], args[2])
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Int(0)}
	}
	return response{reply: Int(int64(z.CountInLexRange(spec)))}
}

func (s *Store) cmdZRank(args []string) response    { return s.zRank(args, false) }
func (s *Store) cmdZRevRank(args []string) response { return s.zRank(args, true) }

func (s *Store) zRank(args []string, reverse bool) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Nil()}
	}
	rank, ok := z.RankOf(args[1], reverse)
	if !ok {
		return response{reply: Nil()}
	}
	return response{reply: Int(int64(rank))}
}

func (s *Store) cmdZRemRangeByRank(args []string) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Int(0)}
	}
	start, err1 := strconv.Atoi(args[1])
	stop, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "ZREMRANGEBYRANK"))}
	}
	n := z.RemoveRangeByRank(start, stop)
	s.dropIfEmptyZSet(args[0], z)
	if n > 0 {
		s.repl.Append("ZREMRANGEBYRANK", args...)
	}
	return response{reply: Int(int64(n))}
}

func (s *Store) cmdZRemRangeByScore(args []string) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Int(0)}
	}
	spec, err := parseScoreRange(args[1], args[2])
	if err != nil {
		return response{reply: Err(err)}
	}
	n := z.RemoveRangeByScore(spec)
	s.dropIfEmptyZSet(args[0], z)
	if n > 0 {
		s.repl.Append("ZREMRANGEBYSCORE", args...)
	}
	return response{reply: Int(int64(n))}
}

func (s *Store) cmdZRemRangeByLex(args []string) response {
	z, err := s.zsetFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if z == nil {
		return response{reply: Int(0)}
	}
	spec, err := parseLexRange(args[1], args[2])
	if err != nil {
		return response{reply: Err(err)}
	}
	n := z.RemoveRangeByLex(spec)
	s.dropIfEmptyZSet(args[0], z)
	if n > 0 {
		s.repl.Append("ZREMRANGEBYLEX", args...)
	}
	return response{reply: Int(int64(n))}
}

// zsetSourceFor adapts a keyspace entry to zsetval.Source for ZUNIONSTORE/
// ZINTERSTORE: a missing key contributes an empty set rather than an error,
// per spec.md §6.
func (s *Store) zsetSourceFor(key string) (zsetval.Source, error) {
	e, ok := s.data[key]
	if !ok {
		return zsetval.PlainSet(nil), nil
	}
	z, ok := e.(*zsetval.Value)
	if !ok {
		return nil, kverrors.New(kverrors.WrongType, "")
	}
	return z, nil
}

// parseZStoreArgs parses the shared ZUNIONSTORE/ZINTERSTORE argument shape:
// destination, numkeys, source keys, and the optional WEIGHTS/AGGREGATE
// clauses, per spec.md §6.
func parseZStoreArgs(args []string) (dest string, keys []string, weights []float64, agg zsetval.Aggregate, err error) {
	dest = args[0]
	numkeys, perr := strconv.Atoi(args[1])
	if perr != nil || numkeys < 1 || len(args) < 2+numkeys {
		return "", nil, nil, 0, kverrors.New(kverrors.Syntax, "ZSTORE")
	}
	keys = args[2 : 2+numkeys]
	agg = zsetval.Sum
	i := 2 + numkeys
	for i < len(args) {
		switch strings.ToUpper(args[i]) {
		case "WEIGHTS":
			weights = make([]float64, numkeys)
			for j := 0; j < numkeys; j++ {
				i++
				if i >= len(args) {
					return "", nil, nil, 0, kverrors.New(kverrors.Syntax, "ZSTORE")
				}
				w, werr := strconv.ParseFloat(args[i], 64)
				if werr != nil {
					return "", nil, nil, 0, kverrors.New(kverrors.NotAFloat, "ZSTORE")
				}
				weights[j] = w
			}
		case "AGGREGATE":
			i++
			if i >= len(args) {
				return "", nil, nil, 0, kverrors.New(kverrors.Syntax, "ZSTORE")
			}
			switch strings.ToUpper(args[i]) {
			case "SUM":
				agg = zsetval.Sum
			case "MIN":
				agg = zsetval.Min
			case "MAX":
				agg = zsetval.Max
			default:
				return "", nil, nil, 0, kverrors.New(kverrors.Syntax, "ZSTORE")
			}
		default:
			return "", nil, nil, 0, kverrors.New(kverrors.Syntax, "ZSTORE")
		}
		i++
	}
	return dest, keys, weights, agg, nil
}

func (s *Store) cmdZUnionStore(args []string) response {
	return s.cmdZStore(args, "ZUNIONSTORE", zsetval.Union)
}

func (s *Store) cmdZInterStore(args []string) response {
	return s.cmdZStore(args, "ZINTERSTORE", zsetval.Intersect)
}

func (s *Store) cmdZStore(args []string, name string, combine func(*config.Config, []zsetval.Source, []float64, zsetval.Aggregate) *zsetval.Value) response {
	if len(args) < 3 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, name))}
	}
	dest, keys, weights, agg, err := parseZStoreArgs(args)
	if err != nil {
		return response{reply: Err(err)}
	}
	sources := make([]zsetval.Source, 0, len(keys))
	for _, k := range keys {
		src, err := s.zsetSourceFor(k)
		if err != nil {
			return response{reply: Err(err)}
		}
		sources = append(sources, src)
	}
	result := combine(s.cfg, sources, weights, agg)
	if result.Len() == 0 {
		delete(s.data, dest)
	} else {
		s.data[dest] = result
	}
	s.notifyEvent("zstore", dest)
	s.repl.Append(name, args...)
	return response{reply: Int(int64(result.Len()))}
}
