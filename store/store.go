// Package store wires the value-type engine's standalone packages
// (hashval, listval, zsetval, blocking) into a single keyspace and a
// small representative command surface, the way spec.md §6 describes the
// engine's external interfaces: lookup/add/delete, a reply sink, and a
// replication log.
//
// A single goroutine (Run) processes every command, the same
// single-threaded-cooperative model spec.md §5 assumes of its host
// process, realized here as one serialized loop instead of one OS thread
// per spec.md's note that no internal synchronization primitive is
// needed as long as that invariant holds.
package store

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/thebagchi/valuestore/blocking"
	"github.com/thebagchi/valuestore/config"
	"github.com/thebagchi/valuestore/hashval"
	"github.com/thebagchi/valuestore/kverrors"
	"github.com/thebagchi/valuestore/listval"
	"github.com/thebagchi/valuestore/value"
	"github.com/thebagchi/valuestore/zsetval"
)

// Store is the keyspace plus the collaborators every command touches.
type Store struct {
	cfg     *config.Config
	log     *zap.Logger
	data    map[string]value.Envelope
	waiters *blocking.Registry
	repl    *Log

	reqs     chan request
	cancelCh chan *blocking.Waiter
}

type request struct {
	name          string
	args          []string
	inTransaction bool
	respond       chan response
}

type response struct {
	reply   Reply
	pending *blocking.Waiter
	timeout time.Duration
}

// New returns a Store with an empty keyspace.
func New(cfg *config.Config, log *zap.Logger) *Store {
	return &Store{
		cfg:      cfg,
		log:      log,
		data:     make(map[string]value.Envelope),
		waiters:  blocking.NewRegistry(),
		repl:     NewLog(),
		reqs:     make(chan request),
		cancelCh: make(chan *blocking.Waiter),
	}
}

// Replication exposes the log of effective commands applied so far.
func (s *Store) Replication() *Log { return s.repl }

// Run processes commands until ctx is cancelled. It must be started
// exactly once before any Submit call.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-s.reqs:
			rp := s.handle(r.name, r.args, r.inTransaction)
			r.respond <- rp
		case w := <-s.cancelCh:
			s.waiters.Cancel(w)
		}
	}
}

// Submit runs one command to completion, including the off-loop wait a
// blocking command needs once it has registered a waiter, and returns its
// reply to sink in addition to returning it directly.
func (s *Store) Submit(ctx context.Context, sink ReplySink, name string, args []string, inTransaction bool) Reply {
	reply := s.submit(ctx, name, args, inTransaction)
	if sink != nil {
		sink.Send(reply)
	}
	return reply
}

func (s *Store) submit(ctx context.Context, name string, args []string, inTransaction bool) Reply {
	respCh := make(chan response, 1)
	select {
	case s.reqs <- request{name: name, args: args, inTransaction: inTransaction, respond: respCh}:
	case <-ctx.Done():
		return Err(ctx.Err())
	}
	var r response
	select {
	case r = <-respCh:
	case <-ctx.Done():
		return Err(ctx.Err())
	}
	if r.pending == nil {
		return r.reply
	}

	var timerCh <-chan time.Time
	if r.timeout > 0 {
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()
		timerCh = timer.C
	}
	select {
	case n := <-r.pending.Ready:
		if n.TimedOut {
			return Nil()
		}
		eff, _ := blocking.ReplicationRewrite(name)
		effArgs := []string{n.Key}
		if r.pending.Dest != "" {
			effArgs = []string{n.Key, r.pending.Dest}
		}
		return s.submit(ctx, eff, effArgs, inTransaction)
	case <-timerCh:
		select {
		case s.cancelCh <- r.pending:
		case <-ctx.Done():
		}
		return Nil()
	case <-ctx.Done():
		select {
		case s.cancelCh <- r.pending:
		default:
		}
		return Err(ctx.Err())
	}
}

func (s *Store) lookupOrCreate(key string, create func() value.Envelope) value.Envelope {
	if e, ok := s.data[key]; ok {
		return e
	}
	e := create()
	s.data[key] = e
	return e
}

func (s *Store) deleteKey(key string) bool {
	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	return true
}

// signalModified wakes up to n kind-matching waiters on key, in arrival
// order, after a write added n new entries to key. spec.md §4.6 requires
// iterating the waiter list and retrying each one's pop against the
// current contents; since each woken waiter consumes exactly one of the
// n entries just added once it resumes, capping the wake count at n keeps
// a waiter from being woken against contents that are no longer there.
func (s *Store) signalModified(key string, kind value.Type, n int) {
	for i := 0; i < n; i++ {
		if !s.waiters.Signal(key, kind) {
			return
		}
	}
}

func (s *Store) notifyEvent(event, key string) {
	s.log.Debug("keyspace event", zap.String("event", event), zap.String("key", key))
}

func (s *Store) hashFor(key string, write bool) (*hashval.Value, error) {
	e, ok := s.data[key]
	if !ok {
		if !write {
			return nil, nil
		}
		h := hashval.New(s.cfg)
		s.data[key] = h
		return h, nil
	}
	h, ok := e.(*hashval.Value)
	if !ok {
		return nil, kverrors.New(kverrors.WrongType, "")
	}
	return h, nil
}

func (s *Store) listFor(key string, write bool) (*listval.Value, error) {
	e, ok := s.data[key]
	if !ok {
		if !write {
			return nil, nil
		}
		l := listval.New(s.cfg)
		s.data[key] = l
		return l, nil
	}
	l, ok := e.(*listval.Value)
	if !ok {
		return nil, kverrors.New(kverrors.WrongType, "")
	}
	return l, nil
}

func (s *Store) zsetFor(key string, write bool) (*zsetval.Value, error) {
	e, ok := s.data[key]
	if !ok {
		if !write {
			return nil, nil
		}
		z := zsetval.New(s.cfg)
		s.data[key] = z
		return z, nil
	}
	z, ok := e.(*zsetval.Value)
	if !ok {
		return nil, kverrors.New(kverrors.WrongType, "")
	}
	return z, nil
}

func (s *Store) dropIfEmptyList(key string, l *listval.Value) {
	if l.Len() == 0 {
		delete(s.data, key)
		s.notifyEvent("del", key)
	}
}

// handle dispatches one command. It never blocks: a blocking command that
// cannot be satisfied immediately registers a waiter and returns it in
// response.pending instead of waiting here.
func (s *Store) handle(name string, args []string, inTransaction bool) response {
	switch name {
	case "HSET":
		return s.cmdHSet(args)
	case "HSETNX":
		return s.cmdHSetNX(args)
	case "HGET":
		return s.cmdHGet(args)
	case "HDEL":
		return s.cmdHDel(args)
	case "HEXISTS":
		return s.cmdHExists(args)
	case "HLEN":
		return s.cmdHLen(args)
	case "HINCRBY":
		return s.cmdHIncrBy(args)
	case "HINCRBYFLOAT":
		return s.cmdHIncrByFloat(args)
	case "HGETALL":
		return s.cmdHGetAll(args)
	case "HMSET":
		return s.cmdHMSet(args)
	case "HMGET":
		return s.cmdHMGet(args)
	case "HKEYS":
		return s.cmdHKeys(args)
	case "HVALS":
		return s.cmdHVals(args)
	case "HSTRLEN":
		return s.cmdHStrLen(args)

	case "LPUSH":
		return s.cmdPush(args, false)
	case "RPUSH":
		return s.cmdPush(args, true)
	case "LPUSHX":
		return s.cmdPushX(args, false)
	case "RPUSHX":
		return s.cmdPushX(args, true)
	case "LPOP":
		return s.cmdPop(args, false)
	case "RPOP":
		return s.cmdPop(args, true)
	case "LLEN":
		return s.cmdLLen(args)
	case "LRANGE":
		return s.cmdLRange(args)
	case "LINDEX":
		return s.cmdLIndex(args)
	case "LSET":
		return s.cmdLSet(args)
	case "LINSERT":
		return s.cmdLInsert(args)
	case "LREM":
		return s.cmdLRem(args)
	case "LTRIM":
		return s.cmdLTrim(args)
	case "RPOPLPUSH":
		return s.cmdRPopLPush(args)
	case "BLPOP":
		return s.cmdBlockingPop(args, false, inTransaction)
	case "BRPOP":
		return s.cmdBlockingPop(args, true, inTransaction)
	case "BRPOPLPUSH":
		return s.cmdBlockingRPopLPush(args, inTransaction)

	case "ZADD":
		return s.cmdZAdd(args)
	case "ZSCORE":
		return s.cmdZScore(args)
	case "ZCARD":
		return s.cmdZCard(args)
	case "ZINCRBY":
		return s.cmdZIncrBy(args)
	case "ZREM":
		return s.cmdZRem(args)
	case "ZRANGE":
		return s.cmdZRange(args)
	case "ZREVRANGE":
		return s.cmdZRevRange(args)
	case "ZRANGEBYSCORE":
		return s.cmdZRangeByScore(args)
	case "ZREVRANGEBYSCORE":
		return s.cmdZRevRangeByScore(args)
	case "ZRANGEBYLEX":
		return s.cmdZRangeByLex(args)
	case "ZREVRANGEBYLEX":
		return s.cmdZRevRangeByLex(args)
	case "ZCOUNT":
		return s.cmdZCount(args)
	case "ZLEXCOUNT":
		return s.cmdZLexCount(args)
	case "ZRANK":
		return s.cmdZRank(args)
	case "ZREVRANK":
		return s.cmdZRevRank(args)
	case "ZREMRANGEBYRANK":
		return s.cmdZRemRangeByRank(args)
	case "ZREMRANGEBYSCORE":
		return s.cmdZRemRangeByScore(args)
	case "ZREMRANGEBYLEX":
		return s.cmdZRemRangeByLex(args)
	case "ZUNIONSTORE":
		return s.cmdZUnionStore(args)
	case "ZINTERSTORE":
		return s.cmdZInterStore(args)
	case "ZPOPMIN":
		return s.cmdZPop(args, false)
	case "ZPOPMAX":
		return s.cmdZPop(args, true)
	case "BZPOPMIN":
		return s.cmdBlockingZPop(args, false, inTransaction)
	case "BZPOPMAX":
		return s.cmdBlockingZPop(args, true, inTransaction)

	case "DEL":
		return s.cmdDel(args)
	case "EXISTS":
		return s.cmdExists(args)
	case "TYPE":
		return s.cmdType(args)
	case "SAVE":
		return s.cmdSave(args)
	case "LOAD":
		return s.cmdLoad(args)

	default:
		return response{reply: Err(kverrors.New(kverrors.Syntax, name))}
	}
}

func (s *Store) cmdDel(args []string) response {
	n := int64(0)
	for _, k := range args {
		if s.deleteKey(k) {
			n++
			s.notifyEvent("del", k)
		}
	}
	if n > 0 {
		s.repl.Append("DEL", args...)
	}
	return response{reply: Int(n)}
}

func (s *Store) cmdExists(args []string) response {
	n := int64(0)
	for _, k := range args {
		if _, ok := s.data[k]; ok {
			n++
		}
	}
	return response{reply: Int(n)}
}

func (s *Store) cmdType(args []string) response {
	e, ok := s.data[args[0]]
	if !ok {
		return response{reply: Bulk("none")}
	}
	return response{reply: Bulk(e.Type().String())}
}

func parseTimeout(s string) (time.Duration, error) {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, kverrors.New(kverrors.NotAFloat, "timeout")
	}
	if seconds < 0 {
		return 0, kverrors.New(kverrors.OutOfRange, "timeout")
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
