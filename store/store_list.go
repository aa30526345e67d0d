package store

import (
	"strconv"
	"strings"
	"time"

	"github.com/thebagchi/valuestore/blocking"
	"github.com/thebagchi/valuestore/kverrors"
	"github.com/thebagchi/valuestore/value"
)

func (s *Store) cmdPush(args []string, atTail bool) response {
	if len(args) < 2 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "PUSH"))}
	}
	l, err := s.listFor(args[0], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	var n int
	if atTail {
		n = l.PushTail(args[1:]...)
	} else {
		n = l.PushHead(args[1:]...)
	}
	s.signalModified(args[0], value.List, len(args[1:]))
	s.notifyEvent("push", args[0])
	name := "LPUSH"
	if atTail {
		name = "RPUSH"
	}
	s.repl.Append(name, args...)
	return response{reply: Int(int64(n))}
}

// cmdPushX implements LPUSHX/RPUSHX: push only if the key already holds a
// list, never creating one, per spec.md §6.
func (s *Store) cmdPushX(args []string, atTail bool) response {
	if len(args) < 2 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "PUSHX"))}
	}
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		return response{reply: Int(0)}
	}
	var n int
	if atTail {
		n = l.PushTail(args[1:]...)
	} else {
		n = l.PushHead(args[1:]...)
	}
	s.signalModified(args[0], value.List, len(args[1:]))
	s.notifyEvent("push", args[0])
	name := "LPUSHX"
	if atTail {
		name = "RPUSHX"
	}
	s.repl.Append(name, args...)
	return response{reply: Int(int64(n))}
}

func (s *Store) cmdPop(args []string, atTail bool) response {
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		if len(args) > 1 {
			return response{reply: Array(nil)}
		}
		return response{reply: Nil()}
	}
	name := "LPOP"
	if atTail {
		name = "RPOP"
	}
	if len(args) == 1 {
		var v string
		var ok bool
		if atTail {
			v, ok = l.PopTail()
		} else {
			v, ok = l.PopHead()
		}
		if !ok {
			return response{reply: Nil()}
		}
		s.dropIfEmptyList(args[0], l)
		s.repl.Append(name, args[0], v)
		return response{reply: Bulk(v)}
	}
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "POP"))}
	}
	var vals []string
	if atTail {
		vals = l.PopTailN(count)
	} else {
		vals = l.PopHeadN(count)
	}
	s.dropIfEmptyList(args[0], l)
	if len(vals) == 0 {
		return response{reply: Array(nil)}
	}
	s.repl.Append(name, args[0], strconv.Itoa(len(vals)))
	return response{reply: Array(vals)}
}

func (s *Store) cmdLLen(args []string) response {
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		return response{reply: Int(0)}
	}
	return response{reply: Int(int64(l.Len()))}
}

func (s *Store) cmdLRange(args []string) response {
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		return response{reply: Array(nil)}
	}
	start, err1 := strconv.Atoi(args[1])
	stop, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "LRANGE"))}
	}
	return response{reply: Array(l.Range(start, stop))}
}

func (s *Store) cmdLIndex(args []string) response {
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		return response{reply: Nil()}
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "LINDEX"))}
	}
	v, ok := l.Index(idx)
	if !ok {
		return response{reply: Nil()}
	}
	return response{reply: Bulk(v)}
}

func (s *Store) cmdLSet(args []string) response {
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		return response{reply: Err(kverrors.New(kverrors.OutOfRange, "LSET"))}
	}
	idx, err := strconv.Atoi(args[1])
	if err != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "LSET"))}
	}
	if !l.Set(idx, args[2]) {
		return response{reply: Err(kverrors.New(kverrors.OutOfRange, "LSET"))}
	}
	s.repl.Append("LSET", args...)
	return response{reply: OK()}
}

func (s *Store) cmdLInsert(args []string) response {
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		return response{reply: Int(0)}
	}
	var ok bool
	if strings.EqualFold(args[1], "before") {
		ok = l.InsertBefore(args[2], args[3])
	} else {
		ok = l.InsertAfter(args[2], args[3])
	}
	if !ok {
		return response{reply: Int(-1)}
	}
	s.repl.Append("LINSERT", args...)
	return response{reply: Int(int64(l.Len()))}
}

func (s *Store) cmdLRem(args []string) response {
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		return response{reply: Int(0)}
	}
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "LREM"))}
	}
	n := l.Remove(args[2], count)
	s.dropIfEmptyList(args[0], l)
	if n > 0 {
		s.repl.Append("LREM", args...)
	}
	return response{reply: Int(int64(n))}
}

func (s *Store) cmdLTrim(args []string) response {
	l, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l == nil {
		return response{reply: OK()}
	}
	start, err1 := strconv.Atoi(args[1])
	stop, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "LTRIM"))}
	}
	l.Trim(start, stop)
	s.dropIfEmptyList(args[0], l)
	s.repl.Append("LTRIM", args...)
	return response{reply: OK()}
}

func (s *Store) cmdRPopLPush(args []string) response {
	if args[0] == args[1] {
		l, err := s.listFor(args[0], false)
		if err != nil {
			return response{reply: Err(err)}
		}
		if l == nil {
			return response{reply: Nil()}
		}
		v, ok := l.Rotate()
		if !ok {
			return response{reply: Nil()}
		}
		s.signalModified(args[0], value.List, 1)
		s.repl.Append("RPOPLPUSH", args...)
		return response{reply: Bulk(v)}
	}
	src, err := s.listFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if src == nil {
		return response{reply: Nil()}
	}
	dst, err := s.listFor(args[1], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	v, ok := src.MoveTailToHeadOf(dst)
	if !ok {
		return response{reply: Nil()}
	}
	s.dropIfEmptyList(args[0], src)
	s.signalModified(args[1], value.List, 1)
	s.repl.Append("RPOPLPUSH", args...)
	return response{reply: Bulk(v)}
}

// cmdBlockingPop implements BLPOP/BRPOP: args are one or more keys
// followed by a timeout in seconds. If no listed key has an entry and
// blocking is permitted, it registers a waiter and leaves the actual wait
// to Store.submit, which owns the registry's Ready channel outside this
// single-threaded dispatch loop.
//
// A woken waiter's reply is re-derived by re-dispatching the equivalent
// non-blocking pop (see Store.submit), so the reply it ultimately
// produces is a bulk string rather than the [key, value] pair a literal
// BLPOP would return — an accepted simplification since this package has
// no wire protocol of its own to match (spec.md Non-goals).
func (s *Store) cmdBlockingPop(args []string, atTail bool, inTransaction bool) response {
	if len(args) < 2 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "BPOP"))}
	}
	keys := args[:len(args)-1]
	timeout, err := parseTimeout(args[len(args)-1])
	if err != nil {
		return response{reply: Err(err)}
	}
	for _, k := range keys {
		l, err := s.listFor(k, false)
		if err != nil {
			return response{reply: Err(err)}
		}
		if l == nil {
			continue
		}
		var v string
		var ok bool
		if atTail {
			v, ok = l.PopTail()
		} else {
			v, ok = l.PopHead()
		}
		if ok {
			s.dropIfEmptyList(k, l)
			name := "LPOP"
			if atTail {
				name = "RPOP"
			}
			s.repl.Append(name, k, v)
			return response{reply: Bulk(v)}
		}
	}
	if !blocking.ShouldBlock(inTransaction) {
		return response{reply: Nil()}
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	w := s.waiters.Register(keys, value.List, deadline)
	return response{pending: w, timeout: timeout}
}

// cmdBlockingRPopLPush implements BRPOPLPUSH: a single source key, a
// destination key, and a timeout. It tries the immediate RPOPLPUSH first
// and only registers a waiter (on the source key, carrying the destination
// for the eventual wake-time rewrite) if the source is empty.
func (s *Store) cmdBlockingRPopLPush(args []string, inTransaction bool) response {
	if len(args) != 3 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "BRPOPLPUSH"))}
	}
	src, dst, timeoutArg := args[0], args[1], args[2]
	timeout, err := parseTimeout(timeoutArg)
	if err != nil {
		return response{reply: Err(err)}
	}
	l, err := s.listFor(src, false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if l != nil && l.Len() > 0 {
		return s.cmdRPopLPush([]string{src, dst})
	}
	if !blocking.ShouldBlock(inTransaction) {
		return response{reply: Nil()}
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	w := s.waiters.RegisterWithDest([]string{src}, value.List, dst, deadline)
	return response{pending: w, timeout: timeout}
}
