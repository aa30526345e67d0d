package store

import (
	"strconv"

	"github.com/thebagchi/valuestore/hashval"
	"github.com/thebagchi/valuestore/kverrors"
)

func (s *Store) cmdHSet(args []string) response {
	if len(args) < 3 || len(args)%2 != 1 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "HSET"))}
	}
	h, err := s.hashFor(args[0], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	created := int64(0)
	for i := 1; i < len(args); i += 2 {
		if h.Set(args[i], args[i+1], hashval.SetOpts{}) {
			created++
		}
	}
	s.notifyEvent("hset", args[0])
	s.repl.Append("HSET", args...)
	return response{reply: Int(created)}
}

func (s *Store) cmdHSetNX(args []string) response {
	if len(args) != 3 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "HSETNX"))}
	}
	h, err := s.hashFor(args[0], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	ok := h.Set(args[1], args[2], hashval.SetOpts{OnlyIfAbsent: true})
	if ok {
		s.notifyEvent("hset", args[0])
		s.repl.Append("HSETNX", args...)
	}
	return response{reply: BoolInt(ok)}
}

func (s *Store) cmdHGet(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if h == nil {
		return response{reply: Nil()}
	}
	v, ok := h.Get(args[1])
	if !ok {
		return response{reply: Nil()}
	}
	return response{reply: Bulk(v)}
}

func (s *Store) cmdHDel(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if h == nil {
		return response{reply: Int(0)}
	}
	n := int64(0)
	for _, f := range args[1:] {
		if h.Delete(f) {
			n++
		}
	}
	if h.Len() == 0 {
		delete(s.data, args[0])
		s.notifyEvent("del", args[0])
	}
	if n > 0 {
		s.repl.Append("HDEL", args...)
	}
	return response{reply: Int(n)}
}

func (s *Store) cmdHExists(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if h == nil {
		return response{reply: Int(0)}
	}
	return response{reply: BoolInt(h.Exists(args[1]))}
}

func (s *Store) cmdHLen(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if h == nil {
		return response{reply: Int(0)}
	}
	return response{reply: Int(int64(h.Len()))}
}

func (s *Store) cmdHIncrBy(args []string) response {
	delta, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAnInteger, "HINCRBY"))}
	}
	h, err := s.hashFor(args[0], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	sum, err := h.IncrementInt(args[1], delta)
	if err != nil {
		return response{reply: Err(err)}
	}
	s.repl.Append("HINCRBY", args...)
	return response{reply: Int(sum)}
}

// cmdHIncrByFloat replicates as HSET of the resulting value, per spec.md
// §6, so replicas converge on the exact string HINCRBYFLOAT computed
// rather than re-running their own floating point addition.
func (s *Store) cmdHIncrByFloat(args []string) response {
	delta, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return response{reply: Err(kverrors.New(kverrors.NotAFloat, "HINCRBYFLOAT"))}
	}
	h, err := s.hashFor(args[0], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	result, err := h.IncrementFloat(args[1], delta)
	if err != nil {
		return response{reply: Err(err)}
	}
	s.repl.Append("HSET", args[0], args[1], result)
	return response{reply: Bulk(result)}
}

func (s *Store) cmdHGetAll(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if h == nil {
		return response{reply: Array(nil)}
	}
	out := make([]string, 0, h.Len()*2)
	for f, v := range h.All() {
		out = append(out, f, v)
	}
	return response{reply: Array(out)}
}

func (s *Store) cmdHMSet(args []string) response {
	if len(args) < 3 || len(args)%2 != 1 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "HMSET"))}
	}
	h, err := s.hashFor(args[0], true)
	if err != nil {
		return response{reply: Err(err)}
	}
	for i := 1; i < len(args); i += 2 {
		h.Set(args[i], args[i+1], hashval.SetOpts{})
	}
	s.notifyEvent("hset", args[0])
	s.repl.Append("HMSET", args...)
	return response{reply: OK()}
}

func (s *Store) cmdHMGet(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	out := make([]string, len(args)-1)
	for i, f := range args[1:] {
		if h != nil {
			if v, ok := h.Get(f); ok {
				out[i] = v
				continue
			}
		}
		out[i] = ""
	}
	return response{reply: Array(out)}
}

func (s *Store) cmdHKeys(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if h == nil {
		return response{reply: Array(nil)}
	}
	out := make([]string, 0, h.Len())
	for f := range h.All() {
		out = append(out, f)
	}
	return response{reply: Array(out)}
}

func (s *Store) cmdHVals(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if h == nil {
		return response{reply: Array(nil)}
	}
	out := make([]string, 0, h.Len())
	for _, v := range h.All() {
		out = append(out, v)
	}
	return response{reply: Array(out)}
}

func (s *Store) cmdHStrLen(args []string) response {
	h, err := s.hashFor(args[0], false)
	if err != nil {
		return response{reply: Err(err)}
	}
	if h == nil {
		return response{reply: Int(0)}
	}
	return response{reply: Int(int64(h.StrLen(args[1])))}
}
