package store

// Kind identifies the shape of a Reply, mirroring the small set of reply
// types spec.md §6 lists as external interfaces: integers, bulk strings,
// arrays, nil, OK, and errors.
type Kind int

const (
	KindOK Kind = iota
	KindInt
	KindBulk
	KindArray
	KindNil
	KindError
)

// Reply is the typed result of one command, handed to a ReplySink instead
// of being written directly to a wire — this package has no transport of
// its own (spec.md Non-goals).
type Reply struct {
	Kind  Kind
	Int   int64
	Bulk  string
	Array []string
	Err   error
}

func OK() Reply                 { return Reply{Kind: KindOK} }
func Int(n int64) Reply         { return Reply{Kind: KindInt, Int: n} }
func Bulk(s string) Reply       { return Reply{Kind: KindBulk, Bulk: s} }
func Array(vals []string) Reply { return Reply{Kind: KindArray, Array: vals} }
func Nil() Reply                { return Reply{Kind: KindNil} }
func Err(err error) Reply       { return Reply{Kind: KindError, Err: err} }

func BoolInt(b bool) Reply {
	if b {
		return Int(1)
	}
	return Int(0)
}

// ReplySink receives replies as commands complete. The demo CLI in
// cmd/valuestore renders them to a terminal; tests use a RecordingSink.
type ReplySink interface {
	Send(Reply)
}

// RecordingSink accumulates every reply it receives, in order.
type RecordingSink struct {
	Replies []Reply
}

func (s *RecordingSink) Send(r Reply) {
	s.Replies = append(s.Replies, r)
}
