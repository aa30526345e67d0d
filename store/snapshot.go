package store

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/thebagchi/valuestore/hashval"
	"github.com/thebagchi/valuestore/kverrors"
	"github.com/thebagchi/valuestore/listval"
	"github.com/thebagchi/valuestore/value"
	"github.com/thebagchi/valuestore/zsetval"
)

// Writer is a growable byte buffer writer. Persistence (AOF/RDB) itself is
// out of scope (spec.md Deliberately out of scope), but spec.md §5 notes
// that background persistence helpers "see only immutable snapshots
// handed to them" — Writer/Reader are that narrow handoff contract,
// adapted from the teacher's arena-backed rw.go into a plain heap buffer
// since this package carries no allocator of its own.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{buf: make([]byte, 0, 64)} }

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) WriteByte(c byte) error {
	w.buf = append(w.buf, c)
	return nil
}

func (w *Writer) WriteUvarint(n uint64) {
	var tmp [binary.MaxVarintLen64]byte
	sz := binary.PutUvarint(tmp[:], n)
	w.buf = append(w.buf, tmp[:sz]...)
}

func (w *Writer) WriteString(s string) {
	w.WriteUvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) WriteFloat64(f float64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

// Reader reads back what Writer produced.
type Reader struct {
	buf    []byte
	offset int
}

func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.offset >= len(r.buf) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.offset:])
	r.offset += n
	return n, nil
}

func (r *Reader) ReadUvarint() (uint64, error) {
	n, sz := binary.Uvarint(r.buf[r.offset:])
	if sz <= 0 {
		return 0, kverrors.InternalError("snapshot read", "malformed uvarint at offset %d", r.offset)
	}
	r.offset += sz
	return n, nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return "", err
	}
	end := r.offset + int(n)
	if end > len(r.buf) {
		return "", kverrors.InternalError("snapshot read", "string length %d exceeds buffer", n)
	}
	s := string(r.buf[r.offset:end])
	r.offset = end
	return s, nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	if r.offset+8 > len(r.buf) {
		return 0, kverrors.InternalError("snapshot read", "truncated float64")
	}
	bits := binary.LittleEndian.Uint64(r.buf[r.offset : r.offset+8])
	r.offset += 8
	return math.Float64frombits(bits), nil
}

const (
	tagHash byte = 'H'
	tagList byte = 'L'
	tagZSet byte = 'Z'
)

// dumpLocked serializes the whole keyspace. Must only be called from the
// dispatch goroutine (the same invariant as every other Store mutator).
func (s *Store) dumpLocked() []byte {
	w := NewWriter()
	w.WriteUvarint(uint64(len(s.data)))
	for key, e := range s.data {
		switch v := e.(type) {
		case *hashval.Value:
			w.WriteByte(tagHash)
			w.WriteString(key)
			w.WriteUvarint(uint64(v.Len()))
			for f, val := range v.All() {
				w.WriteString(f)
				w.WriteString(val)
			}
		case *listval.Value:
			w.WriteByte(tagList)
			w.WriteString(key)
			entries := v.Range(0, -1)
			w.WriteUvarint(uint64(len(entries)))
			for _, val := range entries {
				w.WriteString(val)
			}
		case *zsetval.Value:
			w.WriteByte(tagZSet)
			w.WriteString(key)
			members := v.RangeByRank(0, -1, false)
			w.WriteUvarint(uint64(len(members)))
			for _, m := range members {
				w.WriteString(m.Member)
				w.WriteFloat64(m.Score)
			}
		}
	}
	return w.Bytes()
}

// loadLocked replaces the keyspace with the contents of data, which must
// have been produced by dumpLocked. Must only be called from the dispatch
// goroutine.
func (s *Store) loadLocked(data []byte) error {
	r := NewReader(data)
	count, err := r.ReadUvarint()
	if err != nil {
		return err
	}
	fresh := make(map[string]value.Envelope, count)
	for i := uint64(0); i < count; i++ {
		var tag [1]byte
		if _, err := r.Read(tag[:]); err != nil {
			return err
		}
		key, err := r.ReadString()
		if err != nil {
			return err
		}
		n, err := r.ReadUvarint()
		if err != nil {
			return err
		}
		switch tag[0] {
		case tagHash:
			h := hashval.New(s.cfg)
			for j := uint64(0); j < n; j++ {
				f, err := r.ReadString()
				if err != nil {
					return err
				}
				v, err := r.ReadString()
				if err != nil {
					return err
				}
				h.Set(f, v, hashval.SetOpts{})
			}
			fresh[key] = h
		case tagList:
			l := listval.New(s.cfg)
			for j := uint64(0); j < n; j++ {
				v, err := r.ReadString()
				if err != nil {
					return err
				}
				l.PushTail(v)
			}
			fresh[key] = l
		case tagZSet:
			z := zsetval.New(s.cfg)
			for j := uint64(0); j < n; j++ {
				m, err := r.ReadString()
				if err != nil {
					return err
				}
				score, err := r.ReadFloat64()
				if err != nil {
					return err
				}
				if _, err := z.Add(m, score, zsetval.AddOpts{}); err != nil {
					return err
				}
			}
			fresh[key] = z
		default:
			return kverrors.InternalError("snapshot load", "unknown type tag %q", tag[0])
		}
	}
	s.data = fresh
	return nil
}

func (s *Store) cmdSave(args []string) response {
	return response{reply: Bulk(string(s.dumpLocked()))}
}

func (s *Store) cmdLoad(args []string) response {
	if len(args) != 1 {
		return response{reply: Err(kverrors.New(kverrors.Syntax, "LOAD"))}
	}
	if err := s.loadLocked([]byte(args[0])); err != nil {
		return response{reply: Err(err)}
	}
	return response{reply: OK()}
}
