package audit

import (
	"sync"

	"github.com/roach88/marketplace/internal/ir"
)

// Log is an append-only, in-memory sequence of audit entries.
// Thread-safety: all methods are safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []ir.Entry
	seq     int64 // logical clock; last assigned seq
	watches map[ir.Kind][]*Watch
}

// NewLog creates an empty log whose first entry gets seq 1.
func NewLog() *Log {
	return &Log{
		entries: make([]ir.Entry, 0, 64),
		watches: make(map[ir.Kind][]*Watch),
	}
}

// NextSeq returns the seq the next Append will assign.
func (l *Log) NextSeq() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq + 1
}

// Append stamps e with the next seq, records it and fulfils every pending
// watch it matches. Any seq already set on e is overwritten.
func (l *Log) Append(e ir.Entry) ir.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	e.Seq = l.seq
	l.entries = append(l.entries, e)

	pending := l.watches[e.Kind]
	if len(pending) == 0 {
		return e
	}
	kept := pending[:0]
	for _, w := range pending {
		if w.matches(e) {
			w.fulfil(e)
			continue
		}
		kept = append(kept, w)
	}
	for i := len(kept); i < len(pending); i++ {
		pending[i] = nil
	}
	if len(kept) == 0 {
		delete(l.watches, e.Kind)
	} else {
		l.watches[e.Kind] = kept
	}
	return e
}

// Watch registers a one-shot observer for the next entry of kind.
func (l *Log) Watch(kind ir.Kind, opts ...WatchOption) *Watch {
	w := newWatch(l, kind)
	for _, opt := range opts {
		opt(w)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.watches[kind] = append(l.watches[kind], w)
	return w
}

// cancel removes w from the pending set. No-op if w already fired.
func (l *Log) cancel(w *Watch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := l.watches[w.kind]
	for i, candidate := range pending {
		if candidate == w {
			l.watches[w.kind] = append(pending[:i], pending[i+1:]...)
			break
		}
	}
	if len(l.watches[w.kind]) == 0 {
		delete(l.watches, w.kind)
	}
	w.close()
}

// Pending returns the number of unfired watches.
func (l *Log) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ws := range l.watches {
		n += len(ws)
	}
	return n
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of every entry in seq order.
func (l *Log) Entries() []ir.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ir.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns entries with seq strictly greater than seq.
func (l *Log) Since(seq int64) []ir.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []ir.Entry{}
	for _, e := range l.entries {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// OfKind returns entries of kind in seq order.
func (l *Log) OfKind(kind ir.Kind) []ir.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []ir.Entry{}
	for _, e := range l.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent entry, if any.
func (l *Log) Last() (ir.Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return ir.Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Reader is the query side of a Log.
type Reader interface {
	Len() int
	Entries() []ir.Entry
	Since(seq int64) []ir.Entry
	OfKind(kind ir.Kind) []ir.Entry
	Last() (ir.Entry, bool)
	Pending() int
}

type view struct{ l *Log }

func (v view) Len() int { return v.l.Len() }
func (v view) Entries() []ir.Entry { return v.l.Entries() }
func (v view) Since(seq int64) []ir.Entry { return v.l.Since(seq) }
func (v view) OfKind(kind ir.Kind) []ir.Entry { return v.l.OfKind(kind) }
func (v view) Last() (ir.Entry, bool) { return v.l.Last() }
func (v view) Pending() int { return v.l.Pending() }

// View returns a read-only Reader over l. Entries appended later are visible
// through it.
func (l *Log) View() Reader {
	return view{l: l}
}
