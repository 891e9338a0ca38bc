package audit

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/marketplace/internal/ir"
)

// ErrWatchCancelled is returned by Wait after Cancel on an unfired watch.
var ErrWatchCancelled = errors.New("audit: watch cancelled")

// WatchOption narrows what a watch matches.
type WatchOption func(*Watch)

// WithSubject restricts a watch to entries whose subject is id.
func WithSubject(id ir.Identity) WatchOption {
	return func(w *Watch) {
		w.subject = &id
	}
}

// Watch is a one-shot registration for the next matching entry.
//
// The delivery channel has capacity 1 so Append never blocks on a slow
// observer.
type Watch struct {
	log     *Log
	kind    ir.Kind
	subject *ir.Identity
	ch      chan ir.Entry
	once    sync.Once
}

func newWatch(l *Log, kind ir.Kind) *Watch {
	return &Watch{log: l, kind: kind, ch: make(chan ir.Entry, 1)}
}

// Kind returns the entry kind the watch waits for.
func (w *Watch) Kind() ir.Kind { return w.kind }

// C returns the delivery channel. It yields at most one entry and is closed
// afterwards, or immediately on Cancel.
func (w *Watch) C() <-chan ir.Entry { return w.ch }

// Wait blocks until the watch fires or ctx is done.
func (w *Watch) Wait(ctx context.Context) (ir.Entry, error) {
	select {
	case e, ok := <-w.ch:
		if !ok {
			return ir.Entry{}, ErrWatchCancelled
		}
		return e, nil
	case <-ctx.Done():
		return ir.Entry{}, ctx.Err()
	}
}

// Cancel releases an unfired watch. Safe to call more than once and after
// the watch fired; a delivered entry stays readable from C.
func (w *Watch) Cancel() {
	w.log.cancel(w)
}

func (w *Watch) matches(e ir.Entry) bool {
	return e.Kind == w.kind && (w.subject == nil || *w.subject == e.Subject)
}

// fulfil delivers e. Called with the log lock held.
func (w *Watch) fulfil(e ir.Entry) {
	w.once.Do(func() {
		w.ch <- e
		close(w.ch)
	})
}

func (w *Watch) close() {
	w.once.Do(func() {
		close(w.ch)
	})
}
