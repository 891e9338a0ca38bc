package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marketplace/internal/ir"
)

var (
	admin = ir.MustParseIdentity("0x1000000000000000000000000000000000000001")
	userA = ir.MustParseIdentity("0x2000000000000000000000000000000000000001")
	userB = ir.MustParseIdentity("0x2000000000000000000000000000000000000002")
)

func entry(kind ir.Kind, subject ir.Identity) ir.Entry {
	return ir.Entry{Kind: kind, Requester: admin, Subject: subject}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestAppend_AssignsMonotonicSeq(t *testing.T) {
	l := NewLog()
	assert.Equal(t, int64(1), l.NextSeq())

	for i := 1; i <= 5; i++ {
		e := l.Append(entry(ir.KindAdminAdded, userA))
		assert.Equal(t, int64(i), e.Seq)
	}

	entries := l.Entries()
	require.Len(t, entries, 5)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Seq, entries[i-1].Seq)
	}
	assert.Equal(t, int64(6), l.NextSeq())
}

func TestAppend_OverwritesCallerSeq(t *testing.T) {
	l := NewLog()
	e := entry(ir.KindAdminAdded, userA)
	e.Seq = 99

	assert.Equal(t, int64(1), l.Append(e).Seq)
}

func TestEntries_ReturnsCopy(t *testing.T) {
	l := NewLog()
	l.Append(entry(ir.KindAdminAdded, userA))

	got := l.Entries()
	got[0].Subject = userB

	assert.Equal(t, userA, l.Entries()[0].Subject)
}

func TestWatch_ReceivesNextMatchingEntry(t *testing.T) {
	l := NewLog()
	w := l.Watch(ir.KindAdminAdded)

	l.Append(entry(ir.KindApprStoreOwnerAdded, userB))
	l.Append(entry(ir.KindAdminAdded, userA))

	got, err := w.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, ir.KindAdminAdded, got.Kind)
	assert.Equal(t, userA, got.Args()[ir.FieldUser])
	assert.Equal(t, int64(2), got.Seq)
	assert.Equal(t, 0, l.Pending())
}

func TestWatch_OneShot(t *testing.T) {
	l := NewLog()
	w := l.Watch(ir.KindAdminAdded)

	l.Append(entry(ir.KindAdminAdded, userA))
	l.Append(entry(ir.KindAdminAdded, userB))

	got, err := w.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, userA, got.Subject)

	// second receive sees the closed channel
	_, ok := <-w.C()
	assert.False(t, ok)
}

func TestWatch_AllObserversGetSameEntry(t *testing.T) {
	l := NewLog()
	watches := []*Watch{
		l.Watch(ir.KindNewStore),
		l.Watch(ir.KindNewStore),
		l.Watch(ir.KindNewStore),
	}

	appended := l.Append(entry(ir.KindNewStore, userA))

	for _, w := range watches {
		got, err := w.Wait(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, appended, got)
	}
}

func TestWatch_RegisteredAfterAppendMissesIt(t *testing.T) {
	l := NewLog()
	l.Append(entry(ir.KindAdminAdded, userA))

	w := l.Watch(ir.KindAdminAdded)

	select {
	case <-w.C():
		t.Fatal("watch fired for an entry appended before registration")
	default:
	}
	l.Append(entry(ir.KindAdminAdded, userB))
	got, err := w.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, userB, got.Subject)
}

func TestWatch_WithSubject(t *testing.T) {
	l := NewLog()
	w := l.Watch(ir.KindAdminAdded, WithSubject(userB))

	l.Append(entry(ir.KindAdminAdded, userA))
	assert.Equal(t, 1, l.Pending())
	l.Append(entry(ir.KindAdminAdded, userB))

	got, err := w.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, userB, got.Subject)
	assert.Equal(t, int64(2), got.Seq)
}

func TestWatch_Cancel(t *testing.T) {
	l := NewLog()
	w := l.Watch(ir.KindAdminDeleted)
	w.Cancel()
	w.Cancel()

	_, err := w.Wait(waitCtx(t))
	assert.ErrorIs(t, err, ErrWatchCancelled)
	assert.Equal(t, 0, l.Pending())

	// a later append has nobody to deliver to
	l.Append(entry(ir.KindAdminDeleted, userA))
	assert.Equal(t, 1, l.Len())
}

func TestWatch_CancelAfterFireKeepsEntry(t *testing.T) {
	l := NewLog()
	w := l.Watch(ir.KindAdminDeleted)
	l.Append(entry(ir.KindAdminDeleted, userA))

	w.Cancel()

	got, err := w.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, userA, got.Subject)
}

func TestWatch_ContextDone(t *testing.T) {
	l := NewLog()
	w := l.Watch(ir.KindNewStore)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatch_BlockingObserverWakesAfterAppend(t *testing.T) {
	l := NewLog()
	w := l.Watch(ir.KindApprStoreOwnerAdded)

	var wg sync.WaitGroup
	var got ir.Entry
	var waitErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, waitErr = w.Wait(context.Background())
	}()

	l.Append(entry(ir.KindApprStoreOwnerAdded, userA))
	wg.Wait()

	require.NoError(t, waitErr)
	assert.Equal(t, userA, got.Subject)
	// happens-after: the entry is already in the log
	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, got, last)
}

func TestWatch_PerKindOrderPreserved(t *testing.T) {
	l := NewLog()
	first := l.Watch(ir.KindNewStore)
	l.Append(entry(ir.KindNewStore, userA))
	second := l.Watch(ir.KindNewStore)
	l.Append(entry(ir.KindNewStore, userB))

	e1, err := first.Wait(waitCtx(t))
	require.NoError(t, err)
	e2, err := second.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Less(t, e1.Seq, e2.Seq)
}

func TestQueries(t *testing.T) {
	l := NewLog()
	_, ok := l.Last()
	assert.False(t, ok)

	l.Append(entry(ir.KindNewMarketplace, userA))
	l.Append(entry(ir.KindAdminAdded, userA))
	l.Append(entry(ir.KindAdminAdded, userB))

	assert.Equal(t, 3, l.Len())
	assert.Len(t, l.Since(1), 2)
	assert.Empty(t, l.Since(3))
	assert.Len(t, l.OfKind(ir.KindAdminAdded), 2)
	assert.Empty(t, l.OfKind(ir.KindStoreDeleted))
}

func TestAppend_ConcurrentWritersUniqueSeq(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(entry(ir.KindAdminAdded, userA))
		}()
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, e := range l.Entries() {
		assert.False(t, seen[e.Seq])
		seen[e.Seq] = true
	}
	assert.Len(t, seen, 50)
}

func TestView_ReadOnlyAndLive(t *testing.T) {
	l := NewLog()
	v := l.View()

	_, canAppend := v.(interface{ Append(ir.Entry) ir.Entry })
	assert.False(t, canAppend, "view must not expose Append")

	l.Append(entry(ir.KindAdminAdded, userA))
	l.Append(entry(ir.KindApprStoreOwnerAdded, userB))
	w := l.Watch(ir.KindNewStore)
	defer w.Cancel()

	assert.Equal(t, 2, v.Len())
	assert.Len(t, v.OfKind(ir.KindAdminAdded), 1)
	assert.Len(t, v.Since(1), 1)
	assert.Equal(t, 1, v.Pending())
	last, ok := v.Last()
	require.True(t, ok)
	assert.Equal(t, int64(2), last.Seq)
	assert.Equal(t, l.Entries(), v.Entries())
}
