package setlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"setlist-service/internal/logger"
)

func newTestEngine(t *testing.T, profiles ...string) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(profiles...)
	e := NewEngine(store, NewLocalNotifier(), logger.Nop(),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs("id")),
	)
	return e, store
}

func TestEngine_EndToEnd(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, "alice", "bob")

	sl, err := e.Create(ctx, leader, "Friday night", []string{"alice", "bob"})
	require.NoError(t, err)

	song, err := e.AddSong(ctx, leader, sl.ID, NewSong{SongID: "X", Title: "X", Members: []string{"alice", "bob"}})
	require.NoError(t, err)
	assert.Equal(t, 0, song.Order)

	_, err = e.Complete(ctx, leader, sl.ID, KindSong, "X")
	require.NoError(t, err)

	v, err := e.View(ctx, sl.ID)
	require.NoError(t, err)
	assert.Empty(t, v.SetList.Songs)
	assert.Empty(t, v.Queue)
	require.Len(t, v.SetList.CompletedSongs, 1)
	assert.Equal(t, "X", v.SetList.CompletedSongs[0].SongID)
	assert.Equal(t, fixedNow, v.SetList.CompletedSongs[0].CompletedAt)

	require.Len(t, v.Stats, 2)
	for _, st := range v.Stats {
		assert.Equal(t, 1, st.AppearanceCount, st.Nickname)
		assert.Equal(t, 1, st.CompletedCount, st.Nickname)
		assert.Equal(t, 1.0, st.CompletionRate, st.Nickname)
		assert.False(t, st.IsGuest, st.Nickname)
	}
	assert.Equal(t, "alice", v.Stats[0].Nickname)
}

func TestEngine_FlexibleCardFlow(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, "alice")
	sl, err := e.Create(ctx, leader, "Jam", []string{"alice", "bob"})
	require.NoError(t, err)

	card, err := e.CreateFlexibleCard(ctx, alice, sl.ID, "", 2)
	require.NoError(t, err)

	_, err = e.Place(ctx, alice, sl.ID, KindFlexible, card.ID)
	require.NoError(t, err)
	_, err = e.AddSlotMember(ctx, alice, sl.ID, card.ID, 0, "bob")
	require.NoError(t, err)

	_, err = e.AddSlotMember(ctx, bob, sl.ID, card.ID, 0, "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.SetSlotCompleted(ctx, alice, sl.ID, card.ID, 0, true)
	require.NoError(t, err)

	stats, err := e.Stats(ctx, sl.ID)
	require.NoError(t, err)
	b := statFor(t, stats, "bob")
	assert.Equal(t, 1, b.CompletedCount)
	assert.True(t, b.IsGuest)

	_, err = e.Complete(ctx, alice, sl.ID, KindFlexible, card.ID)
	require.NoError(t, err)
	got, err := e.Get(ctx, sl.ID)
	require.NoError(t, err)
	require.Len(t, got.CompletedFlexibleCards, 1)
	assert.Equal(t, []string{"bob"}, got.CompletedFlexibleCards[0].AllParticipants)
	assert.Equal(t, 2, got.CompletedFlexibleCards[0].TotalSlotsCompleted)
}

func TestEngine_ReorderAndGesture(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	sl, err := e.Create(ctx, leader, "Set", nil)
	require.NoError(t, err)
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		_, err := e.AddSong(ctx, leader, sl.ID, NewSong{SongID: id, Title: id})
		require.NoError(t, err)
	}

	got, err := e.Reorder(ctx, leader, sl.ID, ReorderRequest{UnitID: "A", From: 0, To: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D", "A", "E"}, unitIDs(Compose(got)))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, unitOrders(Compose(got)))

	_, err = e.Reorder(ctx, alice, sl.ID, ReorderRequest{UnitID: "A", To: 0})
	assert.ErrorIs(t, err, ErrForbidden)

	// drag E up by two rows of 50px
	got, err = e.CommitGesture(ctx, leader, sl.ID, GestureCommit{
		UnitID: "E", SourceIndex: 4, StartY: 400, CurrentY: 290, ItemHeight: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "E", "D", "A"}, unitIDs(Compose(got)))

	before := got.Version
	got, err = e.CommitGesture(ctx, leader, sl.ID, GestureCommit{
		UnitID: "B", SourceIndex: 0, StartY: 0, CurrentY: 10, ItemHeight: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, before, got.Version, "short gesture writes nothing")

	// B sits at index 0; a client still rendering the old order drags from 1
	_, err = e.CommitGesture(ctx, leader, sl.ID, GestureCommit{
		UnitID: "B", SourceIndex: 1, StartY: 50, CurrentY: 160, ItemHeight: 50,
	})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.CommitGesture(ctx, leader, sl.ID, GestureCommit{
		UnitID: "Z", SourceIndex: 0, StartY: 0, CurrentY: 100, ItemHeight: 50,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Reorder(ctx, leader, sl.ID, ReorderRequest{UnitID: "A", From: 99, To: 2})
	assert.ErrorIs(t, err, ErrValidation)

	after, err := e.Get(ctx, sl.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after.Version)
	assert.Equal(t, []string{"B", "C", "E", "D", "A"}, unitIDs(Compose(after)))
}

func TestEngine_ReorderAfterConcurrentCompletionFailsClosed(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	sl, err := e.Create(ctx, leader, "Set", nil)
	require.NoError(t, err)
	for _, id := range []string{"A", "B", "C"} {
		_, err := e.AddSong(ctx, leader, sl.ID, NewSong{SongID: id, Title: id})
		require.NoError(t, err)
	}

	_, err = e.Complete(ctx, leader, sl.ID, KindSong, "B")
	require.NoError(t, err)
	snapshot, err := store.Get(ctx, sl.ID)
	require.NoError(t, err)

	// a stale client still thinks B sits at index 1
	_, err = e.Reorder(ctx, leader, sl.ID, ReorderRequest{UnitID: "B", From: 1, To: 0})
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := store.Get(ctx, sl.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Version, after.Version)
	assert.Equal(t, []string{"A", "C"}, unitIDs(Compose(after)))
}

func TestEngine_ConcurrentMutationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t)
	sl, err := e.Create(ctx, leader, "Set", nil)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.AddSong(ctx, leader, sl.ID, NewSong{SongID: fmt.Sprintf("S%02d", i), Title: "t"})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := store.Get(ctx, sl.ID)
	require.NoError(t, err)
	assert.Len(t, got.Songs, n)
	assert.NoError(t, CheckOrder(got))
	assert.Equal(t, int64(n), got.Version)
}

func TestEngine_DoubleCompletion(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	sl, err := e.Create(ctx, leader, "Set", nil)
	require.NoError(t, err)
	_, err = e.AddSong(ctx, leader, sl.ID, NewSong{SongID: "A", Title: "A"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Complete(ctx, leader, sl.ID, KindSong, "A")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, notFound int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			notFound++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notFound)
}

func TestEngine_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	e := NewEngine(store, nil, logger.Nop(), WithClock(func() time.Time { return fixedNow }))

	sl := songQueue("A", "B", "C")
	sl.Version = 7
	store.On("Get", mock.Anything, "sl-1").Return(sl, nil)
	store.On("Put", mock.Anything, "sl-1", int64(7), mock.AnythingOfType("Patch")).
		Return(int64(0), conflict("setlist was modified concurrently")).Once()
	store.On("Put", mock.Anything, "sl-1", int64(7), mock.AnythingOfType("Patch")).
		Return(int64(8), nil).Once()

	got, err := e.Reorder(ctx, leader, "sl-1", ReorderRequest{UnitID: "C", From: 2, To: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Version)
	assert.Equal(t, fixedNow, got.UpdatedAt)
	assert.Equal(t, []string{"C", "A", "B"}, unitIDs(Compose(got)))
	store.AssertNumberOfCalls(t, "Get", 2)
	store.AssertNumberOfCalls(t, "Put", 2)
}

func TestEngine_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	e := NewEngine(store, nil, logger.Nop(), WithMaxWriteRetries(2))

	store.On("Get", mock.Anything, "sl-1").Return(songQueue("A", "B"), nil)
	store.On("Put", mock.Anything, "sl-1", int64(0), mock.Anything).
		Return(int64(0), conflict("setlist was modified concurrently"))

	_, err := e.Complete(ctx, leader, "sl-1", KindSong, "A")
	assert.ErrorIs(t, err, ErrConflict)
	store.AssertNumberOfCalls(t, "Put", 3)
}

func TestEngine_PatchCarriesOnlyChangedFields(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	e := NewEngine(store, nil, logger.Nop())

	sl := mixedQueue()
	store.On("Get", mock.Anything, "sl-1").Return(sl, nil)
	store.On("Put", mock.Anything, "sl-1", int64(0), mock.MatchedBy(func(p Patch) bool {
		return p.FlexibleCards != nil && p.Songs == nil && p.RequestSongCards == nil &&
			p.CompletedFlexibleCards == nil && p.Status == nil
	})).Return(int64(1), nil)

	_, err := e.AddSlotMember(ctx, alice, "sl-1", "F", 1, "bob")
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestEngine_NoOpSkipsWrite(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	e := NewEngine(store, nil, logger.Nop())

	store.On("Get", mock.Anything, "sl-1").Return(songQueue("A", "B"), nil)

	_, err := e.Reorder(ctx, leader, "sl-1", ReorderRequest{UnitID: "A", To: 0})
	require.NoError(t, err)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_StoreFailureIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	e := NewEngine(store, nil, logger.Nop())

	store.On("Get", mock.Anything, "sl-1").Return(nil, errors.New("connection reset"))
	_, err := e.Place(ctx, leader, "sl-1", KindSong, "A")
	assert.ErrorIs(t, err, ErrPersistence)

	store.On("List", mock.Anything).Return(nil, errors.New("timeout"))
	_, err = e.List(ctx)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestEngine_SetListLifecycle(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.Create(ctx, alice, "Nope", nil)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.Create(ctx, leader, "   ", nil)
	assert.ErrorIs(t, err, ErrValidation)

	a, err := e.Create(ctx, leader, "A", nil)
	require.NoError(t, err)
	b, err := e.Create(ctx, leader, "B", nil)
	require.NoError(t, err)

	_, err = e.Activate(ctx, leader, a.ID)
	require.NoError(t, err)
	activeB, err := e.Activate(ctx, leader, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, activeB.Status)

	gotA, err := e.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, gotA.Status)

	assert.ErrorIs(t, e.Delete(ctx, leader, b.ID), ErrValidation)
	assert.ErrorIs(t, e.Delete(ctx, alice, a.ID), ErrForbidden)
	require.NoError(t, e.Delete(ctx, leader, a.ID))
	_, err = e.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	finished, err := e.Finish(ctx, leader, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, finished.Status)
	_, err = e.AddSong(ctx, leader, b.ID, NewSong{SongID: "late", Title: "late"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.Activate(ctx, leader, b.ID)
	assert.ErrorIs(t, err, ErrValidation)

	list, err := e.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEngine_Subscribe(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	sl, err := e.Create(ctx, leader, "Set", nil)
	require.NoError(t, err)

	views := make(chan *View, 4)
	unsubscribe, err := e.Subscribe(ctx, sl.ID, func(v *View) { views <- v })
	require.NoError(t, err)

	_, err = e.AddSong(ctx, leader, sl.ID, NewSong{SongID: "A", Title: "A"})
	require.NoError(t, err)

	select {
	case v := <-views:
		require.Len(t, v.Queue, 1)
		assert.Equal(t, KindSong, v.Queue[0].Kind)
		assert.Equal(t, "A", v.Queue[0].Unit.UnitID())
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	unsubscribe()
	_, err = e.AddSong(ctx, leader, sl.ID, NewSong{SongID: "B", Title: "B"})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := keyedMutex{locks: make(map[string]*refLock)}
	unlock := k.Lock("a")
	unlock2Done := make(chan struct{})
	go func() {
		u := k.Lock("a")
		u()
		close(unlock2Done)
	}()
	unlock()
	<-unlock2Done
	assert.Empty(t, k.locks)
}
