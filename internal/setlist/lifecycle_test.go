package setlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteUnit_Song(t *testing.T) {
	sl := songQueue("A", "B", "C")
	fields, err := completeUnit(sl, leader, KindSong, "B", fixedNow)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Field{FieldCompletedSongs, FieldSongs, FieldFlexibleCards, FieldRequestSongCards}, fields)

	assert.Equal(t, []string{"A", "C"}, unitIDs(Compose(sl)))
	assert.Equal(t, []int{0, 1}, unitOrders(Compose(sl)))
	require.Len(t, sl.CompletedSongs, 1)
	assert.Equal(t, "B", sl.CompletedSongs[0].SongID)
	assert.Equal(t, fixedNow, sl.CompletedSongs[0].CompletedAt)
}

func TestCompleteUnit_FlexibleCardArchive(t *testing.T) {
	sl := songQueue("A")
	sl.FlexibleCards = []FlexibleCard{{
		ID: "F", OwnerNickname: "x", TotalSlots: 3, Order: 1,
		Slots: []FlexibleSlot{
			{ID: "s0", Kind: SlotDuet, Members: []string{"x", "y"}},
			{ID: "s1", Kind: SlotSolo, Members: []string{"y"}},
			{ID: "s2", Kind: SlotEmpty, Members: []string{}},
		},
	}}

	_, err := completeUnit(sl, leader, KindFlexible, "F", fixedNow)
	require.NoError(t, err)
	assert.Empty(t, sl.FlexibleCards)
	require.Len(t, sl.CompletedFlexibleCards, 1)
	done := sl.CompletedFlexibleCards[0]
	assert.ElementsMatch(t, []string{"x", "y"}, done.AllParticipants)
	assert.Equal(t, 3, done.TotalSlotsCompleted)
	assert.Equal(t, allParticipants(done.Slots), done.AllParticipants)
}

func TestCompleteUnit_RequestCard(t *testing.T) {
	sl := mixedQueue()
	_, err := completeUnit(sl, leader, KindRequest, "R", fixedNow)
	require.NoError(t, err)
	require.Len(t, sl.CompletedRequestSongCards, 1)
	assert.Equal(t, []string{"A", "F", "B"}, unitIDs(Compose(sl)))
	assert.NoError(t, CheckOrder(sl))
}

func TestCompleteUnit_Rejections(t *testing.T) {
	t.Run("pooled unit", func(t *testing.T) {
		_, err := completeUnit(mixedQueue(), leader, KindFlexible, "P", fixedNow)
		assert.ErrorIs(t, err, ErrValidation)
	})
	t.Run("missing unit", func(t *testing.T) {
		_, err := completeUnit(mixedQueue(), leader, KindSong, "nope", fixedNow)
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("member completing a song", func(t *testing.T) {
		_, err := completeUnit(mixedQueue(), alice, KindSong, "A", fixedNow)
		assert.ErrorIs(t, err, ErrForbidden)
	})
	t.Run("owner completing own card", func(t *testing.T) {
		sl := mixedQueue()
		_, err := completeUnit(sl, alice, KindFlexible, "F", fixedNow)
		require.NoError(t, err)
		assert.Len(t, sl.CompletedFlexibleCards, 1)
	})
	t.Run("completed setlist", func(t *testing.T) {
		sl := mixedQueue()
		sl.Status = StatusCompleted
		_, err := completeUnit(sl, leader, KindSong, "A", fixedNow)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestPlaceUnit(t *testing.T) {
	sl := mixedQueue()
	_, err := placeUnit(sl, bob, KindFlexible, "P")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "F", "R", "B", "P"}, unitIDs(Compose(sl)))
	assert.NoError(t, CheckOrder(sl))

	_, err = placeUnit(sl, bob, KindFlexible, "P")
	assert.ErrorIs(t, err, ErrValidation, "already placed")

	_, err = placeUnit(mixedQueue(), alice, KindFlexible, "P")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteUnit(t *testing.T) {
	sl := mixedQueue()
	fields, err := deleteUnit(sl, leader, KindFlexible, "F")
	require.NoError(t, err)
	assert.Equal(t, queueFields, fields)
	assert.Equal(t, []string{"A", "R", "B"}, unitIDs(Compose(sl)))
	assert.Equal(t, []int{0, 1, 2}, unitOrders(Compose(sl)))
	assert.Empty(t, sl.CompletedFlexibleCards, "delete does not archive")

	_, err = deleteUnit(sl, leader, KindFlexible, "P")
	require.NoError(t, err)
	assert.Empty(t, sl.FlexibleCards)
}

func TestAddSong(t *testing.T) {
	sl := mixedQueue()
	song, _, err := addSong(sl, leader, NewSong{SongID: " S9 ", Title: " Creep ", Members: []string{"bob", "bob"}})
	require.NoError(t, err)
	assert.Equal(t, "S9", song.SongID)
	assert.Equal(t, 4, song.Order)
	assert.Equal(t, []string{"bob"}, song.Members)
	assert.NoError(t, CheckOrder(sl))

	_, _, err = addSong(sl, leader, NewSong{SongID: "S9", Title: "Again"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = addSong(sl, leader, NewSong{SongID: "S10"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = addSong(sl, alice, NewSong{SongID: "S11", Title: "t"})
	assert.ErrorIs(t, err, ErrForbidden)

	sl.CompletedSongs = append(sl.CompletedSongs, CompletedSong{SongUnit: SongUnit{SongID: "OLD"}})
	_, _, err = addSong(sl, leader, NewSong{SongID: "OLD", Title: "t"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddFlexibleCard(t *testing.T) {
	ids := sequentialIDs("id")
	sl := songQueue()
	card, _, err := addFlexibleCard(sl, alice, "", 3, ids)
	require.NoError(t, err)
	assert.Equal(t, "alice", card.OwnerNickname)
	assert.Equal(t, -1, card.Order)
	require.Len(t, card.Slots, 3)
	assert.Equal(t, "id-2", card.Slots[0].ID)
	assert.Equal(t, SlotEmpty, card.Slots[2].Kind)

	_, _, err = addFlexibleCard(sl, alice, "bob", 1, ids)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = addFlexibleCard(sl, leader, "bob", 13, ids)
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = addFlexibleCard(sl, leader, "bob", 0, ids)
	assert.ErrorIs(t, err, ErrValidation)

	card, _, err = addFlexibleCard(sl, leader, "bob", 12, ids)
	require.NoError(t, err)
	assert.Equal(t, "bob", card.OwnerNickname)
}

func TestRequestSongs(t *testing.T) {
	ids := sequentialIDs("rq")
	sl := songQueue()
	card, _, err := addRequestCard(sl, leader, ids)
	require.NoError(t, err)
	assert.Equal(t, -1, card.Order)

	_, _, err = addRequestCard(sl, bob, ids)
	assert.ErrorIs(t, err, ErrForbidden)

	rs, _, err := addRequestSong(sl, bob, card.ID, "Wonderwall", ids)
	require.NoError(t, err)
	assert.Equal(t, "bob", rs.RequestedBy)
	assert.Len(t, sl.RequestSongCards[0].Songs, 1)

	_, err = removeRequestSong(sl, alice, card.ID, rs.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = removeRequestSong(sl, bob, card.ID, rs.ID)
	require.NoError(t, err)
	assert.Empty(t, sl.RequestSongCards[0].Songs)

	_, err = removeRequestSong(sl, bob, card.ID, rs.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParticipants(t *testing.T) {
	sl := songQueue()
	fields, err := addParticipant(sl, leader, " alice ")
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldParticipants}, fields)

	fields, err = addParticipant(sl, leader, "alice")
	require.NoError(t, err)
	assert.Empty(t, fields, "adding twice is a no-op")
	assert.Equal(t, []string{"alice"}, sl.Participants)

	_, err = addParticipant(sl, bob, "carol")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = removeParticipant(sl, leader, "alice")
	require.NoError(t, err)
	assert.Empty(t, sl.Participants)
}

func TestFinishSetList(t *testing.T) {
	sl := songQueue("A")
	fields, err := finishSetList(sl, leader)
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldStatus}, fields)
	assert.Equal(t, StatusCompleted, sl.Status)

	_, err = placeUnit(sl, leader, KindSong, "A")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = finishSetList(songQueue(), alice)
	assert.ErrorIs(t, err, ErrForbidden)
}
