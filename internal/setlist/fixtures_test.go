package setlist

import (
	"fmt"
	"time"
)

var (
	leader = Actor{Nickname: "lead", Role: RoleLeader}
	alice  = Actor{Nickname: "alice", Role: RoleMember}
	bob    = Actor{Nickname: "bob", Role: RoleMember}
)

var fixedNow = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

// songQueue builds a setlist whose queue is the given song ids in order.
func songQueue(ids ...string) *SetList {
	sl := &SetList{
		ID:                        "sl-1",
		Name:                      "Friday",
		Status:                    StatusDraft,
		Participants:              []string{},
		Songs:                     []SongUnit{},
		FlexibleCards:             []FlexibleCard{},
		RequestSongCards:          []RequestCard{},
		CompletedSongs:            []CompletedSong{},
		CompletedFlexibleCards:    []CompletedFlexibleCard{},
		CompletedRequestSongCards: []CompletedRequestCard{},
	}
	for i, id := range ids {
		sl.Songs = append(sl.Songs, SongUnit{SongID: id, Title: "Song " + id, Members: []string{}, Order: i})
	}
	return sl
}

// mixedQueue is song A, flexible card F (owned by alice), request card R and
// song B, placed in that order, plus a pooled card P.
func mixedQueue() *SetList {
	sl := songQueue()
	sl.Songs = []SongUnit{
		{SongID: "A", Title: "Song A", Members: []string{"alice"}, Order: 0},
		{SongID: "B", Title: "Song B", Members: []string{"bob"}, Order: 3},
	}
	sl.FlexibleCards = []FlexibleCard{
		{ID: "P", OwnerNickname: "bob", TotalSlots: 1, Order: -1,
			Slots: []FlexibleSlot{{ID: "p0", Kind: SlotEmpty, Members: []string{}}}},
		{ID: "F", OwnerNickname: "alice", TotalSlots: 2, Order: 1,
			Slots: []FlexibleSlot{
				{ID: "f0", Kind: SlotSolo, Members: []string{"alice"}},
				{ID: "f1", Kind: SlotEmpty, Members: []string{}},
			}},
	}
	sl.RequestSongCards = []RequestCard{{ID: "R", Songs: []RequestSong{}, Order: 2}}
	return sl
}

func unitIDs(units []Unit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.UnitID())
	}
	return out
}

func unitOrders(units []Unit) []int {
	out := make([]int, 0, len(units))
	for _, u := range units {
		out = append(out, u.Position())
	}
	return out
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
