package setlist

import (
	"time"
)

// Status is the lifecycle state of a whole SetList.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// SetList is the aggregate root. Everything a performance night needs lives
// in this one document; units have no lifecycle outside of it.
type SetList struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Participants []string  `json:"participants"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Status       Status    `json:"status"`
	Version      int64     `json:"version"`

	Songs            []SongUnit     `json:"songs"`
	FlexibleCards    []FlexibleCard `json:"flexibleCards"`
	RequestSongCards []RequestCard  `json:"requestSongCards"`

	CompletedSongs            []CompletedSong         `json:"completedSongs"`
	CompletedFlexibleCards    []CompletedFlexibleCard `json:"completedFlexibleCards"`
	CompletedRequestSongCards []CompletedRequestCard  `json:"completedRequestSongCards"`
}

// SongUnit is a fixed song with a known line-up.
type SongUnit struct {
	SongID  string   `json:"songId"`
	Title   string   `json:"title"`
	Artist  string   `json:"artist,omitempty"`
	Members []string `json:"members"`
	Order   int      `json:"order"`
}

// FlexibleCard is a multi-slot card owned by one participant. Its slot count
// is fixed at creation.
type FlexibleCard struct {
	ID            string         `json:"id"`
	OwnerNickname string         `json:"ownerNickname"`
	TotalSlots    int            `json:"totalSlots"`
	Slots         []FlexibleSlot `json:"slots"`
	Order         int            `json:"order"`
}

// SlotKind describes how a flexible slot is going to be performed.
type SlotKind string

const (
	SlotSolo   SlotKind = "solo"
	SlotDuet   SlotKind = "duet"
	SlotChorus SlotKind = "chorus"
	SlotEmpty  SlotKind = "empty"
)

func (k SlotKind) valid() bool {
	switch k {
	case SlotSolo, SlotDuet, SlotChorus, SlotEmpty:
		return true
	}
	return false
}

type FlexibleSlot struct {
	ID          string   `json:"id"`
	Kind        SlotKind `json:"kind"`
	SongRef     *string  `json:"songRef,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Members     []string `json:"members"`
	IsCompleted bool     `json:"isCompleted"`
}

// RequestCard collects songs requested by the audience.
type RequestCard struct {
	ID    string        `json:"id"`
	Songs []RequestSong `json:"songs"`
	Order int           `json:"order"`
}

type RequestSong struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	RequestedBy string `json:"requestedBy"`
}

type CompletedSong struct {
	SongUnit
	CompletedAt time.Time `json:"completedAt"`
}

// CompletedFlexibleCard carries the participants derived from its slots at
// archive time. AllParticipants must always match allParticipants(Slots).
type CompletedFlexibleCard struct {
	FlexibleCard
	CompletedAt         time.Time `json:"completedAt"`
	AllParticipants     []string  `json:"allParticipants"`
	TotalSlotsCompleted int       `json:"totalSlotsCompleted"`
}

type CompletedRequestCard struct {
	RequestCard
	CompletedAt time.Time `json:"completedAt"`
}

// Arrays is the per-kind view of the active queue, as produced by Decompose.
type Arrays struct {
	Songs            []SongUnit
	FlexibleCards    []FlexibleCard
	RequestSongCards []RequestCard
}

func (sl *SetList) arrays() Arrays {
	return Arrays{
		Songs:            sl.Songs,
		FlexibleCards:    sl.FlexibleCards,
		RequestSongCards: sl.RequestSongCards,
	}
}

func (sl *SetList) setArrays(a Arrays) {
	sl.Songs = a.Songs
	sl.FlexibleCards = a.FlexibleCards
	sl.RequestSongCards = a.RequestSongCards
}

func (sl *SetList) hasParticipant(nickname string) bool {
	for _, p := range sl.Participants {
		if p == nickname {
			return true
		}
	}
	return false
}

// Field names one top-level field of the aggregate document.
type Field string

const (
	FieldSongs                     Field = "songs"
	FieldFlexibleCards             Field = "flexibleCards"
	FieldRequestSongCards          Field = "requestSongCards"
	FieldCompletedSongs            Field = "completedSongs"
	FieldCompletedFlexibleCards    Field = "completedFlexibleCards"
	FieldCompletedRequestSongCards Field = "completedRequestSongCards"
	FieldParticipants              Field = "participants"
	FieldStatus                    Field = "status"
)

var queueFields = []Field{FieldSongs, FieldFlexibleCards, FieldRequestSongCards}

// Patch is a partial field set written in one aggregate update. Nil fields
// are left untouched; non-nil fields replace the stored value in full.
type Patch struct {
	Songs                     *[]SongUnit
	FlexibleCards             *[]FlexibleCard
	RequestSongCards          *[]RequestCard
	CompletedSongs            *[]CompletedSong
	CompletedFlexibleCards    *[]CompletedFlexibleCard
	CompletedRequestSongCards *[]CompletedRequestCard
	Participants              *[]string
	Status                    *Status
	UpdatedAt                 time.Time
}

func (p Patch) empty() bool {
	return p.Songs == nil && p.FlexibleCards == nil && p.RequestSongCards == nil &&
		p.CompletedSongs == nil && p.CompletedFlexibleCards == nil && p.CompletedRequestSongCards == nil &&
		p.Participants == nil && p.Status == nil
}

// patchOf snapshots the named fields of sl into a Patch.
func patchOf(sl *SetList, fields ...Field) Patch {
	var p Patch
	for _, f := range fields {
		switch f {
		case FieldSongs:
			v := nonNil(sl.Songs)
			p.Songs = &v
		case FieldFlexibleCards:
			v := nonNil(sl.FlexibleCards)
			p.FlexibleCards = &v
		case FieldRequestSongCards:
			v := nonNil(sl.RequestSongCards)
			p.RequestSongCards = &v
		case FieldCompletedSongs:
			v := nonNil(sl.CompletedSongs)
			p.CompletedSongs = &v
		case FieldCompletedFlexibleCards:
			v := nonNil(sl.CompletedFlexibleCards)
			p.CompletedFlexibleCards = &v
		case FieldCompletedRequestSongCards:
			v := nonNil(sl.CompletedRequestSongCards)
			p.CompletedRequestSongCards = &v
		case FieldParticipants:
			v := nonNil(sl.Participants)
			p.Participants = &v
		case FieldStatus:
			v := sl.Status
			p.Status = &v
		}
	}
	return p
}

// apply writes the patch onto sl. Stores use it to keep their copy in sync.
func (p Patch) apply(sl *SetList) {
	if p.Songs != nil {
		sl.Songs = *p.Songs
	}
	if p.FlexibleCards != nil {
		sl.FlexibleCards = *p.FlexibleCards
	}
	if p.RequestSongCards != nil {
		sl.RequestSongCards = *p.RequestSongCards
	}
	if p.CompletedSongs != nil {
		sl.CompletedSongs = *p.CompletedSongs
	}
	if p.CompletedFlexibleCards != nil {
		sl.CompletedFlexibleCards = *p.CompletedFlexibleCards
	}
	if p.CompletedRequestSongCards != nil {
		sl.CompletedRequestSongCards = *p.CompletedRequestSongCards
	}
	if p.Participants != nil {
		sl.Participants = *p.Participants
	}
	if p.Status != nil {
		sl.Status = *p.Status
	}
	if !p.UpdatedAt.IsZero() {
		sl.UpdatedAt = p.UpdatedAt
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
