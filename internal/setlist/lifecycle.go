package setlist

import (
	"strings"
	"time"
)

const maxSlotsPerCard = 12

func checkMutable(sl *SetList) error {
	if sl.Status == StatusCompleted {
		return validationError("setlist %q is completed", sl.ID)
	}
	return nil
}

// findUnit locates an active (pooled or placed) unit and its index within
// its own array.
func findUnit(sl *SetList, kind Kind, id string) (Unit, int, error) {
	switch kind {
	case KindSong:
		for i, s := range sl.Songs {
			if s.SongID == id {
				return s, i, nil
			}
		}
	case KindFlexible:
		for i, c := range sl.FlexibleCards {
			if c.ID == id {
				return c, i, nil
			}
		}
	case KindRequest:
		for i, c := range sl.RequestSongCards {
			if c.ID == id {
				return c, i, nil
			}
		}
	default:
		return nil, -1, validationError("unknown unit kind %q", kind)
	}
	return nil, -1, notFound("%s %q not found", kind, id)
}

func replaceUnit(sl *SetList, idx int, u Unit) {
	switch v := u.(type) {
	case SongUnit:
		sl.Songs[idx] = v
	case FlexibleCard:
		sl.FlexibleCards[idx] = v
	case RequestCard:
		sl.RequestSongCards[idx] = v
	}
}

func removeUnit(sl *SetList, idx int, u Unit) {
	switch u.(type) {
	case SongUnit:
		sl.Songs = append(sl.Songs[:idx:idx], sl.Songs[idx+1:]...)
	case FlexibleCard:
		sl.FlexibleCards = append(sl.FlexibleCards[:idx:idx], sl.FlexibleCards[idx+1:]...)
	case RequestCard:
		sl.RequestSongCards = append(sl.RequestSongCards[:idx:idx], sl.RequestSongCards[idx+1:]...)
	}
}

// placeUnit moves a pooled unit to the end of the queue.
func placeUnit(sl *SetList, actor Actor, kind Kind, id string) ([]Field, error) {
	if err := checkMutable(sl); err != nil {
		return nil, err
	}
	u, idx, err := findUnit(sl, kind, id)
	if err != nil {
		return nil, err
	}
	if !canActOn(actor, u) {
		return nil, forbidden("%s may not place %s %q", actor.Nickname, kind, id)
	}
	if placed(u) {
		return nil, validationError("%s %q is already placed", kind, id)
	}
	replaceUnit(sl, idx, withOrder(u, placedCount(sl)))
	return []Field{fieldFor(kind)}, nil
}

// completeUnit archives a placed unit and closes the gap it leaves.
func completeUnit(sl *SetList, actor Actor, kind Kind, id string, now time.Time) ([]Field, error) {
	if err := checkMutable(sl); err != nil {
		return nil, err
	}
	u, idx, err := findUnit(sl, kind, id)
	if err != nil {
		return nil, err
	}
	if !canActOn(actor, u) {
		return nil, forbidden("%s may not complete %s %q", actor.Nickname, kind, id)
	}
	if !placed(u) {
		return nil, validationError("%s %q is not placed", kind, id)
	}

	var archived Field
	switch v := u.(type) {
	case SongUnit:
		sl.CompletedSongs = append(sl.CompletedSongs, CompletedSong{SongUnit: v, CompletedAt: now})
		archived = FieldCompletedSongs
	case FlexibleCard:
		sl.CompletedFlexibleCards = append(sl.CompletedFlexibleCards, archiveFlexibleCard(v, now))
		archived = FieldCompletedFlexibleCards
	case RequestCard:
		sl.CompletedRequestSongCards = append(sl.CompletedRequestSongCards, CompletedRequestCard{RequestCard: v, CompletedAt: now})
		archived = FieldCompletedRequestSongCards
	}
	removeUnit(sl, idx, u)
	renumber(sl)
	return append([]Field{archived}, queueFields...), nil
}

func archiveFlexibleCard(c FlexibleCard, now time.Time) CompletedFlexibleCard {
	return CompletedFlexibleCard{
		FlexibleCard:        c,
		CompletedAt:         now,
		AllParticipants:     allParticipants(c.Slots),
		TotalSlotsCompleted: len(c.Slots),
	}
}

// deleteUnit drops a pooled or placed unit without archiving it.
func deleteUnit(sl *SetList, actor Actor, kind Kind, id string) ([]Field, error) {
	if err := checkMutable(sl); err != nil {
		return nil, err
	}
	u, idx, err := findUnit(sl, kind, id)
	if err != nil {
		return nil, err
	}
	if !canActOn(actor, u) {
		return nil, forbidden("%s may not delete %s %q", actor.Nickname, kind, id)
	}
	removeUnit(sl, idx, u)
	renumber(sl)
	return queueFields, nil
}

func fieldFor(kind Kind) Field {
	switch kind {
	case KindSong:
		return FieldSongs
	case KindFlexible:
		return FieldFlexibleCards
	default:
		return FieldRequestSongCards
	}
}

// NewSong is the input for adding a fixed song.
type NewSong struct {
	SongID  string   `json:"songId"`
	Title   string   `json:"title"`
	Artist  string   `json:"artist"`
	Members []string `json:"members"`
}

// addSong places a new song at the end of the queue.
func addSong(sl *SetList, actor Actor, in NewSong) (SongUnit, []Field, error) {
	if err := checkMutable(sl); err != nil {
		return SongUnit{}, nil, err
	}
	if err := requireElevated(actor, "adding a song"); err != nil {
		return SongUnit{}, nil, err
	}
	in.SongID = strings.TrimSpace(in.SongID)
	in.Title = strings.TrimSpace(in.Title)
	if in.SongID == "" {
		return SongUnit{}, nil, validationError("songId is required")
	}
	if in.Title == "" || len(in.Title) > 300 {
		return SongUnit{}, nil, validationError("title must be between 1 and 300 characters")
	}
	if _, _, err := findUnit(sl, KindSong, in.SongID); err == nil {
		return SongUnit{}, nil, validationError("song %q is already in the setlist", in.SongID)
	}
	for _, c := range sl.CompletedSongs {
		if c.SongID == in.SongID {
			return SongUnit{}, nil, validationError("song %q was already performed", in.SongID)
		}
	}
	song := SongUnit{
		SongID:  in.SongID,
		Title:   in.Title,
		Artist:  strings.TrimSpace(in.Artist),
		Members: normalizeMembers(in.Members),
		Order:   placedCount(sl),
	}
	sl.Songs = append(sl.Songs, song)
	return song, []Field{FieldSongs}, nil
}

// addFlexibleCard creates a pooled card with totalSlots empty slots.
// Standard actors can only create cards for themselves.
func addFlexibleCard(sl *SetList, actor Actor, owner string, totalSlots int, newID func() string) (FlexibleCard, []Field, error) {
	if err := checkMutable(sl); err != nil {
		return FlexibleCard{}, nil, err
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = actor.Nickname
	}
	if owner == "" {
		return FlexibleCard{}, nil, validationError("ownerNickname is required")
	}
	if owner != actor.Nickname && !actor.Elevated() {
		return FlexibleCard{}, nil, forbidden("%s may not create a card for %s", actor.Nickname, owner)
	}
	if totalSlots < 1 || totalSlots > maxSlotsPerCard {
		return FlexibleCard{}, nil, validationError("totalSlots must be between 1 and %d", maxSlotsPerCard)
	}
	card := FlexibleCard{
		ID:            newID(),
		OwnerNickname: owner,
		TotalSlots:    totalSlots,
		Slots:         make([]FlexibleSlot, totalSlots),
		Order:         -1,
	}
	for i := range card.Slots {
		card.Slots[i] = FlexibleSlot{ID: newID(), Kind: SlotEmpty, Members: []string{}}
	}
	sl.FlexibleCards = append(sl.FlexibleCards, card)
	return card, []Field{FieldFlexibleCards}, nil
}

func addRequestCard(sl *SetList, actor Actor, newID func() string) (RequestCard, []Field, error) {
	if err := checkMutable(sl); err != nil {
		return RequestCard{}, nil, err
	}
	if err := requireElevated(actor, "creating a request card"); err != nil {
		return RequestCard{}, nil, err
	}
	card := RequestCard{ID: newID(), Songs: []RequestSong{}, Order: -1}
	sl.RequestSongCards = append(sl.RequestSongCards, card)
	return card, []Field{FieldRequestSongCards}, nil
}

// addRequestSong lets any actor request a song on an active request card.
func addRequestSong(sl *SetList, actor Actor, cardID, title string, newID func() string) (RequestSong, []Field, error) {
	if err := checkMutable(sl); err != nil {
		return RequestSong{}, nil, err
	}
	if actor.Nickname == "" {
		return RequestSong{}, nil, forbidden("anonymous actors may not request songs")
	}
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 300 {
		return RequestSong{}, nil, validationError("title must be between 1 and 300 characters")
	}
	_, idx, err := findUnit(sl, KindRequest, cardID)
	if err != nil {
		return RequestSong{}, nil, err
	}
	rs := RequestSong{ID: newID(), Title: title, RequestedBy: actor.Nickname}
	card := sl.RequestSongCards[idx]
	card.Songs = append(append([]RequestSong{}, card.Songs...), rs)
	sl.RequestSongCards[idx] = card
	return rs, []Field{FieldRequestSongCards}, nil
}

func removeRequestSong(sl *SetList, actor Actor, cardID, songID string) ([]Field, error) {
	if err := checkMutable(sl); err != nil {
		return nil, err
	}
	_, idx, err := findUnit(sl, KindRequest, cardID)
	if err != nil {
		return nil, err
	}
	card := sl.RequestSongCards[idx]
	for i, rs := range card.Songs {
		if rs.ID != songID {
			continue
		}
		if !actor.Elevated() && rs.RequestedBy != actor.Nickname {
			return nil, forbidden("%s may not remove a song requested by %s", actor.Nickname, rs.RequestedBy)
		}
		card.Songs = append(card.Songs[:i:i], card.Songs[i+1:]...)
		sl.RequestSongCards[idx] = card
		return []Field{FieldRequestSongCards}, nil
	}
	return nil, notFound("request song %q not found", songID)
}

// addParticipant appends a nickname; adding a known one changes nothing.
func addParticipant(sl *SetList, actor Actor, nickname string) ([]Field, error) {
	if err := checkMutable(sl); err != nil {
		return nil, err
	}
	if err := requireElevated(actor, "managing participants"); err != nil {
		return nil, err
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" || len(nickname) > 64 {
		return nil, validationError("nickname must be between 1 and 64 characters")
	}
	if sl.hasParticipant(nickname) {
		return nil, nil
	}
	sl.Participants = append(sl.Participants, nickname)
	return []Field{FieldParticipants}, nil
}

func removeParticipant(sl *SetList, actor Actor, nickname string) ([]Field, error) {
	if err := checkMutable(sl); err != nil {
		return nil, err
	}
	if err := requireElevated(actor, "managing participants"); err != nil {
		return nil, err
	}
	for i, p := range sl.Participants {
		if p == nickname {
			sl.Participants = append(sl.Participants[:i:i], sl.Participants[i+1:]...)
			return []Field{FieldParticipants}, nil
		}
	}
	return nil, nil
}

// finishSetList closes the whole setlist. It is terminal.
func finishSetList(sl *SetList, actor Actor) ([]Field, error) {
	if err := requireElevated(actor, "finishing a setlist"); err != nil {
		return nil, err
	}
	if sl.Status == StatusCompleted {
		return nil, nil
	}
	sl.Status = StatusCompleted
	return []Field{FieldStatus}, nil
}
