package setlist

import (
	"slices"
)

// Compose merges the placed units of all three kinds into one sequence
// ordered by Order. Pooled units are left out.
func Compose(sl *SetList) []Unit {
	units := make([]Unit, 0, len(sl.Songs)+len(sl.FlexibleCards)+len(sl.RequestSongCards))
	for _, s := range sl.Songs {
		if s.Order >= 0 {
			units = append(units, s)
		}
	}
	for _, c := range sl.FlexibleCards {
		if c.Order >= 0 {
			units = append(units, c)
		}
	}
	for _, c := range sl.RequestSongCards {
		if c.Order >= 0 {
			units = append(units, c)
		}
	}
	slices.SortStableFunc(units, func(a, b Unit) int {
		return a.Position() - b.Position()
	})
	return units
}

// Decompose assigns order = index to every unit of ordered and groups them
// back by kind. Pooled units from current that are not part of ordered are
// kept in front of each array, untouched.
func Decompose(ordered []Unit, current Arrays) Arrays {
	inSeq := make(map[Kind]map[string]struct{}, 3)
	for _, u := range ordered {
		if inSeq[u.Kind()] == nil {
			inSeq[u.Kind()] = make(map[string]struct{})
		}
		inSeq[u.Kind()][u.UnitID()] = struct{}{}
	}
	excluded := func(k Kind, id string, order int) bool {
		if order >= 0 {
			return false
		}
		_, ok := inSeq[k][id]
		return !ok
	}

	out := Arrays{
		Songs:            []SongUnit{},
		FlexibleCards:    []FlexibleCard{},
		RequestSongCards: []RequestCard{},
	}
	for _, s := range current.Songs {
		if excluded(KindSong, s.SongID, s.Order) {
			out.Songs = append(out.Songs, s)
		}
	}
	for _, c := range current.FlexibleCards {
		if excluded(KindFlexible, c.ID, c.Order) {
			out.FlexibleCards = append(out.FlexibleCards, c)
		}
	}
	for _, c := range current.RequestSongCards {
		if excluded(KindRequest, c.ID, c.Order) {
			out.RequestSongCards = append(out.RequestSongCards, c)
		}
	}

	for i, u := range ordered {
		switch v := withOrder(u, i).(type) {
		case SongUnit:
			out.Songs = append(out.Songs, v)
		case FlexibleCard:
			out.FlexibleCards = append(out.FlexibleCards, v)
		case RequestCard:
			out.RequestSongCards = append(out.RequestSongCards, v)
		}
	}
	return out
}

// renumber closes any gap left in the placed orders of sl.
func renumber(sl *SetList) {
	sl.setArrays(Decompose(Compose(sl), sl.arrays()))
}

func placedCount(sl *SetList) int {
	n := 0
	for _, s := range sl.Songs {
		if s.Order >= 0 {
			n++
		}
	}
	for _, c := range sl.FlexibleCards {
		if c.Order >= 0 {
			n++
		}
	}
	for _, c := range sl.RequestSongCards {
		if c.Order >= 0 {
			n++
		}
	}
	return n
}

// CheckOrder verifies that the placed orders of sl are exactly 0..N-1 and
// that no unit id is used twice within a kind.
func CheckOrder(sl *SetList) error {
	units := Compose(sl)
	for i, u := range units {
		if u.Position() != i {
			return validationError("placed order is not contiguous: %s %q has order %d at index %d",
				u.Kind(), u.UnitID(), u.Position(), i)
		}
	}
	seen := make(map[Kind]map[string]struct{}, 3)
	check := func(k Kind, id string) error {
		if seen[k] == nil {
			seen[k] = make(map[string]struct{})
		}
		if _, dup := seen[k][id]; dup {
			return validationError("duplicate %s id %q", k, id)
		}
		seen[k][id] = struct{}{}
		return nil
	}
	for _, s := range sl.Songs {
		if err := check(KindSong, s.SongID); err != nil {
			return err
		}
	}
	for _, c := range sl.FlexibleCards {
		if err := check(KindFlexible, c.ID); err != nil {
			return err
		}
	}
	for _, c := range sl.RequestSongCards {
		if err := check(KindRequest, c.ID); err != nil {
			return err
		}
	}
	return nil
}
