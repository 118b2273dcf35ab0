package setlist

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ParticipantStat is one row of the participant ranking.
type ParticipantStat struct {
	Nickname        string  `json:"nickname"`
	AppearanceCount int     `json:"appearanceCount"`
	CompletedCount  int     `json:"completedCount"`
	CompletionRate  float64 `json:"completionRate"`
	IsGuest         bool    `json:"isGuest"`
}

// Roster tells registered profiles apart from guests. A nil Roster treats
// everybody as registered.
type Roster interface {
	IsRegistered(nickname string) bool
}

// RosterSet is a Roster backed by a set of nicknames.
type RosterSet map[string]bool

func (r RosterSet) IsRegistered(nickname string) bool { return r[nickname] }

// Aggregate counts appearances and completions per nickname over the placed
// and completed units of sl. Pooled units are not counted. Flexible cards contribute per slot member; a
// card never counts as an appearance by itself. Request cards are not
// performances and contribute nothing.
func Aggregate(sl *SetList, roster Roster) []ParticipantStat {
	byName := make(map[string]*ParticipantStat)
	get := func(nick string) *ParticipantStat {
		st, ok := byName[nick]
		if !ok {
			st = &ParticipantStat{Nickname: nick}
			byName[nick] = st
		}
		return st
	}
	count := func(members []string, completed bool) {
		for _, m := range normalizeMembers(members) {
			st := get(m)
			st.AppearanceCount++
			if completed {
				st.CompletedCount++
			}
		}
	}

	for _, p := range sl.Participants {
		get(p)
	}
	for _, s := range sl.Songs {
		if s.Order < 0 {
			continue
		}
		count(s.Members, false)
	}
	for _, s := range sl.CompletedSongs {
		count(s.Members, true)
	}
	for _, c := range sl.FlexibleCards {
		if c.Order < 0 {
			continue
		}
		for _, slot := range c.Slots {
			count(slot.Members, slot.IsCompleted)
		}
	}
	for _, c := range sl.CompletedFlexibleCards {
		for _, slot := range c.Slots {
			count(slot.Members, true)
		}
	}

	out := make([]ParticipantStat, 0, len(byName))
	for _, st := range byName {
		if st.AppearanceCount > 0 {
			st.CompletionRate = float64(st.CompletedCount) / float64(st.AppearanceCount)
		}
		if roster != nil {
			st.IsGuest = !roster.IsRegistered(st.Nickname)
		}
		out = append(out, *st)
	}

	col := collate.New(language.Und)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedCount != out[j].CompletedCount {
			return out[i].CompletedCount > out[j].CompletedCount
		}
		if c := col.CompareString(out[i].Nickname, out[j].Nickname); c != 0 {
			return c < 0
		}
		return out[i].Nickname < out[j].Nickname
	})
	return out
}
