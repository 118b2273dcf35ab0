package setlist

import (
	"encoding/json"
	"strings"
)

// Kind tags a performance unit.
type Kind string

const (
	KindSong     Kind = "song"
	KindFlexible Kind = "flexible"
	KindRequest  Kind = "request"
)

// ParseKind accepts the kind names used in URLs.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSong:
		return KindSong, nil
	case KindFlexible:
		return KindFlexible, nil
	case KindRequest:
		return KindRequest, nil
	}
	return "", validationError("unknown unit kind %q", s)
}

// Unit is one placeable entry of the queue. The set of implementations is
// closed: SongUnit, FlexibleCard and RequestCard.
type Unit interface {
	Kind() Kind
	UnitID() string
	Position() int
	sealed()
}

func (SongUnit) Kind() Kind       { return KindSong }
func (u SongUnit) UnitID() string { return u.SongID }
func (u SongUnit) Position() int  { return u.Order }
func (SongUnit) sealed()          {}

func (FlexibleCard) Kind() Kind       { return KindFlexible }
func (c FlexibleCard) UnitID() string { return c.ID }
func (c FlexibleCard) Position() int  { return c.Order }
func (FlexibleCard) sealed()          {}

func (RequestCard) Kind() Kind       { return KindRequest }
func (c RequestCard) UnitID() string { return c.ID }
func (c RequestCard) Position() int  { return c.Order }
func (RequestCard) sealed()          {}

func IsSong(u Unit) bool {
	_, ok := u.(SongUnit)
	return ok
}

func IsFlexibleCard(u Unit) bool {
	_, ok := u.(FlexibleCard)
	return ok
}

func IsRequestCard(u Unit) bool {
	_, ok := u.(RequestCard)
	return ok
}

func placed(u Unit) bool { return u.Position() >= 0 }

// withOrder returns a copy of u with its order replaced.
func withOrder(u Unit, order int) Unit {
	switch v := u.(type) {
	case SongUnit:
		v.Order = order
		return v
	case FlexibleCard:
		v.Order = order
		return v
	case RequestCard:
		v.Order = order
		return v
	}
	panic("setlist: unknown unit type")
}

// Sanitize removes nil values from a decoded JSON document, recursively.
// Empty arrays and objects are kept: an empty member list is meaningful.
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if val == nil {
				continue
			}
			out = append(out, Sanitize(val))
		}
		return out
	default:
		return v
	}
}

// sanitizeDocument encodes v the way the store persists it: JSON with absent
// fields stripped.
func sanitizeDocument(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(Sanitize(doc))
}

// normalizeMembers trims, drops blanks and dedupes while keeping first-seen
// order. The result is never nil.
func normalizeMembers(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, m := range in {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func sanitizeSlot(s FlexibleSlot) FlexibleSlot {
	s.Members = normalizeMembers(s.Members)
	if s.Title != nil {
		t := strings.TrimSpace(*s.Title)
		if t == "" {
			s.Title = nil
		} else {
			s.Title = &t
		}
	}
	if s.SongRef != nil && strings.TrimSpace(*s.SongRef) == "" {
		s.SongRef = nil
	}
	return s
}

// allParticipants flattens slot members into a deduplicated list.
func allParticipants(slots []FlexibleSlot) []string {
	var flat []string
	for _, s := range slots {
		flat = append(flat, s.Members...)
	}
	return normalizeMembers(flat)
}
