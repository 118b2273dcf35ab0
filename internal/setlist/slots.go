package setlist

import (
	"strings"
)

// slotTarget resolves an active card and one of its slots, checking that
// actor may edit it.
func slotTarget(sl *SetList, actor Actor, cardID string, index int) (cardIdx int, err error) {
	if err := checkMutable(sl); err != nil {
		return -1, err
	}
	u, idx, err := findUnit(sl, KindFlexible, cardID)
	if err != nil {
		return -1, err
	}
	card := u.(FlexibleCard)
	if !actor.Elevated() && (actor.Nickname == "" || card.OwnerNickname != actor.Nickname) {
		return -1, forbidden("%s may not edit card %q owned by %s", actor.Nickname, cardID, card.OwnerNickname)
	}
	if index < 0 || index >= len(card.Slots) {
		return -1, validationError("slot index %d out of range [0,%d)", index, len(card.Slots))
	}
	return idx, nil
}

// editSlot runs fn on a copy of the slot and stores the result. changed is
// false when fn reports nothing to write.
func editSlot(sl *SetList, actor Actor, cardID string, index int, fn func(FlexibleSlot) (FlexibleSlot, bool, error)) ([]Field, error) {
	idx, err := slotTarget(sl, actor, cardID, index)
	if err != nil {
		return nil, err
	}
	card := sl.FlexibleCards[idx]
	cur := card.Slots[index]
	cur.Members = append([]string{}, cur.Members...)
	next, changed, err := fn(cur)
	if err != nil || !changed {
		return nil, err
	}
	slots := append([]FlexibleSlot{}, card.Slots...)
	slots[index] = next
	card.Slots = slots
	sl.FlexibleCards[idx] = card
	return []Field{FieldFlexibleCards}, nil
}

// updateSlot replaces a slot wholesale. The slot id always survives.
func updateSlot(sl *SetList, actor Actor, cardID string, index int, patch FlexibleSlot) ([]Field, error) {
	if patch.Kind == "" {
		return nil, validationError("slot kind is required")
	}
	if !patch.Kind.valid() {
		return nil, validationError("invalid slot kind %q", patch.Kind)
	}
	return editSlot(sl, actor, cardID, index, func(cur FlexibleSlot) (FlexibleSlot, bool, error) {
		next := sanitizeSlot(patch)
		if next.ID != "" && next.ID != cur.ID {
			return cur, false, validationError("slot id %q does not match slot %d", patch.ID, index)
		}
		next.ID = cur.ID
		return next, true, nil
	})
}

func addSlotMember(sl *SetList, actor Actor, cardID string, index int, nickname string) ([]Field, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, validationError("nickname is required")
	}
	return editSlot(sl, actor, cardID, index, func(cur FlexibleSlot) (FlexibleSlot, bool, error) {
		for _, m := range cur.Members {
			if m == nickname {
				return cur, false, nil
			}
		}
		cur.Members = append(cur.Members, nickname)
		return cur, true, nil
	})
}

func removeSlotMember(sl *SetList, actor Actor, cardID string, index int, nickname string) ([]Field, error) {
	return editSlot(sl, actor, cardID, index, func(cur FlexibleSlot) (FlexibleSlot, bool, error) {
		for i, m := range cur.Members {
			if m == nickname {
				cur.Members = append(cur.Members[:i], cur.Members[i+1:]...)
				return cur, true, nil
			}
		}
		return cur, false, nil
	})
}

func resetSlot(sl *SetList, actor Actor, cardID string, index int) ([]Field, error) {
	return editSlot(sl, actor, cardID, index, func(cur FlexibleSlot) (FlexibleSlot, bool, error) {
		return FlexibleSlot{ID: cur.ID, Kind: SlotEmpty, Members: []string{}}, true, nil
	})
}

func setSlotCompleted(sl *SetList, actor Actor, cardID string, index int, completed bool) ([]Field, error) {
	return editSlot(sl, actor, cardID, index, func(cur FlexibleSlot) (FlexibleSlot, bool, error) {
		if cur.IsCompleted == completed {
			return cur, false, nil
		}
		cur.IsCompleted = completed
		return cur, true, nil
	})
}
