package setlist

import (
	"math"
)

// TargetIndex turns a vertical gesture into a queue index:
// clamp(source + round(delta/itemHeight), 0, count-1).
// Halves round toward the bottom of the queue, as browser Math.round does.
// Pointer and touch input both go through here.
func TargetIndex(delta, itemHeight float64, source, count int) int {
	if count <= 0 {
		return 0
	}
	offset := 0
	if itemHeight > 0 {
		offset = int(math.Floor(delta/itemHeight + 0.5))
	}
	return clamp(source+offset, 0, count-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Move removes the unit at from and inserts it at to. The input slice is not
// modified.
func Move(units []Unit, from, to int) ([]Unit, error) {
	n := len(units)
	if from < 0 || from >= n {
		return nil, validationError("source index %d out of range [0,%d)", from, n)
	}
	if to < 0 || to >= n {
		return nil, validationError("target index %d out of range [0,%d)", to, n)
	}
	out := make([]Unit, 0, n)
	out = append(out, units[:from]...)
	out = append(out, units[from+1:]...)
	moved := units[from]
	out = append(out[:to], append([]Unit{moved}, out[to:]...)...)
	return out, nil
}

// DragSession tracks one press-and-move gesture. Nothing it computes has side
// effects; only the move returned by Release is meant to be committed.
type DragSession struct {
	unitID     string
	source     int
	count      int
	itemHeight float64
	start      float64
	target     int
	done       bool
}

func NewDragSession(unitID string, source, count int, itemHeight, start float64) (*DragSession, error) {
	if source < 0 || source >= count {
		return nil, validationError("source index %d out of range [0,%d)", source, count)
	}
	if itemHeight <= 0 {
		return nil, validationError("item height must be positive")
	}
	return &DragSession{
		unitID:     unitID,
		source:     source,
		count:      count,
		itemHeight: itemHeight,
		start:      start,
		target:     source,
	}, nil
}

// MoveTo recomputes the target for the current pointer position.
func (d *DragSession) MoveTo(pos float64) int {
	if d.done {
		return d.target
	}
	d.target = TargetIndex(pos-d.start, d.itemHeight, d.source, d.count)
	return d.target
}

// Hover sets the target directly, as a pointer drop zone does. Out of range
// hovers are ignored.
func (d *DragSession) Hover(index int) int {
	if !d.done && index >= 0 && index < d.count {
		d.target = index
	}
	return d.target
}

func (d *DragSession) Target() int { return d.target }

// Cancel abandons the gesture; Release will report nothing to commit.
func (d *DragSession) Cancel() { d.done = true; d.target = d.source }

// Release ends the gesture. ok is false when the gesture was cancelled or
// ended where it started.
func (d *DragSession) Release() (ReorderRequest, bool) {
	if d.done {
		return ReorderRequest{}, false
	}
	d.done = true
	if d.target == d.source {
		return ReorderRequest{}, false
	}
	return ReorderRequest{UnitID: d.unitID, From: d.source, To: d.target}, true
}

// ReorderRequest is a committed move of one unit in the composed queue.
type ReorderRequest struct {
	UnitID string `json:"unitId"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

// checkSource resolves unitID in the freshly composed queue and requires it
// to still sit at the index the client saw.
func checkSource(units []Unit, unitID string, from int) error {
	at := -1
	for i, u := range units {
		if u.UnitID() == unitID {
			at = i
			break
		}
	}
	if at < 0 {
		return notFound("unit %q is no longer in the queue", unitID)
	}
	if from < 0 || from >= len(units) {
		return validationError("source index %d out of range [0,%d)", from, len(units))
	}
	if at != from {
		return validationError("unit %q is at index %d, not %d", unitID, at, from)
	}
	return nil
}

// applyReorder is the pure part of a reorder commit. changed is false when
// nothing has to be written.
func applyReorder(sl *SetList, req ReorderRequest) (changed bool, err error) {
	units := Compose(sl)
	if err := checkSource(units, req.UnitID, req.From); err != nil {
		return false, err
	}
	if req.To < 0 || req.To >= len(units) {
		return false, validationError("target index %d out of range [0,%d)", req.To, len(units))
	}
	if req.From == req.To {
		return false, nil
	}
	moved, err := Move(units, req.From, req.To)
	if err != nil {
		return false, err
	}
	sl.setArrays(Decompose(moved, sl.arrays()))
	return true, nil
}
