package setlist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"setlist-service/internal/logger"
)

const defaultMaxWriteRetries = 3

// Engine runs every queue mutation as read → pure transform → single
// version-checked write, and publishes the result.
type Engine struct {
	store      Store
	notifier   Notifier
	log        *logger.Logger
	locks      keyedMutex
	now        func() time.Time
	newID      func() string
	maxRetries int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDGenerator(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

func WithMaxWriteRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

func NewEngine(store Store, notifier Notifier, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		store:      store,
		notifier:   notifier,
		log:        log.With("component", "SetlistEngine"),
		locks:      keyedMutex{locks: make(map[string]*refLock)},
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		maxRetries: defaultMaxWriteRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// keyedMutex serializes mutations per setlist id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// storeErr keeps engine errors as they are and classifies anything else as
// a persistence failure.
func storeErr(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return persistence(op, err)
}

func (e *Engine) mutate(ctx context.Context, id string, fn func(sl *SetList) ([]Field, error)) (*SetList, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	for attempt := 0; ; attempt++ {
		sl, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, storeErr("load setlist", err)
		}
		fields, err := fn(sl)
		if err != nil {
			return nil, err
		}
		patch := patchOf(sl, fields...)
		if patch.empty() {
			return sl, nil
		}
		if err := CheckOrder(sl); err != nil {
			e.log.Error("setlist-service: transform broke queue order", "setlistId", id, "error", err)
			return nil, err
		}
		patch.UpdatedAt = e.now()

		version, err := e.store.Put(ctx, id, sl.Version, patch)
		if errors.Is(err, ErrConflict) && attempt < e.maxRetries {
			e.log.Debug("setlist-service: version conflict, retrying", "setlistId", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, storeErr("write setlist", err)
		}
		sl.Version = version
		sl.UpdatedAt = patch.UpdatedAt
		e.publish(ctx, sl)
		return sl, nil
	}
}

func (e *Engine) publish(ctx context.Context, sl *SetList) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(ctx, sl); err != nil {
		e.log.Warn("setlist-service: publish change", "setlistId", sl.ID, "error", err)
	}
}

// QueueItem is one composed queue entry tagged with its kind.
type QueueItem struct {
	Kind Kind `json:"kind"`
	Unit Unit `json:"unit"`
}

// View is what clients render: the aggregate, its composed queue and the
// participant ranking.
type View struct {
	SetList *SetList          `json:"setlist"`
	Queue   []QueueItem       `json:"queue"`
	Stats   []ParticipantStat `json:"stats"`
}

func queueItems(sl *SetList) []QueueItem {
	units := Compose(sl)
	out := make([]QueueItem, 0, len(units))
	for _, u := range units {
		out = append(out, QueueItem{Kind: u.Kind(), Unit: u})
	}
	return out
}

func (e *Engine) roster(ctx context.Context, sl *SetList) (Roster, error) {
	var names []string
	for _, st := range Aggregate(sl, nil) {
		names = append(names, st.Nickname)
	}
	set, err := e.store.RegisteredNicknames(ctx, names)
	if err != nil {
		return nil, storeErr("load roster", err)
	}
	return set, nil
}

// viewOf does not fail. Without a roster nobody is tagged as a guest.
func (e *Engine) viewOf(ctx context.Context, sl *SetList) *View {
	var roster Roster
	if set, err := e.roster(ctx, sl); err != nil {
		e.log.Warn("load roster", "setlistId", sl.ID, "error", err)
	} else {
		roster = set
	}
	return &View{SetList: sl, Queue: queueItems(sl), Stats: Aggregate(sl, roster)}
}

// --- setlists ---

func (e *Engine) Create(ctx context.Context, actor Actor, name string, participants []string) (*SetList, error) {
	if err := requireElevated(actor, "creating a setlist"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, validationError("name must be between 1 and 200 characters")
	}
	now := e.now()
	sl := &SetList{
		ID:                        e.newID(),
		Name:                      name,
		Participants:              normalizeMembers(participants),
		CreatedBy:                 actor.Nickname,
		CreatedAt:                 now,
		UpdatedAt:                 now,
		Status:                    StatusDraft,
		Songs:                     []SongUnit{},
		FlexibleCards:             []FlexibleCard{},
		RequestSongCards:          []RequestCard{},
		CompletedSongs:            []CompletedSong{},
		CompletedFlexibleCards:    []CompletedFlexibleCard{},
		CompletedRequestSongCards: []CompletedRequestCard{},
	}
	if err := e.store.Create(ctx, sl); err != nil {
		return nil, storeErr("create setlist", err)
	}
	e.log.Info("setlist-service: setlist created", "setlistId", sl.ID, "by", actor.Nickname)
	return sl, nil
}

func (e *Engine) List(ctx context.Context) ([]SetList, error) {
	out, err := e.store.List(ctx)
	if err != nil {
		return nil, storeErr("list setlists", err)
	}
	return out, nil
}

func (e *Engine) Get(ctx context.Context, id string) (*SetList, error) {
	sl, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, storeErr("load setlist", err)
	}
	return sl, nil
}

// View loads a setlist and runs the composer and the aggregator over it.
func (e *Engine) View(ctx context.Context, id string) (*View, error) {
	sl, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.viewOf(ctx, sl), nil
}

func (e *Engine) Stats(ctx context.Context, id string) ([]ParticipantStat, error) {
	v, err := e.View(ctx, id)
	if err != nil {
		return nil, err
	}
	return v.Stats, nil
}

func (e *Engine) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireElevated(actor, "deleting a setlist"); err != nil {
		return err
	}
	unlock := e.locks.Lock(id)
	defer unlock()
	sl, err := e.store.Get(ctx, id)
	if err != nil {
		return storeErr("load setlist", err)
	}
	if sl.Status == StatusActive {
		return validationError("setlist %q is active", id)
	}
	if err := e.store.Delete(ctx, id); err != nil {
		return storeErr("delete setlist", err)
	}
	return nil
}

// Activate makes id the only active setlist.
func (e *Engine) Activate(ctx context.Context, actor Actor, id string) (*SetList, error) {
	if err := requireElevated(actor, "activating a setlist"); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()
	sl, err := e.store.Activate(ctx, id)
	if err != nil {
		return nil, storeErr("activate setlist", err)
	}
	e.publish(ctx, sl)
	return sl, nil
}

func (e *Engine) Finish(ctx context.Context, actor Actor, id string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return finishSetList(sl, actor)
	})
}

func (e *Engine) AddParticipant(ctx context.Context, actor Actor, id, nickname string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return addParticipant(sl, actor, nickname)
	})
}

func (e *Engine) RemoveParticipant(ctx context.Context, actor Actor, id, nickname string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return removeParticipant(sl, actor, nickname)
	})
}

// --- units ---

func (e *Engine) AddSong(ctx context.Context, actor Actor, id string, in NewSong) (SongUnit, error) {
	var song SongUnit
	_, err := e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		s, fields, err := addSong(sl, actor, in)
		song = s
		return fields, err
	})
	return song, err
}

func (e *Engine) CreateFlexibleCard(ctx context.Context, actor Actor, id, owner string, totalSlots int) (FlexibleCard, error) {
	var card FlexibleCard
	_, err := e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		c, fields, err := addFlexibleCard(sl, actor, owner, totalSlots, e.newID)
		card = c
		return fields, err
	})
	return card, err
}

func (e *Engine) CreateRequestCard(ctx context.Context, actor Actor, id string) (RequestCard, error) {
	var card RequestCard
	_, err := e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		c, fields, err := addRequestCard(sl, actor, e.newID)
		card = c
		return fields, err
	})
	return card, err
}

func (e *Engine) AddRequestSong(ctx context.Context, actor Actor, id, cardID, title string) (RequestSong, error) {
	var song RequestSong
	_, err := e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		rs, fields, err := addRequestSong(sl, actor, cardID, title, e.newID)
		song = rs
		return fields, err
	})
	return song, err
}

func (e *Engine) RemoveRequestSong(ctx context.Context, actor Actor, id, cardID, songID string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return removeRequestSong(sl, actor, cardID, songID)
	})
}

func (e *Engine) Place(ctx context.Context, actor Actor, id string, kind Kind, unitID string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return placeUnit(sl, actor, kind, unitID)
	})
}

func (e *Engine) Complete(ctx context.Context, actor Actor, id string, kind Kind, unitID string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return completeUnit(sl, actor, kind, unitID, e.now())
	})
}

func (e *Engine) DeleteUnit(ctx context.Context, actor Actor, id string, kind Kind, unitID string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return deleteUnit(sl, actor, kind, unitID)
	})
}

// --- reordering ---

// Reorder commits a drag. The unit is located by id in the freshly read
// aggregate, so a unit completed or deleted meanwhile fails with ErrNotFound
// and nothing is written.
func (e *Engine) Reorder(ctx context.Context, actor Actor, id string, req ReorderRequest) (*SetList, error) {
	if err := requireElevated(actor, "reordering the queue"); err != nil {
		return nil, err
	}
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		if err := checkMutable(sl); err != nil {
			return nil, err
		}
		changed, err := applyReorder(sl, req)
		if err != nil || !changed {
			return nil, err
		}
		return queueFields, nil
	})
}

// GestureCommit is a released press-and-move gesture.
type GestureCommit struct {
	UnitID      string  `json:"unitId"`
	SourceIndex int     `json:"sourceIndex"`
	StartY      float64 `json:"startY"`
	CurrentY    float64 `json:"currentY"`
	ItemHeight  float64 `json:"itemHeight"`
}

func (e *Engine) CommitGesture(ctx context.Context, actor Actor, id string, g GestureCommit) (*SetList, error) {
	if err := requireElevated(actor, "reordering the queue"); err != nil {
		return nil, err
	}
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		if err := checkMutable(sl); err != nil {
			return nil, err
		}
		units := Compose(sl)
		if err := checkSource(units, g.UnitID, g.SourceIndex); err != nil {
			return nil, err
		}
		if len(units) <= 1 {
			return nil, nil
		}
		session, err := NewDragSession(g.UnitID, g.SourceIndex, len(units), g.ItemHeight, g.StartY)
		if err != nil {
			return nil, err
		}
		session.MoveTo(g.CurrentY)
		req, ok := session.Release()
		if !ok {
			return nil, nil
		}
		changed, err := applyReorder(sl, req)
		if err != nil || !changed {
			return nil, err
		}
		return queueFields, nil
	})
}

// --- slots ---

func (e *Engine) UpdateSlot(ctx context.Context, actor Actor, id, cardID string, index int, patch FlexibleSlot) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return updateSlot(sl, actor, cardID, index, patch)
	})
}

func (e *Engine) AddSlotMember(ctx context.Context, actor Actor, id, cardID string, index int, nickname string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return addSlotMember(sl, actor, cardID, index, nickname)
	})
}

func (e *Engine) RemoveSlotMember(ctx context.Context, actor Actor, id, cardID string, index int, nickname string) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return removeSlotMember(sl, actor, cardID, index, nickname)
	})
}

func (e *Engine) ResetSlot(ctx context.Context, actor Actor, id, cardID string, index int) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return resetSlot(sl, actor, cardID, index)
	})
}

func (e *Engine) SetSlotCompleted(ctx context.Context, actor Actor, id, cardID string, index int, completed bool) (*SetList, error) {
	return e.mutate(ctx, id, func(sl *SetList) ([]Field, error) {
		return setSlotCompleted(sl, actor, cardID, index, completed)
	})
}

// --- realtime ---

// Subscribe calls onChange with a freshly composed view after every change
// of the setlist.
func (e *Engine) Subscribe(ctx context.Context, id string, onChange func(*View)) (func(), error) {
	if e.notifier == nil {
		return nil, persistence("subscribe", errors.New("no notifier configured"))
	}
	return e.notifier.Subscribe(ctx, id, func(sl *SetList) {
		onChange(e.viewOf(ctx, sl))
	})
}
