package setlist

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps aggregates in process memory. Every value crossing its
// boundary is a deep copy, so callers can never mutate stored state.
type MemoryStore struct {
	mu       sync.Mutex
	setlists map[string]*SetList
	profiles map[string]bool
	now      func() time.Time
}

func NewMemoryStore(profiles ...string) *MemoryStore {
	m := &MemoryStore{
		setlists: make(map[string]*SetList),
		profiles: make(map[string]bool),
		now:      time.Now,
	}
	for _, p := range profiles {
		m.profiles[p] = true
	}
	return m
}

// RegisterProfile adds a nickname to the roster.
func (m *MemoryStore) RegisterProfile(nickname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[nickname] = true
}

func cloneSetList(sl *SetList) (*SetList, error) {
	raw, err := json.Marshal(sl)
	if err != nil {
		return nil, err
	}
	var out SetList
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*SetList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, ok := m.setlists[id]
	if !ok {
		return nil, notFound("setlist %q not found", id)
	}
	return cloneSetList(sl)
}

func (m *MemoryStore) Put(ctx context.Context, id string, expectedVersion int64, patch Patch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, ok := m.setlists[id]
	if !ok {
		return 0, notFound("setlist %q not found", id)
	}
	if sl.Version != expectedVersion {
		return 0, conflict("setlist was modified concurrently")
	}
	next, err := cloneSetList(sl)
	if err != nil {
		return 0, persistence("memory store: clone", err)
	}
	if patch.UpdatedAt.IsZero() {
		patch.UpdatedAt = m.now()
	}
	patch.apply(next)
	// round-trip again so the stored copy shares nothing with the patch
	stored, err := cloneSetList(next)
	if err != nil {
		return 0, persistence("memory store: clone", err)
	}
	stored.Version++
	m.setlists[id] = stored
	return stored.Version, nil
}

func (m *MemoryStore) Create(ctx context.Context, sl *SetList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.setlists[sl.ID]; ok {
		return conflict("setlist already exists")
	}
	stored, err := cloneSetList(sl)
	if err != nil {
		return persistence("memory store: clone", err)
	}
	m.setlists[sl.ID] = stored
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]SetList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SetList, 0, len(m.setlists))
	for _, sl := range m.setlists {
		c, err := cloneSetList(sl)
		if err != nil {
			return nil, persistence("memory store: clone", err)
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.setlists[id]; !ok {
		return notFound("setlist %q not found", id)
	}
	delete(m.setlists, id)
	return nil
}

func (m *MemoryStore) Activate(ctx context.Context, id string) (*SetList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.setlists[id]
	if !ok {
		return nil, notFound("setlist %q not found", id)
	}
	if target.Status == StatusCompleted {
		return nil, validationError("setlist %q is completed", id)
	}
	now := m.now()
	for otherID, sl := range m.setlists {
		if otherID != id && sl.Status == StatusActive {
			sl.Status = StatusDraft
			sl.UpdatedAt = now
			sl.Version++
		}
	}
	if target.Status != StatusActive {
		target.Status = StatusActive
		target.UpdatedAt = now
		target.Version++
	}
	return cloneSetList(target)
}

func (m *MemoryStore) RegisteredNicknames(ctx context.Context, nicknames []string) (RosterSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(RosterSet, len(nicknames))
	for _, n := range nicknames {
		if m.profiles[n] {
			out[n] = true
		}
	}
	return out, nil
}
