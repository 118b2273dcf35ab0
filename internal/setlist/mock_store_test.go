package setlist

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

// Get hands out a copy, as real stores do.
func (m *MockStore) Get(ctx context.Context, id string) (*SetList, error) {
	args := m.Called(ctx, id)
	sl, _ := args.Get(0).(*SetList)
	if sl != nil {
		c, err := cloneSetList(sl)
		if err != nil {
			return nil, err
		}
		sl = c
	}
	return sl, args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, id string, expectedVersion int64, patch Patch) (int64, error) {
	args := m.Called(ctx, id, expectedVersion, patch)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Create(ctx context.Context, sl *SetList) error {
	args := m.Called(ctx, sl)
	return args.Error(0)
}

func (m *MockStore) List(ctx context.Context) ([]SetList, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]SetList)
	return out, args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) Activate(ctx context.Context, id string) (*SetList, error) {
	args := m.Called(ctx, id)
	sl, _ := args.Get(0).(*SetList)
	return sl, args.Error(1)
}

func (m *MockStore) RegisteredNicknames(ctx context.Context, nicknames []string) (RosterSet, error) {
	args := m.Called(ctx, nicknames)
	out, _ := args.Get(0).(RosterSet)
	return out, args.Error(1)
}
