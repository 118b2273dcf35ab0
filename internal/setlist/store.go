package setlist

import (
	"context"
)

// Store is the persistence gateway for SetList aggregates.
//
// Put replaces the fields present in the patch and bumps the version. It
// must fail with ErrConflict when the stored version differs from
// expectedVersion and with ErrNotFound when the setlist is gone.
type Store interface {
	Get(ctx context.Context, id string) (*SetList, error)
	Put(ctx context.Context, id string, expectedVersion int64, patch Patch) (int64, error)
	Create(ctx context.Context, sl *SetList) error
	List(ctx context.Context) ([]SetList, error)
	Delete(ctx context.Context, id string) error
	// Activate marks id active and every other active setlist draft, as one
	// atomic step.
	Activate(ctx context.Context, id string) (*SetList, error)
	// RegisteredNicknames returns which of the given nicknames have a profile.
	RegisteredNicknames(ctx context.Context, nicknames []string) (RosterSet, error)
}
