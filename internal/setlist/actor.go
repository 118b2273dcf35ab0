package setlist

import (
	"context"
)

// Role is the permission level of whoever issues a mutation.
type Role string

const (
	RoleLeader   Role = "leader"
	RoleOperator Role = "operator"
	RoleMember   Role = "member"
)

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	Nickname string `json:"nickname"`
	Role     Role   `json:"role"`
}

// Elevated actors may act on any unit.
func (a Actor) Elevated() bool {
	return a.Role == RoleLeader || a.Role == RoleOperator
}

func requireElevated(a Actor, action string) error {
	if !a.Elevated() {
		return forbidden("%s requires leader or operator role", action)
	}
	return nil
}

// canActOn reports whether a may run a lifecycle transition on u. Only
// flexible cards have an owner; everything else needs an elevated role.
func canActOn(a Actor, u Unit) bool {
	if a.Elevated() {
		return true
	}
	switch v := u.(type) {
	case FlexibleCard:
		return a.Nickname != "" && v.OwnerNickname == a.Nickname
	case SongUnit, RequestCard:
		return false
	}
	return false
}

type ctxActorKey struct{}

// WithActor stores the authenticated actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxActorKey{}, a)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxActorKey{}).(Actor)
	return a, ok && a.Nickname != ""
}
