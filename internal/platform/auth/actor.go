package auth

import (
	"context"
	"strconv"
	"strings"
)

type contextKey string

// ActorKey is the request-context key holding the authenticated Actor.
const ActorKey contextKey = "actor"

// Actor is the authenticated caller: a numeric user id, the canonical role
// and the normalized permission scopes.
type Actor struct {
	UserID int64   `json:"user_id"`
	Role   string  `json:"role"`
	Scopes []Scope `json:"permissions"`
}

// NewActor normalizes role and keeps only valid scopes.
func NewActor(userID int64, role string, scopes []Scope) Actor {
	clean := make([]Scope, 0, len(scopes))
	for _, s := range scopes {
		if n := NewScope(s.Module, s.Action); n.valid() {
			clean = append(clean, n)
		}
	}
	return Actor{UserID: userID, Role: NormalizeRole(role), Scopes: clean}
}

// IsAdmin reports whether the actor's role is ADM.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Authorize applies the resolver to the actor's role and scopes.
func (a Actor) Authorize(module, action string) bool {
	return Authorize(a.Role, a.Scopes, module, action)
}

// WithActor stores a in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ActorKey, a)
}

// ActorFromContext returns the actor stored in ctx.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ActorKey).(Actor)
	return a, ok
}

// ParseUserID converts an upstream subject into a positive numeric id.
func ParseUserID(sub string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(sub), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
