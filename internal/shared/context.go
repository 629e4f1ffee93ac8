package shared

import "context"

type actorContextKey struct{}

// Actor identifies the operator performing a request. Authentication is
// handled by an external collaborator; the gateway forwards the verified
// identity in headers.
type Actor struct {
	ID   int64
	Name string
}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
