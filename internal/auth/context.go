package auth

import "context"

type actorContextKey struct{}

// ContextWithActor stores the actor identity in the request context.
func ContextWithActor(ctx context.Context, actor Context) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor identity. The second return value is
// false for unauthenticated requests.
func ActorFromContext(ctx context.Context) (Context, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Context)
	return actor, ok
}
