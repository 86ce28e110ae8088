package forum

import "context"

type userKey struct{}

// WithUser attaches the authenticated user id to the context. Commands read
// it back with UserFrom; a context without it is an unauthenticated caller.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

func UserFrom(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userKey{}).(string)
	return uid, ok && uid != ""
}
