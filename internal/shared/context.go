package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// Principal is the logged in user as recorded on the session.
type Principal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// PrincipalFromContext returns the authenticated user, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	sess := SessionFromContext(ctx)
	if !sess.Authenticated() {
		return Principal{}, false
	}
	return Principal{ID: sess.User(), Name: sess.Get(SessionNameKey), Role: sess.Role()}, true
}
