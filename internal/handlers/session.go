package handlers

import (
	"context"

	"github.com/gorilla/sessions"
	"github.com/nvelasco/stockdesk/internal/backend"
)

const sessionName = "console-session"

const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

// Identity is what the session guard learned from /check-auth, made available
// to handlers and the nav shell through the request context.
type Identity struct {
	Username string
	Role     string
}

type contextKey string

const identityContextKey contextKey = "identity"

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFrom returns the guard-verified identity, if the request passed
// through RequireAuth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// saveLogin records the backend session cookie and the user's role. This is
// the only state the console keeps between requests.
func saveLogin(session *sessions.Session, tok backend.Token, role, username string) {
	session.Values["backend_cookie"] = string(tok)
	session.Values["role"] = role
	session.Values["username"] = username
}

func clearLogin(session *sessions.Session) {
	delete(session.Values, "backend_cookie")
	delete(session.Values, "role")
	delete(session.Values, "username")
}

// sessionToken reads the stored backend cookie and role; an empty token means
// the user never logged in (or was logged out).
func sessionToken(session *sessions.Session) (backend.Token, string) {
	tok, _ := session.Values["backend_cookie"].(string)
	role, _ := session.Values["role"].(string)
	return backend.Token(tok), role
}

// loginPath is where an unauthenticated user of the given role belongs.
func loginPath(role string) string {
	if role == RoleWorker {
		return "/worker-login"
	}
	return "/"
}
