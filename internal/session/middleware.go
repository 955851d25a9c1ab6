package session

import (
	"context"
	"net/http"
	"time"
)

const CookieName = "worklist_session"

type contextKey struct{}

// WithCapability stores c in ctx.
func WithCapability(ctx context.Context, c Capability) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the capability of the signed-in user, if any.
func FromContext(ctx context.Context) (Capability, bool) {
	c, ok := ctx.Value(contextKey{}).(Capability)
	return c, ok
}

// Manager writes and reads the session cookie.
type Manager struct {
	tokens *Tokens
	secure bool
}

func NewManager(tokens *Tokens, secure bool) *Manager {
	return &Manager{tokens: tokens, secure: secure}
}

// Start sets the session cookie for c.
func (m *Manager) Start(w http.ResponseWriter, c Capability) error {
	tok, exp, err := m.tokens.Issue(c)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// End clears the session cookie.
func (m *Manager) End(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Load attaches the cookie's capability to the request context when valid.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie(CookieName); err == nil && ck.Value != "" {
			if c, err := m.tokens.Parse(ck.Value); err == nil {
				r = r.WithContext(WithCapability(r.Context(), c))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession redirects anonymous requests to the login screen.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePrivileged rejects users without reporting rights.
func RequirePrivileged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := FromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !c.Privileged {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
