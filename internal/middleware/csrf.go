package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

type contextKey string

const CSRFTokenKey contextKey = "csrf_token"

const (
	csrfCookie = "csrf_token"
	csrfField  = "csrf_token"
	csrfHeader = "X-CSRF-Token"
)

func GenerateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CSRFToken returns the token injected by CSRF, for templates.
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(CSRFTokenKey).(string)
	return token
}

// CSRF issues a double-submit token cookie and checks it on every unsafe
// request, from the csrf_token form field or the X-CSRF-Token header.
func CSRF(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Get or Create Token
			cookie, err := r.Cookie(csrfCookie)
			token := ""
			if err != nil || cookie.Value == "" {
				token = GenerateToken()
				http.SetCookie(w, &http.Cookie{
					Name:     csrfCookie,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			} else {
				token = cookie.Value
			}

			// 2. Validate on unsafe methods
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				reqToken := r.Header.Get(csrfHeader)
				if reqToken == "" {
					reqToken = r.FormValue(csrfField)
				}
				if reqToken == "" || subtle.ConstantTimeCompare([]byte(reqToken), []byte(token)) != 1 {
					http.Error(w, "Invalid CSRF Token", http.StatusForbidden)
					return
				}
			}

			// 3. Inject into Context for Templates
			ctx := context.WithValue(r.Context(), CSRFTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
