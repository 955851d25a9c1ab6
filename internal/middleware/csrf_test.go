package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestCSRF(t *testing.T) {
	var seen string
	h := CSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CSRFToken(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// GET issues a token.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "" {
		t.Fatalf("expected a csrf cookie, got %v", cookies)
	}
	token := cookies[0].Value
	if seen != token {
		t.Errorf("context token %q != cookie %q", seen, token)
	}

	post := func(body string, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(url.Values{"csrf_token": {token}}.Encode(), ""); code != http.StatusOK {
		t.Errorf("form token rejected: %d", code)
	}
	if code := post("", token); code != http.StatusOK {
		t.Errorf("header token rejected: %d", code)
	}
	if code := post("", ""); code != http.StatusForbidden {
		t.Errorf("missing token accepted: %d", code)
	}
	if code := post(url.Values{"csrf_token": {"forged"}}.Encode(), ""); code != http.StatusForbidden {
		t.Errorf("wrong token accepted: %d", code)
	}
}

func TestCSRF_PostWithoutCookie(t *testing.T) {
	h := CSRF(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("X-CSRF-Token", "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
