package main

import (
	"net/http"

	"radiology-worklist/internal/session"

	"go.uber.org/zap"
)

const (
	msgIncorrectCredentials = "Incorrect username or password."
	msgLoginUnavailable     = "Sign-in is unavailable. Please try again later."
)

type loginPage struct {
	Username string
	Error    string
}

func (s *server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/search", http.StatusSeeOther)
		return
	}
	s.render.page(w, r, http.StatusOK, loginPage{}, "login.html")
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")

	res, err := s.gate.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		s.logger.Error("login failed", zap.String("username", username), zap.Error(err))
		s.render.page(w, r, http.StatusServiceUnavailable, loginPage{Username: username, Error: msgLoginUnavailable}, "login.html")
		return
	}
	if !res.Authorized {
		s.logger.Info("rejected login", zap.String("username", username))
		s.render.page(w, r, http.StatusUnauthorized, loginPage{Username: username, Error: msgIncorrectCredentials}, "login.html")
		return
	}

	if err := s.sessions.Start(w, res.Capability); err != nil {
		s.logger.Error("failed to start session", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("signed in",
		zap.String("username", res.Capability.Username),
		zap.Bool("privileged", res.Privileged),
	)
	http.Redirect(w, r, "/search", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, ok := session.FromContext(r.Context()); ok {
		s.views.Drop(c.SessionID)
	}
	s.sessions.End(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
