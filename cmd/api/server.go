package main

import (
	"net/http"
	"slices"
	"time"

	"radiology-worklist/internal/middleware"
	"radiology-worklist/internal/pacs"
	"radiology-worklist/internal/report"
	"radiology-worklist/internal/session"
	"radiology-worklist/internal/worklist"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// server holds everything the handlers need. Per-user state lives in the
// worklist registry and the session cookie, never in package globals.
type server struct {
	logger     *zap.Logger
	render     *renderer
	archive    *pacs.Client
	views      *worklist.Registry
	reports    *report.Service
	gate       *session.Gate
	sessions   *session.Manager
	modalities []string
	loc        *time.Location
	secure     bool
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CSRF(s.secure))
	r.Use(s.sessions.Load)

	r.Get("/", s.handleLoginPage)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(session.RequireSession)

		r.Route("/search", func(r chi.Router) {
			r.Get("/", s.handleSearch)
			r.Get("/rows", s.handleSearchRows)
			r.Post("/range", s.handleSearchRange)
			r.Post("/dates", s.handleSearchDates)
			r.Post("/modality", s.handleSearchModality)
			r.Post("/refresh", s.handleSearchRefresh)
			r.Get("/export", s.handleSearchExport)
		})

		r.Group(func(r chi.Router) {
			r.Use(session.RequirePrivileged)
			r.Route("/reporting/{uid}", func(r chi.Router) {
				r.Get("/", s.handleReporting)
				r.Post("/", s.handleSubmitReport)
				r.Post("/draft", s.handleSaveDraft)
				r.Post("/cancel", s.handleCancelReport)
			})
		})
	})

	r.NotFound(s.handleNotFound)
	return r
}

func (s *server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render.page(w, r, http.StatusNotFound, nil, "notfound.html")
}

func (s *server) knownModality(code string) bool {
	return slices.Contains(s.modalities, code)
}

// reportSession is the caller as the reporting service sees them.
func reportSession(c session.Capability) report.Session {
	return report.Session{ID: c.SessionID, Username: c.Username}
}
