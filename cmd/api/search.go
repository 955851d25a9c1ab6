package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"radiology-worklist/internal/middleware"
	"radiology-worklist/internal/models"
	"radiology-worklist/internal/session"
	"radiology-worklist/internal/worklist"

	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// searchSignals mirrors the data-signals of search.html.
type searchSignals struct {
	models.ClientFilters
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// row is one worklist line, flattened for templates and export.
type row struct {
	UID         string
	PatientID   string
	PatientName string
	Accession   string
	Modalities  string
	Description string
	SourceAE    string
	DateTime    string
	ViewerURL   string
	CanReport   bool
}

type searchPage struct {
	Snapshot   worklist.Snapshot
	Rows       []row
	Ranges     []worklist.RangeLabel
	StartDate  string
	EndDate    string
	Today      string
	Privileged bool
	CSRFToken  string
}

// Signals seeds data-signals so that column filters survive a reload.
func (p searchPage) Signals() searchSignals {
	return searchSignals{ClientFilters: p.Snapshot.Client, StartDate: p.StartDate, EndDate: p.EndDate}
}

func (s *server) searchPage(r *http.Request, snap worklist.Snapshot) searchPage {
	c, _ := session.FromContext(r.Context())
	rows := make([]row, 0, len(snap.Rows))
	for i := range snap.Rows {
		st := &snap.Rows[i]
		rows = append(rows, row{
			UID:         st.StudyInstanceUID,
			PatientID:   st.PatientID,
			PatientName: st.DisplayName(),
			Accession:   st.AccessionNumber,
			Modalities:  st.Modalities(),
			Description: st.Description(),
			SourceAE:    st.SourceAE(),
			DateTime:    st.DisplayDateTime(),
			ViewerURL:   s.archive.ViewerURL(st.StudyInstanceUID),
			CanReport:   c.Privileged && !st.IsStructuredReport(),
		})
	}
	return searchPage{
		Snapshot:   snap,
		Rows:       rows,
		Ranges:     worklist.RangeLabels,
		StartDate:  snap.Filters.StartDate.Format(dateLayout),
		EndDate:    snap.Filters.EndDate.Format(dateLayout),
		Today:      snap.Today.Format(dateLayout),
		Privileged: c.Privileged,
		CSRFToken:  middleware.CSRFToken(r.Context()),
	}
}

func (s *server) view(r *http.Request) *worklist.View {
	c, _ := session.FromContext(r.Context())
	return s.views.Get(c.SessionID)
}

// handleSearch renders the worklist page, running the first query of the
// session if none has completed yet.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	v := s.view(r)
	var snap worklist.Snapshot
	if v.Loaded() {
		snap = v.Snapshot()
	} else {
		snap = v.Refresh(r.Context())
	}
	s.render.page(w, r, http.StatusOK, s.searchPage(r, snap), "search.html", "search_fragments.html")
}

// handleSearchRows applies the column filters. It never queries the archive.
func (s *server) handleSearchRows(w http.ResponseWriter, r *http.Request) {
	signals := &searchSignals{}
	if err := datastar.ReadSignals(r, signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap := s.view(r).SetClientFilters(signals.ClientFilters)
	s.patchWorklist(w, r, snap, false)
}

func (s *server) handleSearchRange(w http.ResponseWriter, r *http.Request) {
	signals := &searchSignals{}
	if err := datastar.ReadSignals(r, signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v := s.view(r)
	v.SetClientFilters(signals.ClientFilters)

	snap, err := v.ApplyRelativeRange(r.Context(), worklist.RangeLabel(r.URL.Query().Get("label")))
	if errors.Is(err, worklist.ErrUnknownRange) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.patchWorklist(w, r, snap, true)
}

func (s *server) handleSearchDates(w http.ResponseWriter, r *http.Request) {
	signals := &searchSignals{}
	if err := datastar.ReadSignals(r, signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, err := time.ParseInLocation(dateLayout, signals.StartDate, s.loc)
	if err != nil {
		http.Error(w, "invalid start date", http.StatusBadRequest)
		return
	}
	end, err := time.ParseInLocation(dateLayout, signals.EndDate, s.loc)
	if err != nil {
		http.Error(w, "invalid end date", http.StatusBadRequest)
		return
	}

	v := s.view(r)
	v.SetClientFilters(signals.ClientFilters)
	s.patchWorklist(w, r, v.SetExplicitRange(r.Context(), start, end), true)
}

// handleSearchModality toggles ?code=XX, or clears the restriction for
// ?code=ANY.
func (s *server) handleSearchModality(w http.ResponseWriter, r *http.Request) {
	signals := &searchSignals{}
	if err := datastar.ReadSignals(r, signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
	if code != "ANY" && !s.knownModality(code) {
		http.Error(w, "unknown modality", http.StatusBadRequest)
		return
	}

	v := s.view(r)
	v.SetClientFilters(signals.ClientFilters)
	var snap worklist.Snapshot
	if code == "ANY" {
		snap = v.SelectAllModalities(r.Context())
	} else {
		snap = v.ToggleModality(r.Context(), code)
	}
	s.patchWorklist(w, r, snap, true)
}

func (s *server) handleSearchRefresh(w http.ResponseWriter, r *http.Request) {
	signals := &searchSignals{}
	if err := datastar.ReadSignals(r, signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v := s.view(r)
	v.SetClientFilters(signals.ClientFilters)
	s.patchWorklist(w, r, v.Refresh(r.Context()), false)
}

// patchWorklist streams the status line and table body, plus the query bar
// and date signals when the fetch filters changed. A stale snapshot belongs
// to a superseded query; the newer request will patch instead.
func (s *server) patchWorklist(w http.ResponseWriter, r *http.Request, snap worklist.Snapshot, withBar bool) {
	if snap.Stale {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	page := s.searchPage(r, snap)
	names := []string{"status", "rows"}
	if withBar {
		names = append([]string{"querybar"}, names...)
	}
	fragments := make([]string, 0, len(names))
	for _, name := range names {
		html, err := s.render.fragment(name, page, "search_fragments.html")
		if err != nil {
			s.logger.Error("fragment render failed", zap.String("fragment", name), zap.Error(err))
			http.Error(w, "Template Execute Error", http.StatusInternalServerError)
			return
		}
		fragments = append(fragments, html)
	}

	sse := datastar.NewSSE(w, r)
	for _, html := range fragments {
		if err := sse.PatchElements(html); err != nil {
			s.logger.Debug("client went away", zap.Error(err))
			return
		}
	}
	if withBar {
		if err := sse.MarshalAndPatchSignals(map[string]string{
			"startDate": page.StartDate,
			"endDate":   page.EndDate,
		}); err != nil {
			s.logger.Debug("client went away", zap.Error(err))
		}
	}
}
