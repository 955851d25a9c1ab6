package main

import (
	"errors"
	"net/http"
	"time"

	"radiology-worklist/internal/middleware"
	"radiology-worklist/internal/models"
	"radiology-worklist/internal/pacs"
	"radiology-worklist/internal/session"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"
)

const msgReportRequired = "Please enter the report text before submitting."

type field struct {
	Label string
	Value string
}

type reportingPage struct {
	UID       string
	Fields    []field
	Text      string
	History   []models.Submission
	Error     string
	CSRFToken string
}

type draftSignals struct {
	Report string `json:"report"`
}

func (p reportingPage) Signals() draftSignals {
	return draftSignals{Report: p.Text}
}

func studyFields(d *models.StudyDetail) []field {
	fields := []field{
		{"Patient ID", d.PatientID},
		{"Patient Name", d.DisplayName()},
		{"Accession", d.AccessionNumber},
		{"Modality", d.Modalities()},
		{"Description", d.Description()},
		{"Date & Time", d.DisplayDateTime()},
	}
	optional := []struct {
		label  string
		lookup func() (string, bool)
	}{
		{"Study ID", d.StudyID},
		{"Birth Date", d.PatientBirthDate},
		{"Sex", d.PatientSex},
		{"Referring Physician", d.ReferringPhysicianName},
	}
	for _, o := range optional {
		if v, ok := o.lookup(); ok && v != "" {
			fields = append(fields, field{o.label, v})
		}
	}
	return fields
}

func archiveStatus(err error) int {
	if errors.Is(err, pacs.ErrStudyNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (s *server) handleReporting(w http.ResponseWriter, r *http.Request) {
	c, _ := session.FromContext(r.Context())
	uid := chi.URLParam(r, "uid")
	page := reportingPage{UID: uid, CSRFToken: middleware.CSRFToken(r.Context())}

	screen, err := s.reports.Open(r.Context(), reportSession(c), uid)
	if err != nil {
		s.logger.Warn("failed to open study for reporting", zap.String("study_uid", uid), zap.Error(err))
		page.Error = pacs.Describe(err)
		s.render.page(w, r, archiveStatus(err), page, "reporting.html")
		return
	}
	page.Fields = studyFields(screen.Study)
	page.Text = screen.Draft
	page.History = screen.History
	s.render.page(w, r, http.StatusOK, page, "reporting.html")
}

// handleSubmitReport stores the report and returns to the worklist. On any
// failure the form is shown again with the text intact.
func (s *server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	c, _ := session.FromContext(r.Context())
	uid := chi.URLParam(r, "uid")
	text := r.PostFormValue("report")

	outcome, err := s.reports.Submit(r.Context(), reportSession(c), uid, text)
	if err == nil {
		s.logger.Info("report stored",
			zap.String("study_uid", uid),
			zap.String("sop_instance_uid", outcome.Submission.SOPInstanceUID),
		)
		http.Redirect(w, r, "/search", http.StatusSeeOther)
		return
	}

	page := reportingPage{UID: uid, Text: text, CSRFToken: middleware.CSRFToken(r.Context())}
	status := archiveStatus(err)
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		page.Error = msgReportRequired
		status = http.StatusUnprocessableEntity
	} else {
		page.Error = pacs.Describe(err)
	}
	if screen, err := s.reports.Open(r.Context(), reportSession(c), uid); err == nil {
		page.Fields = studyFields(screen.Study)
		page.History = screen.History
	}
	s.render.page(w, r, status, page, "reporting.html")
}

func (s *server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	c, _ := session.FromContext(r.Context())
	uid := chi.URLParam(r, "uid")
	signals := &draftSignals{}
	if err := datastar.ReadSignals(r, signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	msg := "Draft saved at " + time.Now().In(s.loc).Format("15:04:05")
	if err := s.reports.SaveDraft(r.Context(), reportSession(c), uid, signals.Report); err != nil {
		s.logger.Warn("failed to save draft", zap.String("study_uid", uid), zap.Error(err))
		msg = "Draft could not be saved."
	}
	html, err := s.render.fragment("draftstatus", msg, "reporting.html")
	if err != nil {
		s.logger.Error("fragment render failed", zap.Error(err))
		http.Error(w, "Template Execute Error", http.StatusInternalServerError)
		return
	}
	sse := datastar.NewSSE(w, r)
	if err := sse.PatchElements(html); err != nil {
		s.logger.Debug("client went away", zap.Error(err))
	}
}

func (s *server) handleCancelReport(w http.ResponseWriter, r *http.Request) {
	c, _ := session.FromContext(r.Context())
	uid := chi.URLParam(r, "uid")
	if err := s.reports.Discard(r.Context(), reportSession(c), uid); err != nil {
		s.logger.Warn("failed to discard draft", zap.String("study_uid", uid), zap.Error(err))
	}
	http.Redirect(w, r, "/search", http.StatusSeeOther)
}
