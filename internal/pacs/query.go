package pacs

import (
	"net/url"
	"strings"
	"time"

	"radiology-worklist/internal/dicomjson"
)

// Optional attributes requested for worklist rows and for the reporting screen.
var (
	WorklistIncludeFields = []string{"StudyDescription", "SourceApplicationEntityTitle"}
	DetailIncludeFields   = []string{"StudyID", "PatientBirthDate", "PatientSex", "Manufacturer"}
)

// StudyQuery is a QIDO-RS study level search.
type StudyQuery struct {
	StartDate     time.Time
	EndDate       time.Time
	Modalities    []string
	UID           string
	IncludeFields []string
}

// Encode renders the query string. Parameter order is StudyDate or
// StudyInstanceUID, then each ModalitiesInStudy, then each includefield.
func (q StudyQuery) Encode() string {
	var parts []string
	add := func(k, v string) {
		parts = append(parts, k+"="+url.QueryEscape(v))
	}
	if q.UID != "" {
		add("StudyInstanceUID", q.UID)
	}
	if !q.StartDate.IsZero() || !q.EndDate.IsZero() {
		parts = append(parts, "StudyDate="+dateRange(q.StartDate, q.EndDate))
	}
	for _, m := range q.Modalities {
		add("ModalitiesInStudy", m)
	}
	for _, f := range q.IncludeFields {
		add("includefield", f)
	}
	return strings.Join(parts, "&")
}

func dateRange(start, end time.Time) string {
	var s, e string
	if !start.IsZero() {
		s = dicomjson.FormatDA(start)
	}
	if !end.IsZero() {
		e = dicomjson.FormatDA(end)
	}
	return s + "-" + e
}
