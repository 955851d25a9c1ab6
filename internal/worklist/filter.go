// Package worklist holds the per-session worklist state: the query bar's
// fetch filters, the fetched result set and the client-side column filters.
package worklist

import (
	"fmt"
	"strings"

	"radiology-worklist/internal/models"
)

// AbsentPolicy decides how a study that lacks an optional field (study
// description, source AE title) fares against that field's filter.
type AbsentPolicy int

const (
	// AbsentAsEmpty treats a missing field as the empty string: an empty
	// filter matches it, any other filter does not.
	AbsentAsEmpty AbsentPolicy = iota
	// AbsentExcluded never matches a missing field, even with an empty filter.
	AbsentExcluded
)

func (p AbsentPolicy) String() string {
	if p == AbsentExcluded {
		return "exclude"
	}
	return "empty"
}

// ParseAbsentPolicy accepts "empty" (or "") and "exclude".
func ParseAbsentPolicy(s string) (AbsentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "empty":
		return AbsentAsEmpty, nil
	case "exclude":
		return AbsentExcluded, nil
	}
	return AbsentAsEmpty, fmt.Errorf("unknown absent field policy %q", s)
}

// Filter returns the studies matching every column filter, in input order.
// It never modifies or invents rows.
func Filter(studies []models.Study, cf models.ClientFilters, policy AbsentPolicy) []models.Study {
	m := newMatcher(cf, policy)
	out := make([]models.Study, 0, len(studies))
	for i := range studies {
		if m.match(&studies[i]) {
			out = append(out, studies[i])
		}
	}
	return out
}

// matcher holds the filter values normalized once per Filter call.
type matcher struct {
	patientID   string
	patientName string
	accession   string
	modality    string
	description string
	sourceAE    string
	policy      AbsentPolicy
}

func newMatcher(cf models.ClientFilters, policy AbsentPolicy) matcher {
	return matcher{
		patientID:   cf.PatientID,
		patientName: strings.ToLower(cf.PatientName),
		accession:   cf.AccessionNumber,
		modality:    strings.ToUpper(strings.TrimSpace(cf.Modality)),
		description: strings.ToUpper(cf.Description),
		sourceAE:    strings.ToUpper(cf.SourceAE),
		policy:      policy,
	}
}

func (m matcher) match(s *models.Study) bool {
	if !strings.Contains(s.PatientID, m.patientID) {
		return false
	}
	if !strings.Contains(strings.ToLower(s.PatientName), m.patientName) {
		return false
	}
	if !strings.Contains(s.AccessionNumber, m.accession) {
		return false
	}
	if m.modality != "" && !s.HasModality(m.modality) {
		return false
	}
	if !m.optional(s.StudyDescription, m.description) {
		return false
	}
	return m.optional(s.SourceAETitle, m.sourceAE)
}

// optional matches description and source AE. Both sides are upper-cased,
// so the match ignores case in the stored value as well as the filter.
func (m matcher) optional(v *string, want string) bool {
	if v == nil {
		return m.policy == AbsentAsEmpty && want == ""
	}
	return strings.Contains(strings.ToUpper(*v), want)
}
