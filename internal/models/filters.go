package models

import (
	"maps"
	"time"
)

// DefaultModalities is the modality button set of the query bar.
var DefaultModalities = []string{"CR", "DR", "CT", "PT", "MR", "US", "XA", "NM", "OT"}

// FetchFilters are the server-side query parameters. StartDate and EndDate
// are calendar dates (midnight) in the worklist's time zone. An empty or
// all-false Modalities map means no modality restriction.
type FetchFilters struct {
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	Modalities map[string]bool `json:"modalities"`
}

// NewFetchFilters returns today–today with every modality deselected.
func NewFetchFilters(today time.Time, codes []string) FetchFilters {
	mods := make(map[string]bool, len(codes))
	for _, c := range codes {
		mods[c] = false
	}
	return FetchFilters{StartDate: today, EndDate: today, Modalities: mods}
}

// Clone copies the filters so that mutations never alias.
func (f FetchFilters) Clone() FetchFilters {
	f.Modalities = maps.Clone(f.Modalities)
	if f.Modalities == nil {
		f.Modalities = map[string]bool{}
	}
	return f
}

// Selected returns the selected codes in the given display order, followed
// by any selected code not in that order.
func (f FetchFilters) Selected(order []string) []string {
	var out []string
	seen := make(map[string]bool, len(order))
	for _, c := range order {
		seen[c] = true
		if f.Modalities[c] {
			out = append(out, c)
		}
	}
	for c, on := range f.Modalities {
		if on && !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// Unrestricted reports whether no modality is selected.
func (f FetchFilters) Unrestricted() bool {
	for _, on := range f.Modalities {
		if on {
			return false
		}
	}
	return true
}

// Equal compares dates and selections.
func (f FetchFilters) Equal(o FetchFilters) bool {
	if !f.StartDate.Equal(o.StartDate) || !f.EndDate.Equal(o.EndDate) {
		return false
	}
	for c, on := range f.Modalities {
		if on != o.Modalities[c] {
			return false
		}
	}
	for c, on := range o.Modalities {
		if on != f.Modalities[c] {
			return false
		}
	}
	return true
}

// SpanDays is the number of days between start and end.
func (f FetchFilters) SpanDays() int {
	return int(f.EndDate.Sub(f.StartDate).Hours() / 24)
}

// ClientFilters are the free-text column filters applied to the fetched
// result set. They persist across re-fetches.
type ClientFilters struct {
	PatientID       string `json:"patientId"`
	PatientName     string `json:"patientName"`
	AccessionNumber string `json:"accession"`
	Modality        string `json:"modality"`
	Description     string `json:"description"`
	SourceAE        string `json:"sourceAe"`
}

// IsZero reports whether every filter is empty.
func (c ClientFilters) IsZero() bool {
	return c == ClientFilters{}
}
