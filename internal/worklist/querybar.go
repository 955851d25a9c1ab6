package worklist

import (
	"errors"
	"strings"
	"time"

	"radiology-worklist/internal/models"
)

// RangeLabel names a relative date shortcut.
type RangeLabel string

const (
	Range1D  RangeLabel = "1D"
	Range3D  RangeLabel = "3D"
	Range1W  RangeLabel = "1W"
	Range1M  RangeLabel = "1M"
	Range1Y  RangeLabel = "1Y"
	RangeAny RangeLabel = "ANY"
)

// RangeLabels lists the shortcuts in button order.
var RangeLabels = []RangeLabel{Range1D, Range3D, Range1W, Range1M, Range1Y, RangeAny}

var ErrUnknownRange = errors.New("unknown date range shortcut")

// EpochFloor is the start date of the ANY shortcut.
var EpochFloor = time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)

// Midnight truncates t to its calendar date in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// RelativeRange returns the [start, today] range for label.
func RelativeRange(label RangeLabel, today time.Time) (time.Time, time.Time, error) {
	switch RangeLabel(strings.ToUpper(string(label))) {
	case Range1D:
		return today.AddDate(0, 0, -1), today, nil
	case Range3D:
		return today.AddDate(0, 0, -3), today, nil
	case Range1W:
		return today.AddDate(0, 0, -7), today, nil
	case Range1M:
		return subMonths(today, 1), today, nil
	case Range1Y:
		return subMonths(today, 12), today, nil
	case RangeAny:
		y, m, d := EpochFloor.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, today.Location()), today, nil
	}
	return time.Time{}, time.Time{}, ErrUnknownRange
}

// subMonths steps back n calendar months, clamping the day to the length of
// the target month (March 31 minus one month is February 28 or 29).
func subMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// QueryBar owns the FetchFilters of one worklist. Every mutator replaces the
// filters wholesale and reports whether they changed.
type QueryBar struct {
	filters models.FetchFilters
	order   []string
	now     func() time.Time
	loc     *time.Location
}

func NewQueryBar(order []string, now func() time.Time, loc *time.Location) *QueryBar {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	b := &QueryBar{order: order, now: now, loc: loc}
	b.filters = models.NewFetchFilters(b.Today(), order)
	return b
}

// Today is the current calendar date in the worklist's zone.
func (b *QueryBar) Today() time.Time {
	return Midnight(b.now(), b.loc)
}

// Filters returns a copy of the current filters.
func (b *QueryBar) Filters() models.FetchFilters {
	return b.filters.Clone()
}

// Order is the modality button order.
func (b *QueryBar) Order() []string { return b.order }

// Modalities returns the selected codes for the query, nil when unrestricted.
func (b *QueryBar) Modalities() []string {
	return b.filters.Selected(b.order)
}

func (b *QueryBar) replace(next models.FetchFilters) bool {
	changed := !b.filters.Equal(next)
	b.filters = next
	return changed
}

// ApplyRelativeRange sets end to today and start to today minus label.
func (b *QueryBar) ApplyRelativeRange(label RangeLabel) (bool, error) {
	start, end, err := RelativeRange(label, b.Today())
	if err != nil {
		return false, err
	}
	next := b.filters.Clone()
	next.StartDate, next.EndDate = start, end
	return b.replace(next), nil
}

// SetExplicitRange applies user-entered dates. A zero date keeps the current
// value, end is clamped to today and start to end.
func (b *QueryBar) SetExplicitRange(start, end time.Time) bool {
	next := b.filters.Clone()
	if !end.IsZero() {
		next.EndDate = Midnight(end, b.loc)
	}
	if !start.IsZero() {
		next.StartDate = Midnight(start, b.loc)
	}
	if today := b.Today(); next.EndDate.After(today) {
		next.EndDate = today
	}
	if next.StartDate.After(next.EndDate) {
		next.StartDate = next.EndDate
	}
	return b.replace(next)
}

// ToggleModality flips one code's inclusion.
func (b *QueryBar) ToggleModality(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	next := b.filters.Clone()
	next.Modalities[code] = !next.Modalities[code]
	return b.replace(next)
}

// SelectAllModalities clears the selection, meaning no modality restriction.
func (b *QueryBar) SelectAllModalities() bool {
	next := b.filters.Clone()
	for c := range next.Modalities {
		next.Modalities[c] = false
	}
	return b.replace(next)
}
