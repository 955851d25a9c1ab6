package dicomjson

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	daLayout = "20060102"
	dtLayout = "20060102150405"
)

// ParseDA parses a DA value (YYYYMMDD; the legacy YYYY.MM.DD form is also
// accepted) into midnight UTC of that date.
func ParseDA(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ".", ""))
	t, err := time.Parse(daLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("dicomjson: bad DA %q", s)
	}
	return t, nil
}

// FormatDA renders the calendar date of t.
func FormatDA(t time.Time) string {
	return t.Format(daLayout)
}

// ParseTM parses a TM value (HH[MM[SS[.F{1,6}]]], colons tolerated) into the
// offset from midnight.
func ParseTM(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ":", ""))
	if s == "" {
		return 0, fmt.Errorf("dicomjson: empty TM")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) != 2 && len(whole) != 4 && len(whole) != 6 {
		return 0, fmt.Errorf("dicomjson: bad TM %q", s)
	}
	limits := []int{23, 59, 60}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i := 0; i*2 < len(whole); i++ {
		n, err := strconv.Atoi(whole[i*2 : i*2+2])
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("dicomjson: bad TM %q", s)
		}
		d += time.Duration(n) * units[i]
	}
	if frac != "" {
		if len(frac) > 6 {
			return 0, fmt.Errorf("dicomjson: bad TM %q", s)
		}
		n, err := strconv.Atoi(frac + strings.Repeat("0", 6-len(frac)))
		if err != nil {
			return 0, fmt.Errorf("dicomjson: bad TM %q", s)
		}
		d += time.Duration(n) * time.Microsecond
	}
	return d, nil
}

// FormatTM renders an offset from midnight as HHMMSS, with microseconds when
// the offset has a fractional second.
func FormatTM(d time.Duration) string {
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	us := (d % time.Second) / time.Microsecond
	out := fmt.Sprintf("%02d%02d%02d", h, m, s)
	if us != 0 {
		out += fmt.Sprintf(".%06d", us)
	}
	return out
}

// ClockTM renders the wall-clock time of t as TM.
func ClockTM(t time.Time) string {
	return t.Format("150405")
}

// FormatDT renders t as a DT value without offset.
func FormatDT(t time.Time) string {
	return t.Format(dtLayout)
}
