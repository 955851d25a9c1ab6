package logger

import "testing"

func TestNew(t *testing.T) {
	for _, tc := range []struct{ level, format string }{
		{"debug", "console"},
		{"info", "json"},
		{"bogus", ""},
	} {
		l, err := New(tc.level, tc.format, "worklist-test")
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tc.level, tc.format, err)
		}
		l.Info("hello")
		_ = l.Sync()
	}
}
