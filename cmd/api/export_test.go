package main

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSearchExport(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, doctorUser, doctorPass)
	env.get(t, c, "/search")
	env.datastar(t, c, http.MethodGet, "/search/rows", map[string]string{"patientName": "doe"})

	resp, body := env.get(t, c, "/search/export")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=worklist-") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(worklistSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus the one filtered study: %v", len(rows), rows)
	}
	if rows[0][0] != "Patient ID" || rows[0][6] != "Date & Time" {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"P002", "DOE JANE", "ACC2", "MR", "", "", "2024-06-10 08:30:00", "1.2.3.2"}
	for i, w := range want {
		got := ""
		if i < len(rows[1]) {
			got = rows[1][i]
		}
		if got != w {
			t.Errorf("column %d = %q, want %q", i, got, w)
		}
	}
}

func TestWorklistXLSX_Empty(t *testing.T) {
	data, err := worklistXLSX(nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != worklistSheet {
		t.Errorf("sheets = %v", sheets)
	}
	rows, _ := f.GetRows(worklistSheet)
	if len(rows) != 1 {
		t.Errorf("got %d rows, want only the header", len(rows))
	}
}
