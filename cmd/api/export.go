package main

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const worklistSheet = "Worklist"

var exportHeader = []string{
	"Patient ID",
	"Name",
	"Accession",
	"Modality",
	"Description",
	"Source AE",
	"Date & Time",
	"Study Instance UID",
}

var exportWidths = []float64{15, 28, 15, 12, 36, 15, 20, 48}

func (r row) cells() []interface{} {
	return []interface{}{r.PatientID, r.PatientName, r.Accession, r.Modalities, r.Description, r.SourceAE, r.DateTime, r.UID}
}

// worklistXLSX writes the rows as displayed, after column filtering.
func worklistXLSX(rows []row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(worklistSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(worklistSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err := f.SetCellStyle(worklistSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	for i, w := range exportWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(worklistSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		cells := r.cells()
		if err := f.SetSheetRow(worklistSheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *server) handleSearchExport(w http.ResponseWriter, r *http.Request) {
	page := s.searchPage(r, s.view(r).Snapshot())
	data, err := worklistXLSX(page.Rows)
	if err != nil {
		s.logger.Error("worklist export failed", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	name := fmt.Sprintf("worklist-%s.xlsx", time.Now().In(s.loc).Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Write(data)
}
