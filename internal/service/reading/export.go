package reading

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/bp-admin-api/internal/model"
)

const (
	exportSheet = "Readings"
	// MaxExportRows caps a single export.
	MaxExportRows = 10000
)

var exportHeader = []string{
	"Reading ID", "Patient", "Recorded At", "Systolic", "Diastolic",
	"Heart Rate", "Category", "Abnormal", "Recorded By", "Notes",
}

var exportWidths = []float64{12, 24, 20, 10, 10, 12, 22, 10, 20, 40}

// ExportReadings renders the readings matching filter, newest first, as an
// XLSX workbook.
func (s *Service) ExportReadings(ctx context.Context, filter *model.ReadingFilter) ([]byte, error) {
	filter.Page = 1
	filter.PageSize = MaxExportRows
	readings, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings for export: %w", err)
	}
	return buildWorkbook(readings)
}

func buildWorkbook(readings []*model.BpReading) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, col, col, exportWidths[i]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range readings {
		row := []interface{}{
			r.ID,
			r.PatientName,
			r.RecordedAt.Format("2006-01-02 15:04"),
			r.Systolic,
			r.Diastolic,
			nil,
			r.CategoryLabel(),
			yesNo(r.IsAbnormal),
			r.RecordedByName,
			nil,
		}
		if r.HeartRate != nil {
			row[5] = *r.HeartRate
		}
		if r.Notes != nil {
			row[9] = *r.Notes
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
