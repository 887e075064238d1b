package report

import (
	"fmt"
	"io"

	"go-dashboard-inspector/pkg/models"

	"github.com/xuri/excelize/v2"
)

const (
	reportSheet = "Report"
	panelSheet  = "Panels"
)

var panelColumns = []string{"filename", "dashboard_title", "panel", "type", "current_value", "unit", "status", "threshold"}

// GenerateXLSX writes the CSV projection as a workbook. Model records also get
// a Panels sheet with one row per observed panel.
func (g *Generator) GenerateXLSX(records []*models.AnalysisRecord, filename string) (string, error) {
	name := g.reportName(filename, familyPrefix(records), "xlsx")

	return g.write(name, func(w io.Writer) error {
		f := excelize.NewFile()
		defer f.Close()

		if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
		if err := writeRows(f, reportSheet, Columns, rowsOf(records)); err != nil {
			return err
		}
		_ = f.SetColWidth(reportSheet, "A", "A", 28)
		_ = f.SetColWidth(reportSheet, "B", "D", 22)

		if panels := panelRows(records); len(panels) > 0 {
			if _, err := f.NewSheet(panelSheet); err != nil {
				return fmt.Errorf("add panels sheet: %w", err)
			}
			if err := writeRows(f, panelSheet, panelColumns, panels); err != nil {
				return err
			}
			_ = f.SetColWidth(panelSheet, "A", "C", 28)
		}

		if idx, err := f.GetSheetIndex(reportSheet); err == nil {
			f.SetActiveSheet(idx)
		}
		if err := f.Write(w); err != nil {
			return fmt.Errorf("xlsx write: %w", err)
		}
		return nil
	})
}

func rowsOf(records []*models.AnalysisRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, projectRow(r))
	}
	return rows
}

func panelRows(records []*models.AnalysisRecord) [][]string {
	var rows [][]string
	for _, r := range records {
		if r.Kind != models.SourceModel {
			continue
		}
		for _, p := range r.Model.Panels {
			rows = append(rows, []string{
				r.ImageInfo.Filename,
				r.Model.DashboardOverview.Title,
				p.Title,
				p.Type,
				formatValue(p.CurrentValue),
				p.Unit,
				p.Status,
				formatValue(p.Threshold),
			})
		}
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]string) error {
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}
