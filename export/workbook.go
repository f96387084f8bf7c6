// Package export writes analyses as spreadsheets and printable reports.
package export

import (
	"fmt"
	"io"

	"github.com/etnz/finsight"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook.
const (
	SheetComparison = "Comparison"
	SheetMetrics    = "Financial Metrics"
	SheetForecast   = "Forecast"
)

var (
	comparisonHeader = []any{"Parameter", "Source A", "Source B", "Trend"}
	metricsHeader    = []any{"Metric", "Value"}
	forecastHeader   = []any{"Period", "Actual", "Forecast", "LowerBound", "UpperBound"}
)

// Workbook writes r as an XLSX workbook: the comparison matrix, the chart
// metrics and, when there is one, the forecast.
func Workbook(w io.Writer, r *finsight.ComparisonResult) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(r.KeyDifferences))
	for _, d := range r.KeyDifferences {
		rows = append(rows, []any{d.Parameter, d.ValueDoc1, d.ValueDoc2, string(d.Trend)})
	}
	if err := f.SetSheetName("Sheet1", SheetComparison); err != nil {
		return err
	}
	if err := writeSheet(f, SheetComparison, comparisonHeader, rows, bold); err != nil {
		return err
	}

	rows = make([][]any, 0, len(r.ChartData))
	for _, p := range r.ChartData {
		rows = append(rows, []any{p.Name, p.Value})
	}
	if _, err := f.NewSheet(SheetMetrics); err != nil {
		return err
	}
	if err := writeSheet(f, SheetMetrics, metricsHeader, rows, bold); err != nil {
		return err
	}

	if len(r.ForecastData) > 0 {
		rows = make([][]any, 0, len(r.ForecastData))
		for _, p := range r.ForecastData {
			rows = append(rows, []any{p.Period, cell(p.Actual), cell(p.Forecast), cell(p.LowerBound), cell(p.UpperBound)})
		}
		if _, err := f.NewSheet(SheetForecast); err != nil {
			return err
		}
		if err := writeSheet(f, SheetForecast, forecastHeader, rows, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return err
		}
	}
	col, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", col, 22)
}

// cell leaves absent values blank.
func cell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// ReadComparison reads back the comparison matrix of a workbook written by Workbook.
func ReadComparison(r io.Reader) ([]finsight.DifferenceItem, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(SheetComparison)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", SheetComparison)
	}
	for i, h := range comparisonHeader {
		if i >= len(rows[0]) || rows[0][i] != h {
			return nil, fmt.Errorf("sheet %q has an unexpected header %q", SheetComparison, rows[0])
		}
	}
	items := make([]finsight.DifferenceItem, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// trailing empty cells are not returned
		for len(row) < len(comparisonHeader) {
			row = append(row, "")
		}
		items = append(items, finsight.DifferenceItem{
			Parameter: row[0],
			ValueDoc1: row[1],
			ValueDoc2: row[2],
			Trend:     finsight.Trend(row[3]),
		})
	}
	return items, nil
}
