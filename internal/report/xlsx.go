package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	sourcesSheet = "Sources"
)

var xlsxHeader = []any{
	"UID", "Kind", "Source", "Name", "Filename", "Path", "Size", "Seeds",
	"Created", "Hash", "Details URL", "Torrent URL", "Download URL", "Parent UID",
}

// XLSXWriter outputs reports as an Excel workbook with a Results sheet of
// one row per record and a Sources sheet of per-source counts.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report as a workbook.
func (w *XLSXWriter) Write(report *Report) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	if err := writeResultsSheet(f, report, bold); err != nil {
		return 0, err
	}
	if err := writeSourcesSheet(f, report, bold); err != nil {
		return 0, err
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

func writeResultsSheet(f *excelize.File, report *Report, headerStyle int) error {
	sw, err := f.NewStreamWriter(resultsSheet)
	if err != nil {
		return fmt.Errorf("open %s sheet: %w", resultsSheet, err)
	}
	if err := sw.SetColWidth(4, 6, 40); err != nil {
		return err
	}
	if err := sw.SetRow("A1", xlsxHeader, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return err
	}
	for i, rec := range report.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		created := ""
		if !rec.CreationTime.IsZero() {
			created = rec.CreationTime.Format("2006-01-02")
		}
		parent := ""
		if rec.ParentUID != 0 {
			parent = fmt.Sprintf("%08x", rec.ParentUID)
		}
		row := []any{
			fmt.Sprintf("%08x", rec.UID), rec.Kind, rec.Source, rec.DisplayName, rec.Filename,
			rec.Path, rec.Size, rec.Seeds, created, rec.Hash, rec.DetailsURL, rec.TorrentURL,
			rec.DownloadURL, parent,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeSourcesSheet(f *excelize.File, report *Report, headerStyle int) error {
	if _, err := f.NewSheet(sourcesSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", sourcesSheet, err)
	}
	sw, err := f.NewStreamWriter(sourcesSheet)
	if err != nil {
		return fmt.Errorf("open %s sheet: %w", sourcesSheet, err)
	}
	if err := sw.SetRow("A1", []any{"Source", "Results"}, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return err
	}
	for i, c := range report.CountBySource() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []any{c.Source, c.Count}); err != nil {
			return err
		}
	}
	return sw.Flush()
}
