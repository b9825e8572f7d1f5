package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/swissdoc/apply-agent/internal/models"
)

// SentApplications renders the user's dashboard as an Excel workbook: a
// summary sheet with the counters and a sheet listing every sent email,
// newest first. Returns the workbook bytes for download.
func SentApplications(email string, stats models.Stats, records []models.SentRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Summary"
	recordsSheet := "Sent Applications"

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return nil, fmt.Errorf("failed to create records sheet: %w", err)
	}

	if err := writeSummarySheet(f, summarySheet, email, stats, len(records)); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeRecordsSheet(f, recordsSheet, records); err != nil {
		return nil, fmt.Errorf("failed to create records sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, sheetName, email string, stats models.Stats, recordCount int) error {
	f.SetColWidth(sheetName, "A", "A", 25)
	f.SetColWidth(sheetName, "B", "B", 50)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Application Dashboard")
	f.SetCellStyle(sheetName, "A1", "B1", headerStyle)
	f.MergeCell(sheetName, "A1", "B1")

	rows := []struct {
		label string
		value interface{}
	}{
		{"User:", email},
		{"Generated:", time.Now().Format("2006-01-02 15:04:05")},
		{"Applications Sent:", stats.SentCount},
		{"Jobs Skipped:", stats.SkippedCount},
		{"Emails in Log:", recordCount},
	}
	for i, r := range rows {
		row := i + 3
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.label)
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.value)
	}
	return nil
}

func writeRecordsSheet(f *excelize.File, sheetName string, records []models.SentRecord) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	headers := []string{"Sent At", "Job Title", "Recipient", "Subject", "Body"}
	widths := []float64{20, 35, 30, 45, 80}
	for i, h := range headers {
		col := string(rune('A' + i))
		f.SetCellValue(sheetName, fmt.Sprintf("%s1", col), h)
		f.SetColWidth(sheetName, col, col, widths[i])
	}
	f.SetCellStyle(sheetName, "A1", "E1", headerStyle)

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if err := f.AutoFilter(sheetName, "A1:E1", nil); err != nil {
		return err
	}

	for i, rec := range records {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rec.SentAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), rec.JobTitle)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), rec.Recipient)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), rec.Subject)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), rec.Body)
	}
	return nil
}
