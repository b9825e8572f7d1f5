package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/swissdoc/apply-agent/internal/models"
)

func TestSentApplications(t *testing.T) {
	records := []models.SentRecord{
		{
			Recipient: "hr@spital.ch",
			Subject:   "Bewerbung als Assistenzarzt",
			Body:      "Sehr geehrte Damen und Herren",
			SentAt:    time.Date(2026, 5, 3, 9, 30, 0, 0, time.UTC),
			JobTitle:  "Assistenzarzt Innere Medizin",
		},
		{
			Recipient: "jobs@klinik.ch",
			Subject:   "Bewerbung",
			Body:      "Guten Tag",
			SentAt:    time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC),
			JobTitle:  "Manual",
		},
	}
	stats := models.Stats{SentCount: 2, SkippedCount: 5}

	b, err := SentApplications("user@example.com", stats, records)
	if err != nil {
		t.Fatalf("SentApplications failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sent Applications")
	if err != nil {
		t.Fatalf("missing records sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("records sheet has %d rows, want header + 2", len(rows))
	}
	if rows[1][2] != "hr@spital.ch" {
		t.Errorf("first record recipient = %q", rows[1][2])
	}
	if rows[2][1] != "Manual" {
		t.Errorf("second record title = %q", rows[2][1])
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("missing summary sheet: %v", err)
	}
	if len(summary) == 0 || summary[0][0] != "Application Dashboard" {
		t.Error("summary sheet is missing its title")
	}
}

func TestSentApplicationsEmptyLog(t *testing.T) {
	b, err := SentApplications("user@example.com", models.Stats{}, nil)
	if err != nil {
		t.Fatalf("SentApplications failed on empty log: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sent Applications")
	if err != nil {
		t.Fatalf("missing records sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("empty log should leave only the header row, got %d rows", len(rows))
	}
}
