package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

const testHeader = "job_title,hospital_name,canton,Application Contact Email,Job Description (short)\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, testHeader+
		"Assistenzarzt,KSA,AG,hr@ksa.ch,Innere Medizin\n"+
		"Oberarzt,USZ,ZH,\"jobs@usz.ch, hr@usz.ch\",Chirurgie\n")

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cat.Len())
	}

	first, ok := cat.Get(0)
	if !ok {
		t.Fatal("job 0 missing")
	}
	if first.Title != "Assistenzarzt" || first.Hospital != "KSA" || first.Canton != "AG" {
		t.Errorf("job 0 = %+v", first)
	}
	if first.ContactEmail != "hr@ksa.ch" {
		t.Errorf("contact = %q", first.ContactEmail)
	}

	second, _ := cat.Get(1)
	// Multiple comma-separated addresses collapse to the first.
	if second.ContactEmail != "jobs@usz.ch" {
		t.Errorf("contact = %q, want first address only", second.ContactEmail)
	}
}

func TestLoadCSVStableIDs(t *testing.T) {
	path := writeCSV(t, testHeader+
		"A,H1,AG,a@x.ch,d\n"+
		"B,H2,ZH,b@x.ch,d\n"+
		"C,H3,BE,c@x.ch,d\n")

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i, job := range cat.Postings() {
		if job.ID != i {
			t.Errorf("posting %d has id %d", i, job.ID)
		}
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	path := writeCSV(t, "job_title,hospital_name\nA,B\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestLoadCSVRaggedRow(t *testing.T) {
	path := writeCSV(t, testHeader+"Assistenzarzt,KSA\n")

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed on ragged row: %v", err)
	}
	job, _ := cat.Get(0)
	if job.ContactEmail != "" {
		t.Errorf("missing cells should read empty, got %q", job.ContactEmail)
	}
	if job.HasContact() {
		t.Error("ragged row must not be selectable")
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"job_title", "hospital_name", "canton", "Application Contact Email", "Job Description (short)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	row := []string{"Assistenzarzt", "Insel", "BE", "hr@insel.ch", "Notfall"}
	for i, v := range row {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, cell, v)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cat.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cat.Len())
	}
	job, _ := cat.Get(0)
	if job.Hospital != "Insel" || job.ContactEmail != "hr@insel.ch" {
		t.Errorf("job = %+v", job)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := Load("jobs.json"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"hr@spital.ch", "hr@spital.ch"},
		{"  hr@spital.ch  ", "hr@spital.ch"},
		{"a@x.ch, b@y.ch", "a@x.ch"},
		{"a@x.ch,b@y.ch,c@z.ch", "a@x.ch"},
		{"", ""},
		{"not-an-email", "not-an-email"},
	}
	for _, tt := range tests {
		if got := NormalizeContact(tt.raw); got != tt.want {
			t.Errorf("NormalizeContact(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
