package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/swissdoc/apply-agent/internal/models"
)

// Column headers expected in the catalog file. Matching is exact on the
// trimmed header cell.
const (
	colTitle       = "job_title"
	colHospital    = "hospital_name"
	colCanton      = "canton"
	colContact     = "Application Contact Email"
	colDescription = "Job Description (short)"
)

// Catalog is the static, ordered list of job postings shared read-only by
// all users. Row order defines scan order; row index is the stable id.
type Catalog struct {
	postings []models.JobPosting
}

// Load reads a catalog from a CSV or XLSX file, chosen by extension.
func Load(path string) (*Catalog, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s (want .csv or .xlsx)", path)
	}
}

// New builds a catalog directly from postings, assigning row ids in order.
// Used by tests and by callers that assemble postings themselves.
func New(postings []models.JobPosting) *Catalog {
	out := make([]models.JobPosting, len(postings))
	for i, p := range postings {
		p.ID = i
		out[i] = p
	}
	return &Catalog{postings: out}
}

// Postings returns the postings in scan order.
func (c *Catalog) Postings() []models.JobPosting {
	return c.postings
}

// Len returns the number of postings.
func (c *Catalog) Len() int {
	return len(c.postings)
}

// Get returns the posting with the given id.
func (c *Catalog) Get(id int) (models.JobPosting, bool) {
	if id < 0 || id >= len(c.postings) {
		return models.JobPosting{}, false
	}
	return c.postings[id], true
}

func loadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog CSV: %w", err)
	}

	return fromRows(rows)
}

func loadXLSX(path string) (*Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return fromRows(rows)
}

// fromRows converts a header row plus data rows into postings. The id of
// each posting is its zero-based data-row index, so ids stay stable as
// long as the file is append-only.
func fromRows(rows [][]string) (*Catalog, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colTitle, colHospital, colCanton, colContact, colDescription} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("catalog is missing column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		idx := cols[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	postings := make([]models.JobPosting, 0, len(rows)-1)
	for i, row := range rows[1:] {
		postings = append(postings, models.JobPosting{
			ID:           i,
			Title:        cell(row, colTitle),
			Hospital:     cell(row, colHospital),
			Canton:       cell(row, colCanton),
			ContactEmail: NormalizeContact(cell(row, colContact)),
			Description:  cell(row, colDescription),
		})
	}

	return &Catalog{postings: postings}, nil
}

// NormalizeContact trims the raw contact cell and keeps only the first
// address when several are comma-separated. Malformed values pass through
// unchanged; JobPosting.HasContact decides selectability.
func NormalizeContact(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, ","); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
