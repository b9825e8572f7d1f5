package ingest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// MinExtractedTextLength is the minimum text length required for a PDF
// extraction to count as successful.
const MinExtractedTextLength = 50

// ExtractText extracts text from an uploaded PDF or TXT file held in
// memory. PDF extraction shells out to pdftotext.
func ExtractText(name string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".txt":
		return string(content), nil
	case ".pdf":
		return extractPDF(name, content)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// extractPDF writes the upload to a temp file and runs pdftotext over it.
func extractPDF(name string, content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to stage %s for extraction: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to stage %s for extraction: %w", name, err)
	}
	tmp.Close()

	cmd := exec.Command("pdftotext", "-layout", tmp.Name(), "-")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("PDF extraction requires 'pdftotext' (install poppler-utils): %w", err)
	}

	text := string(output)
	if len(text) < MinExtractedTextLength {
		return "", fmt.Errorf("extracted text is too short (likely failed extraction) from: %s", name)
	}
	return text, nil
}
