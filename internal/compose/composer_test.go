package compose

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/swissdoc/apply-agent/internal/models"
)

type fakeGenerator struct {
	resp string
	err  error
	last string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.last = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.resp, nil
}

func TestParseComposed(t *testing.T) {
	tests := []struct {
		name        string
		resp        string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "well formed response",
			resp:        "Subject: Bewerbung als Assistenzarzt|||Body: Sehr geehrte Damen und Herren",
			wantSubject: "Bewerbung als Assistenzarzt",
			wantBody:    "Sehr geehrte Damen und Herren",
		},
		{
			name:        "delimiter without labels",
			resp:        "Bewerbung Chirurgie|||Guten Tag",
			wantSubject: "Bewerbung Chirurgie",
			wantBody:    "Guten Tag",
		},
		{
			name:        "missing delimiter falls back",
			resp:        "Sehr geehrte Damen und Herren, hiermit bewerbe ich mich.",
			wantSubject: FallbackSubject,
			wantBody:    "Sehr geehrte Damen und Herren, hiermit bewerbe ich mich.",
		},
		{
			name:        "empty response",
			resp:        "",
			wantSubject: FallbackSubject,
			wantBody:    "Could not generate email body.",
		},
		{
			name:        "whitespace around parts",
			resp:        "  Subject:  Bewerbung  |||  Body:  Text  ",
			wantSubject: "Bewerbung",
			wantBody:    "Text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseComposed(tt.resp)
			if got.Subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", got.Subject, tt.wantSubject)
			}
			if got.Body != tt.wantBody {
				t.Errorf("body = %q, want %q", got.Body, tt.wantBody)
			}
		})
	}
}

func TestComposeNeverRaisesOnMalformedOutput(t *testing.T) {
	gen := &fakeGenerator{resp: "plain text with no delimiter"}
	c := NewComposer(gen)

	got, err := c.Compose(context.Background(), "Lebenslauf", models.JobPosting{Description: "Stelle"})
	if err != nil {
		t.Fatalf("Compose returned error for malformed output: %v", err)
	}
	if got.Subject != FallbackSubject {
		t.Errorf("subject = %q, want fallback", got.Subject)
	}
	if got.Body != "plain text with no delimiter" {
		t.Errorf("body = %q", got.Body)
	}
}

func TestComposeTransportErrorPropagates(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("deadline exceeded")}
	c := NewComposer(gen)

	if _, err := c.Compose(context.Background(), "Lebenslauf", models.JobPosting{}); err == nil {
		t.Fatal("expected transport error to propagate")
	}
}

func TestComposePromptIncludesJobFields(t *testing.T) {
	gen := &fakeGenerator{resp: "Subject: s|||Body: b"}
	c := NewComposer(gen)

	job := models.JobPosting{
		Title:       "Assistenzarzt Innere Medizin",
		Hospital:    "Kantonsspital Aarau",
		Canton:      "AG",
		Description: "Rotation Innere Medizin",
	}
	if _, err := c.Compose(context.Background(), "Mein Lebenslauf", job); err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	for _, want := range []string{job.Title, job.Hospital, job.Canton, job.Description, "Mein Lebenslauf"} {
		if !strings.Contains(gen.last, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
}

func TestComposePromptManualJobOmitsHospitalBlock(t *testing.T) {
	gen := &fakeGenerator{resp: "Subject: s|||Body: b"}
	c := NewComposer(gen)

	job := models.JobPosting{ID: models.ManualJobID, Description: "freie Stelle"}
	if _, err := c.Compose(context.Background(), "Lebenslauf", job); err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if strings.Contains(gen.last, "- Hospital:") {
		t.Error("manual job prompt should not contain a hospital line")
	}
	if !strings.Contains(gen.last, "freie Stelle") {
		t.Error("manual job prompt should carry the description")
	}
}

func TestComposeEmptyCV(t *testing.T) {
	c := NewComposer(&fakeGenerator{resp: "x"})
	if _, err := c.Compose(context.Background(), "", models.JobPosting{}); err == nil {
		t.Fatal("expected error for empty CV text")
	}
}
