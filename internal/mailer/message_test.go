package mailer

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/swissdoc/apply-agent/internal/models"
)

func decodeRaw(t *testing.T, raw string) string {
	t.Helper()
	b, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw message is not URL-safe base64: %v", err)
	}
	return string(b)
}

func TestBuildRawMessageHeaders(t *testing.T) {
	raw, err := BuildRawMessage("me@example.com", "hr@spital.ch", "Bewerbung", "Guten Tag", nil)
	if err != nil {
		t.Fatalf("BuildRawMessage failed: %v", err)
	}

	msg := decodeRaw(t, raw)
	for _, want := range []string{
		"To: hr@spital.ch\r\n",
		"From: me@example.com\r\n",
		"Subject: Bewerbung\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: multipart/mixed; boundary=",
		"Guten Tag",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message is missing %q", want)
		}
	}
}

func TestBuildRawMessageEncodesUmlautSubject(t *testing.T) {
	raw, err := BuildRawMessage("", "hr@spital.ch", "Bewerbung für Chirurgie", "x", nil)
	if err != nil {
		t.Fatalf("BuildRawMessage failed: %v", err)
	}

	msg := decodeRaw(t, raw)
	if !strings.Contains(msg, "=?utf-8?q?") {
		t.Error("non-ASCII subject was not Q-encoded")
	}
	if strings.Contains(msg, "Subject: Bewerbung für") {
		t.Error("raw UTF-8 leaked into the subject header")
	}
}

func TestBuildRawMessageAttachments(t *testing.T) {
	atts := []models.Attachment{
		{Name: "cv.pdf", Content: []byte("%PDF-1.4 fake")},
		{Name: "zeugnis.pdf", Content: []byte("zeugnis")},
	}
	raw, err := BuildRawMessage("me@example.com", "hr@spital.ch", "s", "b", atts)
	if err != nil {
		t.Fatalf("BuildRawMessage failed: %v", err)
	}

	msg := decodeRaw(t, raw)
	for _, att := range atts {
		if !strings.Contains(msg, `attachment; filename="`+att.Name+`"`) {
			t.Errorf("missing disposition for %s", att.Name)
		}
		if !strings.Contains(msg, base64.StdEncoding.EncodeToString(att.Content)) {
			t.Errorf("missing base64 content for %s", att.Name)
		}
	}
	if !strings.Contains(msg, "Content-Transfer-Encoding: base64") {
		t.Error("attachment parts are not declared base64")
	}
}

func TestBuildRawMessageEmptyRecipient(t *testing.T) {
	if _, err := BuildRawMessage("me@example.com", "", "s", "b", nil); err == nil {
		t.Fatal("expected error for empty recipient")
	}
}
