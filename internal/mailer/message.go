package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"

	"github.com/swissdoc/apply-agent/internal/models"
)

// BuildRawMessage assembles a multipart/mixed RFC 2822 message and returns
// it URL-safe base64 encoded, the form the Gmail API's raw field expects.
// The From header is set only when from is non-empty; it must be the
// authenticated identity or a verified alias.
func BuildRawMessage(from, to, subject, body string, attachments []models.Attachment) (string, error) {
	if to == "" {
		return "", fmt.Errorf("recipient address is empty")
	}

	var parts bytes.Buffer
	mw := multipart.NewWriter(&parts)

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", `text/plain; charset="UTF-8"`)
	pw, err := mw.CreatePart(textHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := pw.Write([]byte(body)); err != nil {
		return "", fmt.Errorf("failed to write body part: %w", err)
	}

	for _, att := range attachments {
		attHeader := textproto.MIMEHeader{}
		attHeader.Set("Content-Type", "application/octet-stream")
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Name))

		pw, err := mw.CreatePart(attHeader)
		if err != nil {
			return "", fmt.Errorf("failed to create attachment part %s: %w", att.Name, err)
		}
		if _, err := pw.Write([]byte(base64.StdEncoding.EncodeToString(att.Content))); err != nil {
			return "", fmt.Errorf("failed to write attachment %s: %w", att.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize message: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	if from != "" {
		fmt.Fprintf(&msg, "From: %s\r\n", from)
	}
	// Q-encode so German umlauts in subjects survive transport.
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(parts.Bytes())

	return base64.URLEncoding.EncodeToString(msg.Bytes()), nil
}
