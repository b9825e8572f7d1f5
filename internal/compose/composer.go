package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/swissdoc/apply-agent/internal/models"
)

// Delimiter separating subject from body in the model's required output
// format "Subject: ...|||Body: ...".
const Delimiter = "|||"

// FallbackSubject is used when the model ignores the output format and
// returns no delimiter. The whole response then becomes the body.
const FallbackSubject = "Bewerbung für die ausgeschriebene Position"

// TextGenerator is the model call the composer is built on. Satisfied by
// VertexAIClient and by test fakes.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Composer drafts German application emails from CV text and job fields.
type Composer struct {
	gen TextGenerator
}

// NewComposer creates a composer over the given text generator.
func NewComposer(gen TextGenerator) *Composer {
	return &Composer{gen: gen}
}

// Compose generates a personalized application email. Transport errors
// are returned; unusable model output is not an error — ParseComposed
// degrades to a fallback subject instead.
func (c *Composer) Compose(ctx context.Context, cvText string, job models.JobPosting) (models.ComposedEmail, error) {
	if cvText == "" {
		return models.ComposedEmail{}, fmt.Errorf("cv text is empty")
	}

	resp, err := c.gen.GenerateContent(ctx, applicationPrompt(cvText, job))
	if err != nil {
		return models.ComposedEmail{}, err
	}

	return ParseComposed(resp), nil
}

// TranslateCV translates an English CV into professional German suitable
// for a Swiss medical application.
func (c *Composer) TranslateCV(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Please translate the following CV text from English to professional, high-quality German suitable for a medical job application in Switzerland.

**Text to Translate:**
---
%s
---`, text)

	return c.gen.GenerateContent(ctx, prompt)
}

// applicationPrompt builds the drafting prompt. Hand-entered jobs carry no
// hospital, so the job details collapse to the description alone.
func applicationPrompt(cvText string, job models.JobPosting) string {
	var details strings.Builder
	if job.Title != "" && job.Hospital != "" {
		fmt.Fprintf(&details, "- Position: %s\n", job.Title)
		fmt.Fprintf(&details, "- Hospital: %s\n", job.Hospital)
		fmt.Fprintf(&details, "- Canton: %s\n", job.Canton)
		fmt.Fprintf(&details, "- Job Description:\n---\n%s\n---", job.Description)
	} else {
		fmt.Fprintf(&details, "- Job Details:\n---\n%s\n---", job.Description)
	}

	var sb strings.Builder
	sb.WriteString("Act as a professional medical career advisor in Switzerland. Create a compelling application email in German.\n")
	sb.WriteString("**Applicant's Profile (from CV):**\n---\n")
	sb.WriteString(cvText)
	sb.WriteString("\n---\n**Job Details:**\n")
	sb.WriteString(details.String())
	sb.WriteString("\n**Instructions:**\n")
	sb.WriteString("1. **Generate Subject:** Create a concise, professional German subject line.\n")
	sb.WriteString("2. **Generate Body:** Write a polite, personalized email connecting the applicant's CV to the job.\n")
	sb.WriteString("3. **Output Format:** Output MUST be 'Subject: [Your Subject]" + Delimiter + "Body: [Your Body]'.\n")

	return sb.String()
}

// ParseComposed splits the model response into subject and body. If the
// delimiter is missing the entire response becomes the body under the
// fallback subject; this never raises.
func ParseComposed(resp string) models.ComposedEmail {
	if strings.Contains(resp, Delimiter) {
		parts := strings.SplitN(resp, Delimiter, 2)
		subject := strings.TrimSpace(strings.Replace(parts[0], "Subject:", "", 1))
		body := strings.TrimSpace(strings.Replace(parts[1], "Body:", "", 1))
		return models.ComposedEmail{Subject: subject, Body: body}
	}

	body := strings.TrimSpace(resp)
	if body == "" {
		body = "Could not generate email body."
	}
	return models.ComposedEmail{Subject: FallbackSubject, Body: body}
}
