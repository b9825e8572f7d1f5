package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/swissdoc/apply-agent/internal/models"
)

// languageSampleSize is how many leading characters the language check
// inspects.
const languageSampleSize = 500

// accentedRunes whose presence marks the CV as already written in a
// continental European language, so no translation pass runs.
const accentedRunes = "àéâç"

// translateTimeout bounds the translation model call.
const translateTimeout = 90 * time.Second

// Upload is one file received from the user, held in memory.
type Upload struct {
	Name    string
	Content []byte
}

// Translator renders English CV text into professional German.
type Translator interface {
	TranslateCV(ctx context.Context, text string) (string, error)
}

// FilesSaver persists the extracted CV text and the attachment set.
type FilesSaver interface {
	SaveFiles(ctx context.Context, email, cvText string, attachments []models.Attachment) error
}

// Pipeline turns a batch of uploaded files into a stored profile: the
// first file is treated as the CV, its text extracted and translated when
// it reads as English, and the whole batch replaces any previously stored
// attachments.
type Pipeline struct {
	translator Translator
	saver      FilesSaver
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(translator Translator, saver FilesSaver) *Pipeline {
	return &Pipeline{translator: translator, saver: saver}
}

// Result reports what a successful ingestion stored.
type Result struct {
	CVText      string
	Attachments []models.Attachment
	Translated  bool
}

// Process ingests the uploads for the given user. The upload set replaces
// stored attachments wholesale; partial updates are not supported.
func (p *Pipeline) Process(ctx context.Context, email string, uploads []Upload) (*Result, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("no files uploaded")
	}

	cv := uploads[0]
	cvText, err := ExtractText(cv.Name, cv.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to extract CV text from %s: %w", cv.Name, err)
	}

	translated := false
	if !LooksTranslated(cvText) {
		log.Printf("CV %s reads as English, translating for %s", cv.Name, email)
		tctx, cancel := context.WithTimeout(ctx, translateTimeout)
		defer cancel()
		germanText, err := p.translator.TranslateCV(tctx, cvText)
		if err != nil {
			return nil, fmt.Errorf("failed to translate CV: %w", err)
		}
		cvText = germanText
		translated = true
	}

	attachments := make([]models.Attachment, 0, len(uploads))
	for _, u := range uploads {
		attachments = append(attachments, models.Attachment{Name: u.Name, Content: u.Content})
	}

	if err := p.saver.SaveFiles(ctx, email, cvText, attachments); err != nil {
		return nil, err
	}

	return &Result{CVText: cvText, Attachments: attachments, Translated: translated}, nil
}

// LooksTranslated reports whether the text already carries accented
// characters in its leading sample, the cue that it is not English.
func LooksTranslated(text string) bool {
	runes := []rune(text)
	if len(runes) > languageSampleSize {
		runes = runes[:languageSampleSize]
	}
	return strings.ContainsAny(string(runes), accentedRunes)
}
