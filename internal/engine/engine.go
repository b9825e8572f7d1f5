package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/swissdoc/apply-agent/internal/apperrors"
	"github.com/swissdoc/apply-agent/internal/catalog"
	"github.com/swissdoc/apply-agent/internal/models"
)

// Bounded timeouts around the two external network collaborators. Neither
// call defines a timeout upstream; expiry surfaces as a retryable failure.
const (
	composeTimeout = 90 * time.Second
	sendTimeout    = 60 * time.Second
	storeTimeout   = 15 * time.Second
)

// Composer turns CV text plus job fields into a subject/body pair. It may
// fail (transport) but never raises on unusable model output; parsing
// fallbacks are the implementation's concern.
type Composer interface {
	Compose(ctx context.Context, cvText string, job models.JobPosting) (models.ComposedEmail, error)
}

// MailSender transmits a fully formed message with attachments through the
// authenticated user's own mail identity.
type MailSender interface {
	Send(ctx context.Context, to, subject, body string, attachments []models.Attachment) error
}

// Counter names a profile statistic updated together with the applied set.
type Counter int

const (
	CounterSent Counter = iota
	CounterSkipped
)

// ProfileStore persists one record per user. MarkApplied must apply the
// set union and the counter increment in a single document write.
type ProfileStore interface {
	Profile(ctx context.Context, email string) (*models.UserProfile, error)
	MarkApplied(ctx context.Context, email, jobKey string, counter Counter) error
	BumpSent(ctx context.Context, email string) error
	AppendSentRecord(ctx context.Context, email string, rec models.SentRecord) error
}

// Engine drives a user's traversal of the job catalog: picking the next
// actionable posting and moving each (user, job) pair through
// pending -> drafted -> sent, or pending -> skipped. Advancement is
// at-most-once per job per user; terminal states are never reversed.
type Engine struct {
	store    ProfileStore
	composer Composer
}

// New creates an engine over the given store and composer. The mail
// capability arrives per session, bound to the authenticated identity.
func New(store ProfileStore, composer Composer) *Engine {
	return &Engine{store: store, composer: composer}
}

// SelectNext returns the first posting in catalog order whose id is not in
// the profile's applied set and whose contact address is usable, or nil
// when the catalog is exhausted. Pure query: repeated calls with an
// unchanged profile and catalog return the same posting.
func (e *Engine) SelectNext(profile *models.UserProfile, cat *catalog.Catalog) *models.JobPosting {
	for _, job := range cat.Postings() {
		if profile.Applied(job.Key()) {
			continue
		}
		if !job.HasContact() {
			// Intentional filter, not a failure: never selected, never
			// marked applied.
			continue
		}
		j := job
		return &j
	}
	return nil
}

// BeginDraft makes job the session's current job and clears any stale
// draft. Re-selecting the job already in progress is a no-op so selection
// never resets an in-flight draft.
func (e *Engine) BeginDraft(s *Session, job models.JobPosting) {
	if s.CurrentJobID != nil && *s.CurrentJobID == job.ID {
		return
	}
	id := job.ID
	s.CurrentJobID = &id
	s.Drafted = nil
}

// AttachDraft stores composed content on the session without validation;
// empty subject or body is surfaced to the user for manual correction.
func (e *Engine) AttachDraft(s *Session, email models.ComposedEmail) {
	s.Drafted = &email
}

// DiscardDraft abandons the current draft, returning the job to pending.
// No side effect beyond the session.
func (e *Engine) DiscardDraft(s *Session) {
	s.clearDraft()
}

// Draft composes an application email for the job and attaches it to the
// session. Composition failures are retryable; the current-job pointer is
// kept so the user can try again.
func (e *Engine) Draft(ctx context.Context, s *Session, profile *models.UserProfile, job models.JobPosting) (models.ComposedEmail, error) {
	if profile.CVText == "" {
		return models.ComposedEmail{}, apperrors.NewInvalidRequest("profile has no CV text; upload a CV first")
	}

	e.BeginDraft(s, job)

	cctx, cancel := context.WithTimeout(ctx, composeTimeout)
	defer cancel()

	email, err := e.composer.Compose(cctx, profile.CVText, job)
	if err != nil {
		return models.ComposedEmail{}, apperrors.NewComposerFailure(err)
	}

	e.AttachDraft(s, email)
	return email, nil
}

// Skip marks the job as handled without sending: the id joins the applied
// set and the skipped counter is incremented in one document write, then
// the session draft is cleared. Skipped jobs are never revisited.
func (e *Engine) Skip(ctx context.Context, s *Session, profile *models.UserProfile, job models.JobPosting) error {
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := e.store.MarkApplied(sctx, profile.Email, job.Key(), CounterSkipped); err != nil {
		return apperrors.NewStoreUnavailable(err)
	}

	profile.MarkApplied(job.Key())
	profile.Stats.SkippedCount++
	s.clearDraft()
	return nil
}

// CommitSend sends the application for a catalog job and records the
// terminal transition. Ordering is send-then-record: a crash between the
// two can leave a sent email with no local record; that gap is surfaced,
// not hidden. On send failure nothing changes and the draft is preserved
// for retry.
func (e *Engine) CommitSend(ctx context.Context, s *Session, profile *models.UserProfile, job models.JobPosting, to, subject, body string) (models.SentRecord, error) {
	rec, err := e.send(ctx, s, profile, job.Title, to, subject, body)
	if err != nil {
		return models.SentRecord{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := e.store.AppendSentRecord(sctx, profile.Email, rec); err != nil {
		return rec, apperrors.NewStoreUnavailable(fmt.Errorf("email was sent but the sent log could not be written: %w", err))
	}
	if err := e.store.MarkApplied(sctx, profile.Email, job.Key(), CounterSent); err != nil {
		return rec, apperrors.NewStoreUnavailable(fmt.Errorf("email was sent but the applied set could not be updated: %w", err))
	}

	profile.MarkApplied(job.Key())
	profile.Stats.SentCount++
	s.clearDraft()
	return rec, nil
}

// CommitSendManual sends an application for a hand-entered job. Manual
// jobs are not members of the catalog: only the sent log and the sent
// counter change, never the applied set or the skipped counter.
func (e *Engine) CommitSendManual(ctx context.Context, s *Session, profile *models.UserProfile, jobTitle, to, subject, body string) (models.SentRecord, error) {
	if jobTitle == "" {
		jobTitle = "Manual"
	}

	rec, err := e.send(ctx, s, profile, jobTitle, to, subject, body)
	if err != nil {
		return models.SentRecord{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := e.store.AppendSentRecord(sctx, profile.Email, rec); err != nil {
		return rec, apperrors.NewStoreUnavailable(fmt.Errorf("email was sent but the sent log could not be written: %w", err))
	}
	if err := e.store.BumpSent(sctx, profile.Email); err != nil {
		return rec, apperrors.NewStoreUnavailable(fmt.Errorf("email was sent but the counter could not be updated: %w", err))
	}

	profile.Stats.SentCount++
	s.ManualDraft = nil
	return rec, nil
}

// send enforces the attachment precondition and performs the transport
// call. It mutates nothing.
func (e *Engine) send(ctx context.Context, s *Session, profile *models.UserProfile, jobTitle, to, subject, body string) (models.SentRecord, error) {
	if to == "" {
		return models.SentRecord{}, apperrors.NewInvalidRequest("recipient address is required")
	}
	if len(profile.Attachments) == 0 {
		return models.SentRecord{}, apperrors.NewNoAttachment()
	}

	mctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.Sender.Send(mctx, to, subject, body, profile.Attachments); err != nil {
		return models.SentRecord{}, apperrors.NewSendFailure(err)
	}
	log.Printf("application sent to %s (%s)", to, jobTitle)

	return models.SentRecord{
		Recipient: to,
		Subject:   subject,
		Body:      body,
		SentAt:    time.Now(),
		JobTitle:  jobTitle,
	}, nil
}
