package engine

import (
	"github.com/swissdoc/apply-agent/internal/models"
)

// Session carries the per-session draft state and the capabilities bound
// to the authenticated identity. It is owned by the request/session
// handler and passed explicitly to every engine call; nothing in the
// engine is process-wide. Draft state is never persisted and is discarded
// when the session ends.
type Session struct {
	ID    string
	Email string

	// Sender is the mail capability obtained at login. The engine never
	// sends on behalf of an identity other than the authenticated one.
	Sender MailSender

	// CurrentJobID is the catalog id of the job being worked on, or nil.
	CurrentJobID *int
	// Drafted is the composed-but-unsent email for CurrentJobID, or nil.
	Drafted *models.ComposedEmail
	// ManualDraft holds the draft for a hand-entered job, kept separate
	// from the catalog flow.
	ManualDraft *models.ComposedEmail
}

// NewSession creates a session bound to one identity and mail capability.
func NewSession(id, email string, sender MailSender) *Session {
	return &Session{ID: id, Email: email, Sender: sender}
}

// clearDraft drops the current job pointer and any drafted email.
func (s *Session) clearDraft() {
	s.CurrentJobID = nil
	s.Drafted = nil
}

// State is the derived status of one (user, job) pair. It is never stored;
// membership in the applied set plus the session's draft pointer define it.
type State string

const (
	// StatePending means the user has not interacted with the job yet.
	StatePending State = "pending"
	// StateDrafted means the job is the session's current job and a draft
	// exists for it.
	StateDrafted State = "drafted"
	// StateApplied is the terminal state: the job was sent or skipped. The
	// persisted set does not distinguish the two outcomes.
	StateApplied State = "applied"
)

// StateOf derives the status of a job for the given profile and session.
func StateOf(profile *models.UserProfile, s *Session, job models.JobPosting) State {
	if profile.Applied(job.Key()) {
		return StateApplied
	}
	if s != nil && s.CurrentJobID != nil && *s.CurrentJobID == job.ID && s.Drafted != nil {
		return StateDrafted
	}
	return StatePending
}
