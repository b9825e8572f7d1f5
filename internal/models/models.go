package models

import (
	"strconv"
	"strings"
	"time"
)

// ManualJobID marks a posting synthesized by the user rather than drawn
// from the catalog. Manual jobs are never tracked in the applied set.
const ManualJobID = -1

// JobPosting represents one row of the job catalog. Identity is the row
// index, which is stable for the lifetime of a loaded catalog.
type JobPosting struct {
	ID           int    `json:"id"`
	Title        string `json:"job_title"`
	Hospital     string `json:"hospital_name"`
	Canton       string `json:"canton"`
	ContactEmail string `json:"contact_email"`
	Description  string `json:"job_description"`
}

// Key returns the string form of the posting id used in the applied set.
func (j JobPosting) Key() string {
	return strconv.Itoa(j.ID)
}

// IsManual reports whether the posting was entered by hand.
func (j JobPosting) IsManual() bool {
	return j.ID == ManualJobID
}

// HasContact reports whether the posting carries a usable contact address.
// Postings without one are permanently filtered from selection.
func (j JobPosting) HasContact() bool {
	return j.ContactEmail != "" && strings.Contains(j.ContactEmail, "@")
}

// Attachment is a file the user uploaded, sent verbatim with every
// application. The first attachment is always the CV.
type Attachment struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

// Stats holds the per-user progress counters.
type Stats struct {
	SentCount    int `json:"sent_count"`
	SkippedCount int `json:"skipped_count"`
}

// UserProfile is the persistent record for one authenticated identity.
// AppliedJobIDs only ever grows; membership means the job reached a
// terminal state (sent or skipped, undistinguished).
type UserProfile struct {
	Email         string              `json:"email"`
	AppliedJobIDs map[string]struct{} `json:"-"`
	CVText        string              `json:"cv_text"`
	Attachments   []Attachment        `json:"attachments"`
	Stats         Stats               `json:"stats"`
}

// NewUserProfile returns an empty profile for the given identity.
func NewUserProfile(email string) *UserProfile {
	return &UserProfile{
		Email:         email,
		AppliedJobIDs: make(map[string]struct{}),
	}
}

// Applied reports whether the job id is in the applied set.
func (p *UserProfile) Applied(jobKey string) bool {
	_, ok := p.AppliedJobIDs[jobKey]
	return ok
}

// MarkApplied adds the job id to the applied set. Union semantics: adding
// an id twice is harmless.
func (p *UserProfile) MarkApplied(jobKey string) {
	if p.AppliedJobIDs == nil {
		p.AppliedJobIDs = make(map[string]struct{})
	}
	p.AppliedJobIDs[jobKey] = struct{}{}
}

// ComposedEmail is a subject/body pair produced by the composer or typed
// by the user. Empty fields are allowed and surfaced for manual correction.
type ComposedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SentRecord is the append-only log entry written after a successful send.
type SentRecord struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
	JobTitle  string    `json:"job_title"`
}
