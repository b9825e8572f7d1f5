package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/swissdoc/apply-agent/internal/apperrors"
	"github.com/swissdoc/apply-agent/internal/catalog"
	"github.com/swissdoc/apply-agent/internal/engine"
	"github.com/swissdoc/apply-agent/internal/export"
	"github.com/swissdoc/apply-agent/internal/ingest"
	"github.com/swissdoc/apply-agent/internal/models"
)

// SessionTokenHeader carries the opaque session token on every
// authenticated request.
const SessionTokenHeader = "X-Session-Token"

const maxUploadBytes = 32 << 20 // 32 MB

// Store is what the server needs beyond the engine's view of persistence.
type Store interface {
	engine.ProfileStore
	SentRecords(ctx context.Context, email string) ([]models.SentRecord, error)
	SaveToken(ctx context.Context, email, tokenB64 string) error
}

// LoginMailer is the capability handed out by a completed OAuth flow: it
// can send mail and knows whose identity it is bound to.
type LoginMailer interface {
	engine.MailSender
	Email() string
	TokenB64() string
}

// Authenticator runs the OAuth flow and returns the bound mail capability.
type Authenticator func(ctx context.Context) (LoginMailer, error)

// Ingestor processes uploaded files into a stored profile.
type Ingestor interface {
	Process(ctx context.Context, email string, uploads []ingest.Upload) (*ingest.Result, error)
}

// Server handles HTTP requests
type Server struct {
	engine   *engine.Engine
	catalog  *catalog.Catalog
	store    Store
	ingestor Ingestor
	auth     Authenticator
	sessions *sessionRegistry
}

// NewServer creates a new API server
func NewServer(eng *engine.Engine, cat *catalog.Catalog, store Store, ingestor Ingestor, auth Authenticator) *Server {
	return &Server{
		engine:   eng,
		catalog:  cat,
		store:    store,
		ingestor: ingestor,
		auth:     auth,
		sessions: newSessionRegistry(),
	}
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.withSession(s.handleLogout))
	mux.HandleFunc("GET /jobs/next", s.withSession(s.handleNextJob))
	mux.HandleFunc("POST /jobs/draft", s.withSession(s.handleDraft))
	mux.HandleFunc("POST /jobs/discard", s.withSession(s.handleDiscard))
	mux.HandleFunc("POST /jobs/skip", s.withSession(s.handleSkip))
	mux.HandleFunc("POST /jobs/send", s.withSession(s.handleSend))
	mux.HandleFunc("POST /jobs/manual-send", s.withSession(s.handleManualSend))
	mux.HandleFunc("POST /attachments", s.withSession(s.handleAttachments))
	mux.HandleFunc("GET /dashboard", s.withSession(s.handleDashboard))
	mux.HandleFunc("GET /dashboard/export", s.withSession(s.handleDashboardExport))

	return s.loggingMiddleware(mux)
}

// handleRoot provides API information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "Apply Agent",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"POST /login":            "Run the OAuth flow and open a session",
			"GET /jobs/next":         "Next actionable job posting",
			"POST /jobs/draft":       "Draft an application email for a job",
			"POST /jobs/discard":     "Abandon the current draft",
			"POST /jobs/skip":        "Skip a job permanently",
			"POST /jobs/send":        "Send the application for a job",
			"POST /jobs/manual-send": "Send an application for a hand-entered job",
			"POST /attachments":      "Upload CV and attachments (replaces all)",
			"GET /dashboard":         "Stats and sent log",
			"GET /dashboard/export":  "Dashboard as an Excel workbook",
			"GET /health":            "Health check",
		},
	})
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleLogin runs the OAuth flow, loads the user's profile and opens a
// session bound to the authenticated identity.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	mailer, err := s.auth(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, fmt.Sprintf("login failed: %v", err))
		return
	}

	email := mailer.Email()
	profile, err := s.store.Profile(r.Context(), email)
	if err != nil {
		s.respondAppError(w, apperrors.NewStoreUnavailable(err))
		return
	}

	// Token mirroring is best effort; a failure only costs a re-auth.
	if tok := mailer.TokenB64(); tok != "" {
		if err := s.store.SaveToken(r.Context(), email, tok); err != nil {
			log.Printf("failed to mirror oauth token for %s: %v", email, err)
		}
	}

	token := s.sessions.add(engine.NewSession("", email, mailer), profile)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"email": email,
		"stats": profile.Stats,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	s.sessions.remove(e.session.ID)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleNextJob returns the first pending job with a usable contact, or
// exhausted=true when none remains. Repeated calls return the same job
// until it is skipped or sent.
func (s *Server) handleNextJob(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	job := s.engine.SelectNext(e.profile, s.catalog)
	if job == nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"exhausted": true})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"exhausted": false,
		"job":       jobPayload(*job),
		"state":     engine.StateOf(e.profile, e.session, *job),
	})
}

type jobRequest struct {
	JobID int `json:"job_id"`
}

// handleDraft composes an application email for a catalog job and keeps
// it on the session for review.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, ok := s.catalog.Get(req.JobID)
	if !ok {
		s.respondAppError(w, apperrors.NewNotFound(fmt.Sprintf("job %d", req.JobID)))
		return
	}

	draft, err := s.engine.Draft(r.Context(), e.session, e.profile, job)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"job":     jobPayload(job),
		"subject": draft.Subject,
		"body":    draft.Body,
		"to":      job.ContactEmail,
	})
}

// handleDiscard abandons the current draft; the job returns to pending
// and stays selectable.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	s.engine.DiscardDraft(e.session)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

// handleSkip marks a job as handled without sending.
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, ok := s.catalog.Get(req.JobID)
	if !ok {
		s.respondAppError(w, apperrors.NewNotFound(fmt.Sprintf("job %d", req.JobID)))
		return
	}
	if e.profile.Applied(job.Key()) {
		s.respondError(w, http.StatusConflict, "job is already handled")
		return
	}

	if err := s.engine.Skip(r.Context(), e.session, e.profile, job); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "skipped",
		"stats":  e.profile.Stats,
	})
}

type sendRequest struct {
	JobID   int    `json:"job_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// handleSend commits the send for a catalog job. Subject and body default
// to the session draft; edited values from the client win.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, ok := s.catalog.Get(req.JobID)
	if !ok {
		s.respondAppError(w, apperrors.NewNotFound(fmt.Sprintf("job %d", req.JobID)))
		return
	}
	if e.profile.Applied(job.Key()) {
		s.respondError(w, http.StatusConflict, "job is already handled")
		return
	}

	subject, body := req.Subject, req.Body
	if subject == "" && body == "" && e.session.Drafted != nil {
		subject, body = e.session.Drafted.Subject, e.session.Drafted.Body
	}

	rec, err := s.engine.CommitSend(r.Context(), e.session, e.profile, job, job.ContactEmail, subject, body)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "sent",
		"record": recordPayload(rec),
		"stats":  e.profile.Stats,
	})
}

type manualSendRequest struct {
	JobTitle string `json:"job_title"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// handleManualSend sends an application for a job entered by hand. The
// catalog and the applied set are untouched.
func (s *Server) handleManualSend(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	var req manualSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	to := catalog.NormalizeContact(req.To)
	rec, err := s.engine.CommitSendManual(r.Context(), e.session, e.profile, req.JobTitle, to, req.Subject, req.Body)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "sent",
		"record": recordPayload(rec),
		"stats":  e.profile.Stats,
	})
}

// handleAttachments ingests uploaded files. The first file is the CV; the
// whole batch replaces previously stored attachments.
func (s *Server) handleAttachments(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	var uploads []ingest.Upload
	for _, fileHeader := range files {
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if ext != ".pdf" && ext != ".txt" {
			log.Printf("skipping unsupported file type: %s", fileHeader.Filename)
			continue
		}

		file, err := fileHeader.Open()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to open uploaded file: %v", err))
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s: %v", fileHeader.Filename, err))
			return
		}
		uploads = append(uploads, ingest.Upload{Name: fileHeader.Filename, Content: content})
	}

	res, err := s.ingestor.Process(r.Context(), e.session.Email, uploads)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	e.profile.CVText = res.CVText
	e.profile.Attachments = res.Attachments

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "stored",
		"files":      len(res.Attachments),
		"translated": res.Translated,
	})
}

// handleDashboard returns the counters and the sent log, newest first.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	records, err := s.store.SentRecords(r.Context(), e.session.Email)
	if err != nil {
		s.respondAppError(w, apperrors.NewStoreUnavailable(err))
		return
	}

	payload := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		payload = append(payload, recordPayload(rec))
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"email":       e.session.Email,
		"stats":       e.profile.Stats,
		"sent_emails": payload,
	})
}

// handleDashboardExport streams the dashboard as an Excel workbook.
func (s *Server) handleDashboardExport(w http.ResponseWriter, r *http.Request, e *sessionEntry) {
	records, err := s.store.SentRecords(r.Context(), e.session.Email)
	if err != nil {
		s.respondAppError(w, apperrors.NewStoreUnavailable(err))
		return
	}

	b, err := export.SentApplications(e.session.Email, e.profile.Stats, records)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="applications.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		log.Printf("failed to stream workbook: %v", err)
	}
}

// withSession resolves the session token and serializes all handling for
// that session.
func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, *sessionEntry)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(SessionTokenHeader)
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		entry, ok := s.sessions.get(token)
		if !ok {
			s.respondError(w, http.StatusUnauthorized, "unknown or expired session")
			return
		}

		entry.mu.Lock()
		defer entry.mu.Unlock()
		next(w, r, entry)
	}
}

func jobPayload(job models.JobPosting) map[string]interface{} {
	return map[string]interface{}{
		"id":          job.ID,
		"title":       job.Title,
		"hospital":    job.Hospital,
		"canton":      job.Canton,
		"contact":     job.ContactEmail,
		"description": job.Description,
	}
}

func recordPayload(rec models.SentRecord) map[string]interface{} {
	return map[string]interface{}{
		"recipient": rec.Recipient,
		"subject":   rec.Subject,
		"body":      rec.Body,
		"sent_at":   rec.SentAt.Format(time.RFC3339),
		"job_title": rec.JobTitle,
	}
}

// respondAppError maps a coded application error onto its HTTP status.
func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	s.respondError(w, apperrors.StatusOf(err), err.Error())
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
