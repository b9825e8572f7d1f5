package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/swissdoc/apply-agent/internal/engine"
	"github.com/swissdoc/apply-agent/internal/models"
)

// DefaultCollection is the per-user profile collection.
const DefaultCollection = "job_applications_v3"

const sentSubcollection = "sent_emails"

// attachmentDoc is the wire form of one stored file.
type attachmentDoc struct {
	Name       string `firestore:"name"`
	ContentB64 string `firestore:"content_b64"`
}

// profileDoc is the wire form of a user profile document, keyed by email.
type profileDoc struct {
	AppliedJobs []string        `firestore:"applied_jobs"`
	CVText      string          `firestore:"cv_text"`
	Attachments []attachmentDoc `firestore:"attachments"`
	Stats       statsDoc        `firestore:"stats"`
	GmailToken  string          `firestore:"gmail_token"`
}

type statsDoc struct {
	SentCount    int64 `firestore:"sent_count"`
	SkippedCount int64 `firestore:"skipped_count"`
}

type sentDoc struct {
	Recipient string    `firestore:"recipient"`
	Subject   string    `firestore:"subject"`
	Body      string    `firestore:"body"`
	SentAt    time.Time `firestore:"sent_at"`
	JobTitle  string    `firestore:"job_title"`
}

// FirestoreStore persists user profiles and the sent log in Firestore.
// One document per user email; sent emails live in a subcollection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore wraps an existing client. An empty collection name
// falls back to DefaultCollection.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (f *FirestoreStore) doc(email string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(email)
}

// Profile loads the user's profile, returning a fresh empty profile when
// no document exists yet.
func (f *FirestoreStore) Profile(ctx context.Context, email string) (*models.UserProfile, error) {
	snap, err := f.doc(email).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.NewUserProfile(email), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", email, err)
	}

	var doc profileDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile for %s: %w", email, err)
	}

	profile := models.NewUserProfile(email)
	profile.CVText = doc.CVText
	profile.Stats = models.Stats{
		SentCount:    int(doc.Stats.SentCount),
		SkippedCount: int(doc.Stats.SkippedCount),
	}
	for _, id := range doc.AppliedJobs {
		profile.MarkApplied(id)
	}
	for _, att := range doc.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.ContentB64)
		if err != nil {
			return nil, fmt.Errorf("attachment %s for %s is corrupt: %w", att.Name, email, err)
		}
		profile.Attachments = append(profile.Attachments, models.Attachment{Name: att.Name, Content: content})
	}
	return profile, nil
}

// MarkApplied adds the job id to the applied set and increments the
// matching counter in a single document write, so a failure changes
// neither.
func (f *FirestoreStore) MarkApplied(ctx context.Context, email, jobKey string, counter engine.Counter) error {
	field := "skipped_count"
	if counter == engine.CounterSent {
		field = "sent_count"
	}

	_, err := f.doc(email).Set(ctx, map[string]interface{}{
		"applied_jobs": firestore.ArrayUnion(jobKey),
		"stats": map[string]interface{}{
			field: firestore.Increment(1),
		},
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to mark job %s applied for %s: %w", jobKey, email, err)
	}
	return nil
}

// BumpSent increments the sent counter without touching the applied set,
// for hand-entered jobs outside the catalog.
func (f *FirestoreStore) BumpSent(ctx context.Context, email string) error {
	_, err := f.doc(email).Set(ctx, map[string]interface{}{
		"stats": map[string]interface{}{
			"sent_count": firestore.Increment(1),
		},
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to bump sent counter for %s: %w", email, err)
	}
	return nil
}

// AppendSentRecord writes one entry to the user's sent log. The stored
// timestamp is assigned by the server.
func (f *FirestoreStore) AppendSentRecord(ctx context.Context, email string, rec models.SentRecord) error {
	_, _, err := f.doc(email).Collection(sentSubcollection).Add(ctx, map[string]interface{}{
		"recipient": rec.Recipient,
		"subject":   rec.Subject,
		"body":      rec.Body,
		"sent_at":   firestore.ServerTimestamp,
		"job_title": rec.JobTitle,
	})
	if err != nil {
		return fmt.Errorf("failed to append sent record for %s: %w", email, err)
	}
	return nil
}

// SentRecords returns the user's sent log, newest first.
func (f *FirestoreStore) SentRecords(ctx context.Context, email string) ([]models.SentRecord, error) {
	iter := f.doc(email).Collection(sentSubcollection).
		OrderBy("sent_at", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var records []models.SentRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sent log for %s: %w", email, err)
		}

		var doc sentDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sent record for %s: %w", email, err)
		}
		records = append(records, models.SentRecord{
			Recipient: doc.Recipient,
			Subject:   doc.Subject,
			Body:      doc.Body,
			SentAt:    doc.SentAt,
			JobTitle:  doc.JobTitle,
		})
	}
	return records, nil
}

// SaveFiles replaces the profile's CV text and attachment set wholesale.
// Uploads are replace-all, never additive.
func (f *FirestoreStore) SaveFiles(ctx context.Context, email, cvText string, attachments []models.Attachment) error {
	docs := make([]attachmentDoc, 0, len(attachments))
	for _, att := range attachments {
		docs = append(docs, attachmentDoc{
			Name:       att.Name,
			ContentB64: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	_, err := f.doc(email).Set(ctx, map[string]interface{}{
		"cv_text":     cvText,
		"attachments": docs,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to save files for %s: %w", email, err)
	}
	return nil
}

// SaveToken mirrors the OAuth token into the profile document.
func (f *FirestoreStore) SaveToken(ctx context.Context, email, tokenB64 string) error {
	_, err := f.doc(email).Set(ctx, map[string]interface{}{
		"gmail_token": tokenB64,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to save token for %s: %w", email, err)
	}
	return nil
}

// Close releases the underlying client.
func (f *FirestoreStore) Close() error {
	return f.client.Close()
}
