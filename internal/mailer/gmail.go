package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/swissdoc/apply-agent/internal/models"
)

// userinfoEmailScope lets the app resolve the authenticated address so the
// profile document is keyed correctly.
const userinfoEmailScope = "https://www.googleapis.com/auth/userinfo.email"

// Service sends application emails through the authenticated user's own
// Gmail account. It satisfies the engine's MailSender capability.
type Service struct {
	svc      *gmail.Service
	email    string
	tokenB64 string
}

// Authenticate runs the OAuth installed-app flow (reusing a cached token
// when one exists) and resolves the signed-in address. Each user must go
// through OAuth; emails always send from their own account.
func Authenticate(ctx context.Context, credentialsPath, tokenPath string) (*Service, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailSendScope, userinfoEmailScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	tok, err := getToken(ctx, config, tokenPath)
	if err != nil {
		return nil, err
	}
	client := config.Client(ctx, tok)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail client: %w", err)
	}

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to resolve authenticated address: %w", err)
	}

	tokJSON, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("unable to encode token: %w", err)
	}

	return &Service{
		svc:      srv,
		email:    profile.EmailAddress,
		tokenB64: base64.StdEncoding.EncodeToString(tokJSON),
	}, nil
}

// Email returns the authenticated address.
func (s *Service) Email() string { return s.email }

// TokenB64 returns the OAuth token as base64 JSON, mirrored into the
// user's profile document so re-auth is optional.
func (s *Service) TokenB64() string { return s.tokenB64 }

// Send builds the MIME message and submits it via the Gmail API. The From
// header is always the authenticated identity.
func (s *Service) Send(ctx context.Context, to, subject, body string, attachments []models.Attachment) error {
	raw, err := BuildRawMessage(s.email, to, subject, body, attachments)
	if err != nil {
		return err
	}

	if _, err := s.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send failed: %w", err)
	}
	return nil
}

// getToken retrieves a cached token or runs the web flow and caches the
// result.
func getToken(ctx context.Context, config *oauth2.Config, tokenPath string) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenPath)
	if err == nil {
		return tok, nil
	}

	tok, err = getTokenFromWeb(ctx, config)
	if err != nil {
		return nil, err
	}
	saveToken(tokenPath, tok)
	return tok, nil
}

// getTokenFromWeb requests a token from the web.
func getTokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code: \n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}

	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// saveToken saves a token to a file path.
func saveToken(path string, token *oauth2.Token) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		log.Printf("Unable to cache oauth token: %v", err)
		return
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		log.Printf("Unable to write oauth token: %v", err)
	}
}
