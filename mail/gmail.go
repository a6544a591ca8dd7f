package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"crm-api/repository"
)

const gmailSendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

// GmailMailer sends mail through the Gmail REST API using each user's stored
// OAuth tokens, refreshing expired access tokens transparently. The OAuth
// consent flow that mints the initial tokens lives outside this service.
type GmailMailer struct {
	tokens       *repository.GoogleTokensRepository
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func NewGmailMailer(tokens *repository.GoogleTokensRepository, clientID, clientSecret string) *GmailMailer {
	return &GmailMailer{
		tokens:       tokens,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *GmailMailer) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}
}

// credentials returns a live access token for the user, persisting the
// refreshed token when the stored one has expired.
func (m *GmailMailer) credentials(ctx context.Context, userID int) (string, error) {
	stored, err := m.tokens.Get(userID)
	if err != nil {
		return "", err
	}
	if stored == nil {
		return "", fmt.Errorf("user %d has no linked gmail account", userID)
	}
	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.ExpiresAt,
	}
	fresh, err := m.oauthConfig().TokenSource(ctx, tok).Token()
	if err != nil {
		return "", fmt.Errorf("refreshing gmail token: %w", err)
	}
	if fresh.AccessToken != stored.AccessToken {
		if err := m.tokens.UpdateAccess(userID, fresh.AccessToken, fresh.Expiry); err != nil {
			slog.Error("failed to persist refreshed gmail token", "userId", userID, "err", err)
		}
	}
	return fresh.AccessToken, nil
}

// SendMessage builds an RFC 2822 message, base64url-encodes it and posts it
// to the Gmail send endpoint.
func (m *GmailMailer) SendMessage(ctx context.Context, userID int, to, subject, body string) (*SentMessage, error) {
	accessToken, err := m.credentials(ctx, userID)
	if err != nil {
		return nil, err
	}

	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s", to, subject, body)
	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gmailSendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmail send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gmail send failed: status %d: %s", resp.StatusCode, data)
	}

	var result struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding gmail response: %w", err)
	}
	return &SentMessage{ID: result.ID, ThreadID: result.ThreadID}, nil
}
