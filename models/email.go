package models

import "time"

type EmailTemplate struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	OwnerID   int       `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Email is a sent or synced message recorded against a client.
type Email struct {
	ID        int       `json:"id"`
	MessageID string    `json:"messageId"`
	ThreadID  string    `json:"threadId"`
	Subject   *string   `json:"subject"`
	Body      *string   `json:"body"`
	FromEmail string    `json:"fromEmail"`
	ToEmail   string    `json:"toEmail"`
	Timestamp time.Time `json:"timestamp"`
	ClientID  *int      `json:"clientId"`
	UserID    int       `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// GoogleToken holds a user's Gmail OAuth credentials.
type GoogleToken struct {
	UserID       int       `json:"userId"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
