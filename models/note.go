package models

import "time"

type Note struct {
	ID         int       `json:"id"`
	Content    string    `json:"content"`
	ClientID   int       `json:"clientId"`
	AuthorID   *int      `json:"authorId"`
	AuthorName *string   `json:"authorName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
