package models

import "time"

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"isStaff"`
	CreatedAt    time.Time `json:"createdAt"`
}
