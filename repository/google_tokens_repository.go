package repository

import (
	"database/sql"
	"time"

	"crm-api/models"
)

type GoogleTokensRepository struct {
	db *sql.DB
}

func NewGoogleTokensRepository(db *sql.DB) *GoogleTokensRepository {
	return &GoogleTokensRepository{db: db}
}

func (r *GoogleTokensRepository) Get(userID int) (*models.GoogleToken, error) {
	var t models.GoogleToken
	err := r.db.QueryRow(`
		SELECT user_id, access_token, refresh_token, expires_at, updated_at
		FROM google_tokens WHERE user_id = $1
	`, userID).Scan(&t.UserID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GoogleTokensRepository) Upsert(userID int, accessToken, refreshToken string, expiresAt time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO google_tokens (user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`, userID, accessToken, refreshToken, expiresAt)
	return err
}

// UpdateAccess persists a refreshed access token without touching the
// refresh token.
func (r *GoogleTokensRepository) UpdateAccess(userID int, accessToken string, expiresAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE google_tokens SET access_token = $2, expires_at = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, accessToken, expiresAt)
	return err
}
