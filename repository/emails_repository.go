package repository

import (
	"database/sql"
	"time"

	"crm-api/models"
)

type EmailsRepository struct {
	db *sql.DB
}

func NewEmailsRepository(db *sql.DB) *EmailsRepository {
	return &EmailsRepository{db: db}
}

const emailColumns = `id, message_id, thread_id, subject, body, from_email, to_email,
	timestamp, client_id, user_id, created_at`

func scanEmail(row interface{ Scan(...any) error }) (*models.Email, error) {
	var e models.Email
	var clientID sql.NullInt64
	err := row.Scan(&e.ID, &e.MessageID, &e.ThreadID, &e.Subject, &e.Body,
		&e.FromEmail, &e.ToEmail, &e.Timestamp, &clientID, &e.UserID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if clientID.Valid {
		id := int(clientID.Int64)
		e.ClientID = &id
	}
	return &e, nil
}

type EmailRecord struct {
	MessageID string
	ThreadID  string
	Subject   *string
	Body      *string
	FromEmail string
	ToEmail   string
	Timestamp time.Time
	ClientID  *int
	UserID    int
}

func (r *EmailsRepository) Insert(rec EmailRecord) (*models.Email, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO emails (message_id, thread_id, subject, body, from_email, to_email,
			timestamp, client_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (message_id) DO NOTHING
		RETURNING id
	`, rec.MessageID, rec.ThreadID, rec.Subject, rec.Body, rec.FromEmail,
		rec.ToEmail, rec.Timestamp, rec.ClientID, rec.UserID).Scan(&id)
	if err == sql.ErrNoRows {
		// Already recorded; message ids are globally unique.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.getByID(id)
}

func (r *EmailsRepository) getByID(id int) (*models.Email, error) {
	row := r.db.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE id = $1`, id)
	e, err := scanEmail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByUser returns the user's recorded messages, newest first, optionally
// narrowed to one client.
func (r *EmailsRepository) ListByUser(userID int, clientID *int) ([]*models.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE user_id = $1`
	args := []any{userID}
	if clientID != nil {
		query += ` AND client_id = $2`
		args = append(args, *clientID)
	}
	query += ` ORDER BY timestamp DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
