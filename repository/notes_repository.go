package repository

import (
	"database/sql"

	"crm-api/models"
)

type NotesRepository struct {
	db *sql.DB
}

func NewNotesRepository(db *sql.DB) *NotesRepository {
	return &NotesRepository{db: db}
}

const noteColumns = `notes.id, notes.content, notes.client_id, notes.author_id,
	users.username, notes.created_at, notes.updated_at`

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	var n models.Note
	var authorID sql.NullInt64
	var authorName sql.NullString
	err := row.Scan(&n.ID, &n.Content, &n.ClientID, &authorID, &authorName,
		&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if authorID.Valid {
		id := int(authorID.Int64)
		n.AuthorID = &id
	}
	if authorName.Valid {
		n.AuthorName = &authorName.String
	}
	return &n, nil
}

func (r *NotesRepository) Create(content string, clientID int, authorID *int) (*models.Note, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO notes (content, client_id, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, content, clientID, authorID).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

func (r *NotesRepository) GetByID(id int) (*models.Note, error) {
	row := r.db.QueryRow(`
		SELECT `+noteColumns+`
		FROM notes
		LEFT JOIN users ON users.id = notes.author_id
		WHERE notes.id = $1
	`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NotesRepository) Update(id int, content string) error {
	_, err := r.db.Exec(`
		UPDATE notes SET content = $2, updated_at = NOW() WHERE id = $1
	`, id, content)
	return err
}

func (r *NotesRepository) Delete(id int) error {
	_, err := r.db.Exec(`DELETE FROM notes WHERE id = $1`, id)
	return err
}

// ListByClient returns the newest-first page of a client's notes.
func (r *NotesRepository) ListByClient(clientID, limit, offset int) ([]*models.Note, int, error) {
	rows, err := r.db.Query(`
		SELECT `+noteColumns+`
		FROM notes
		LEFT JOIN users ON users.id = notes.author_id
		WHERE notes.client_id = $1
		ORDER BY notes.created_at DESC
		LIMIT $2 OFFSET $3
	`, clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.db.QueryRow(`SELECT COUNT(*) FROM notes WHERE client_id = $1`, clientID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
