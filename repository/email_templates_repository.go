package repository

import (
	"database/sql"

	"crm-api/models"
)

type EmailTemplatesRepository struct {
	db *sql.DB
}

func NewEmailTemplatesRepository(db *sql.DB) *EmailTemplatesRepository {
	return &EmailTemplatesRepository{db: db}
}

const templateColumns = `id, name, subject, body, owner_id, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *EmailTemplatesRepository) Create(ownerID int, name, subject, body string) (*models.EmailTemplate, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO email_templates (name, subject, body, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`, name, subject, body, ownerID).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.getByID(id)
}

func (r *EmailTemplatesRepository) getByID(id int) (*models.EmailTemplate, error) {
	row := r.db.QueryRow(`SELECT `+templateColumns+` FROM email_templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByIDAndOwner resolves a template reference from a workflow's action
// config. Cross-owner ids resolve to nil exactly like missing ones.
func (r *EmailTemplatesRepository) GetByIDAndOwner(id, ownerID int) (*models.EmailTemplate, error) {
	row := r.db.QueryRow(`
		SELECT `+templateColumns+` FROM email_templates WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *EmailTemplatesRepository) ListByOwner(ownerID int) ([]*models.EmailTemplate, error) {
	rows, err := r.db.Query(`
		SELECT `+templateColumns+` FROM email_templates
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.EmailTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *EmailTemplatesRepository) Update(id int, name, subject, body *string) error {
	_, err := r.db.Exec(`
		UPDATE email_templates SET
			name = COALESCE($2, name),
			subject = COALESCE($3, subject),
			body = COALESCE($4, body),
			updated_at = NOW()
		WHERE id = $1
	`, id, name, subject, body)
	return err
}

func (r *EmailTemplatesRepository) Delete(id int) error {
	_, err := r.db.Exec(`DELETE FROM email_templates WHERE id = $1`, id)
	return err
}
