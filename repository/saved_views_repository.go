package repository

import (
	"database/sql"
	"encoding/json"

	"crm-api/models"
)

type SavedViewsRepository struct {
	db *sql.DB
}

func NewSavedViewsRepository(db *sql.DB) *SavedViewsRepository {
	return &SavedViewsRepository{db: db}
}

const savedViewColumns = `id, name, user_id, view_type, filters, is_system, position,
	column_order, sorting, created_at`

func scanSavedView(row interface{ Scan(...any) error }) (*models.SavedView, error) {
	var v models.SavedView
	var userID sql.NullInt64
	var columnOrder, sorting []byte
	err := row.Scan(&v.ID, &v.Name, &userID, &v.ViewType, &v.Filters,
		&v.IsSystem, &v.Position, &columnOrder, &sorting, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := int(userID.Int64)
		v.UserID = &id
	}
	v.ColumnOrder = columnOrder
	v.Sorting = sorting
	return &v, nil
}

func (r *SavedViewsRepository) Create(userID int, name, viewType string, filters, columnOrder, sorting json.RawMessage, position int) (*models.SavedView, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO saved_views (name, user_id, view_type, filters, is_system, position,
			column_order, sorting, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6, $7, NOW())
		RETURNING id
	`, name, userID, viewType, filters, position, columnOrder, sorting).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

func (r *SavedViewsRepository) GetByID(id int) (*models.SavedView, error) {
	row := r.db.QueryRow(`
		SELECT `+savedViewColumns+` FROM saved_views WHERE id = $1
	`, id)
	v, err := scanSavedView(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// List returns the union of the user's own views and all system views,
// ordered by (position, id), optionally narrowed to one view type.
func (r *SavedViewsRepository) List(userID int, viewType string) ([]*models.SavedView, error) {
	query := `
		SELECT ` + savedViewColumns + `
		FROM saved_views
		WHERE (user_id = $1 OR is_system = TRUE)
	`
	args := []any{userID}
	if viewType != "" {
		query += ` AND view_type = $2`
		args = append(args, viewType)
	}
	query += ` ORDER BY position, id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.SavedView
	for rows.Next() {
		v, err := scanSavedView(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *SavedViewsRepository) Update(id int, name *string, filters, columnOrder, sorting *json.RawMessage, position *int) error {
	_, err := r.db.Exec(`
		UPDATE saved_views SET
			name = COALESCE($2, name),
			filters = COALESCE($3, filters),
			column_order = COALESCE($4, column_order),
			sorting = COALESCE($5, sorting),
			position = COALESCE($6, position)
		WHERE id = $1
	`, id, name, filters, columnOrder, sorting, position)
	return err
}

func (r *SavedViewsRepository) Delete(id int) error {
	_, err := r.db.Exec(`DELETE FROM saved_views WHERE id = $1`, id)
	return err
}

// UpsertSystemView seeds a protected system view by name, updating its filter
// and position if it already exists. System views carry no owner. Called from
// boot initialization.
func (r *SavedViewsRepository) UpsertSystemView(name, viewType string, filters json.RawMessage, position int) error {
	_, err := r.db.Exec(`
		INSERT INTO saved_views (name, user_id, view_type, filters, is_system, position, created_at)
		VALUES ($1, NULL, $2, $3, TRUE, $4, NOW())
		ON CONFLICT (name) WHERE is_system
		DO UPDATE SET filters = EXCLUDED.filters, position = EXCLUDED.position
	`, name, viewType, filters, position)
	return err
}
