package repository

import (
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"crm-api/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type ClientsRepository struct {
	db *sql.DB
}

func NewClientsRepository(db *sql.DB) *ClientsRepository {
	return &ClientsRepository{db: db}
}

const clientColumns = `clients.id, clients.name, clients.email, clients.phone, clients.address,
	clients.owner_id, users.username, clients.created_at, clients.updated_at`

func scanClient(row interface{ Scan(...any) error }) (*models.Client, error) {
	var c models.Client
	var ownerID sql.NullInt64
	var ownerName sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address,
		&ownerID, &ownerName, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		id := int(ownerID.Int64)
		c.OwnerID = &id
	}
	if ownerName.Valid {
		c.OwnerName = &ownerName.String
	}
	return &c, nil
}

func (r *ClientsRepository) Create(name, email string, phone, address *string, ownerID *int) (*models.Client, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO clients (name, email, phone, address, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, name, email, phone, address, ownerID).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

func (r *ClientsRepository) GetByID(id int) (*models.Client, error) {
	row := r.db.QueryRow(`
		SELECT `+clientColumns+`
		FROM clients
		LEFT JOIN users ON users.id = clients.owner_id
		WHERE clients.id = $1
	`, id)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ClientsRepository) Update(id int, name, email, phone, address *string, ownerID *int) error {
	_, err := r.db.Exec(`
		UPDATE clients SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			address = COALESCE($5, address),
			owner_id = COALESCE($6, owner_id),
			updated_at = NOW()
		WHERE id = $1
	`, id, name, email, phone, address, ownerID)
	return err
}

func (r *ClientsRepository) Delete(id int) error {
	_, err := r.db.Exec(`DELETE FROM clients WHERE id = $1`, id)
	return err
}

// List returns one page of clients matching the compiled predicate, plus the
// total match count for pagination.
func (r *ClientsRepository) List(pred sq.Sqlizer, orderBy string, limit, offset int) ([]*models.Client, int, error) {
	query, args, err := psql.Select(clientColumns).
		From("clients").
		LeftJoin("users ON users.id = clients.owner_id").
		Where(pred).
		OrderBy(orderBy).
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	total, err := r.CountMatching(pred)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MatchesOne tests whether the single given row satisfies the predicate.
// The predicate is intersected with an id-equality so the check stays an
// index lookup regardless of what the filter references.
func (r *ClientsRepository) MatchesOne(clientID int, pred sq.Sqlizer) (bool, error) {
	inner := psql.Select("1").
		From("clients").
		Where(sq.Eq{"clients.id": clientID}).
		Where(pred)
	innerSQL, args, err := inner.ToSql()
	if err != nil {
		return false, err
	}
	var exists bool
	err = r.db.QueryRow("SELECT EXISTS ("+innerSQL+")", args...).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ClientsRepository) CountMatching(pred sq.Sqlizer) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("clients").
		LeftJoin("users ON users.id = clients.owner_id").
		Where(pred).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListMatching returns every matching client, unpaginated, ordered by id.
// Used by retroactive workflow runs.
func (r *ClientsRepository) ListMatching(pred sq.Sqlizer) ([]*models.Client, error) {
	query, args, err := psql.Select(clientColumns).
		From("clients").
		LeftJoin("users ON users.id = clients.owner_id").
		Where(pred).
		OrderBy("clients.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// FindByEmail returns the client whose email matches, or nil.
func (r *ClientsRepository) FindByEmail(email string) (*models.Client, error) {
	row := r.db.QueryRow(`
		SELECT `+clientColumns+`
		FROM clients
		LEFT JOIN users ON users.id = clients.owner_id
		WHERE clients.email = $1
	`, email)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
