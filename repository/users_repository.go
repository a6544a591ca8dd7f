package repository

import (
	"database/sql"

	"golang.org/x/crypto/bcrypt"

	"crm-api/models"
)

type UsersRepository struct {
	db *sql.DB
}

func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func (r *UsersRepository) CreateUser(username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	var id int
	err = r.db.QueryRow(`
		INSERT INTO users (username, password_hash, is_staff, created_at)
		VALUES ($1, $2, FALSE, NOW())
		RETURNING id
	`, username, string(hash)).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

func (r *UsersRepository) GetByID(id int) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(`
		SELECT id, username, password_hash, is_staff, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepository) GetByUsername(username string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(`
		SELECT id, username, password_hash, is_staff, created_at
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
