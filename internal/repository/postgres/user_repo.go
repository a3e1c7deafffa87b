package postgres

import (
	"context"
	"database/sql"
	"errors"

	"consultations/internal/domain"
)

type userRepository struct {
	DB *sql.DB
}

// NewUserDirectory returns a read-only UserDirectory backed by the users table.
func NewUserDirectory(db *sql.DB) domain.UserDirectory {
	return &userRepository{DB: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, phone, role
		FROM users
		WHERE id = $1
	`
	u := &domain.User{}
	var role string
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return u, nil
}
