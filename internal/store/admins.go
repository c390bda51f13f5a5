package store

import (
	"context"
	"database/sql"

	"shop-service/internal/models"
)

// GetAdminByUsername retrieves a back-office account
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.GetContext(ctx, &admin, "SELECT * FROM admins WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpsertAdmin creates the account or replaces its password hash
func (s *Store) UpsertAdmin(ctx context.Context, username, passwordHash string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.GetContext(ctx, &admin, `
		INSERT INTO admins (username, password_hash)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash
		RETURNING *`,
		username, passwordHash)
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
