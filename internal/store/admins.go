package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shelfd/shelf/internal/model"
)

// CreateAdmin inserts a new admin account. The PasswordHash must already be
// set; plaintext never reaches the store. The ID, CreatedAt, and UpdatedAt
// fields are populated after a successful insert. Returns ErrDuplicateEmail
// if the email is taken.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	if s.driver == "postgres" {
		const q = `INSERT INTO admins (email, password_hash, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`
		err := s.db.QueryRowxContext(ctx, q,
			admin.Email, admin.PasswordHash, admin.Name, admin.CreatedAt, admin.UpdatedAt,
		).Scan(&admin.ID)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("insert admin: %w", err)
		}
		return nil
	}

	const q = `INSERT INTO admins
		(email, password_hash, name, created_at, updated_at)
		VALUES
		(:email, :password_hash, :name, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, admin)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert admin: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get admin id: %w", err)
	}
	admin.ID = id
	return nil
}

// GetAdminByEmail returns an admin by email address.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	q := s.db.Rebind("SELECT * FROM admins WHERE email = ?")
	if err := s.db.GetContext(ctx, &admin, q, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &admin, nil
}

// GetAdminByID returns an admin by ID. The auth gate uses this to resolve the
// token subject; a missing row means the token is orphaned.
func (s *Store) GetAdminByID(ctx context.Context, id int64) (*model.Admin, error) {
	var admin model.Admin
	q := s.db.Rebind("SELECT * FROM admins WHERE id = ?")
	if err := s.db.GetContext(ctx, &admin, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by id: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT * FROM admins ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists. This is used
// at startup to decide whether to seed the default account.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// UpdateAdminLastLogin sets the last_login_at timestamp for an admin.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	q := s.db.Rebind("UPDATE admins SET last_login_at = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, now, now, id)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin last login rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
