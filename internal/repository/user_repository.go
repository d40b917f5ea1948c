package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rvelasco/contable-server/internal/models"
)

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id_user, username, password_hash, is_master, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.PasswordHash, user.IsMaster, user.IsActive, user.CreatedAt)

	return err
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id_user, username, password_hash, is_master, is_active, created_at
		FROM users WHERE username = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id_user, username, password_hash, is_master, is_active, created_at
		FROM users WHERE id_user = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresRepository) GetUserPermissions(ctx context.Context, userID string) ([]string, error) {
	var codes []string
	err := r.db.SelectContext(ctx, &codes,
		`SELECT perm_code FROM user_permissions WHERE id_user = $1 ORDER BY perm_code`, userID)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *PostgresRepository) GrantPermission(ctx context.Context, userID, code string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_permissions (id_user, perm_code) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, code)
	return err
}

// SeedPermissionCodes inserts every known permission code so grants can
// reference them.
func (r *PostgresRepository) SeedPermissionCodes(ctx context.Context) error {
	for code, description := range models.AllPermissions {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO permissions (code, description) VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING`, code, description)
		if err != nil {
			return err
		}
	}
	return nil
}
