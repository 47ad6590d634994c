package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentledger/rentledger/internal/models"
)

// ========== User Methods ==========

const userColumns = `id, created_at, updated_at, email, display_name, password_hash,
	email_verified, is_active, token_generation, last_login_at, integrations`

// CreateUser creates a new user account
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	integrations, err := marshalIntegrations(user.Integrations)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (
			id, created_at, updated_at, email, display_name, password_hash,
			email_verified, is_active, token_generation, last_login_at, integrations
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err = s.db.ExecContext(ctx, query,
		user.ID, user.CreatedAt, user.UpdatedAt, strings.ToLower(user.Email),
		user.DisplayName, user.PasswordHash, user.EmailVerified, user.IsActive,
		user.TokenGeneration, user.LastLoginAt, integrations,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetUser gets a user by id
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetUserByEmail gets a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1", strings.ToLower(email))
	return scanUser(row)
}

// UpdateUser updates a user account
func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()

	integrations, err := marshalIntegrations(user.Integrations)
	if err != nil {
		return err
	}

	query := `
		UPDATE users SET
			updated_at = $2, email = $3, display_name = $4, password_hash = $5,
			email_verified = $6, is_active = $7, token_generation = $8,
			last_login_at = $9, integrations = $10
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		user.ID, user.UpdatedAt, strings.ToLower(user.Email), user.DisplayName,
		user.PasswordHash, user.EmailVerified, user.IsActive,
		user.TokenGeneration, user.LastLoginAt, integrations,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListUserIDs lists the ids of all user accounts
func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanUser scans one user row
func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var integrations []byte

	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email,
		&user.DisplayName, &user.PasswordHash, &user.EmailVerified,
		&user.IsActive, &user.TokenGeneration, &user.LastLoginAt, &integrations,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(integrations) > 0 {
		var settings models.IntegrationSettings
		if err := json.Unmarshal(integrations, &settings); err == nil {
			user.Integrations = &settings
		}
	}

	return user, nil
}

func marshalIntegrations(settings *models.IntegrationSettings) ([]byte, error) {
	if settings == nil {
		return nil, nil
	}
	return json.Marshal(settings)
}
