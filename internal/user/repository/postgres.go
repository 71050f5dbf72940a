package repository

import (
	"context"
	"database/sql"
	"errors"

	"storefront/backend/internal/db"
	"storefront/backend/internal/user/domain"
)

const userColumns = `id, email, password_hash, COALESCE(phone, ''), phone_verified, first_name, last_name,
	username, address, status, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set; it is not assigned by this method.
// A concurrent insert of the same email surfaces as domain.ErrEmailTaken via the users_email_key constraint.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	phone := sql.NullString{String: u.Phone, Valid: u.Phone != ""}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, phone, phone_verified, first_name, last_name,
			username, address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Email, u.PasswordHash, phone, u.PhoneVerified, u.FirstName, u.LastName,
		u.Username, u.Address, string(u.Status), u.CreatedAt, u.UpdatedAt)
	if db.IsUniqueViolation(err, "users_email_key") {
		return domain.ErrEmailTaken
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var status string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Phone, &u.PhoneVerified, &u.FirstName, &u.LastName,
		&u.Username, &u.Address, &status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	return &u, nil
}
