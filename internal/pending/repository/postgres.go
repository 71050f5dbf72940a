package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"storefront/backend/internal/db"
	"storefront/backend/internal/pending/domain"
)

const registrationColumns = `id, phone, verification_token, user_data, verified, verified_at, created_at`

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresRepository returns a pending registration repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// Put supersedes unverified rows for phone and inserts the new registration in one transaction.
// The per-phone advisory lock serializes concurrent intakes for the same number.
func (r *PostgresRepository) Put(ctx context.Context, phone, token string, data domain.UserData) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	err = db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, phone); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pending_registrations WHERE phone = $1 AND verified = false`, phone); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pending_registrations (id, phone, verification_token, user_data, verified, created_at)
			VALUES ($1, $2, $3, $4, false, $5)`,
			id, phone, token, payload, r.now().UTC())
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// FindByPhoneAndToken returns the registration matching both phone and token, or nil.
func (r *PostgresRepository) FindByPhoneAndToken(ctx context.Context, phone, token string) (*domain.Registration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+`
		FROM pending_registrations WHERE phone = $1 AND verification_token = $2`, phone, token)
	return scanRegistration(row)
}

// FindByToken returns the registration for token, or nil.
func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*domain.Registration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+registrationColumns+`
		FROM pending_registrations WHERE verification_token = $1`, token)
	return scanRegistration(row)
}

// MarkVerified is a single conditional update; the affected row count decides the outcome.
func (r *PostgresRepository) MarkVerified(ctx context.Context, phone, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_registrations SET verified = true, verified_at = $3
		WHERE phone = $1 AND verification_token = $2 AND verified = false`,
		phone, token, r.now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Remove deletes the registration matching phone and token.
func (r *PostgresRepository) Remove(ctx context.Context, phone, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_registrations WHERE phone = $1 AND verification_token = $2`, phone, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeOlderThan deletes registrations created before now-age.
func (r *PostgresRepository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_registrations WHERE created_at < $1`, r.now().UTC().Add(-age))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var reg domain.Registration
	var payload []byte
	var verifiedAt sql.NullTime
	err := row.Scan(&reg.ID, &reg.Phone, &reg.VerificationToken, &payload, &reg.Verified, &verifiedAt, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &reg.UserData); err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		reg.VerifiedAt = &t
	}
	return &reg, nil
}
