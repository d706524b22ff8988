package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"banklink/internal/domain/user"
	"banklink/internal/infrastructure/crypto"
)

type UserRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

func NewUserRepository(db *DB, encryptor *crypto.Encryptor) *UserRepository {
	return &UserRepository{db: db, encryptor: encryptor}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	ssn, err := r.encryptor.Encrypt(u.SSN)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt ssn: %w", err)
	}

	created := *u
	created.DocumentID = uuid.NewString()
	if created.DeviceTokens == nil {
		created.DeviceTokens = []string{}
	}

	query := `
		INSERT INTO users (
			id, user_id, email, first_name, last_name, address1, city, state,
			postal_code, date_of_birth, ssn_encrypted, dwolla_customer_id,
			dwolla_customer_url, device_tokens
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		created.DocumentID, created.ID, created.Email, created.FirstName, created.LastName,
		created.Address1, created.City, created.State, created.PostalCode, created.DateOfBirth,
		ssn, created.DwollaCustomerID, created.DwollaCustomerURL, pq.Array(created.DeviceTokens),
	).Scan(&created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &created, nil
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*user.User, error) {
	query := `
		SELECT id, user_id, email, first_name, last_name, address1, city, state,
		       postal_code, date_of_birth, ssn_encrypted, dwolla_customer_id,
		       dwolla_customer_url, device_tokens, created_at
		FROM users
		WHERE user_id = $1
	`

	var u user.User
	var ssn string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&u.DocumentID, &u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Address1, &u.City, &u.State,
		&u.PostalCode, &u.DateOfBirth, &ssn, &u.DwollaCustomerID,
		&u.DwollaCustomerURL, pq.Array(&u.DeviceTokens), &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if u.SSN, err = r.encryptor.Decrypt(ssn); err != nil {
		return nil, fmt.Errorf("failed to decrypt ssn: %w", err)
	}

	return &u, nil
}

// AddDeviceToken appends token unless the profile already carries it.
func (r *UserRepository) AddDeviceToken(ctx context.Context, userID, token string) error {
	query := `
		UPDATE users
		SET device_tokens = CASE
			WHEN $2 = ANY(device_tokens) THEN device_tokens
			ELSE array_append(device_tokens, $2)
		END
		WHERE user_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("failed to add device token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return user.ErrUserNotFound
	}

	return nil
}
