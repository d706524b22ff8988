package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"banklink/internal/domain/user"
	"banklink/internal/shared/auth"
)

const uniqueViolation = "23505"

// CredentialStore keeps bcrypt password hashes in Postgres and issues
// signed session tokens. Revoked token ids are recorded until they expire.
type CredentialStore struct {
	db  *DB
	jwt *auth.JWT
}

func NewCredentialStore(db *DB, jwt *auth.JWT) *CredentialStore {
	return &CredentialStore{db: db, jwt: jwt}
}

func (s *CredentialStore) CreateAccount(ctx context.Context, email, password, displayName string) (*user.Account, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &user.Account{ID: uuid.NewString(), Email: strings.ToLower(email)}

	query := `
		INSERT INTO credentials (user_id, email, password_hash, display_name)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, account.ID, account.Email, hash, displayName); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, user.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create credentials: %w", err)
	}

	return account, nil
}

func (s *CredentialStore) DeleteAccount(ctx context.Context, accountID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) CreateSession(ctx context.Context, email, password string) (*user.Account, *user.Session, error) {
	query := `SELECT user_id, email, password_hash FROM credentials WHERE email = $1`

	var account user.Account
	var hash string
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(&account.ID, &account.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, user.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	if err := auth.VerifyPassword(hash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, nil, user.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	token, claims, err := s.jwt.Generate(account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue session: %w", err)
	}

	return &account, &user.Session{Secret: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *CredentialStore) ResolveSession(ctx context.Context, secret string) (string, error) {
	claims, err := s.jwt.Validate(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", user.ErrUnauthorized, err)
	}

	var revoked bool
	query := `SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE session_id = $1)`
	if err := s.db.QueryRowContext(ctx, query, claims.ID).Scan(&revoked); err != nil {
		return "", fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return "", user.ErrUnauthorized
	}

	return claims.UserID, nil
}

// RevokeSession is idempotent. Tokens that no longer validate need no record.
func (s *CredentialStore) RevokeSession(ctx context.Context, secret string) error {
	claims, err := s.jwt.Validate(secret)
	if err != nil {
		return nil
	}

	query := `
		INSERT INTO revoked_sessions (session_id, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// PurgeExpiredRevocations drops revocation records whose tokens have expired.
func (s *CredentialStore) PurgeExpiredRevocations(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM revoked_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge revoked sessions: %w", err)
	}
	return result.RowsAffected()
}
