package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"banklink/internal/domain/bank"
	"banklink/internal/infrastructure/crypto"
)

type BankRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

func NewBankRepository(db *DB, encryptor *crypto.Encryptor) *BankRepository {
	return &BankRepository{db: db, encryptor: encryptor}
}

const bankColumns = `id, user_id, bank_id, account_id, access_token_encrypted, funding_source_url, shareable_id, created_at`

func (r *BankRepository) Create(ctx context.Context, params bank.CreateParams) (*bank.LinkedBankAccount, error) {
	encrypted, err := r.encryptor.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	query := `
		INSERT INTO linked_bank_accounts (id, user_id, bank_id, account_id, access_token_encrypted, funding_source_url, shareable_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	account := &bank.LinkedBankAccount{
		ID:               uuid.NewString(),
		UserID:           params.UserID,
		BankID:           params.BankID,
		AccountID:        params.AccountID,
		AccessToken:      params.AccessToken,
		FundingSourceURL: params.FundingSourceURL,
		ShareableID:      params.ShareableID,
	}

	err = r.db.QueryRowContext(ctx, query,
		account.ID, account.UserID, account.BankID, account.AccountID,
		encrypted, account.FundingSourceURL, account.ShareableID,
	).Scan(&account.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bank account: %w", err)
	}

	return account, nil
}

func (r *BankRepository) ListByUserID(ctx context.Context, userID string) ([]*bank.LinkedBankAccount, error) {
	query := `SELECT ` + bankColumns + ` FROM linked_bank_accounts WHERE user_id = $1 ORDER BY created_at`
	return r.list(ctx, query, userID)
}

func (r *BankRepository) GetByID(ctx context.Context, id string) (*bank.LinkedBankAccount, error) {
	query := `SELECT ` + bankColumns + ` FROM linked_bank_accounts WHERE id = $1`

	account, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bank.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}

	return account, nil
}

// ListByAccountID fetches at most two rows; callers only need to tell
// zero, one and many apart.
func (r *BankRepository) ListByAccountID(ctx context.Context, accountID string) ([]*bank.LinkedBankAccount, error) {
	query := `SELECT ` + bankColumns + ` FROM linked_bank_accounts WHERE account_id = $1 ORDER BY created_at LIMIT 2`
	return r.list(ctx, query, accountID)
}

func (r *BankRepository) list(ctx context.Context, query string, arg string) ([]*bank.LinkedBankAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*bank.LinkedBankAccount
	for rows.Next() {
		account, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bank accounts: %w", err)
	}

	return accounts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *BankRepository) scan(row scanner) (*bank.LinkedBankAccount, error) {
	var account bank.LinkedBankAccount
	var encrypted string

	if err := row.Scan(
		&account.ID, &account.UserID, &account.BankID, &account.AccountID,
		&encrypted, &account.FundingSourceURL, &account.ShareableID, &account.CreatedAt,
	); err != nil {
		return nil, err
	}

	token, err := r.encryptor.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	account.AccessToken = token

	return &account, nil
}
