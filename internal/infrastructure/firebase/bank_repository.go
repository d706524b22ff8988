package firebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"banklink/internal/domain/bank"
	"banklink/internal/infrastructure/crypto"
)

type bankDocument struct {
	UserID           string    `firestore:"userId"`
	BankID           string    `firestore:"bankId"`
	AccountID        string    `firestore:"accountId"`
	AccessToken      string    `firestore:"accessToken"`
	FundingSourceURL string    `firestore:"fundingSourceUrl"`
	ShareableID      string    `firestore:"shareableId"`
	CreatedAt        time.Time `firestore:"createdAt"`
}

// BankRepository stores linked bank accounts in a Firestore collection,
// one document per completed link.
type BankRepository struct {
	col       *firestore.CollectionRef
	encryptor *crypto.Encryptor
}

func NewBankRepository(client *firestore.Client, collection string, encryptor *crypto.Encryptor) *BankRepository {
	return &BankRepository{col: client.Collection(collection), encryptor: encryptor}
}

func (r *BankRepository) Create(ctx context.Context, params bank.CreateParams) (*bank.LinkedBankAccount, error) {
	encrypted, err := r.encryptor.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	doc := bankDocument{
		UserID:           params.UserID,
		BankID:           params.BankID,
		AccountID:        params.AccountID,
		AccessToken:      encrypted,
		FundingSourceURL: params.FundingSourceURL,
		ShareableID:      params.ShareableID,
		CreatedAt:        time.Now().UTC(),
	}

	ref := r.col.NewDoc()
	if _, err := ref.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create bank document: %w", err)
	}

	return &bank.LinkedBankAccount{
		ID:               ref.ID,
		UserID:           doc.UserID,
		BankID:           doc.BankID,
		AccountID:        doc.AccountID,
		AccessToken:      params.AccessToken,
		FundingSourceURL: doc.FundingSourceURL,
		ShareableID:      doc.ShareableID,
		CreatedAt:        doc.CreatedAt,
	}, nil
}

func (r *BankRepository) ListByUserID(ctx context.Context, userID string) ([]*bank.LinkedBankAccount, error) {
	return r.list(ctx, r.col.Where("userId", "==", userID))
}

func (r *BankRepository) GetByID(ctx context.Context, id string) (*bank.LinkedBankAccount, error) {
	snap, err := r.col.Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, bank.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank document: %w", err)
	}

	return r.decode(snap)
}

// ListByAccountID reads at most two documents; callers only need to tell
// zero, one and many apart.
func (r *BankRepository) ListByAccountID(ctx context.Context, accountID string) ([]*bank.LinkedBankAccount, error) {
	return r.list(ctx, r.col.Where("accountId", "==", accountID).Limit(2))
}

func (r *BankRepository) list(ctx context.Context, q firestore.Query) ([]*bank.LinkedBankAccount, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var accounts []*bank.LinkedBankAccount
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query bank documents: %w", err)
		}

		account, err := r.decode(snap)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func (r *BankRepository) decode(snap *firestore.DocumentSnapshot) (*bank.LinkedBankAccount, error) {
	var doc bankDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode bank document %s: %w", snap.Ref.ID, err)
	}

	token, err := r.encryptor.Decrypt(doc.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	return &bank.LinkedBankAccount{
		ID:               snap.Ref.ID,
		UserID:           doc.UserID,
		BankID:           doc.BankID,
		AccountID:        doc.AccountID,
		AccessToken:      token,
		FundingSourceURL: doc.FundingSourceURL,
		ShareableID:      doc.ShareableID,
		CreatedAt:        doc.CreatedAt,
	}, nil
}
