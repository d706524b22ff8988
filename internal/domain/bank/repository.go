package bank

import "context"

// Repository stores linked bank accounts. Implementations encrypt the
// access token at rest and return it decrypted.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*LinkedBankAccount, error)

	ListByUserID(ctx context.Context, userID string) ([]*LinkedBankAccount, error)

	// GetByID returns ErrNotFound when the document does not exist.
	GetByID(ctx context.Context, id string) (*LinkedBankAccount, error)

	// ListByAccountID returns every record for accountID. More than one
	// result means the store holds duplicates.
	ListByAccountID(ctx context.Context, accountID string) ([]*LinkedBankAccount, error)
}

// ListCache holds per-user bank lists between writes.
type ListCache interface {
	Get(userID string) ([]*LinkedBankAccount, bool)
	// Generation changes whenever userID's list is invalidated.
	Generation(userID string) uint64
	// Set stores banks unless userID was invalidated after generation was read.
	Set(userID string, generation uint64, banks []*LinkedBankAccount)
	Invalidate(userID string)
}
