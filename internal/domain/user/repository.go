package user

import "context"

// Repository stores user profile documents.
type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	// GetByUserID looks a profile up by credential-store account id.
	GetByUserID(ctx context.Context, userID string) (*User, error)
	AddDeviceToken(ctx context.Context, userID, token string) error
}

// CredentialStore owns accounts, passwords and sessions.
type CredentialStore interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (*Account, error)
	DeleteAccount(ctx context.Context, accountID string) error
	// CreateSession verifies email and password and opens a session.
	CreateSession(ctx context.Context, email, password string) (*Account, *Session, error)
	// ResolveSession returns the account id behind a live session secret.
	ResolveSession(ctx context.Context, secret string) (string, error)
	RevokeSession(ctx context.Context, secret string) error
}

// CustomerProvisioner opens a customer with the payments processor.
type CustomerProvisioner interface {
	CreateCustomer(ctx context.Context, profile CustomerProfile) (*Customer, error)
}
