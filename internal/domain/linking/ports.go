package linking

import (
	"context"

	"banklink/internal/domain/bank"
	"banklink/internal/domain/user"
)

// Aggregator is the banking-data provider.
type Aggregator interface {
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*TokenExchange, error)
	GetAccounts(ctx context.Context, accessToken string) ([]Account, error)
	CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error)
}

// FundingProvisioner attaches a processor token to a payments customer.
type FundingProvisioner interface {
	AddFundingSource(ctx context.Context, params FundingSourceParams) (string, error)
}

type BankStore interface {
	CreateBankAccount(ctx context.Context, params bank.CreateParams) (*bank.LinkedBankAccount, error)
}

// Revalidator refreshes whatever views depend on a user's bank list.
type Revalidator interface {
	Revalidate(ctx context.Context, userID string) error
}

type UserLookup interface {
	GetUserInfo(ctx context.Context, userID string) (*user.User, error)
}

type ListInvalidator interface {
	Invalidate(userID string)
}

// Notifier delivers silent data messages to devices.
type Notifier interface {
	SendDataOnly(ctx context.Context, tokens []string, data map[string]string) error
}
