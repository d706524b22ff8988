package http

import (
	"context"
	"fmt"
	"time"

	"banklink/internal/domain/bank"
	"banklink/internal/domain/linking"
	"banklink/internal/domain/user"
	"banklink/internal/shared/middleware"
)

// MockUserRepo implements user.Repository for testing
type MockUserRepo struct {
	CreateFunc         func(ctx context.Context, u *user.User) (*user.User, error)
	GetByUserIDFunc    func(ctx context.Context, userID string) (*user.User, error)
	AddDeviceTokenFunc func(ctx context.Context, userID, token string) error
}

func (m *MockUserRepo) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, u)
	}
	created := *u
	created.DocumentID = "profile-1"
	return &created, nil
}

func (m *MockUserRepo) GetByUserID(ctx context.Context, userID string) (*user.User, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return &user.User{ID: userID, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}, nil
}

func (m *MockUserRepo) AddDeviceToken(ctx context.Context, userID, token string) error {
	if m.AddDeviceTokenFunc != nil {
		return m.AddDeviceTokenFunc(ctx, userID, token)
	}
	return nil
}

// MockCredentialStore implements user.CredentialStore for testing
type MockCredentialStore struct {
	CreateAccountFunc  func(ctx context.Context, email, password, displayName string) (*user.Account, error)
	DeleteAccountFunc  func(ctx context.Context, accountID string) error
	CreateSessionFunc  func(ctx context.Context, email, password string) (*user.Account, *user.Session, error)
	ResolveSessionFunc func(ctx context.Context, secret string) (string, error)
	RevokeSessionFunc  func(ctx context.Context, secret string) error
}

func (m *MockCredentialStore) CreateAccount(ctx context.Context, email, password, displayName string) (*user.Account, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, email, password, displayName)
	}
	return &user.Account{ID: "uid-1", Email: email}, nil
}

func (m *MockCredentialStore) DeleteAccount(ctx context.Context, accountID string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, accountID)
	}
	return nil
}

func (m *MockCredentialStore) CreateSession(ctx context.Context, email, password string) (*user.Account, *user.Session, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, email, password)
	}
	return &user.Account{ID: "uid-1", Email: email},
		&user.Session{Secret: "session-secret", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *MockCredentialStore) ResolveSession(ctx context.Context, secret string) (string, error) {
	if m.ResolveSessionFunc != nil {
		return m.ResolveSessionFunc(ctx, secret)
	}
	if secret == "session-secret" {
		return "uid-1", nil
	}
	return "", user.ErrUnauthorized
}

func (m *MockCredentialStore) RevokeSession(ctx context.Context, secret string) error {
	if m.RevokeSessionFunc != nil {
		return m.RevokeSessionFunc(ctx, secret)
	}
	return nil
}

// MockCustomerProvisioner implements user.CustomerProvisioner for testing
type MockCustomerProvisioner struct {
	CreateCustomerFunc func(ctx context.Context, profile user.CustomerProfile) (*user.Customer, error)
}

func (m *MockCustomerProvisioner) CreateCustomer(ctx context.Context, profile user.CustomerProfile) (*user.Customer, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, profile)
	}
	return &user.Customer{ID: "cust-1", URL: "https://api-sandbox.dwolla.com/customers/cust-1"}, nil
}

// MemoryBankRepo is an in-memory bank.Repository.
type MemoryBankRepo struct {
	banks []*bank.LinkedBankAccount
	err   error
}

func (m *MemoryBankRepo) Create(ctx context.Context, params bank.CreateParams) (*bank.LinkedBankAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	b := &bank.LinkedBankAccount{
		ID:               fmt.Sprintf("doc-%d", len(m.banks)+1),
		UserID:           params.UserID,
		BankID:           params.BankID,
		AccountID:        params.AccountID,
		AccessToken:      params.AccessToken,
		FundingSourceURL: params.FundingSourceURL,
		ShareableID:      params.ShareableID,
		CreatedAt:        time.Now(),
	}
	m.banks = append(m.banks, b)
	return b, nil
}

func (m *MemoryBankRepo) ListByUserID(ctx context.Context, userID string) ([]*bank.LinkedBankAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*bank.LinkedBankAccount
	for _, b := range m.banks {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MemoryBankRepo) GetByID(ctx context.Context, id string) (*bank.LinkedBankAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, b := range m.banks {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, bank.ErrNotFound
}

func (m *MemoryBankRepo) ListByAccountID(ctx context.Context, accountID string) ([]*bank.LinkedBankAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*bank.LinkedBankAccount
	for _, b := range m.banks {
		if b.AccountID == accountID {
			out = append(out, b)
		}
	}
	return out, nil
}

// MockAggregator implements linking.Aggregator for testing
type MockAggregator struct {
	CreateLinkTokenFunc      func(ctx context.Context, req linking.LinkTokenRequest) (string, error)
	CreateProcessorTokenFunc func(ctx context.Context, accessToken, accountID, processor string) (string, error)
}

func (m *MockAggregator) CreateLinkToken(ctx context.Context, req linking.LinkTokenRequest) (string, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, req)
	}
	return "link-sandbox-token", nil
}

func (m *MockAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (*linking.TokenExchange, error) {
	return &linking.TokenExchange{AccessToken: "access-sandbox-1", ItemID: "item-1"}, nil
}

func (m *MockAggregator) GetAccounts(ctx context.Context, accessToken string) ([]linking.Account, error) {
	return []linking.Account{{AccountID: "acc-1", Name: "Plaid Checking"}}, nil
}

func (m *MockAggregator) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	if m.CreateProcessorTokenFunc != nil {
		return m.CreateProcessorTokenFunc(ctx, accessToken, accountID, processor)
	}
	return "processor-sandbox-1", nil
}

// MockFundingProvisioner implements linking.FundingProvisioner for testing
type MockFundingProvisioner struct{}

func (m *MockFundingProvisioner) AddFundingSource(ctx context.Context, params linking.FundingSourceParams) (string, error) {
	return "https://api-sandbox.dwolla.com/funding-sources/fs-1", nil
}

func signedInUser() *user.User {
	return &user.User{
		ID:                "uid-1",
		Email:             "ada@example.com",
		FirstName:         "Ada",
		LastName:          "Lovelace",
		DwollaCustomerID:  "cust-1",
		DwollaCustomerURL: "https://api-sandbox.dwolla.com/customers/cust-1",
	}
}

func withUser(ctx context.Context, u *user.User) context.Context {
	return middleware.WithUser(ctx, u)
}
