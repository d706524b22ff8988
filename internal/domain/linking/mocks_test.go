package linking

import (
	"context"

	"banklink/internal/domain/bank"
	"banklink/internal/domain/user"
)

type MockAggregator struct {
	CreateLinkTokenFunc      func(ctx context.Context, req LinkTokenRequest) (string, error)
	ExchangePublicTokenFunc  func(ctx context.Context, publicToken string) (*TokenExchange, error)
	GetAccountsFunc          func(ctx context.Context, accessToken string) ([]Account, error)
	CreateProcessorTokenFunc func(ctx context.Context, accessToken, accountID, processor string) (string, error)
}

func (m *MockAggregator) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (string, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, req)
	}
	return "link-sandbox-token", nil
}

func (m *MockAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (*TokenExchange, error) {
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken)
	}
	return &TokenExchange{AccessToken: "tok_1", ItemID: "item_1"}, nil
}

func (m *MockAggregator) GetAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	if m.GetAccountsFunc != nil {
		return m.GetAccountsFunc(ctx, accessToken)
	}
	return []Account{{AccountID: "acc_1", Name: "Checking"}}, nil
}

func (m *MockAggregator) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	if m.CreateProcessorTokenFunc != nil {
		return m.CreateProcessorTokenFunc(ctx, accessToken, accountID, processor)
	}
	return "proc_1", nil
}

type MockFundingProvisioner struct {
	AddFundingSourceFunc func(ctx context.Context, params FundingSourceParams) (string, error)
}

func (m *MockFundingProvisioner) AddFundingSource(ctx context.Context, params FundingSourceParams) (string, error) {
	if m.AddFundingSourceFunc != nil {
		return m.AddFundingSourceFunc(ctx, params)
	}
	return "https://funding/abc", nil
}

type MockBankStore struct {
	CreateBankAccountFunc func(ctx context.Context, params bank.CreateParams) (*bank.LinkedBankAccount, error)
}

func (m *MockBankStore) CreateBankAccount(ctx context.Context, params bank.CreateParams) (*bank.LinkedBankAccount, error) {
	if m.CreateBankAccountFunc != nil {
		return m.CreateBankAccountFunc(ctx, params)
	}
	return &bank.LinkedBankAccount{ID: "doc-1", UserID: params.UserID}, nil
}

type MockRevalidator struct {
	RevalidateFunc func(ctx context.Context, userID string) error
}

func (m *MockRevalidator) Revalidate(ctx context.Context, userID string) error {
	if m.RevalidateFunc != nil {
		return m.RevalidateFunc(ctx, userID)
	}
	return nil
}

type MockUserLookup struct {
	GetUserInfoFunc func(ctx context.Context, userID string) (*user.User, error)
}

func (m *MockUserLookup) GetUserInfo(ctx context.Context, userID string) (*user.User, error) {
	if m.GetUserInfoFunc != nil {
		return m.GetUserInfoFunc(ctx, userID)
	}
	return &user.User{ID: userID}, nil
}

type MockNotifier struct {
	SendDataOnlyFunc func(ctx context.Context, tokens []string, data map[string]string) error
}

func (m *MockNotifier) SendDataOnly(ctx context.Context, tokens []string, data map[string]string) error {
	if m.SendDataOnlyFunc != nil {
		return m.SendDataOnlyFunc(ctx, tokens, data)
	}
	return nil
}

type recordingInvalidator struct {
	userIDs []string
}

func (r *recordingInvalidator) Invalidate(userID string) {
	r.userIDs = append(r.userIDs, userID)
}
