package bank

import (
	"context"
	"errors"
	"fmt"

	"banklink/internal/infrastructure/crypto"
)

type Service struct {
	repo  Repository
	cache ListCache
}

// NewService wires the repository. cache may be nil.
func NewService(repo Repository, cache ListCache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) CreateBankAccount(ctx context.Context, params CreateParams) (*LinkedBankAccount, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create bank account: %w", err)
	}

	s.Invalidate(params.UserID)
	return created, nil
}

// GetBanks lists a user's linked accounts. No accounts is an empty,
// non-nil slice.
func (s *Service) GetBanks(ctx context.Context, userID string) ([]*LinkedBankAccount, error) {
	if userID == "" {
		return nil, errors.Join(ErrInvalidInput, errors.New("user id is required"))
	}

	var generation uint64
	if s.cache != nil {
		if banks, ok := s.cache.Get(userID); ok {
			return banks, nil
		}
		generation = s.cache.Generation(userID)
	}

	banks, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	if banks == nil {
		banks = []*LinkedBankAccount{}
	}

	if s.cache != nil {
		s.cache.Set(userID, generation, banks)
	}
	return banks, nil
}

func (s *Service) GetBank(ctx context.Context, documentID string) (*LinkedBankAccount, error) {
	if documentID == "" {
		return nil, ErrNotFound
	}

	b, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	return b, nil
}

// GetBankByAccountID returns the single record for accountID: ErrNotFound
// on zero matches and ErrNotUnique on more than one.
func (s *Service) GetBankByAccountID(ctx context.Context, accountID string) (*LinkedBankAccount, error) {
	if accountID == "" {
		return nil, ErrNotFound
	}

	banks, err := s.repo.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank by account id: %w", err)
	}

	switch len(banks) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return banks[0], nil
	default:
		return nil, ErrNotUnique
	}
}

func (s *Service) GetBankByShareableID(ctx context.Context, shareableID string) (*LinkedBankAccount, error) {
	accountID, err := crypto.DecodeShareableID(shareableID)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.GetBankByAccountID(ctx, accountID)
}

// Invalidate drops the cached bank list for userID.
func (s *Service) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}
