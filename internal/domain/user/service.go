package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"

	"banklink/internal/shared/auth"
	"banklink/internal/shared/logger"
)

type Service struct {
	repo      Repository
	creds     CredentialStore
	customers CustomerProvisioner
	now       func() time.Time
}

func NewService(repo Repository, creds CredentialStore, customers CustomerProvisioner) *Service {
	return &Service{repo: repo, creds: creds, customers: customers, now: time.Now}
}

// SignUp creates the credential account, provisions the payments customer,
// stores the profile and opens a session. When provisioning or profile
// storage fails the credential account is deleted again so the email can
// be reused. If only the session fails, the stored profile is returned with
// ErrSessionUnavailable.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*User, *Session, error) {
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	displayName := strings.TrimSpace(params.FirstName + " " + params.LastName)
	account, err := s.creds.CreateAccount(ctx, params.Email, params.Password, displayName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create account: %w", err)
	}

	customer, err := s.customers.CreateCustomer(ctx, CustomerProfile{
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Email:       params.Email,
		Address1:    params.Address1,
		City:        params.City,
		State:       params.State,
		PostalCode:  params.PostalCode,
		DateOfBirth: params.DateOfBirth,
		SSN:         params.SSN,
	})
	if err != nil {
		s.rollbackAccount(ctx, account.ID)
		return nil, nil, fmt.Errorf("failed to create payments customer: %w", err)
	}
	if customer == nil || customer.URL == "" {
		s.rollbackAccount(ctx, account.ID)
		return nil, nil, errors.New("failed to create payments customer: no customer url returned")
	}

	profile, err := s.repo.Create(ctx, &User{
		ID:                account.ID,
		Email:             params.Email,
		FirstName:         params.FirstName,
		LastName:          params.LastName,
		Address1:          params.Address1,
		City:              params.City,
		State:             params.State,
		PostalCode:        params.PostalCode,
		DateOfBirth:       params.DateOfBirth,
		SSN:               params.SSN,
		DwollaCustomerID:  customer.ID,
		DwollaCustomerURL: customer.URL,
		CreatedAt:         s.now().UTC(),
	})
	if err != nil {
		s.rollbackAccount(ctx, account.ID)
		return nil, nil, fmt.Errorf("failed to store user profile: %w", err)
	}

	_, session, err := s.creds.CreateSession(ctx, params.Email, params.Password)
	if err != nil {
		logger.Warn("user signed up without a session", logger.Fields{"user_id": profile.ID, "error": err.Error()})
		return profile, nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}

	logger.Info("user signed up", logger.Fields{"user_id": profile.ID, "dwolla_customer_id": profile.DwollaCustomerID})
	return profile, session, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*User, *Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	account, session, err := s.creds.CreateSession(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to sign in: %w", err)
	}

	profile, err := s.GetUserInfo(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}

	return profile, session, nil
}

// CurrentUser resolves a session secret to its profile. Any session
// failure reports ErrUnauthorized.
func (s *Service) CurrentUser(ctx context.Context, sessionSecret string) (*User, error) {
	if sessionSecret == "" {
		return nil, ErrUnauthorized
	}

	userID, err := s.creds.ResolveSession(ctx, sessionSecret)
	if err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			logger.Warn("session resolution failed", logger.Fields{"error": err.Error()})
		}
		return nil, ErrUnauthorized
	}

	profile, err := s.GetUserInfo(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	return profile, nil
}

func (s *Service) SignOut(ctx context.Context, sessionSecret string) error {
	if sessionSecret == "" {
		return nil
	}
	if err := s.creds.RevokeSession(ctx, sessionSecret); err != nil && !errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *Service) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}

	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	return profile, nil
}

// RegisterDevice records a push token for bank-list refresh notifications.
func (s *Service) RegisterDevice(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &ValidationError{Field: "token", Msg: "is required"}
	}

	if err := s.repo.AddDeviceToken(ctx, userID, token); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *Service) rollbackAccount(ctx context.Context, accountID string) {
	if err := s.creds.DeleteAccount(ctx, accountID); err != nil {
		logger.Error("failed to roll back credential account", err, logger.Fields{"user_id": accountID})
	}
}

// Validate checks a sign-up request. Email must already be normalized.
func (p SignUpParams) Validate() error {
	if err := checkmail.ValidateFormat(p.Email); err != nil {
		return &ValidationError{Field: "email", Msg: "is not a valid address"}
	}
	if err := auth.ValidatePassword(p.Password); err != nil {
		return &ValidationError{Field: "password", Msg: err.Error()}
	}

	required := []struct{ field, value string }{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"address1", p.Address1},
		{"city", p.City},
		{"state", p.State},
		{"postalCode", p.PostalCode},
		{"dateOfBirth", p.DateOfBirth},
		{"ssn", p.SSN},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Msg: "is required"}
		}
	}

	if len(p.State) != 2 {
		return &ValidationError{Field: "state", Msg: "must be a two-letter code"}
	}
	if _, err := time.Parse(time.DateOnly, p.DateOfBirth); err != nil {
		return &ValidationError{Field: "dateOfBirth", Msg: "must be YYYY-MM-DD"}
	}

	return nil
}
