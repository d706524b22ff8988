package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"

	"banklink/internal/domain/user"
)

const identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

// Firebase accepts session cookie lifetimes between five minutes and two weeks.
const (
	minSessionTTL = 5 * time.Minute
	maxSessionTTL = 14 * 24 * time.Hour
)

type authClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
	VerifySessionCookieAndCheckRevoked(ctx context.Context, sessionCookie string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// CredentialStore implements user.CredentialStore over Firebase
// Authentication. Password sign-in goes through the Identity Toolkit REST
// API because the Admin SDK cannot verify passwords.
type CredentialStore struct {
	client     authClient
	apiKey     string
	baseURL    string
	sessionTTL time.Duration
	httpClient *http.Client
}

func NewCredentialStore(client *auth.Client, apiKey string, sessionTTL time.Duration, httpClient *http.Client) *CredentialStore {
	return newCredentialStore(client, apiKey, identityToolkitURL, sessionTTL, httpClient)
}

func newCredentialStore(client authClient, apiKey, baseURL string, sessionTTL time.Duration, httpClient *http.Client) *CredentialStore {
	if sessionTTL < minSessionTTL {
		sessionTTL = minSessionTTL
	}
	if sessionTTL > maxSessionTTL {
		sessionTTL = maxSessionTTL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &CredentialStore{
		client:     client,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		sessionTTL: sessionTTL,
		httpClient: httpClient,
	}
}

func (s *CredentialStore) CreateAccount(ctx context.Context, email, password, displayName string) (*user.Account, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	record, err := s.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, user.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create firebase user: %w", err)
	}

	return &user.Account{ID: record.UID, Email: record.Email}, nil
}

func (s *CredentialStore) DeleteAccount(ctx context.Context, accountID string) error {
	if err := s.client.DeleteUser(ctx, accountID); err != nil {
		return fmt.Errorf("failed to delete firebase user: %w", err)
	}
	return nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken string `json:"idToken"`
	LocalID string `json:"localId"`
	Email   string `json:"email"`
}

type identityToolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSession exchanges email and password for an ID token, then mints
// a session cookie from it.
func (s *CredentialStore) CreateSession(ctx context.Context, email, password string) (*user.Account, *user.Session, error) {
	signedIn, err := s.signInWithPassword(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	issuedAt := time.Now()
	cookie, err := s.client.SessionCookie(ctx, signedIn.IDToken, s.sessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session cookie: %w", err)
	}

	account := &user.Account{ID: signedIn.LocalID, Email: signedIn.Email}
	session := &user.Session{Secret: cookie, ExpiresAt: issuedAt.Add(s.sessionTTL)}
	return account, session, nil
}

func (s *CredentialStore) signInWithPassword(ctx context.Context, email, password string) (*signInResponse, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign-in request: %w", err)
	}

	endpoint := s.baseURL + "/accounts:signInWithPassword?key=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call identity toolkit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr identityToolkitError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return nil, fmt.Errorf("identity toolkit returned status %d", resp.StatusCode)
		}
		if isCredentialRejection(apiErr.Error.Message) {
			return nil, user.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity toolkit error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}
	if out.IDToken == "" || out.LocalID == "" {
		return nil, fmt.Errorf("identity toolkit returned no id token")
	}

	return &out, nil
}

// Messages may carry a detail suffix, e.g. "INVALID_PASSWORD : ...".
func isCredentialRejection(message string) bool {
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED":
		return true
	}
	return false
}

func (s *CredentialStore) ResolveSession(ctx context.Context, secret string) (string, error) {
	token, err := s.client.VerifySessionCookieAndCheckRevoked(ctx, secret)
	if err != nil {
		if isSessionRejection(err) {
			return "", fmt.Errorf("%w: %v", user.ErrUnauthorized, err)
		}
		return "", fmt.Errorf("failed to verify session cookie: %w", err)
	}
	return token.UID, nil
}

// isSessionRejection separates cookies Firebase refused (malformed,
// expired, revoked, or owned by a disabled or deleted user) from failures
// to reach Firebase at all.
func isSessionRejection(err error) bool {
	return auth.IsSessionCookieInvalid(err) ||
		auth.IsSessionCookieRevoked(err) ||
		auth.IsUserDisabled(err) ||
		auth.IsUserNotFound(err)
}

// RevokeSession revokes every session of the cookie's owner. Firebase
// cannot revoke a single session cookie.
func (s *CredentialStore) RevokeSession(ctx context.Context, secret string) error {
	token, err := s.client.VerifySessionCookie(ctx, secret)
	if err != nil {
		return nil
	}
	if err := s.client.RevokeRefreshTokens(ctx, token.UID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}
