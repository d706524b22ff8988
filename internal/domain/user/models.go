package user

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("session is missing, expired or revoked")
	ErrEmailTaken         = errors.New("email already registered")
	// ErrSessionUnavailable means the account was created but no session
	// could be opened for it.
	ErrSessionUnavailable = errors.New("account created but sign-in failed")
)

// ValidationError reports a rejected sign-up field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}

// User is the profile document stored alongside a credential-store account.
// ID is the credential-store account id; DocumentID is the profile
// document's own id.
type User struct {
	ID                string    `json:"id" firestore:"userId"`
	DocumentID        string    `json:"documentId" firestore:"-"`
	Email             string    `json:"email" firestore:"email"`
	FirstName         string    `json:"firstName" firestore:"firstName"`
	LastName          string    `json:"lastName" firestore:"lastName"`
	Address1          string    `json:"address1" firestore:"address1"`
	City              string    `json:"city" firestore:"city"`
	State             string    `json:"state" firestore:"state"`
	PostalCode        string    `json:"postalCode" firestore:"postalCode"`
	DateOfBirth       string    `json:"dateOfBirth" firestore:"dateOfBirth"`
	SSN               string    `json:"-" firestore:"ssn"`
	DwollaCustomerID  string    `json:"dwollaCustomerId" firestore:"dwollaCustomerId"`
	DwollaCustomerURL string    `json:"dwollaCustomerUrl" firestore:"dwollaCustomerUrl"`
	DeviceTokens      []string  `json:"-" firestore:"deviceTokens"`
	CreatedAt         time.Time `json:"createdAt" firestore:"createdAt"`
}

// FullName is "First Last", trimmed. Empty when both parts are blank.
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

type SignUpParams struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
}

// Account is a credential-store identity.
type Account struct {
	ID    string
	Email string
}

// Session is an opened credential-store session. Secret is what the
// session cookie carries.
type Session struct {
	Secret    string
	ExpiresAt time.Time
}

// CustomerProfile is what the payments processor needs to open a
// personal verified customer.
type CustomerProfile struct {
	FirstName   string
	LastName    string
	Email       string
	Address1    string
	City        string
	State       string
	PostalCode  string
	DateOfBirth string
	SSN         string
}

// Customer is a provisioned payments-processor customer.
type Customer struct {
	ID  string
	URL string
}
