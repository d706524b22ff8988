package bank

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("bank account not found")
	ErrNotUnique    = errors.New("more than one bank account matches")
	ErrInvalidInput = errors.New("invalid input")
)

// LinkedBankAccount records one completed linking flow. Records are
// immutable once created.
type LinkedBankAccount struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	BankID           string    `json:"bankId"`
	AccountID        string    `json:"accountId"`
	AccessToken      string    `json:"-"`
	FundingSourceURL string    `json:"fundingSourceUrl"`
	ShareableID      string    `json:"shareableId"`
	CreatedAt        time.Time `json:"createdAt"`
}

type CreateParams struct {
	UserID           string
	BankID           string
	AccountID        string
	AccessToken      string
	FundingSourceURL string
	ShareableID      string
}

func (p CreateParams) Validate() error {
	switch {
	case p.UserID == "":
		return errors.Join(ErrInvalidInput, errors.New("user id is required"))
	case p.BankID == "":
		return errors.Join(ErrInvalidInput, errors.New("bank id is required"))
	case p.AccountID == "":
		return errors.Join(ErrInvalidInput, errors.New("account id is required"))
	case p.AccessToken == "":
		return errors.Join(ErrInvalidInput, errors.New("access token is required"))
	case p.FundingSourceURL == "":
		return errors.Join(ErrInvalidInput, errors.New("funding source url is required"))
	case p.ShareableID == "":
		return errors.Join(ErrInvalidInput, errors.New("shareable id is required"))
	}
	return nil
}
