package linking

import (
	"errors"

	"github.com/shopspring/decimal"

	"banklink/internal/domain/user"
)

var ErrMissingIdentity = errors.New("user identity is required to create a link token")

// Step names the exchange stage a failure happened in.
type Step string

const (
	StepLinkToken      Step = "link_token"
	StepExchange       Step = "exchange"
	StepAccounts       Step = "accounts"
	StepProcessorToken Step = "processor_token"
	StepFundingSource  Step = "funding_source"
	StepSave           Step = "save"
)

// User-facing failure messages.
const (
	MsgLinkTokenFailed      = "Failed to create link token"
	MsgExchangeFailed       = "Failed to exchange public token"
	MsgNoAccessToken        = "No access token returned from Plaid"
	MsgAccountsFailed       = "Failed to fetch accounts from Plaid"
	MsgNoAccounts           = "No accounts returned from Plaid"
	MsgProcessorTokenFailed = "Processor token creation failed"
	MsgFundingSourceFailed  = "Failed to create Dwolla funding source"
	MsgSaveFailed           = "Failed to save bank account"
)

// StepError is the tagged failure of a linking operation. Message is safe
// to show to the user; Err carries the upstream cause, if any.
type StepError struct {
	Step    Step
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return string(e.Step) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Step) + ": " + e.Message
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// LinkTokenRequest is what the aggregator needs to open a Link session.
type LinkTokenRequest struct {
	ClientUserID string
	ClientName   string
	Products     []string
	Language     string
	CountryCodes []string
	RedirectURI  string
}

type TokenExchange struct {
	AccessToken string
	ItemID      string
}

type Balances struct {
	Available       decimal.NullDecimal `json:"available"`
	Current         decimal.NullDecimal `json:"current"`
	Limit           decimal.NullDecimal `json:"limit"`
	ISOCurrencyCode string              `json:"isoCurrencyCode,omitempty"`
}

// Account is an aggregator account as returned to the client.
type Account struct {
	AccountID    string   `json:"accountId"`
	Name         string   `json:"name"`
	OfficialName string   `json:"officialName,omitempty"`
	Mask         string   `json:"mask,omitempty"`
	Type         string   `json:"type,omitempty"`
	Subtype      string   `json:"subtype,omitempty"`
	Balances     Balances `json:"balances"`
}

type FundingSourceParams struct {
	CustomerID     string
	ProcessorToken string
	BankName       string
}

type ExchangeRequest struct {
	PublicToken string
	User        *user.User
}

// LinkResult is the success value of ExchangePublicToken.
type LinkResult struct {
	OK               bool      `json:"ok"`
	ItemID           string    `json:"itemId"`
	Accounts         []Account `json:"accounts"`
	FundingSourceURL string    `json:"fundingSourceUrl"`
	SavedBankID      string    `json:"savedBankId"`
}
