// Package plaid adapts the Plaid SDK to the linking flow.
package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	plaidsdk "github.com/plaid/plaid-go/v29/plaid"

	"banklink/internal/domain/linking"
	"banklink/internal/shared/telemetry"
)

const defaultTimeout = 30 * time.Second

var environments = map[string]plaidsdk.Environment{
	"sandbox":    plaidsdk.Sandbox,
	"production": plaidsdk.Production,
}

// Client implements linking.Aggregator against the Plaid API.
type Client struct {
	api *plaidsdk.APIClient
}

var _ linking.Aggregator = (*Client)(nil)

func NewClient(clientID, secret, environment string) (*Client, error) {
	env, ok := environments[environment]
	if !ok {
		return nil, fmt.Errorf("unknown plaid environment %q", environment)
	}
	return NewClientWithBaseURL(clientID, secret, string(env), telemetry.HTTPClient(defaultTimeout)), nil
}

// NewClientWithBaseURL points the client at an arbitrary host.
func NewClientWithBaseURL(clientID, secret, baseURL string, httpClient *http.Client) *Client {
	cfg := plaidsdk.NewConfiguration()
	cfg.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	cfg.AddDefaultHeader("PLAID-SECRET", secret)
	cfg.UseEnvironment(plaidsdk.Environment(baseURL))
	cfg.HTTPClient = httpClient

	return &Client{api: plaidsdk.NewAPIClient(cfg)}
}

// APIError is Plaid's error body plus the HTTP status.
type APIError struct {
	StatusCode     int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid error (status %d): %s %s: %s (request %s)",
		e.StatusCode, e.ErrorType, e.ErrorCode, e.ErrorMessage, e.RequestID)
}

func (c *Client) CreateLinkToken(ctx context.Context, req linking.LinkTokenRequest) (string, error) {
	countryCodes := make([]plaidsdk.CountryCode, 0, len(req.CountryCodes))
	for _, cc := range req.CountryCodes {
		countryCodes = append(countryCodes, plaidsdk.CountryCode(cc))
	}
	products := make([]plaidsdk.Products, 0, len(req.Products))
	for _, p := range req.Products {
		products = append(products, plaidsdk.Products(p))
	}

	body := plaidsdk.NewLinkTokenCreateRequest(
		req.ClientName,
		req.Language,
		countryCodes,
		plaidsdk.LinkTokenCreateRequestUser{ClientUserId: req.ClientUserID},
	)
	body.SetProducts(products)
	if req.RedirectURI != "" {
		body.SetRedirectUri(req.RedirectURI)
	}

	resp, httpResp, err := c.api.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*body).Execute()
	if err != nil {
		return "", wrapError("create link token", httpResp, err)
	}
	return resp.GetLinkToken(), nil
}

// ExchangePublicToken returns whatever Plaid sent; missing fields are left
// for the caller to reject.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*linking.TokenExchange, error) {
	body := plaidsdk.NewItemPublicTokenExchangeRequest(publicToken)

	resp, httpResp, err := c.api.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*body).Execute()
	if err != nil {
		return nil, wrapError("exchange public token", httpResp, err)
	}
	return &linking.TokenExchange{AccessToken: resp.GetAccessToken(), ItemID: resp.GetItemId()}, nil
}

func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]linking.Account, error) {
	body := plaidsdk.NewAccountsGetRequest(accessToken)

	resp, httpResp, err := c.api.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*body).Execute()
	if err != nil {
		return nil, wrapError("get accounts", httpResp, err)
	}

	found := resp.GetAccounts()
	accounts := make([]linking.Account, 0, len(found))
	for _, a := range found {
		accounts = append(accounts, toDomain(a))
	}
	return accounts, nil
}

func (c *Client) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	body := plaidsdk.NewProcessorTokenCreateRequest(accessToken, accountID, processor)

	resp, httpResp, err := c.api.PlaidApi.ProcessorTokenCreate(ctx).ProcessorTokenCreateRequest(*body).Execute()
	if err != nil {
		return "", wrapError("create processor token", httpResp, err)
	}
	return resp.GetProcessorToken(), nil
}

// wrapError turns the SDK's GenericOpenAPIError into an APIError carrying
// the status and Plaid's error body. Transport failures are wrapped as is.
func wrapError(op string, httpResp *http.Response, err error) error {
	body, ok := openAPIErrorBody(err)
	if !ok || httpResp == nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	apiErr := &APIError{StatusCode: httpResp.StatusCode}
	if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.ErrorType == "" {
		apiErr.ErrorMessage = string(body)
	}
	return apiErr
}

func openAPIErrorBody(err error) ([]byte, bool) {
	var byValue plaidsdk.GenericOpenAPIError
	if errors.As(err, &byValue) {
		return byValue.Body(), true
	}
	var byPointer *plaidsdk.GenericOpenAPIError
	if errors.As(err, &byPointer) {
		return byPointer.Body(), true
	}
	return nil, false
}
