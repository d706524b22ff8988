// Package dwolla provisions customers and funding sources with the Dwolla
// payments API.
package dwolla

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"banklink/internal/domain/linking"
	"banklink/internal/domain/user"
	"banklink/internal/shared/telemetry"
)

const (
	defaultTimeout = 30 * time.Second
	mediaType      = "application/vnd.dwolla.v1.hal+json"

	customersPath              = "/customers"
	onDemandAuthorizationsPath = "/on-demand-authorizations"
)

var environments = map[string]string{
	"sandbox":    "https://api-sandbox.dwolla.com",
	"production": "https://api.dwolla.com",
}

// Client implements user.CustomerProvisioner and linking.FundingProvisioner.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var (
	_ user.CustomerProvisioner   = (*Client)(nil)
	_ linking.FundingProvisioner = (*Client)(nil)
)

func NewClient(ctx context.Context, key, secret, environment string) (*Client, error) {
	baseURL, ok := environments[environment]
	if !ok {
		return nil, fmt.Errorf("unknown dwolla environment %q", environment)
	}
	return NewClientWithBaseURL(ctx, key, secret, baseURL, telemetry.HTTPClient(defaultTimeout)), nil
}

// NewClientWithBaseURL authenticates against {baseURL}/token with the
// client-credentials grant. base carries the transport used for both the
// token and API calls.
func NewClientWithBaseURL(ctx context.Context, key, secret, baseURL string, base *http.Client) *Client {
	cc := clientcredentials.Config{
		ClientID:     key,
		ClientSecret: secret,
		TokenURL:     baseURL + "/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	httpClient := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	httpClient.Timeout = base.Timeout

	return &Client{httpClient: httpClient, baseURL: baseURL}
}

type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("dwolla error (status %d): %s: %s", e.StatusCode, e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " [" + strings.Join(e.Details, "; ") + "]"
	}
	return msg
}

type errorBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Embedded struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Path    string `json:"path"`
		} `json:"errors"`
	} `json:"_embedded"`
}

type link struct {
	Href string `json:"href"`
}

type customerRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Type        string `json:"type"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
}

type onDemandAuthorizationResponse struct {
	Links      map[string]link `json:"_links"`
	BodyText   string          `json:"bodyText"`
	ButtonText string          `json:"buttonText"`
}

type fundingSourceRequest struct {
	Name       string          `json:"name"`
	PlaidToken string          `json:"plaidToken"`
	Links      map[string]link `json:"_links,omitempty"`
}

// CreateCustomer opens a personal verified customer and returns its URL
// and id.
func (c *Client) CreateCustomer(ctx context.Context, profile user.CustomerProfile) (*user.Customer, error) {
	location, _, err := c.post(ctx, customersPath, customerRequest{
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		Email:       profile.Email,
		Type:        "personal",
		Address1:    profile.Address1,
		City:        profile.City,
		State:       profile.State,
		PostalCode:  profile.PostalCode,
		DateOfBirth: profile.DateOfBirth,
		SSN:         profile.SSN,
	})
	if err != nil {
		return nil, err
	}
	if location == "" {
		return nil, errors.New("dwolla returned no customer location")
	}

	return &user.Customer{ID: CustomerIDFromURL(location), URL: location}, nil
}

// AddFundingSource creates an on-demand authorization and attaches the
// processor token as a bank funding source of the customer.
func (c *Client) AddFundingSource(ctx context.Context, params linking.FundingSourceParams) (string, error) {
	if params.CustomerID == "" {
		return "", errors.New("customer id is required")
	}

	authorization, err := c.createOnDemandAuthorization(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create on-demand authorization: %w", err)
	}

	req := fundingSourceRequest{
		Name:       params.BankName,
		PlaidToken: params.ProcessorToken,
	}
	if self, ok := authorization.Links["self"]; ok && self.Href != "" {
		req.Links = map[string]link{"on-demand-authorization": self}
	}

	path := customersPath + "/" + url.PathEscape(params.CustomerID) + "/funding-sources"
	location, _, err := c.post(ctx, path, req)
	if err != nil {
		return "", err
	}
	return location, nil
}

func (c *Client) createOnDemandAuthorization(ctx context.Context) (*onDemandAuthorizationResponse, error) {
	_, body, err := c.post(ctx, onDemandAuthorizationsPath, nil)
	if err != nil {
		return nil, err
	}

	var resp onDemandAuthorizationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal on-demand authorization: %w", err)
	}
	return &resp, nil
}

// CustomerIDFromURL returns the last path segment of a customer URL.
func CustomerIDFromURL(customerURL string) string {
	trimmed := strings.TrimRight(customerURL, "/")
	if u, err := url.Parse(trimmed); err == nil && u.Path != "" {
		trimmed = strings.TrimRight(u.Path, "/")
	}
	if idx := strings.LastIndex(trimmed, "/"); idx != -1 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// post sends a HAL+JSON POST and returns the Location header and body.
func (c *Client) post(ctx context.Context, path string, payload any) (string, []byte, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", mediaType)
	req.Header.Set("Content-Type", mediaType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, parseError(resp.StatusCode, respBody)
	}

	return resp.Header.Get("Location"), respBody, nil
}

func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}

	apiErr.Code = eb.Code
	apiErr.Message = eb.Message
	for _, e := range eb.Embedded.Errors {
		apiErr.Details = append(apiErr.Details, fmt.Sprintf("%s %s: %s", e.Path, e.Code, e.Message))
	}
	return apiErr
}
