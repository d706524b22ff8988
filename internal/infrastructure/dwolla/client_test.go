package dwolla

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banklink/internal/domain/linking"
	"banklink/internal/domain/user"
)

type fakeDwolla struct {
	t          *testing.T
	srv        *httptest.Server
	tokenCalls atomic.Int32
	routes     map[string]http.HandlerFunc
}

func newFakeDwolla(t *testing.T) *fakeDwolla {
	t.Helper()
	f := &fakeDwolla{t: t, routes: map[string]http.HandlerFunc{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeDwolla) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/token" {
		f.tokenCalls.Add(1)
		key, secret, ok := r.BasicAuth()
		assert.True(f.t, ok)
		assert.Equal(f.t, "key", key)
		assert.Equal(f.t, "secret", secret)
		require.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"dwolla-access","token_type":"bearer","expires_in":3600}`))
		return
	}

	assert.Equal(f.t, "Bearer dwolla-access", r.Header.Get("Authorization"))
	assert.Equal(f.t, mediaType, r.Header.Get("Accept"))

	handler, ok := f.routes[r.Method+" "+r.URL.Path]
	if !ok {
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	handler(w, r)
}

func (f *fakeDwolla) client() *Client {
	return NewClientWithBaseURL(context.Background(), "key", "secret", f.srv.URL, f.srv.Client())
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	if len(raw) == 0 {
		return nil
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestNewClient_Environments(t *testing.T) {
	c, err := NewClient(context.Background(), "key", "secret", "sandbox")
	require.NoError(t, err)
	assert.Equal(t, "https://api-sandbox.dwolla.com", c.baseURL)

	_, err = NewClient(context.Background(), "key", "secret", "uat")
	assert.Error(t, err)
}

func TestCreateCustomer(t *testing.T) {
	f := newFakeDwolla(t)
	f.routes["POST /customers"] = func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "personal", body["type"])
		assert.Equal(t, "Ada", body["firstName"])
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "1234", body["ssn"])

		w.Header().Set("Location", f.srv.URL+"/customers/FC451A7A-AE30-4404-AB95-E3553FCD733F")
		w.WriteHeader(http.StatusCreated)
	}

	customer, err := f.client().CreateCustomer(context.Background(), user.CustomerProfile{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", SSN: "1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "FC451A7A-AE30-4404-AB95-E3553FCD733F", customer.ID)
	assert.Equal(t, f.srv.URL+"/customers/FC451A7A-AE30-4404-AB95-E3553FCD733F", customer.URL)
}

func TestCreateCustomer_NoLocation(t *testing.T) {
	f := newFakeDwolla(t)
	f.routes["POST /customers"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}

	_, err := f.client().CreateCustomer(context.Background(), user.CustomerProfile{})
	assert.Error(t, err)
}

func TestCreateCustomer_ValidationError(t *testing.T) {
	f := newFakeDwolla(t)
	f.routes["POST /customers"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", mediaType)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{
			"code": "ValidationError",
			"message": "Validation error(s) present. See embedded errors list for more details.",
			"_embedded": {"errors": [{"code": "Duplicate", "message": "A customer with the specified email already exists.", "path": "/email"}]}
		}`))
	}

	_, err := f.client().CreateCustomer(context.Background(), user.CustomerProfile{Email: "ada@example.com"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "ValidationError", apiErr.Code)
	require.Len(t, apiErr.Details, 1)
	assert.Contains(t, apiErr.Details[0], "/email Duplicate")
}

func TestAddFundingSource(t *testing.T) {
	f := newFakeDwolla(t)
	authorizationURL := ""
	f.routes["POST /on-demand-authorizations"] = func(w http.ResponseWriter, r *http.Request) {
		authorizationURL = f.srv.URL + "/on-demand-authorizations/30e7c028-0bdf-e511-80de-0aa34a9b2388"
		w.Header().Set("Content-Type", mediaType)
		w.Write([]byte(`{
			"_links": {"self": {"href": "` + authorizationURL + `"}},
			"bodyText": "I agree that future payments to Company ABC inc. will be processed by the Dwolla payment system.",
			"buttonText": "Agree & Continue"
		}`))
	}
	f.routes["POST /customers/cust-1/funding-sources"] = func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "Checking", body["name"])
		assert.Equal(t, "proc_1", body["plaidToken"])
		links, _ := body["_links"].(map[string]any)
		require.NotNil(t, links)
		assert.Equal(t, map[string]any{"href": authorizationURL}, links["on-demand-authorization"])

		w.Header().Set("Location", "https://funding/abc")
		w.WriteHeader(http.StatusCreated)
	}

	c := f.client()
	fundingURL, err := c.AddFundingSource(context.Background(), linking.FundingSourceParams{
		CustomerID: "cust-1", ProcessorToken: "proc_1", BankName: "Checking",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://funding/abc", fundingURL)
	assert.Equal(t, int32(1), f.tokenCalls.Load(), "access token should be reused across calls")
}

func TestAddFundingSource_AuthorizationFailure(t *testing.T) {
	f := newFakeDwolla(t)
	f.routes["POST /on-demand-authorizations"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"Forbidden","message":"Not authorized to create on-demand authorizations."}`))
	}

	_, err := f.client().AddFundingSource(context.Background(), linking.FundingSourceParams{
		CustomerID: "cust-1", ProcessorToken: "proc_1", BankName: "Checking",
	})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Forbidden", apiErr.Code)
}

func TestAddFundingSource_RequiresCustomer(t *testing.T) {
	f := newFakeDwolla(t)

	_, err := f.client().AddFundingSource(context.Background(), linking.FundingSourceParams{ProcessorToken: "proc_1"})
	assert.Error(t, err)
	assert.Equal(t, int32(0), f.tokenCalls.Load())
}

func TestCustomerIDFromURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://api-sandbox.dwolla.com/customers/abc-123", "abc-123"},
		{"https://api-sandbox.dwolla.com/customers/abc-123/", "abc-123"},
		{"https://api.dwolla.com/customers/abc-123?embed=1", "abc-123"},
		{"abc-123", "abc-123"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CustomerIDFromURL(tt.in); got != tt.want {
			t.Errorf("CustomerIDFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
