package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banklink/internal/domain/bank"
	"banklink/internal/infrastructure/crypto"
)

func seededBanks() *MemoryBankRepo {
	return &MemoryBankRepo{banks: []*bank.LinkedBankAccount{
		{ID: "doc-1", UserID: "uid-1", BankID: "item-1", AccountID: "acc-1", AccessToken: "access-1",
			FundingSourceURL: "https://funding/1", ShareableID: crypto.EncodeShareableID("acc-1")},
		{ID: "doc-2", UserID: "uid-2", BankID: "item-2", AccountID: "acc-2", AccessToken: "access-2",
			FundingSourceURL: "https://funding/2", ShareableID: crypto.EncodeShareableID("acc-2")},
		{ID: "doc-3", UserID: "uid-1", BankID: "item-3", AccountID: "acc-dup", AccessToken: "access-3",
			FundingSourceURL: "https://funding/3", ShareableID: crypto.EncodeShareableID("acc-dup")},
		{ID: "doc-4", UserID: "uid-1", BankID: "item-4", AccountID: "acc-dup", AccessToken: "access-4",
			FundingSourceURL: "https://funding/4", ShareableID: crypto.EncodeShareableID("acc-dup")},
	}}
}

func bankMux(repo *MemoryBankRepo) *http.ServeMux {
	handler := NewBankHandler(bank.NewService(repo, nil))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/banks", handler.HandleListBanks)
	mux.HandleFunc("GET /api/banks/{id}", handler.HandleGetBank)
	mux.HandleFunc("GET /api/banks/account/{accountId}", handler.HandleGetBankByAccountID)
	mux.HandleFunc("GET /api/banks/shared/{shareableId}", handler.HandleGetSharedBank)
	return mux
}

func serveAsUser(mux http.Handler, path string, signedIn bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if signedIn {
		req = req.WithContext(withUser(req.Context(), signedInUser()))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHandleListBanks(t *testing.T) {
	rr := serveAsUser(bankMux(seededBanks()), "/api/banks", true)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp BanksResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.OK)
	assert.Len(t, resp.Banks, 3)
	assert.NotContains(t, rr.Body.String(), "access-1")
}

func TestHandleListBanks_EmptyIsArray(t *testing.T) {
	rr := serveAsUser(bankMux(&MemoryBankRepo{}), "/api/banks", true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"banks":[]`)
}

func TestBankLookups(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		signedIn       bool
		expectedStatus int
	}{
		{"Own bank by id", "/api/banks/doc-1", true, http.StatusOK},
		{"Other user's bank by id", "/api/banks/doc-2", true, http.StatusNotFound},
		{"Missing bank by id", "/api/banks/doc-9", true, http.StatusNotFound},
		{"Signed out", "/api/banks/doc-1", false, http.StatusUnauthorized},
		{"Own bank by account id", "/api/banks/account/acc-1", true, http.StatusOK},
		{"Duplicate account id", "/api/banks/account/acc-dup", true, http.StatusConflict},
		{"Unknown account id", "/api/banks/account/acc-9", true, http.StatusNotFound},
		{"Shared bank of another user", "/api/banks/shared/" + crypto.EncodeShareableID("acc-2"), true, http.StatusOK},
		{"Undecodable shareable id", "/api/banks/shared/%25%25%25", true, http.StatusNotFound},
	}

	mux := bankMux(seededBanks())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveAsUser(mux, tt.path, tt.signedIn)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestHandleGetSharedBank_RevealsOnlyPaymentFields(t *testing.T) {
	rr := serveAsUser(bankMux(seededBanks()), "/api/banks/shared/"+crypto.EncodeShareableID("acc-2"), true)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp SharedBankResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "https://funding/2", resp.FundingSourceURL)
	assert.NotContains(t, rr.Body.String(), "uid-2")
	assert.NotContains(t, rr.Body.String(), "acc-2")
}

func TestHandleListBanks_StoreFailure(t *testing.T) {
	rr := serveAsUser(bankMux(&MemoryBankRepo{err: errors.New("firestore unavailable")}), "/api/banks", true)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error":true`)
}
