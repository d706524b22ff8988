package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banklink/internal/domain/bank"
	"banklink/internal/web"
)

func newPageHandler(t *testing.T, repo *MemoryBankRepo, requireReady bool) *PageHandler {
	t.Helper()
	pages, err := web.ParsePages()
	require.NoError(t, err)
	return NewPageHandler(pages, bank.NewService(repo, nil), requireReady)
}

func TestHandleHome_ListsBanks(t *testing.T) {
	handler := newPageHandler(t, seededBanks(), true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(withUser(req.Context(), signedInUser()))
	rr := httptest.NewRecorder()
	handler.HandleHome(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Welcome, Ada")
	assert.Contains(t, body, "item-1")
	assert.NotContains(t, body, "item-2")
	assert.Contains(t, body, "btn btn-ghost")
	assert.Contains(t, body, `data-require-ready="true"`)
	assert.NotContains(t, body, "access-1")
}

func TestHandleHome_NoBanksUsesPrimaryButton(t *testing.T) {
	handler := newPageHandler(t, &MemoryBankRepo{}, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(withUser(req.Context(), signedInUser()))
	rr := httptest.NewRecorder()
	handler.HandleHome(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "btn btn-primary")
	assert.Contains(t, rr.Body.String(), `data-require-ready="false"`)
}

func TestHandleHome_ListingFailureUsesDefaultButton(t *testing.T) {
	handler := newPageHandler(t, &MemoryBankRepo{err: errors.New("firestore unavailable")}, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(withUser(req.Context(), signedInUser()))
	rr := httptest.NewRecorder()
	handler.HandleHome(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "could not be loaded")
	assert.NotContains(t, body, "You have not linked a bank account yet")
	assert.Contains(t, body, `class="btn "`)
	assert.NotContains(t, body, "btn-primary")
	assert.NotContains(t, body, "btn-ghost")
}

func TestHandleHome_SignedOutRedirects(t *testing.T) {
	handler := newPageHandler(t, &MemoryBankRepo{}, true)

	rr := httptest.NewRecorder()
	handler.HandleHome(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/sign-in", rr.Header().Get("Location"))
}

func TestAuthPages(t *testing.T) {
	handler := newPageHandler(t, &MemoryBankRepo{}, true)

	rr := httptest.NewRecorder()
	handler.HandleSignIn(rr, httptest.NewRequest(http.MethodGet, "/sign-in", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `action="/api/auth/sign-in"`)

	rr = httptest.NewRecorder()
	handler.HandleSignUp(rr, httptest.NewRequest(http.MethodGet, "/sign-up", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `action="/api/auth/sign-up"`)

	req := httptest.NewRequest(http.MethodGet, "/sign-in", nil)
	req = req.WithContext(withUser(req.Context(), signedInUser()))
	rr = httptest.NewRecorder()
	handler.HandleSignIn(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}
