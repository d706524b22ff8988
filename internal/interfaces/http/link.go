package http

import (
	"errors"
	"net/http"

	"banklink/internal/domain/linking"
	"banklink/internal/shared/middleware"
)

type LinkHandler struct {
	linkingService *linking.Service
}

func NewLinkHandler(linkingService *linking.Service) *LinkHandler {
	return &LinkHandler{linkingService: linkingService}
}

type LinkTokenResponse struct {
	OK        bool   `json:"ok"`
	LinkToken string `json:"linkToken"`
}

type ExchangeRequest struct {
	PublicToken string `json:"publicToken"`
}

// HandleCreateLinkToken opens an aggregator Link session for the caller.
// Whether a signed-out caller is served depends on the anonymous-link setting.
func (h *LinkHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.UserFromContext(r.Context())

	token, err := h.linkingService.CreateLinkToken(r.Context(), u)
	if err != nil {
		writeLinkError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LinkTokenResponse{OK: true, LinkToken: token})
}

// HandleExchange runs the full linking chain for a public token and returns
// the tagged result.
func (h *LinkHandler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ExchangeRequest
	if err := decodeJSON(w, r, &req); err != nil || req.PublicToken == "" {
		writeError(w, http.StatusBadRequest, "publicToken is required")
		return
	}

	result, err := h.linkingService.ExchangePublicToken(r.Context(), linking.ExchangeRequest{
		PublicToken: req.PublicToken,
		User:        u,
	})
	if err != nil {
		writeLinkError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeLinkError(w http.ResponseWriter, err error) {
	if errors.Is(err, linking.ErrMissingIdentity) {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var stepErr *linking.StepError
	if errors.As(err, &stepErr) {
		writeError(w, http.StatusBadGateway, stepErr.Message)
		return
	}

	writeError(w, http.StatusInternalServerError, "Unexpected error")
}
