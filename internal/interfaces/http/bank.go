package http

import (
	"errors"
	"net/http"

	"banklink/internal/domain/bank"
	"banklink/internal/shared/logger"
	"banklink/internal/shared/middleware"
)

type BankHandler struct {
	bankService *bank.Service
}

func NewBankHandler(bankService *bank.Service) *BankHandler {
	return &BankHandler{bankService: bankService}
}

type BanksResponse struct {
	OK    bool                      `json:"ok"`
	Banks []*bank.LinkedBankAccount `json:"banks"`
}

type BankResponse struct {
	OK   bool                    `json:"ok"`
	Bank *bank.LinkedBankAccount `json:"bank"`
}

// SharedBankResponse is what another user may learn from a shareable id.
type SharedBankResponse struct {
	OK               bool   `json:"ok"`
	ShareableID      string `json:"shareableId"`
	FundingSourceURL string `json:"fundingSourceUrl"`
}

func (h *BankHandler) HandleListBanks(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	banks, err := h.bankService.GetBanks(r.Context(), u.ID)
	if err != nil {
		logger.Error("listing banks failed", err, logger.Fields{"user_id": u.ID})
		writeError(w, http.StatusBadGateway, "Failed to list bank accounts")
		return
	}

	writeJSON(w, http.StatusOK, BanksResponse{OK: true, Banks: banks})
}

func (h *BankHandler) HandleGetBank(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	b, err := h.bankService.GetBank(r.Context(), r.PathValue("id"))
	h.writeOwnedBank(w, u.ID, b, err)
}

func (h *BankHandler) HandleGetBankByAccountID(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	b, err := h.bankService.GetBankByAccountID(r.Context(), r.PathValue("accountId"))
	h.writeOwnedBank(w, u.ID, b, err)
}

// HandleGetSharedBank resolves a shareable id for any signed-in user and
// returns only the fields needed to pay into the account.
func (h *BankHandler) HandleGetSharedBank(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	b, err := h.bankService.GetBankByShareableID(r.Context(), r.PathValue("shareableId"))
	if err != nil {
		writeBankError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SharedBankResponse{
		OK:               true,
		ShareableID:      b.ShareableID,
		FundingSourceURL: b.FundingSourceURL,
	})
}

// Banks owned by someone else are reported as missing.
func (h *BankHandler) writeOwnedBank(w http.ResponseWriter, userID string, b *bank.LinkedBankAccount, err error) {
	if err != nil {
		writeBankError(w, err)
		return
	}
	if b.UserID != userID {
		writeError(w, http.StatusNotFound, "Bank account not found")
		return
	}

	writeJSON(w, http.StatusOK, BankResponse{OK: true, Bank: b})
}

func writeBankError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bank.ErrNotFound):
		writeError(w, http.StatusNotFound, "Bank account not found")
	case errors.Is(err, bank.ErrNotUnique):
		writeError(w, http.StatusConflict, "More than one bank account matches")
	case errors.Is(err, bank.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("bank lookup failed", err, nil)
		writeError(w, http.StatusBadGateway, "Failed to load bank account")
	}
}
