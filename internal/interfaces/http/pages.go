package http

import (
	"html/template"
	"log"
	"net/http"

	"banklink/internal/domain/bank"
	"banklink/internal/domain/user"
	"banklink/internal/shared/logger"
	"banklink/internal/shared/middleware"
	"banklink/internal/web"
)

// Connect-bank button variants.
const (
	VariantPrimary = "primary"
	VariantGhost   = "ghost"
	VariantDefault = "default"
)

type ConnectBankView struct {
	Variant      string
	User         *user.User
	RequireReady bool
}

type pageData struct {
	Title            string
	User             *user.User
	Banks            []*bank.LinkedBankAccount
	BanksUnavailable bool
	ConnectBank      ConnectBankView
}

type PageHandler struct {
	pages        map[string]*template.Template
	bankService  *bank.Service
	requireReady bool
}

func NewPageHandler(pages map[string]*template.Template, bankService *bank.Service, requireReady bool) *PageHandler {
	return &PageHandler{pages: pages, bankService: bankService, requireReady: requireReady}
}

// HandleHome lists the user's linked banks. The connect button is the
// primary call to action until the first bank is linked, and a plain
// button when the list could not be loaded.
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
		return
	}

	banks, err := h.bankService.GetBanks(r.Context(), u.ID)

	variant := VariantPrimary
	switch {
	case err != nil:
		logger.Error("listing banks for home page failed", err, logger.Fields{"user_id": u.ID})
		banks = nil
		variant = VariantDefault
	case len(banks) > 0:
		variant = VariantGhost
	}

	h.render(w, web.PageHome, pageData{
		Title:            "Home",
		User:             u,
		Banks:            banks,
		BanksUnavailable: err != nil,
		ConnectBank:      ConnectBankView{Variant: variant, User: u, RequireReady: h.requireReady},
	})
}

func (h *PageHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	h.renderAuthPage(w, r, web.PageSignIn, "Sign in")
}

func (h *PageHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	h.renderAuthPage(w, r, web.PageSignUp, "Sign up")
}

// Signed-in users have no use for the auth pages.
func (h *PageHandler) renderAuthPage(w http.ResponseWriter, r *http.Request, page, title string) {
	if _, ok := middleware.UserFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.render(w, page, pageData{Title: title})
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data pageData) {
	tmpl, ok := h.pages[page]
	if !ok {
		log.Printf("Unknown page template: %s", page)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("Error rendering %s page: %v", page, err)
	}
}
