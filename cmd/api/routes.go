package main

import (
	"log"
	"net/http"

	httphandlers "banklink/internal/interfaces/http"
	"banklink/internal/shared/config"
	"banklink/internal/shared/middleware"
	"banklink/internal/web"
)

const signInPath = "/sign-in"

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	cookies := httphandlers.SessionCookies{Name: cfg.Session.CookieName}
	authHandler := httphandlers.NewAuthHandler(deps.UserService, cookies)
	userHandler := httphandlers.NewUserHandler(deps.UserService)
	bankHandler := httphandlers.NewBankHandler(deps.BankService)
	linkHandler := httphandlers.NewLinkHandler(deps.LinkingService)
	pageHandler := httphandlers.NewPageHandler(deps.Pages, deps.BankService, cfg.UI.RequireLinkReady)

	requireSession := middleware.RequireSession(deps.UserService, cfg.Session.CookieName)
	optionalSession := middleware.OptionalSession(deps.UserService, cfg.Session.CookieName)
	requirePage := middleware.RequirePageSession(deps.UserService, cfg.Session.CookieName, signInPath)

	// Health check
	mux.HandleFunc("GET /health", httphandlers.HandleHealth)

	// Pages
	mux.Handle("GET /{$}", requirePage(http.HandlerFunc(pageHandler.HandleHome)))
	mux.Handle("GET "+signInPath, optionalSession(http.HandlerFunc(pageHandler.HandleSignIn)))
	mux.Handle("GET /sign-up", optionalSession(http.HandlerFunc(pageHandler.HandleSignUp)))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	// Public auth routes
	mux.HandleFunc("POST /api/auth/sign-up", authHandler.HandleSignUp)
	mux.HandleFunc("POST /api/auth/sign-in", authHandler.HandleSignIn)
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)

	// User routes
	mux.Handle("GET /api/users/me", requireSession(http.HandlerFunc(userHandler.HandleMe)))
	mux.Handle("POST /api/users/me/devices", requireSession(http.HandlerFunc(userHandler.HandleRegisterDevice)))

	// Link routes (token creation may be anonymous when configured)
	mux.Handle("POST /api/link/token", optionalSession(http.HandlerFunc(linkHandler.HandleCreateLinkToken)))
	mux.Handle("POST /api/link/exchange", requireSession(http.HandlerFunc(linkHandler.HandleExchange)))

	// Bank routes
	mux.Handle("GET /api/banks", requireSession(http.HandlerFunc(bankHandler.HandleListBanks)))
	mux.Handle("GET /api/banks/{id}", requireSession(http.HandlerFunc(bankHandler.HandleGetBank)))
	mux.Handle("GET /api/banks/account/{accountId}", requireSession(http.HandlerFunc(bankHandler.HandleGetBankByAccountID)))
	mux.Handle("GET /api/banks/shared/{shareableId}", requireSession(http.HandlerFunc(bankHandler.HandleGetSharedBank)))

	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))
	handler = middleware.Tracing(handler)
	handler = middleware.Telemetry(handler)

	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS enabled: HSTS and secure cookies active")
	}

	return handler
}
