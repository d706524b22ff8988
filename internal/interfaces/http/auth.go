package http

import (
	"errors"
	"net/http"

	"banklink/internal/domain/user"
	"banklink/internal/shared/logger"
)

type AuthHandler struct {
	userService *user.Service
	cookies     SessionCookies
}

func NewAuthHandler(userService *user.Service, cookies SessionCookies) *AuthHandler {
	return &AuthHandler{userService: userService, cookies: cookies}
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	OK      bool       `json:"ok"`
	User    *user.User `json:"user"`
	Message string     `json:"message,omitempty"`
	Next    string     `json:"next,omitempty"`
}

// HandleSignUp creates the account, payments customer and profile, then
// sets the session cookie. When only the session step fails the account
// still exists, so the client is sent to sign in instead.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var params user.SignUpParams
	if err := decodeJSON(w, r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, session, err := h.userService.SignUp(r.Context(), params)
	if err != nil {
		var validationErr *user.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeError(w, http.StatusBadRequest, validationErr.Error())
		case errors.Is(err, user.ErrEmailTaken):
			writeError(w, http.StatusConflict, "An account with this email already exists")
		case errors.Is(err, user.ErrSessionUnavailable) && profile != nil:
			writeJSON(w, http.StatusCreated, AuthResponse{
				OK:      true,
				User:    profile,
				Message: "Account created; sign in to continue",
				Next:    "/sign-in",
			})
		default:
			logger.Error("sign-up failed", err, nil)
			writeError(w, http.StatusBadGateway, "Failed to create account")
		}
		return
	}

	h.cookies.set(w, session.Secret, session.ExpiresAt)
	writeJSON(w, http.StatusCreated, AuthResponse{OK: true, User: profile})
}

func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, session, err := h.userService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, user.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User profile not found")
		default:
			logger.Error("sign-in failed", err, nil)
			writeError(w, http.StatusBadGateway, "Failed to sign in")
		}
		return
	}

	h.cookies.set(w, session.Secret, session.ExpiresAt)
	writeJSON(w, http.StatusOK, AuthResponse{OK: true, User: profile})
}

// HandleLogout revokes the session and clears the cookie. It succeeds even
// when no session is present.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if secret := h.cookies.secret(r); secret != "" {
		if err := h.userService.SignOut(r.Context(), secret); err != nil {
			logger.Error("session revocation failed", err, nil)
		}
	}

	h.cookies.clear(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
