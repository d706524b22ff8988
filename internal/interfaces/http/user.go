package http

import (
	"errors"
	"net/http"

	"banklink/internal/domain/user"
	"banklink/internal/shared/logger"
	"banklink/internal/shared/middleware"
)

type UserHandler struct {
	userService *user.Service
}

func NewUserHandler(userService *user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

type RegisterDeviceRequest struct {
	Token string `json:"token"`
}

func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// HandleRegisterDevice stores an FCM token used for bank-list refresh pushes.
func (h *UserHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req RegisterDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.userService.RegisterDevice(r.Context(), u.ID, req.Token); err != nil {
		switch {
		case user.IsValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, user.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			logger.Error("device registration failed", err, logger.Fields{"user_id": u.ID})
			writeError(w, http.StatusBadGateway, "Failed to register device")
		}
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
