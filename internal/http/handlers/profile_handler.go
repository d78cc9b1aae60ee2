// Profile HTTP handlers.
//
// This file exposes the account-management endpoints:
//   - GET /profile          (current user)
//   - PUT /profile          (rename)
//   - PUT /profile/password (change password)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evoris-app/go-capsule-backend/internal/services"
)

// UpdateProfileRequest is the JSON payload for renaming the account.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// ChangePasswordRequest is the JSON payload for rotating the password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// GetProfile handles GET /profile.
func (h *Handlers) GetProfile(c *gin.Context) {
	u, err := h.userSvc.Profile(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateProfile handles PUT /profile.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "display_name required")
		return
	}

	u, err := h.userSvc.UpdateDisplayName(c.Request.Context(), userID(c), req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDisplayNameRequired):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "display_name required")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, u)
}

// ChangePassword handles PUT /profile/password. The current password must
// verify before the new one is stored.
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "current_password and new_password required")
		return
	}

	err := h.userSvc.ChangePassword(c.Request.Context(), userID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "current password is incorrect")
		case errors.Is(err, services.ErrWeakPassword):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "password must be at least 8 characters")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
