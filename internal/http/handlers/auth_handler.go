// Auth HTTP handlers.
//
// This file exposes the identity endpoints:
//   - POST /auth/register (create an account, returns user + bearer token)
//   - POST /auth/login    (verify credentials, returns user + bearer token)
//
// Tokens are signed server-side; handlers never see password hashes.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evoris-app/go-capsule-backend/internal/domain"
	"github.com/evoris-app/go-capsule-backend/internal/services"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for account creation.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// LoginRequest is the JSON payload for credential login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse wraps an authenticated user and their bearer token.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

//
// Handlers
//

// Register handles POST /auth/register. A successful registration also
// issues a token so clients land signed in, matching the web app flow.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email, display_name, and password required")
		return
	}

	ctx := c.Request.Context()
	u, err := h.userSvc.Register(ctx, req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		case errors.Is(err, services.ErrWeakPassword):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "password must be at least 8 characters")
		case errors.Is(err, services.ErrDisplayNameRequired),
			errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	_, token, err := h.userSvc.Login(ctx, req.Email, req.Password)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, AuthResponse{User: u, Token: token})
}

// Login handles POST /auth/login. Unknown emails and wrong passwords both
// yield the same 401 so accounts cannot be enumerated.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}

	u, token, err := h.userSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid email or password")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, AuthResponse{User: u, Token: token})
}
