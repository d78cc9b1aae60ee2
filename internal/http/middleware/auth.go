// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token authentication. RequireAuth parses the
// Authorization header, verifies the token through the injected verifier,
// and stores the resulting user id in the Gin context under "userID", where
// logging, rate limiting, and handlers pick it up.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userIDKey is the Gin context key under which the authenticated user id is
// stored. The logging and rate-limit middleware read the same key.
const userIDKey = "userID"

// TokenVerifier validates a bearer token and returns the user id it carries.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// UserIDFrom returns the authenticated user id set by RequireAuth, or ""
// when the request is unauthenticated.
func UserIDFrom(c *gin.Context) string {
	return userIDFromCtx(c)
}

// RequireAuth returns a Gin middleware that rejects requests lacking a valid
// "Authorization: Bearer <token>" header with a 401 envelope. On success the
// user id is stored in the context and the chain continues.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}
		uid, err := verifier.VerifyToken(token)
		if err != nil || uid == "" {
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(userIDKey, uid)
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header value. The
// scheme comparison is case-insensitive per RFC 7235.
func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
