package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
	"github.com/Apsteward8/my-bet-tracker/internal/service"
)

// ContextKey constants for gin.Context values set by middleware.
const (
	CtxOperator = "operator"
	CtxRole     = "role"
)

// TokenParser is the part of AuthService the middleware needs.
type TokenParser interface {
	ParseAccessToken(token string) (*service.AppClaims, error)
}

func abortAuth(c *gin.Context, status int, code string, err error) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// JWTMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// JWTMiddleware validates the Bearer token in the Authorization header.
// On success it stores the operator name and role in the gin context.
func JWTMiddleware(auth TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abortAuth(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", domain.ErrUnauthorized)
			return
		}

		claims, err := auth.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				abortAuth(c, http.StatusUnauthorized, "ERR_TOKEN_EXPIRED", domain.ErrTokenExpired)
				return
			}
			abortAuth(c, http.StatusUnauthorized, "ERR_TOKEN_INVALID", domain.ErrTokenInvalid)
			return
		}
		if claims.Subject == "" {
			abortAuth(c, http.StatusUnauthorized, "ERR_TOKEN_INVALID", domain.ErrTokenInvalid)
			return
		}

		c.Set(CtxOperator, claims.Subject)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// RoleMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// RoleMiddleware ensures the authenticated caller has one of the allowed roles.
// Must be placed after JWTMiddleware in the chain.
func RoleMiddleware(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[GetRole(c)] {
			abortAuth(c, http.StatusForbidden, "ERR_FORBIDDEN", domain.ErrForbidden)
			return
		}
		c.Next()
	}
}

// OperatorMiddleware allows only operator tokens through.
func OperatorMiddleware() gin.HandlerFunc {
	return RoleMiddleware(service.RoleOperator)
}

// ──────────────────────────────────────────────────────────────────────────────
// Context helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetOperator returns the authenticated operator name, or "" when the
// middleware was not applied.
func GetOperator(c *gin.Context) string {
	v, _ := c.Get(CtxOperator)
	s, _ := v.(string)
	return s
}

// GetRole retrieves the authenticated caller's role from the gin context.
func GetRole(c *gin.Context) string {
	v, _ := c.Get(CtxRole)
	r, _ := v.(string)
	return r
}
