package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// RoleLookup returns the current role of a user from the store of record.
// ok is false when the user no longer exists.
type RoleLookup interface {
	UserRole(ctx context.Context, id int64) (role string, ok bool, err error)
}

// Authenticate enforces bearer JWT tokens and attaches the caller identity.
// Absent or malformed credentials get 401, rejected tokens get 403.
func Authenticate(tokens *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
			return
		}
		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			if errors.Is(err, ErrMissingToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
			return
		}
		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

// RequireRole restricts a route to callers holding role. With a non-nil
// lookup the token's role claim is re-checked against the users table, so
// deleted accounts lose access before their token expires.
func RequireRole(role string, lookup RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || id.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		if lookup != nil {
			current, exists, err := lookup.UserRole(c.Request.Context(), id.ID)
			if err != nil {
				slog.Error("role lookup failed", "user_id", id.ID, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if !exists || current != role {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
				return
			}
		}
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("bearer "):])
	return token, token != ""
}
