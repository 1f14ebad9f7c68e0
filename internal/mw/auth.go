package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parkspot-backend/internal/auth"
)

const identityKey = "identity"

// Authenticator validates bearer tokens.
type Authenticator interface {
	Authenticate(tokenStr string) (*auth.Identity, error)
}

// BearerAuth rejects requests without a valid session token and stores
// the authenticated identity in the request context.
func BearerAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		id, err := a.Authenticate(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the authenticated identity set by BearerAuth.
func IdentityFrom(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*auth.Identity)
	return id, ok
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
