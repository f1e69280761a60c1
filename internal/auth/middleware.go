package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/macfarley/dream-weaver-backend/internal"
)

// IdentityKey is the gin context key under which Middleware stores the
// verified *internal.Identity.
const IdentityKey = "identity"

func Middleware(provider Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			ident, err := provider.VerifyToken(c.Request.Context(), token)
			if err == nil {
				c.Set(IdentityKey, ident)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

// MustIdentity extracts the identity attached by Middleware. Only valid on
// routes behind it.
func MustIdentity(c *gin.Context) *internal.Identity {
	return c.MustGet(IdentityKey).(*internal.Identity)
}
