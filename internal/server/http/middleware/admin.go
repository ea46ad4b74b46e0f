package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmarkhas/loyaltycore/internal/pkg/adminauth"
)

// AdminKeyHeader carries the administrative API key.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyRequired protects administrative endpoints with the configured
// API key. With no key hash configured the endpoints answer 503.
func AdminKeyRequired(verifier adminauth.KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		if err := verifier.Verify(key); err != nil {
			if errors.Is(err, adminauth.ErrAdminDisabled) {
				c.AbortWithStatus(http.StatusServiceUnavailable)
				return
			}
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}
