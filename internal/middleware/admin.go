package middleware

import (
	"crypto/hmac"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// AdminOnly guards operator endpoints with the out-of-band ADMIN_API_KEY
// credential, supplied in the X-Admin-Key header. Not part of normal traffic;
// user JWTs do not grant access.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := os.Getenv("ADMIN_API_KEY")
		supplied := c.GetHeader("X-Admin-Key")

		if key == "" || !hmac.Equal([]byte(key), []byte(supplied)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			c.Abort()
			return
		}

		c.Next()
	}
}
