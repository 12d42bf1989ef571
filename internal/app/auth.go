package app

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const metricsRealm = `Basic realm="tucurso-metrics", charset="UTF-8"`

// metricsAuthMiddleware guards /metrics with Basic Auth. Disabled auth
// passes every request through.
func metricsAuthMiddleware(enabled bool, username, password string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	// Digests have a fixed length, so the comparison time does not depend on
	// how long the configured credentials are.
	wantUser := sha256.Sum256([]byte(username))
	wantPass := sha256.Sum256([]byte(password))

	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if ok {
			gotUser := sha256.Sum256([]byte(user))
			gotPass := sha256.Sum256([]byte(pass))
			userOK := subtle.ConstantTimeCompare(gotUser[:], wantUser[:])
			passOK := subtle.ConstantTimeCompare(gotPass[:], wantPass[:])
			if userOK&passOK == 1 {
				c.Next()
				return
			}
		}
		c.Header("WWW-Authenticate", metricsRealm)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
