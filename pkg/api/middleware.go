package api

import "github.com/gin-gonic/gin"

// securityHeaders sets standard security response headers on every
// response, same header set and values the teacher's echo middleware used.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}

// extractAuthor resolves the caller identity from oauth2-proxy headers,
// falling back to a generic API-client label when none are present.
// Priority: X-Forwarded-User > X-Forwarded-Email > X-Remote-User > default.
func extractAuthor(c *gin.Context) string {
	if user := c.GetHeader("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.GetHeader("X-Forwarded-Email"); email != "" {
		return email
	}
	if remote := c.GetHeader("X-Remote-User"); remote != "" {
		return remote
	}
	return "api-client"
}
