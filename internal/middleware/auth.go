package middleware

import (
	"net/http"
	"strings"

	"github.com/dev-299792/oauth2/internal/services"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// BearerAuth extracts and verifies the Authorization: Bearer token and
// stores the resulting principal in the request context. Failures answer
// 401 with a WWW-Authenticate challenge (RFC 6750 §3).
func BearerAuth(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.Header("WWW-Authenticate", `Bearer realm="oauth2"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid_token",
			})
			return
		}

		principal, err := tokens.VerifyBearerToken(raw)
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="oauth2", error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid_token",
			})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireScope aborts with 403 insufficient_scope unless the principal
// holds the scope. Must run after BearerAuth.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok || !principal.HasScope(scope) {
			c.Header("WWW-Authenticate",
				`Bearer realm="oauth2", error="insufficient_scope", scope="`+scope+`"`)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient_scope",
			})
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the verified principal set by BearerAuth.
func GetPrincipal(c *gin.Context) (*services.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	principal, ok := v.(*services.Principal)
	return principal, ok
}

func extractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
