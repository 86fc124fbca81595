// README: Auth middleware: verifies the bearer token and exposes the caller's claims.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"feast/internal/infra"
)

const (
	ctxUID        = "auth.uid"
	ctxEmail      = "auth.email"
	ctxRole       = "auth.role"
	ctxRestaurant = "auth.restaurant"
	ctxName       = "auth.name"
)

// Auth rejects requests without a valid token. Browsers cannot set headers on
// websocket upgrades, so access_token is accepted as a query parameter too.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		email := strings.ToLower(strings.TrimSpace(claim(token, "email")))
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no email"})
			return
		}
		c.Set(ctxUID, token.UID)
		c.Set(ctxEmail, email)
		c.Set(ctxRole, claim(token, "role"))
		c.Set(ctxRestaurant, claim(token, "restaurant"))
		c.Set(ctxName, claim(token, "name"))
		c.Next()
	}
}

// RequireRole lets through only callers holding one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func CallerUID(c *gin.Context) string        { return c.GetString(ctxUID) }
func CallerEmail(c *gin.Context) string      { return c.GetString(ctxEmail) }
func CallerRole(c *gin.Context) string       { return c.GetString(ctxRole) }
func CallerRestaurant(c *gin.Context) string { return c.GetString(ctxRestaurant) }
func CallerName(c *gin.Context) string       { return c.GetString(ctxName) }

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return c.Query("access_token")
}

func claim(t *infra.Token, key string) string {
	if t.Claims == nil {
		return ""
	}
	v, _ := t.Claims[key].(string)
	return v
}
