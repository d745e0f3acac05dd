package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/pulse-backend-go/pkg/response"
)

// Claims issued to venue dashboards and operators.
type Claims struct {
	VenueID string `json:"custom:venueId,omitempty"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// RoleAdmin may access every venue.
const RoleAdmin = "admin"

// ClaimsKey is the gin context key holding the verified *Claims.
const ClaimsKey = "claims"

// Auth verifies an HS256 bearer token. When the route has a :venueId
// parameter the token must belong to that venue or carry the admin role.
// An empty secret disables the check.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			response.Error(c, http.StatusUnauthorized, "Missing bearer token")
			c.Abort()
			return
		}

		claims := &Claims{}
		if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			response.Error(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		if venueID := c.Param("venueId"); venueID != "" && claims.Role != RoleAdmin && claims.VenueID != venueID {
			response.Error(c, http.StatusForbidden, "Token is not valid for this venue")
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set("user", claims.Subject)
		c.Next()
	}
}

// RequireAdmin rejects tokens without the admin role. It must run after
// Auth and is a no-op when auth is disabled.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		claims, _ := c.Get(ClaimsKey)
		if cl, ok := claims.(*Claims); !ok || cl.Role != RoleAdmin {
			response.Error(c, http.StatusForbidden, "Admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
