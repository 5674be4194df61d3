package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-review/internal/response"
	"github.com/stemsi/exstem-review/internal/service"
)

// ContextKeyClaims is the Gin context key for JWT claims.
const ContextKeyClaims = "claims"

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(tokenStr string) (*service.Claims, error)
}

// tokenExtractor pulls a raw token from the request, or "".
type tokenExtractor func(c *gin.Context) string

func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// queryToken reads ?token=, since browsers cannot set headers on a websocket handshake.
func queryToken(c *gin.Context) string {
	return c.Query("token")
}

// RequireJWT validates a user JWT from the Authorization header.
func RequireJWT(auth TokenValidator) gin.HandlerFunc {
	return authenticate(auth, bearerToken)
}

// RequireWSAuth validates a user JWT on a websocket upgrade, taken from
// ?token= or, failing that, the Authorization header.
func RequireWSAuth(auth TokenValidator) gin.HandlerFunc {
	return authenticate(auth, queryToken, bearerToken)
}

func authenticate(auth TokenValidator, extractors ...tokenExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string
		for _, extract := range extractors {
			if tokenStr = extract(c); tokenStr != "" {
				break
			}
		}
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := auth.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context, or nil.
func GetClaims(c *gin.Context) *service.Claims {
	val, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := val.(*service.Claims)
	return claims
}
