package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/config"
	"github.com/okaziba/storefront/internal/domain"
)

const identityKey = "identity"

// DeviceIDHeader carries the anonymous device identifier for requests
// without a session token
const DeviceIDHeader = "X-Device-ID"

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IdentityMiddleware resolves the request's identity: a valid Bearer token
// yields an authenticated user, otherwise the device header yields an
// anonymous identity. Requests with neither are rejected.
func IdentityMiddleware(cfg config.AuthConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			claims := &sessionClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				logger.Warn("Rejected invalid session token", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
				return
			}

			c.Set(identityKey, domain.Identity{
				UserID:   claims.Subject,
				DeviceID: c.GetHeader(DeviceIDHeader),
				Email:    claims.Email,
			})
			c.Next()
			return
		}

		deviceID := c.GetHeader(DeviceIDHeader)
		if deviceID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token or device id"})
			return
		}

		c.Set(identityKey, domain.Identity{DeviceID: deviceID})
		c.Next()
	}
}

// GetIdentityFromContext returns the identity resolved by the middleware
func GetIdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}

// SessionToken extracts the raw bearer token for forwarding to the
// verification endpoint
func SessionToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
