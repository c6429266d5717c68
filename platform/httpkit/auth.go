package httpkit

import (
	"errors"
	"net/http"
	"strings"

	"fieldsurvey/platform/config"
	"fieldsurvey/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextUserIDKey is the gin context key holding the authenticated user id.
const ContextUserIDKey = "userID"

// TokenTypeAccess is the "type" claim of access tokens. Refresh tokens are
// opaque and never reach this middleware as JWTs.
const TokenTypeAccess = "access"

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// AccessClaims are the claims of a volunteer access token.
type AccessClaims struct {
	Type  string `json:"type"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired rejects requests without a valid "Authorization: Bearer"
// access token and records the user id on the gin and request contexts.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authenticate(c.GetHeader("Authorization"), cfg.GetJWTAccessSecret())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}

		c.Set(ContextUserIDKey, userID)
		ctx := logger.ContextWithUserID(c.Request.Context(), userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authenticate(header, secret string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if raw = strings.TrimSpace(raw); !ok || raw == "" {
		return uuid.Nil, errMissingToken
	}

	var claims AccessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || claims.Type != TokenTypeAccess {
		return uuid.Nil, errInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errInvalidToken
	}
	return userID, nil
}
