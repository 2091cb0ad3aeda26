package middleware

import (
	"errors"
	"net/http"
	"strings"

	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const identityKey = "identity"

var errNoSecret = errors.New("jwt secret not configured")

// Identity reads an optional HS256 bearer token. Requests without a token continue
// anonymously; a token that does not verify is rejected.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		identity, err := ParseIdentity(secret, raw)
		if err != nil {
			logger.WithComponent("auth").Warn("bearer token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireIdentity 必須在 Identity 之後使用
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns nil for anonymous requests.
func IdentityFrom(c *gin.Context) *model.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*model.Identity)
	return identity
}

// ParseIdentity verifies raw and maps its sub and role claims.
func ParseIdentity(secret, raw string) (*model.Identity, error) {
	if secret == "" {
		return nil, errNoSecret
	}

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token has no subject")
	}
	role, _ := claims["role"].(string)
	return &model.Identity{UserID: sub, Role: role}, nil
}

// SignIdentity issues a token for identity. Used by tests and local tooling.
func SignIdentity(secret string, identity model.Identity, claims jwt.MapClaims) (string, error) {
	if claims == nil {
		claims = jwt.MapClaims{}
	}
	claims["sub"] = identity.UserID
	if identity.Role != "" {
		claims["role"] = identity.Role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
