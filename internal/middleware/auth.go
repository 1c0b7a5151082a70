package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"image-translator-backend/internal/config"
	"image-translator-backend/internal/models"
)

const (
	AccountKeyKey    = "account_key"
	AccountKeyHeader = "X-Account-Key"
	AnonymousAccount = "anonymous"
)

// AuthMiddleware resolves the credit account of the caller. With JWT_SECRET
// set a valid HS256 bearer token is required and its "sub" claim is the
// account key. Without it the X-Account-Key header is trusted, falling back
// to a shared anonymous account.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.JWTSecret == "" {
			key := strings.TrimSpace(c.GetHeader(AccountKeyHeader))
			if key == "" {
				key = AnonymousAccount
			}
			c.Set(AccountKeyKey, key)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header", "")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "invalid authorization header format", "")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			unauthorized(c, "empty token", "")
			return
		}

		// Try URL decoding in case the token was URL-encoded
		if decoded, err := url.QueryUnescape(tokenString); err == nil {
			tokenString = decoded
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			var msg string
			switch {
			case strings.Contains(err.Error(), "signature is invalid"):
				msg = "token signature is invalid"
			case strings.Contains(err.Error(), "token is expired"):
				msg = "token has expired"
			case strings.Contains(err.Error(), "malformed"):
				msg = "token is malformed"
			default:
				msg = err.Error()
			}
			unauthorized(c, "invalid token", msg)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			unauthorized(c, "invalid token claims", "")
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			unauthorized(c, "missing account id in token", "")
			return
		}

		c.Set(AccountKeyKey, sub)
		c.Next()
	}
}

// AccountKey returns the account resolved by AuthMiddleware.
func AccountKey(c *gin.Context) string {
	if v, ok := c.Get(AccountKeyKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return AnonymousAccount
}

func unauthorized(c *gin.Context, errMsg, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: errMsg, Message: detail})
}
