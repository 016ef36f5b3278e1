package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// DefaultTokenExpiration is the lifetime of a generated admin token.
const DefaultTokenExpiration = 24 * time.Hour

// ErrInvalidToken is returned when an admin token fails validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are carried by admin bearer tokens.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenAuth issues and validates HMAC-signed admin tokens.
type TokenAuth struct {
	secret          []byte
	tokenExpiration time.Duration
	now             func() time.Time
}

// NewTokenAuth creates a token authenticator for the given shared secret.
func NewTokenAuth(secret string, tokenExpiration time.Duration) *TokenAuth {
	if tokenExpiration == 0 {
		tokenExpiration = DefaultTokenExpiration
	}

	return &TokenAuth{
		secret:          []byte(secret),
		tokenExpiration: tokenExpiration,
		now:             time.Now,
	}
}

// GenerateToken signs a token for username.
func (a *TokenAuth) GenerateToken(username string) (string, error) {
	now := a.now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken checks the signature and lifetime of tokenString.
func (a *TokenAuth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// AuthMiddleware rejects requests without a valid "Bearer" admin token.
func AuthMiddleware(auth *TokenAuth, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			claims, err := auth.ValidateToken(parts[1])
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected admin token")
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			logger.Debug().Str("username", claims.Username).Str("path", r.URL.Path).Msg("Admin request authorized")
			next.ServeHTTP(w, r)
		})
	}
}
