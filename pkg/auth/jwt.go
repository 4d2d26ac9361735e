package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "knkt-backend/pkg/errors"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const userContextKey contextKey = "user_context"

// Claims represents the JWT claims used by the API
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserContext carries the authenticated user's identity through a request
type UserContext struct {
	UserID string
	Email  string
}

// JWTConfig holds JWT validation configuration
type JWTConfig struct {
	SecretKey string
	Issuer    string
	Audience  string
}

// JWTValidator validates bearer tokens issued for the API
type JWTValidator struct {
	config JWTConfig
}

// NewJWTValidator creates a validator for HS256-signed tokens
func NewJWTValidator(config JWTConfig) (*JWTValidator, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret key is required")
	}
	return &JWTValidator{config: config}, nil
}

// Validate parses and verifies a token string, returning its claims
func (v *JWTValidator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.config.SecretKey), nil
	},
		jwt.WithIssuer(v.config.Issuer),
		jwt.WithAudience(v.config.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, pkgerrors.NewUnauthorizedError("invalid token").WithCause(err)
	}
	if !token.Valid {
		return nil, pkgerrors.NewUnauthorizedError("invalid token")
	}
	if claims.UserID == "" {
		return nil, pkgerrors.NewUnauthorizedError("token missing user identity")
	}

	return claims, nil
}

// IssueToken signs a token for the given user. Used by tests and dev tooling.
func (v *JWTValidator) IssueToken(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.config.Issuer,
			Audience:  jwt.ClaimStrings{v.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.config.SecretKey))
}

// WithUser stores the user context on a request context
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext extracts the authenticated user from the request context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, pkgerrors.NewUnauthorizedError("no authenticated user in context")
	}
	return user, nil
}
