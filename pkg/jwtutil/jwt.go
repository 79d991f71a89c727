package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"roadmap-service/pkg/config"
)

// Token classes. An access token authenticates API requests; a refresh
// token may only be exchanged for a new access token.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned when a token fails signature, expiry or
	// claim validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongTokenType is returned when a token of the wrong class is
	// presented, e.g. an access token at the refresh endpoint.
	ErrWrongTokenType = errors.New("wrong token type")
)

// UserClaims represents the JWT claims for user authentication. The subject
// is the user ID; tenant_id scopes every request made with the token.
type UserClaims struct {
	Email     string    `json:"email"`
	UserID    uuid.UUID `json:"user_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Role      string    `json:"role"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *config.JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(cfg *config.JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: cfg,
	}
}

// GenerateAccessToken creates a short-lived access token for the user.
func (j *JWTUtil) GenerateAccessToken(userID, tenantID uuid.UUID, email, role string) (string, error) {
	return j.generate(userID, tenantID, email, role, TokenTypeAccess, j.config.AccessTokenTTL)
}

// GenerateRefreshToken creates a long-lived refresh token for the user.
func (j *JWTUtil) GenerateRefreshToken(userID, tenantID uuid.UUID, email, role string) (string, error) {
	return j.generate(userID, tenantID, email, role, TokenTypeRefresh, j.config.RefreshTokenTTL)
}

func (j *JWTUtil) generate(userID, tenantID uuid.UUID, email, role, tokenType string, ttl time.Duration) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	now := time.Now()
	claims := UserClaims{
		Email:     email,
		UserID:    userID,
		TenantID:  tenantID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// ValidateAccessToken validates a token and requires it to be access-class.
func (j *JWTUtil) ValidateAccessToken(tokenString string) (*UserClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ValidateRefreshToken validates a token and requires it to be refresh-class.
func (j *JWTUtil) ValidateRefreshToken(tokenString string) (*UserClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
