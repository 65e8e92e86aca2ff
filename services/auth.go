package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// DefaultTokenTTL is the lifetime of tokens issued by the operator CLI
const DefaultTokenTTL = 24 * time.Hour

var (
	errTokenSecret  = errors.New("jwt secret not configured")
	errTokenInvalid = errors.New("invalid token")
	errTokenEmail   = errors.New("email claim required")
)

// AccessClaims are the claims of a docket access token
type AccessClaims struct {
	jwt.RegisteredClaims
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Caller returns the identity the token grants
func (c *AccessClaims) Caller() Caller {
	return Caller{
		Email:  strings.ToLower(strings.TrimSpace(c.Email)),
		Role:   c.Role,
		Branch: c.Branch,
		UserID: c.Subject,
	}
}

// IssueAccessToken signs an HS256 token for the given identity
func IssueAccessToken(secret string, caller Caller, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errTokenSecret
	}
	if caller.Email == "" {
		return "", errTokenEmail
	}

	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  caller.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Email:  strings.ToLower(caller.Email),
		Role:   caller.Role,
		Branch: caller.Branch,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies an HS256 token and returns its claims
func ParseAccessToken(secret, token string) (*AccessClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errTokenSecret
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &AccessClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errTokenInvalid
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, errTokenEmail
	}
	return claims, nil
}

// LogSecurityEvent logs security-related events
func LogSecurityEvent(eventType, subject, details string) {
	log.Warn().Str("event", eventType).Str("subject", subject).Msg("[SECURITY] " + details)
}
