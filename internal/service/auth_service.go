package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Apsteward8/my-bet-tracker/internal/config"
	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// RoleOperator is the only role allowed to import and verify.
const RoleOperator = "operator"

const tokenTypeAccess = "access"

// ──────────────────────────────────────────────────────────────────────────────
// JWT claims
// ──────────────────────────────────────────────────────────────────────────────

// AppClaims extends jwt.RegisteredClaims with application-specific fields.
type AppClaims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"type"`
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthService
// ──────────────────────────────────────────────────────────────────────────────

// AuthService issues and checks operator tokens. There are no user
// accounts; tokens are minted by the importer CLI for a named operator.
type AuthService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(cfg config.JWTConfig) *AuthService {
	return &AuthService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// IssueOperatorToken signs an access token for operator.
func (s *AuthService) IssueOperatorToken(operator string) (string, time.Time, error) {
	if operator == "" {
		return "", time.Time{}, fmt.Errorf("auth_service.IssueOperatorToken: %w", domain.ErrMissingField)
	}
	now := s.now()
	expires := now.Add(s.ttl)
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role:      RoleOperator,
		TokenType: tokenTypeAccess,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth_service.IssueOperatorToken: sign: %w", err)
	}
	return tok, expires, nil
}

// ParseAccessToken validates the signature, algorithm and expiry of an
// access token. It is used by the JWT middleware.
func (s *AuthService) ParseAccessToken(tokenString string) (*AppClaims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	claims, ok := tok.Claims.(*AppClaims)
	if !ok || !tok.Valid || claims.TokenType != tokenTypeAccess {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
