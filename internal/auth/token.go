package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "coursehub"

// Token kinds. Every issued token carries one, and every consumer checks
// it before trusting the payload: a session token presented to the reset
// path (or vice versa) is rejected as invalid.
const (
	TokenKindSession = "session"
	TokenKindReset   = "reset"
)

// Token lifetimes. Sessions are stateless; nothing server-side revokes
// them before expiry. Reset tokens stay valid only long enough to follow
// the emailed link.
const (
	SessionTTL = 30 * 24 * time.Hour
	ResetTTL   = 10 * time.Minute
)

// Claims are the JWT claims signed into every token.
type Claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session and reset tokens with a single
// process-wide HS256 secret. The secret is supplied at construction; there
// is no rotation support.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source (used by tests to cross expiry).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService from the externally supplied
// signing secret.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	s := &TokenService{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueSession signs a session token for the principal, valid for 30 days.
func (s *TokenService) IssueSession(principalID string) (string, time.Time, error) {
	return s.issue(principalID, TokenKindSession, SessionTTL)
}

// IssueReset signs a password-reset token for the principal, valid for
// 10 minutes.
func (s *TokenService) IssueReset(principalID string) (string, time.Time, error) {
	return s.issue(principalID, TokenKindReset, ResetTTL)
}

func (s *TokenService) issue(principalID, kind string, ttl time.Duration) (string, time.Time, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return "", time.Time{}, errors.New("auth: principal id is required")
	}
	now := s.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the token signature and claims and returns the principal
// id together with the token kind. The signature is validated before any
// claim is inspected, so forged tokens fail uniformly with ErrTokenInvalid
// regardless of their payload; only well-signed tokens past expiry report
// ErrTokenExpired.
func (s *TokenService) Verify(token string) (principalID, kind string, err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", ErrTokenInvalid
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrTokenExpired
		}
		return "", "", ErrTokenInvalid
	}
	if !parsed.Valid {
		return "", "", ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", "", ErrTokenInvalid
	}
	switch claims.Kind {
	case TokenKindSession, TokenKindReset:
	default:
		return "", "", ErrTokenInvalid
	}
	return claims.Subject, claims.Kind, nil
}
