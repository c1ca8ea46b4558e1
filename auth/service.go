package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, expired, and wrongly signed tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrMissingToken signals no bearer credentials were presented.
	ErrMissingToken = errors.New("auth: missing bearer token")
	// ErrNoSecret signals the service was built without a signing secret.
	ErrNoSecret = errors.New("auth: signing secret not configured")
)

// DefaultTTL applies when Issue is given a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// Service issues and verifies HS256 sync tokens shared with the
// presentation backend.
type Service struct {
	secret []byte
	now    func() time.Time
}

func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Enabled reports whether a secret is configured. Without one, write
// endpoints are left open.
func (s *Service) Enabled() bool {
	return len(s.secret) > 0
}

// Issue signs a sync token for subject.
func (s *Service) Issue(subject string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrNoSecret
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("auth: subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := s.now()
	claims := Claims{
		Scope: ScopeSync,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns its principal.
func (s *Service) Verify(tokenString string) (Principal, error) {
	if !s.Enabled() {
		return Principal{}, ErrNoSecret
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	if claims.Scope != ScopeSync {
		return Principal{}, fmt.Errorf("%w: scope %q", ErrInvalidToken, claims.Scope)
	}
	return Principal{Subject: claims.Subject, Scope: claims.Scope}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
