package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JakeFAU/tubescout/internal/clock/system"
	"github.com/JakeFAU/tubescout/internal/crawler"
)

// DefaultSessionTTL is used when the configured TTL is not positive.
const DefaultSessionTTL = 12 * time.Hour

// ErrInvalidSession covers malformed, expired, and wrongly signed tokens.
var ErrInvalidSession = errors.New("invalid session")

// Claims is the signed session payload.
type Claims struct {
	Role crawler.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Sessions issues and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  crawler.Clock
}

// NewSessions validates the secret and builds a token service.
func NewSessions(secret, issuer string, ttl time.Duration, clock crawler.Clock) (*Sessions, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth.jwt_secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = system.New()
	}
	return &Sessions{secret: []byte(secret), issuer: issuer, ttl: ttl, clock: clock}, nil
}

// TTL reports the lifetime of issued tokens.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a token for u and returns it with its expiry.
func (s *Sessions) Issue(u crawler.User) (string, time.Time, error) {
	now := s.clock.Now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies token and returns its claims.
func (s *Sessions) Parse(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if _, err := claims.UserID(); err != nil {
		return Claims{}, fmt.Errorf("%w: subject %q", ErrInvalidSession, claims.Subject)
	}
	return claims, nil
}
