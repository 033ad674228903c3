package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidSession = errors.New("identity: invalid session token")
	ErrRevoked        = errors.New("identity: session token revoked")
)

// Revocations remembers signed-out token ids until they would have expired.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Claims struct {
	jwt.RegisteredClaims
}

// Sessions issues and checks HS256 session tokens whose subject is the user id.
type Sessions struct {
	secret  []byte
	ttl     time.Duration
	revoked Revocations
	now     func() time.Time
}

func NewSessions(secret string, ttl time.Duration, revoked Revocations) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, revoked: revoked, now: time.Now}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

func (s *Sessions) Issue(id Identity) (string, error) {
	if id.UserID == "" {
		return "", errors.New("identity: empty user id")
	}
	jti, err := ulid.New(ulid.Timestamp(s.now()), rand.Reader)
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := Claims{jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   id.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Sessions) parse(token string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if c.Subject == "" || c.ID == "" {
		return nil, ErrInvalidSession
	}
	return &c, nil
}

// Verify returns the identity behind a token that is valid and not revoked.
func (s *Sessions) Verify(ctx context.Context, token string) (Identity, error) {
	c, err := s.parse(token)
	if err != nil {
		return Identity{}, err
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, c.ID)
		if err != nil {
			return Identity{}, err
		}
		if revoked {
			return Identity{}, ErrRevoked
		}
	}
	return Identity{UserID: c.Subject}, nil
}

// Revoke invalidates the token for the rest of its lifetime. Tokens that do
// not parse are already unusable and are ignored.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	c, err := s.parse(token)
	if err != nil || s.revoked == nil {
		return nil
	}
	ttl := c.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, c.ID, ttl)
}
