package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// RelayClaims identifies an event relay. Subject carries the relay name.
type RelayClaims struct {
	jwt.RegisteredClaims
}

// RelayName returns the relay the token was issued to
func (c *RelayClaims) RelayName() string {
	return c.Subject
}

// RelayTokenService issues and validates HS256 relay tokens
type RelayTokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var signJWTToken = func(token *jwt.Token, secret []byte) (string, error) {
	return token.SignedString(secret)
}

// NewRelayTokenService creates a new relay token service. A non-positive
// ttl issues tokens without expiry.
func NewRelayTokenService(secret, issuer string, ttl time.Duration) *RelayTokenService {
	return &RelayTokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for relay
func (s *RelayTokenService) Issue(relay string) (string, error) {
	relay = strings.TrimSpace(relay)
	if relay == "" {
		return "", errors.New("relay name is required")
	}

	now := s.now()
	claims := &RelayClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   relay,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return signJWTToken(token, s.secret)
}

// Validate validates a relay token and returns its claims
func (s *RelayTokenService) Validate(tokenString string) (*RelayClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RelayClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*RelayClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
