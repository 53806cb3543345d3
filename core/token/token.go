package token

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rhabibp/stremio-panel/core/apperr"
)

// Config holds configuration for access-token issuance.
type Config struct {
	// Secret signs access tokens. It has no usable default; startup fails
	// when it is empty.
	Secret string `mapstructure:"jwt_secret" default:""`
	// TTL is the access token lifetime as a Go duration string.
	TTL string `mapstructure:"jwt_ttl" default:"168h"`
}

// Lifetime parses the configured TTL, falling back to 7 days.
func (c Config) Lifetime() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// Claims are the access-token claims: the account id and its role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim as a numeric id.
func (c *Claims) AccountID() (uint, bool) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Issuer mints and parses access tokens.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
}

func NewIssuer(cfg Config) *Issuer {
	return &Issuer{secret: []byte(cfg.Secret), lifetime: cfg.Lifetime()}
}

// Mint signs a token for the given account id and role.
func (i *Issuer) Mint(accountID uint, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse validates a token string and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, apperr.Unauthorized("token is not valid")
	}
	return claims, nil
}
