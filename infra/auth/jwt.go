package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	coreauth "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/auth"
)

// Config holds the HMAC settings for bearer tokens.
type Config struct {
	Secret   string `json:"secret"`
	Issuer   string `json:"issuer"`
	Audience string `json:"audience"`
}

// Validate checks that a secret is configured.
func (c Config) Validate() error {
	if c.Secret == "" {
		return errors.New("auth.secret is required")
	}
	return nil
}

// JWTResolver validates HS256 bearer tokens and returns their subject.
type JWTResolver struct {
	cfg    Config
	parser *jwt.Parser
}

// NewJWTResolver builds a resolver for the given configuration.
func NewJWTResolver(cfg Config) (*JWTResolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &JWTResolver{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Resolve returns the subject of a valid token.
func (r *JWTResolver) Resolve(_ context.Context, bearer string) (string, error) {
	if bearer == "" {
		return "", coreauth.ErrUnauthenticated
	}
	var claims jwt.RegisteredClaims
	_, err := r.parser.ParseWithClaims(bearer, &claims, func(*jwt.Token) (any, error) {
		return []byte(r.cfg.Secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", coreauth.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", coreauth.ErrUnauthenticated)
	}
	return claims.Subject, nil
}

// Issue signs a token for subject valid for ttl.
func (r *JWTResolver) Issue(subject string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    r.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if r.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{r.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(r.cfg.Secret))
}
