package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/pkg/utilities"
)

const defaultSecret = "usermanage-dev-secret"

type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// ConfigFromEnv reads JWT_SECRET and JWT_TTL.
func ConfigFromEnv() Config {
	cfg := Config{Secret: os.Getenv("JWT_SECRET"), TTL: 24 * time.Hour, Issuer: "usermanage"}
	if cfg.Secret == "" {
		cfg.Secret = defaultSecret
	}
	if v := os.Getenv("JWT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TTL = d
		}
	}
	return cfg
}

// UsesDefaultSecret reports whether JWT_SECRET was left unset and tokens
// would be signed with the built-in development secret.
func (c Config) UsesDefaultSecret() bool {
	return c.Secret == defaultSecret
}

// Claims carried by an access token. sub is the user id.
type Claims struct {
	IsAdmin bool `json:"adm"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewIssuer(cfg Config) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Issuer{secret: []byte(cfg.Secret), ttl: cfg.TTL, issuer: cfg.Issuer}
}

// Issue creates a signed token for the given user.
func (i *Issuer) Issue(userID int64, isAdmin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ID:        utilities.NewSnowflakeID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry. Any failure is apperr.ErrUnauthorized.
func (i *Issuer) Parse(tok string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	return claims, nil
}

type ctxKey struct{}

// Subject returns the authenticated user id stored by Middleware.
func Subject(ctx context.Context) (int64, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Middleware rejects requests without a valid bearer token.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if len(auth) < len("bearer ") || !strings.EqualFold(auth[:len("bearer ")], "bearer ") {
			unauthorized(w)
			return
		}
		claims, err := i.Parse(strings.TrimSpace(auth[len("bearer "):]))
		if err != nil {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": apperr.Message(apperr.ErrUnauthorized)})
}
