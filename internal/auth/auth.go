// Package auth resolves the acting player from an HS256 bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredential = errors.New("no credential")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is a resolved player.
type Identity struct {
	ID   string
	Name string
}

// Claims carries the player id in sub and a display name.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Resolver struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

func NewResolver(secret string) (*Resolver, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &Resolver{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		now:    time.Now,
	}, nil
}

// Issue signs a token for the given player. Used by tooling and tests.
func (r *Resolver) Issue(id, name string, ttl time.Duration) (string, error) {
	now := r.now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Resolve validates tokenString and returns the identity it names.
func (r *Resolver) Resolve(tokenString string) (Identity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Identity{}, ErrNoCredential
	}
	var claims Claims
	token, err := r.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: strings.TrimSpace(claims.Subject), Name: strings.TrimSpace(claims.Name)}, nil
}

// FromRequest reads "Authorization: Bearer <token>", falling back to the
// "token" cookie.
func (r *Resolver) FromRequest(req *http.Request) (Identity, error) {
	var raw string
	if h := req.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return Identity{}, ErrInvalidToken
		}
		raw = strings.TrimSpace(tok)
	} else if c, err := req.Cookie("token"); err == nil {
		raw = c.Value
	}
	return r.Resolve(raw)
}

type ctxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.ID != ""
}
