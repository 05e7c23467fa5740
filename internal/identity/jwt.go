package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

type Claims struct {
	Role    Role   `json:"role"`
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

// JWTResolver validates HS256 tokens issued by the identity provider.
type JWTResolver struct {
	secret []byte
	issuer string
}

func NewJWTResolver(secret, issuer string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), issuer: issuer}
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (Caller, error) {
	if token == "" {
		return Caller{}, ErrUnauthenticated
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Caller{}, apperr.New(apperr.ErrUnauthorized, "token expired")
		}
		return Caller{}, apperr.New(apperr.ErrUnauthorized, fmt.Sprintf("invalid token: %v", err))
	}

	if !claims.Role.Valid() {
		return Caller{}, apperr.New(apperr.ErrUnauthorized, "token carries unknown role")
	}
	owner, err := uuid.Parse(claims.OwnerID)
	if err != nil && claims.Role != RoleAdmin {
		return Caller{}, apperr.New(apperr.ErrUnauthorized, "token carries invalid owner_id")
	}

	return Caller{Role: claims.Role, OwnerID: owner}, nil
}

// Issue signs a token for caller. Used by the seed and simulate commands and tests.
func (r *JWTResolver) Issue(caller Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:    caller.Role,
		OwnerID: caller.OwnerID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   caller.OwnerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
