package service

import (
	"errors"
	"fmt"
	"time"

	"go-auth-api/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ITokenSigner issues and verifies signed, expiring identity tokens. The
// secret is passed per call so access and refresh tokens never share a key.
type ITokenSigner interface {
	Issue(claims model.TokenClaims, secret []byte, ttl time.Duration) (string, error)
	Verify(token string, secret []byte) (*model.TokenClaims, error)
}

// TokenSigner signs HS256 JWTs. Every token gets a fresh jti and iat, so two
// tokens for the same identity are never equal.
type TokenSigner struct {
	issuer string
	now    func() time.Time
}

func NewTokenSigner(issuer string) *TokenSigner {
	return &TokenSigner{issuer: issuer, now: time.Now}
}

func (s *TokenSigner) Issue(claims model.TokenClaims, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret must not be empty")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}

	now := s.now()
	wire := model.AppClaims{
		Email: claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   claims.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wire)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}
	return signed, nil
}

func (s *TokenSigner) Verify(tokenString string, secret []byte) (*model.TokenClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret must not be empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	wire := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, wire, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		// jwt checks the signature before claims, so an expired error implies a valid signature.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || wire.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &model.TokenClaims{
		Subject:   wire.Subject,
		Email:     wire.Email,
		TokenID:   wire.ID,
		IssuedAt:  wire.IssuedAt.Time,
		ExpiresAt: wire.ExpiresAt.Time,
	}, nil
}
