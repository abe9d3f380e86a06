package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-auth-api/common"
	"go-auth-api/model"
	"go-auth-api/service"
)

type contextKey string

const (
	claimsKey        contextKey = "tokenClaims"
	refreshClaimsKey contextKey = "refreshClaims"
)

type tokenKind int

const (
	accessToken tokenKind = iota
	refreshToken
)

func (k tokenKind) String() string {
	if k == refreshToken {
		return "refresh"
	}
	return "access"
}

// TokenGuard admits a request only when it carries a valid bearer token of
// its kind. Verified claims are attached to the request context.
type TokenGuard struct {
	signer service.ITokenSigner
	secret []byte
	kind   tokenKind
}

func NewAccessTokenGuard(signer service.ITokenSigner, secret []byte) *TokenGuard {
	return &TokenGuard{signer: signer, secret: secret, kind: accessToken}
}

// NewRefreshTokenGuard also keeps the raw token in the context so the
// refresh handler can match it against the stored hash.
func NewRefreshTokenGuard(signer service.ITokenSigner, secret []byte) *TokenGuard {
	return &TokenGuard{signer: signer, secret: secret, kind: refreshToken}
}

func (g *TokenGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			unauthenticated(err).Send(w)
			return
		}

		claims, err := g.signer.Verify(raw, g.secret)
		if err != nil {
			unauthenticated(err).Send(w)
			return
		}

		var ctx context.Context
		if g.kind == refreshToken {
			ctx = context.WithValue(r.Context(), refreshClaimsKey, &model.RefreshClaims{
				TokenClaims:  *claims,
				RefreshToken: raw,
			})
		} else {
			ctx = context.WithValue(r.Context(), claimsKey, claims)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is required")
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("bearer token is empty")
	}
	return token, nil
}

func unauthenticated(err error) *common.AppError {
	return common.NewAppError(http.StatusUnauthorized, "Unauthenticated", errors.Join(service.ErrUnauthenticated, err))
}

// ClaimsFromContext returns the claims attached by an access token guard.
func ClaimsFromContext(ctx context.Context) (*model.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*model.TokenClaims)
	return claims, ok && claims != nil
}

// RefreshClaimsFromContext returns the claims attached by a refresh token guard.
func RefreshClaimsFromContext(ctx context.Context) (*model.RefreshClaims, bool) {
	claims, ok := ctx.Value(refreshClaimsKey).(*model.RefreshClaims)
	return claims, ok && claims != nil
}
