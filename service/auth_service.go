package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go-auth-api/config"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"

	"golang.org/x/sync/errgroup"
)

// TokenConfig holds the two signing secrets and their lifetimes.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenConfigFrom extracts the token settings from the application config.
func TokenConfigFrom(cfg *config.Config) TokenConfig {
	return TokenConfig{
		AccessSecret:  []byte(cfg.JWT.AccessSecret),
		RefreshSecret: []byte(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	}
}

// AuthService runs signup, signin, logout and refresh. It keeps no per-user
// state; everything lives in the repository.
type AuthService struct {
	repo   repository.IUserRepository
	hasher IPasswordHasher
	signer ITokenSigner
	tokens TokenConfig

	// dummyHash is verified against when signin hits an unknown email so
	// both rejection paths cost one hash verification.
	dummyHash string
}

func NewAuthService(repo repository.IUserRepository, hasher IPasswordHasher, signer ITokenSigner, tokens TokenConfig) (*AuthService, error) {
	if len(tokens.AccessSecret) == 0 || len(tokens.RefreshSecret) == 0 || bytes.Equal(tokens.AccessSecret, tokens.RefreshSecret) {
		return nil, ErrInvalidSecrets
	}
	if tokens.AccessTTL <= 0 || tokens.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	dummy, err := hasher.Hash("signin-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("could not prepare dummy hash: %w", err)
	}

	return &AuthService{
		repo:      repo,
		hasher:    hasher,
		signer:    signer,
		tokens:    tokens,
		dummyHash: dummy,
	}, nil
}

// Signup registers a new user and returns its first token pair.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*model.TokenPair, error) {
	log := logger.Log.WithField("email", email)
	log.Info("Signup request received")

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, passwordHash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			log.Warn("Signup rejected: email already registered")
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("could not create user: %w", err)
	}

	pair, err := s.getTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshHash(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	log.WithField("user_id", user.ID).Info("User signed up")
	return pair, nil
}

// Signin checks the credentials and rotates the user's refresh token. Unknown
// email and wrong password both yield ErrAccessDenied.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*model.TokenPair, error) {
	log := logger.Log.WithField("email", email)

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = s.hasher.Verify(s.dummyHash, password)
			log.Warn("Signin rejected: unknown email")
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("could not load user: %w", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("Stored password hash is unusable")
		return nil, err
	}
	if !ok {
		log.Warn("Signin rejected: password mismatch")
		return nil, ErrAccessDenied
	}

	pair, err := s.getTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshHash(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	log.WithField("user_id", user.ID).Info("User signed in")
	return pair, nil
}

// Logout drops the user's refresh token hash. It is a no-op when none is set.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.repo.UpdateRefreshHash(ctx, userID, nil); err != nil {
		return fmt.Errorf("could not clear refresh token: %w", err)
	}
	logger.Log.WithField("user_id", userID).Info("User logged out")
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// unusable afterwards, even if it has not expired.
func (s *AuthService) Refresh(ctx context.Context, userID, refreshToken string) (*model.TokenPair, error) {
	log := logger.Log.WithField("user_id", userID)

	claims, err := s.signer.Verify(refreshToken, s.tokens.RefreshSecret)
	if err != nil {
		log.WithError(err).Debug("Refresh rejected: token verification failed")
		return nil, ErrAccessDenied
	}
	if claims.Subject != userID {
		log.Debug("Refresh rejected: subject mismatch")
		return nil, ErrAccessDenied
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("could not load user: %w", err)
	}
	if !user.HasActiveRefresh() {
		log.Debug("Refresh rejected: no active refresh token")
		return nil, ErrAccessDenied
	}
	storedHash := *user.RefreshTokenHash

	ok, err := s.hasher.Verify(storedHash, refreshToken)
	if err != nil {
		log.WithError(err).Error("Stored refresh token hash is unusable")
		return nil, err
	}
	if !ok {
		log.Warn("Refresh rejected: token does not match the current refresh token")
		return nil, ErrAccessDenied
	}

	pair, err := s.getTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	nextHash, err := s.hasher.Hash(pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("could not hash refresh token: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	swapped, err := s.repo.SwapRefreshHash(ctx, user.ID, storedHash, nextHash)
	if err != nil {
		return nil, fmt.Errorf("could not rotate refresh token: %w", err)
	}
	if !swapped {
		// Another refresh or a logout committed first.
		log.Warn("Refresh rejected: refresh token was rotated concurrently")
		return nil, ErrAccessDenied
	}

	log.Info("Tokens refreshed")
	return pair, nil
}

// getTokens signs the access and refresh token concurrently. Either both
// succeed or no pair is returned.
func (s *AuthService) getTokens(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	claims := model.TokenClaims{Subject: user.ID, Email: user.Email}
	var pair model.TokenPair

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		token, err := s.signer.Issue(claims, s.tokens.AccessSecret, s.tokens.AccessTTL)
		if err != nil {
			return fmt.Errorf("could not issue access token: %w", err)
		}
		pair.AccessToken = token
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		token, err := s.signer.Issue(claims, s.tokens.RefreshSecret, s.tokens.RefreshTTL)
		if err != nil {
			return fmt.Errorf("could not issue refresh token: %w", err)
		}
		pair.RefreshToken = token
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Error("Token issuance failed")
		return nil, err
	}
	return &pair, nil
}

func (s *AuthService) storeRefreshHash(ctx context.Context, userID, refreshToken string) error {
	hash, err := s.hasher.Hash(refreshToken)
	if err != nil {
		return fmt.Errorf("could not hash refresh token: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.repo.UpdateRefreshHash(ctx, userID, &hash); err != nil {
		return fmt.Errorf("could not store refresh token hash: %w", err)
	}
	return nil
}
