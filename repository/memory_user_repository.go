package repository

import (
	"context"
	"sync"
	"time"

	"go-auth-api/model"

	"github.com/google/uuid"
)

// MemoryUserRepository keeps users in process memory. It is meant for local
// development and tests; a single mutex serializes all writes.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, ErrDuplicateEmail
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[user.ID] = user
	r.byEmail[email] = user.ID
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *MemoryUserRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryUserRepository) UpdateRefreshHash(ctx context.Context, id string, hash *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		if hash == nil {
			return nil
		}
		return ErrUserNotFound
	}
	if hash == nil {
		if user.RefreshTokenHash != nil {
			user.RefreshTokenHash = nil
			user.UpdatedAt = time.Now().UTC()
		}
		return nil
	}
	h := *hash
	user.RefreshTokenHash = &h
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryUserRepository) SwapRefreshHash(ctx context.Context, id, expected, next string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok || user.RefreshTokenHash == nil || *user.RefreshTokenHash != expected {
		return false, nil
	}
	user.RefreshTokenHash = &next
	user.UpdatedAt = time.Now().UTC()
	return true, nil
}

func cloneUser(u *model.User) *model.User {
	c := *u
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	return &c
}
