// file: repository/redis_user_repository.go

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-auth-api/logger"
	"go-auth-api/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Users are stored as hashes under <prefix>user:<id>; <prefix>email:<email>
// holds the id and doubles as the uniqueness constraint. The prefix always
// carries a hash tag so both keys land in one Redis Cluster slot.
const (
	fieldID           = "id"
	fieldEmail        = "email"
	fieldPasswordHash = "password_hash"
	fieldRefreshHash  = "refresh_hash"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

var createUserLua = redis.NewScript(`
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[2], "id", ARGV[1], "email", ARGV[2], "password_hash", ARGV[3], "created_at", ARGV[4], "updated_at", ARGV[4])
return 1
`)

var setRefreshHashLua = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_hash", ARGV[1], "updated_at", ARGV[2])
return 1
`)

var clearRefreshHashLua = redis.NewScript(`
if redis.call("HDEL", KEYS[1], "refresh_hash") == 1 then
  redis.call("HSET", KEYS[1], "updated_at", ARGV[1])
end
return 1
`)

var swapRefreshHashLua = redis.NewScript(`
if redis.call("HGET", KEYS[1], "refresh_hash") ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[1], "refresh_hash", ARGV[2], "updated_at", ARGV[3])
return 1
`)

// RedisUserRepository implements IUserRepository on Redis. Every mutation is a
// single Lua script, so per-user writes are atomic.
type RedisUserRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisUserRepository(client redis.UniversalClient, prefix string) *RedisUserRepository {
	return &RedisUserRepository{client: client, prefix: hashTagged(prefix), now: time.Now}
}

// hashTagged wraps prefix in {} unless it already contains a non-empty hash tag.
// "auth:" becomes "{auth}:".
func hashTagged(prefix string) string {
	if open := strings.IndexByte(prefix, '{'); open >= 0 {
		if end := strings.IndexByte(prefix[open+1:], '}'); end > 0 {
			return prefix
		}
	}
	tag := strings.TrimSuffix(prefix, ":")
	if tag == "" {
		tag = "users"
	}
	return "{" + tag + "}:"
}

func (r *RedisUserRepository) userKey(id string) string {
	return r.prefix + "user:" + id
}

func (r *RedisUserRepository) emailKey(email string) string {
	return r.prefix + "email:" + email
}

func (r *RedisUserRepository) stamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func (r *RedisUserRepository) CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	log := logger.Log.WithField("email", email)
	log.Info("Creating user in redis")

	id := uuid.NewString()
	now := r.stamp()
	created, err := createUserLua.Run(ctx, r.client,
		[]string{r.emailKey(email), r.userKey(id)},
		id, email, passwordHash, now,
	).Int64()
	if err != nil {
		log.WithError(err).Error("Failed to run create user script")
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if created == 0 {
		log.Warn("Email already registered")
		return nil, ErrDuplicateEmail
	}

	ts, _ := time.Parse(time.RFC3339Nano, now)
	return &model.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}, nil
}

func (r *RedisUserRepository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	id, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotFound
		}
		logger.Log.WithError(err).WithField("email", email).Error("Failed to look up email index")
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return r.FindUserByID(ctx, id)
}

func (r *RedisUserRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to load user hash")
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}

	user := &model.User{
		ID:           fields[fieldID],
		Email:        fields[fieldEmail],
		PasswordHash: fields[fieldPasswordHash],
	}
	if h, ok := fields[fieldRefreshHash]; ok {
		user.RefreshTokenHash = &h
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	user.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt])
	return user, nil
}

func (r *RedisUserRepository) UpdateRefreshHash(ctx context.Context, id string, hash *string) error {
	log := logger.Log.WithFields(logrus.Fields{"user_id": id, "clear": hash == nil})
	log.Debug("Updating refresh token hash in redis")

	if hash == nil {
		if err := clearRefreshHashLua.Run(ctx, r.client, []string{r.userKey(id)}, r.stamp()).Err(); err != nil {
			log.WithError(err).Error("Failed to run clear refresh hash script")
			return fmt.Errorf("redis error: %w", err)
		}
		return nil
	}

	updated, err := setRefreshHashLua.Run(ctx, r.client, []string{r.userKey(id)}, *hash, r.stamp()).Int64()
	if err != nil {
		log.WithError(err).Error("Failed to run set refresh hash script")
		return fmt.Errorf("redis error: %w", err)
	}
	if updated == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *RedisUserRepository) SwapRefreshHash(ctx context.Context, id, expected, next string) (bool, error) {
	swapped, err := swapRefreshHashLua.Run(ctx, r.client, []string{r.userKey(id)}, expected, next, r.stamp()).Int64()
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to run rotate refresh hash script")
		return false, fmt.Errorf("redis error: %w", err)
	}
	return swapped == 1, nil
}
