package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-auth-api/logger"
	"go-auth-api/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const uniqueViolation = "23505"

// UserRepository implements IUserRepository on Postgres. It works with both the
// lib/pq and the pgx database/sql drivers.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	log := logger.Log.WithField("email", email)
	log.Info("Executing query to create a new user")

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
	}

	query := `INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("Email already registered")
			return nil, ErrDuplicateEmail
		}
		log.WithError(err).Error("Failed to execute create user query")
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, password_hash, refresh_token_hash, created_at, updated_at FROM users WHERE email = $1`
	return r.findOne(ctx, logger.Log.WithField("email", email), query, email)
}

func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, email, password_hash, refresh_token_hash, created_at, updated_at FROM users WHERE id = $1`
	return r.findOne(ctx, logger.Log.WithField("user_id", id), query, id)
}

func (r *UserRepository) findOne(ctx context.Context, log *logrus.Entry, query string, arg string) (*model.User, error) {
	log.Debug("Executing query to find user")

	user := &model.User{}
	var refreshHash sql.NullString
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &refreshHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.WithError(err).Error("Failed to execute find user query")
		return nil, fmt.Errorf("db error: %w", err)
	}
	if refreshHash.Valid {
		user.RefreshTokenHash = &refreshHash.String
	}
	return user, nil
}

func (r *UserRepository) UpdateRefreshHash(ctx context.Context, id string, hash *string) error {
	log := logger.Log.WithFields(logrus.Fields{"user_id": id, "clear": hash == nil})
	log.Debug("Executing query to update refresh token hash")

	if hash == nil {
		query := `UPDATE users SET refresh_token_hash = NULL, updated_at = NOW() WHERE id = $1 AND refresh_token_hash IS NOT NULL`
		if _, err := r.DB.ExecContext(ctx, query, id); err != nil {
			log.WithError(err).Error("Failed to execute clear refresh hash query")
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	}

	query := `UPDATE users SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, *hash)
	if err != nil {
		log.WithError(err).Error("Failed to execute update refresh hash query")
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SwapRefreshHash(ctx context.Context, id, expected, next string) (bool, error) {
	log := logger.Log.WithField("user_id", id)
	log.Debug("Executing query to rotate refresh token hash")

	query := `UPDATE users SET refresh_token_hash = $3, updated_at = NOW() WHERE id = $1 AND refresh_token_hash = $2`
	res, err := r.DB.ExecContext(ctx, query, id, expected, next)
	if err != nil {
		log.WithError(err).Error("Failed to execute rotate refresh hash query")
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
