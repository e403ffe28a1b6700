package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streetcats/report-service/internal/domain"
)

const uniqueViolation = "23505"

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, display_name, email, password_hash, company)
        VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Company,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	const query = `
        SELECT id, first_name, last_name, COALESCE(display_name, ''), email, password_hash, company, created_at, updated_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, first_name, last_name, COALESCE(display_name, ''), email, password_hash, company, created_at, updated_at
        FROM users WHERE LOWER(email)=LOWER($1)`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Company,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
