package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing user data.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	ListOrganizations(ctx context.Context, userID string) ([]OrganizationBrief, error)

	CreateResetToken(ctx context.Context, token *ResetToken) error
	GetResetToken(ctx context.Context, token string) (*ResetToken, error)
	DeleteResetToken(ctx context.Context, token string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new user repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, u *User) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.users").
		Columns("email", "password_hash", "display_name", "is_active").
		Values(u.Email, u.PasswordHash, u.DisplayName, u.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create user query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrEmailAlreadyUsed
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*User, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "email", "password_hash", "display_name", "created_at", "last_login_at", "is_active").
		From("public.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get user query failed: %w", err)
	}

	return r.scanUser(r.pool.QueryRow(ctx, query, args...))
}

func (r *pgxRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "email", "password_hash", "display_name", "created_at", "last_login_at", "is_active").
		From("public.users").
		Where("lower(email) = lower(?)", email).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get user by email query failed: %w", err)
	}

	return r.scanUser(r.pool.QueryRow(ctx, query, args...))
}

func (r *pgxRepository) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt, &u.LastLoginAt, &u.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user failed: %w", err)
	}
	return &u, nil
}

func (r *pgxRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.users").
		Set("last_login_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update last login failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.users").
		Set("password_hash", passwordHash).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update password failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) ListOrganizations(ctx context.Context, userID string) ([]OrganizationBrief, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("o.id", "o.name", "m.role").
		From("public.organization_members m").
		Join("public.organizations o ON o.id = m.organization_id").
		Where(squirrel.Eq{"m.user_id": userID}).
		OrderBy("o.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list organizations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list organizations failed: %w", err)
	}
	defer rows.Close()

	orgs := make([]OrganizationBrief, 0)
	for rows.Next() {
		var o OrganizationBrief
		if err := rows.Scan(&o.ID, &o.Name, &o.Role); err != nil {
			return nil, fmt.Errorf("scan organization brief failed: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (r *pgxRepository) CreateResetToken(ctx context.Context, token *ResetToken) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.password_reset_tokens").
		Columns("token", "user_id", "expires_at").
		Values(token.Token, token.UserID, token.ExpiresAt).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reset token query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&token.CreatedAt); err != nil {
		return fmt.Errorf("create reset token failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetResetToken(ctx context.Context, token string) (*ResetToken, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("token", "user_id", "created_at", "expires_at").
		From("public.password_reset_tokens").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reset token query failed: %w", err)
	}

	var t ResetToken
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("get reset token failed: %w", err)
	}
	return &t, nil
}

func (r *pgxRepository) DeleteResetToken(ctx context.Context, token string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.password_reset_tokens").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete reset token query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete reset token failed: %w", err)
	}
	return nil
}
