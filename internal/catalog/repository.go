package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing service catalog data.
type Repository interface {
	Create(ctx context.Context, svc *Service) error
	GetByID(ctx context.Context, orgID string, serviceID string) (*Service, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*Service, error)
	Update(ctx context.Context, svc *Service) error
	Delete(ctx context.Context, orgID string, serviceID string) error

	GetKeys(ctx context.Context, orgID string) (*Keys, error)
	CreateKeys(ctx context.Context, keys *Keys) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new catalog repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const serviceColumns = "id, organization_id, name, domain, category, logo_url, tags, encrypted_cookies, created_at, updated_at"

func scanService(row pgx.Row) (*Service, error) {
	var svc Service
	err := row.Scan(&svc.ID, &svc.OrganizationID, &svc.Name, &svc.Domain, &svc.Category,
		&svc.LogoURL, &svc.Tags, &svc.EncryptedCookies, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *pgxRepository) Create(ctx context.Context, svc *Service) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.services").
		Columns("organization_id", "name", "domain", "category", "logo_url", "tags", "encrypted_cookies").
		Values(svc.OrganizationID, svc.Name, svc.Domain, svc.Category, svc.LogoURL, svc.Tags, svc.EncryptedCookies).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create service query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&svc.ID, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		return fmt.Errorf("create service failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, orgID string, serviceID string) (*Service, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(serviceColumns).
		From("public.services").
		Where(squirrel.Eq{"id": serviceID, "organization_id": orgID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get service query failed: %w", err)
	}

	svc, err := scanService(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service failed: %w", err)
	}
	return svc, nil
}

func (r *pgxRepository) ListByOrganization(ctx context.Context, orgID string) ([]*Service, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(serviceColumns).
		From("public.services").
		Where(squirrel.Eq{"organization_id": orgID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list services query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services failed: %w", err)
	}
	defer rows.Close()

	services := make([]*Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service failed: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (r *pgxRepository) Update(ctx context.Context, svc *Service) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.services").
		Set("name", svc.Name).
		Set("domain", svc.Domain).
		Set("category", svc.Category).
		Set("logo_url", svc.LogoURL).
		Set("tags", svc.Tags).
		Set("encrypted_cookies", svc.EncryptedCookies).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": svc.ID, "organization_id": svc.OrganizationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update service query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update service failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, orgID string, serviceID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.services").
		Where(squirrel.Eq{"id": serviceID, "organization_id": orgID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete service query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete service failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *pgxRepository) GetKeys(ctx context.Context, orgID string) (*Keys, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("organization_id", "public_key", "private_key", "created_at").
		From("public.organization_keys").
		Where(squirrel.Eq{"organization_id": orgID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get keys query failed: %w", err)
	}

	var keys Keys
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&keys.OrganizationID, &keys.PublicKey, &keys.PrivateKey, &keys.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeysNotFound
		}
		return nil, fmt.Errorf("get keys failed: %w", err)
	}
	return &keys, nil
}

func (r *pgxRepository) CreateKeys(ctx context.Context, keys *Keys) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.organization_keys").
		Columns("organization_id", "public_key", "private_key").
		Values(keys.OrganizationID, keys.PublicKey, keys.PrivateKey).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create keys query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&keys.CreatedAt); err != nil {
		return fmt.Errorf("create keys failed: %w", err)
	}
	return nil
}
