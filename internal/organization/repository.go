package organization

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines methods for accessing organization data.
type Repository interface {
	// Organization methods
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id string) error

	// Member methods
	GetMember(ctx context.Context, orgID string, userID string) (*Member, error)
	GetMemberByEmail(ctx context.Context, orgID string, email string) (*Member, error)
	ListMembers(ctx context.Context, orgID string) ([]*Member, error)
	AddMember(ctx context.Context, orgID string, userID string, role Role) error
	RemoveMember(ctx context.Context, orgID string, userID string) error
	UpdateMemberRole(ctx context.Context, orgID string, userID string, role Role) error
	SetMemberCategory(ctx context.Context, orgID string, userID string, categoryID *string) error

	// Invitation methods
	CreateInvitation(ctx context.Context, inv *Invitation) error
	GetInvitationByCode(ctx context.Context, code string) (*Invitation, error)
	GetInvitationByID(ctx context.Context, orgID string, id string) (*Invitation, error)
	GetPendingInvitationByEmail(ctx context.Context, orgID string, email string) (*Invitation, error)
	ListInvitations(ctx context.Context, orgID string) ([]*Invitation, error)
	DeleteInvitation(ctx context.Context, orgID string, id string) error
	MarkInvitationAccepted(ctx context.Context, id string) error

	// Category methods
	ListCategories(ctx context.Context, orgID string) ([]*Category, error)
	GetCategoryByName(ctx context.Context, orgID string, name string) (*Category, error)
	ApplyCategoryDiff(ctx context.Context, orgID string, renames []CategoryRename, deletions []string, adds []string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new organization repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

// ------------------------
//   Organization methods
// ------------------------

func (r *pgxRepository) Create(ctx context.Context, org *Organization) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create organization tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.organizations").
		Columns("name", "domain", "is_domain_open", "type").
		Values(org.Name, org.Domain, org.IsDomainOpen, org.Type).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create organization query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return fmt.Errorf("create organization failed: %w", err)
	}

	// The creating user becomes the single owner.
	query, args, err = psql.Insert("public.organization_members").
		Columns("organization_id", "user_id", "role").
		Values(org.ID, org.OwnerID, RoleOwner).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create owner membership query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("create owner membership failed: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"o.id", "o.name", "o.domain", "o.is_domain_open", "o.type", "o.logo_path",
		"m.user_id", "u.email", "o.created_at", "o.updated_at").
		From("public.organizations o").
		Join("public.organization_members m ON m.organization_id = o.id AND m.role = ?", string(RoleOwner)).
		Join("public.users u ON u.id = m.user_id").
		Where(squirrel.Eq{"o.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get organization query failed: %w", err)
	}

	var org Organization
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&org.ID, &org.Name, &org.Domain, &org.IsDomainOpen, &org.Type, &org.LogoPath,
		&org.OwnerID, &org.OwnerEmail, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("get organization failed: %w", err)
	}
	return &org, nil
}

func (r *pgxRepository) Update(ctx context.Context, org *Organization) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.organizations").
		Set("name", org.Name).
		Set("domain", org.Domain).
		Set("is_domain_open", org.IsDomainOpen).
		Set("type", org.Type).
		Set("logo_path", org.LogoPath).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": org.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update organization query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update organization failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.organizations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete organization query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete organization failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrgNotFound
	}
	return nil
}

// ------------------------
//     Member methods
// ------------------------

func (r *pgxRepository) memberQuery() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select("m.user_id", "u.email", "u.display_name", "m.role", "c.name").
		From("public.organization_members m").
		Join("public.users u ON u.id = m.user_id").
		LeftJoin("public.categories c ON c.id = m.category_id")
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	var role string
	if err := row.Scan(&m.UserID, &m.Email, &m.Name, &role, &m.Category); err != nil {
		return nil, err
	}
	m.Role = Role(role)
	return &m, nil
}

func (r *pgxRepository) GetMember(ctx context.Context, orgID string, userID string) (*Member, error) {
	query, args, err := r.memberQuery().
		Where(squirrel.Eq{"m.organization_id": orgID, "m.user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get member query failed: %w", err)
	}

	m, err := scanMember(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("get member failed: %w", err)
	}
	return m, nil
}

func (r *pgxRepository) GetMemberByEmail(ctx context.Context, orgID string, email string) (*Member, error) {
	query, args, err := r.memberQuery().
		Where(squirrel.Eq{"m.organization_id": orgID}).
		Where("lower(u.email) = lower(?)", email).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get member by email query failed: %w", err)
	}

	m, err := scanMember(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member by email failed: %w", err)
	}
	return m, nil
}

func (r *pgxRepository) ListMembers(ctx context.Context, orgID string) ([]*Member, error) {
	query, args, err := r.memberQuery().
		Where(squirrel.Eq{"m.organization_id": orgID}).
		OrderBy("u.email ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list members query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members failed: %w", err)
	}
	defer rows.Close()

	members := make([]*Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member failed: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgxRepository) AddMember(ctx context.Context, orgID string, userID string, role Role) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.organization_members").
		Columns("organization_id", "user_id", "role").
		Values(orgID, userID, string(role)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build add member query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyMember
		}
		return fmt.Errorf("add member failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) RemoveMember(ctx context.Context, orgID string, userID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.organization_members").
		Where(squirrel.Eq{"organization_id": orgID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove member query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("remove member failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *pgxRepository) UpdateMemberRole(ctx context.Context, orgID string, userID string, role Role) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	builder := psql.Update("public.organization_members").
		Set("role", string(role)).
		Where(squirrel.Eq{"organization_id": orgID, "user_id": userID})

	// Elevated members carry no category label.
	if role != RoleMember {
		builder = builder.Set("category_id", nil)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update member role query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update member role failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *pgxRepository) SetMemberCategory(ctx context.Context, orgID string, userID string, categoryID *string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.organization_members").
		Set("category_id", categoryID).
		Where(squirrel.Eq{"organization_id": orgID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set member category query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set member category failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ------------------------
//    Invitation methods
// ------------------------

const invitationColumns = "id, organization_id, email, role, code, status, inviter_id, created_at, expires_at"

func scanInvitation(row pgx.Row) (*Invitation, error) {
	var inv Invitation
	var role, status string
	if err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.Email, &role, &inv.Code,
		&status, &inv.InviterID, &inv.CreatedAt, &inv.ExpiresAt); err != nil {
		return nil, err
	}
	inv.Role = Role(role)
	inv.Status = InvitationStatus(status)
	return &inv, nil
}

func (r *pgxRepository) CreateInvitation(ctx context.Context, inv *Invitation) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.invitations").
		Columns("organization_id", "email", "role", "code", "status", "inviter_id", "expires_at").
		Values(inv.OrganizationID, inv.Email, string(inv.Role), inv.Code, string(inv.Status), inv.InviterID, inv.ExpiresAt).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create invitation query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&inv.ID, &inv.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyInvited
		}
		return fmt.Errorf("create invitation failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetInvitationByCode(ctx context.Context, code string) (*Invitation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(invitationColumns).
		From("public.invitations").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get invitation query failed: %w", err)
	}

	inv, err := scanInvitation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("get invitation by code failed: %w", err)
	}
	return inv, nil
}

func (r *pgxRepository) GetInvitationByID(ctx context.Context, orgID string, id string) (*Invitation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(invitationColumns).
		From("public.invitations").
		Where(squirrel.Eq{"id": id, "organization_id": orgID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get invitation by id query failed: %w", err)
	}

	inv, err := scanInvitation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("get invitation by id failed: %w", err)
	}
	return inv, nil
}

func (r *pgxRepository) GetPendingInvitationByEmail(ctx context.Context, orgID string, email string) (*Invitation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(invitationColumns).
		From("public.invitations").
		Where(squirrel.Eq{"organization_id": orgID, "status": string(InvitationPending)}).
		Where("lower(email) = lower(?)", email).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get pending invitation query failed: %w", err)
	}

	inv, err := scanInvitation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("get pending invitation failed: %w", err)
	}
	return inv, nil
}

func (r *pgxRepository) ListInvitations(ctx context.Context, orgID string) ([]*Invitation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(invitationColumns).
		From("public.invitations").
		Where(squirrel.Eq{"organization_id": orgID, "status": string(InvitationPending)}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list invitations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invitations failed: %w", err)
	}
	defer rows.Close()

	invitations := make([]*Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation failed: %w", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (r *pgxRepository) DeleteInvitation(ctx context.Context, orgID string, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.invitations").
		Where(squirrel.Eq{"id": id, "organization_id": orgID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete invitation query failed: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete invitation failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInviteNotFound
	}
	return nil
}

func (r *pgxRepository) MarkInvitationAccepted(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.invitations").
		Set("status", string(InvitationAccepted)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark invitation accepted query failed: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark invitation accepted failed: %w", err)
	}
	return nil
}

// ------------------------
//    Category methods
// ------------------------

func (r *pgxRepository) ListCategories(ctx context.Context, orgID string) ([]*Category, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("c.id", "c.name", "m.user_id", "u.email").
		From("public.categories c").
		LeftJoin("public.organization_members m ON m.category_id = c.id").
		LeftJoin("public.users u ON u.id = m.user_id").
		Where(squirrel.Eq{"c.organization_id": orgID}).
		OrderBy("c.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories failed: %w", err)
	}
	defer rows.Close()

	categories := make([]*Category, 0)
	byID := make(map[string]*Category)
	for rows.Next() {
		var id, name string
		var userID, email *string
		if err := rows.Scan(&id, &name, &userID, &email); err != nil {
			return nil, fmt.Errorf("scan category failed: %w", err)
		}

		cat, ok := byID[id]
		if !ok {
			cat = &Category{ID: id, Name: name, Users: make([]UserRef, 0)}
			byID[id] = cat
			categories = append(categories, cat)
		}
		if userID != nil && email != nil {
			cat.Users = append(cat.Users, UserRef{ID: *userID, Email: *email})
		}
	}
	return categories, rows.Err()
}

func (r *pgxRepository) GetCategoryByName(ctx context.Context, orgID string, name string) (*Category, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "name").
		From("public.categories").
		Where(squirrel.Eq{"organization_id": orgID}).
		Where("lower(name) = lower(?)", name).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get category query failed: %w", err)
	}

	var cat Category
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&cat.ID, &cat.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryUnknown
		}
		return nil, fmt.Errorf("get category by name failed: %w", err)
	}
	return &cat, nil
}

// ApplyCategoryDiff applies the batch category update atomically:
// renames first, then deletions, then additions.
func (r *pgxRepository) ApplyCategoryDiff(ctx context.Context, orgID string, renames []CategoryRename, deletions []string, adds []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin category diff tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	for _, rename := range renames {
		query, args, err := psql.Update("public.categories").
			Set("name", rename.Name).
			Where(squirrel.Eq{"id": rename.ID, "organization_id": orgID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build rename category query failed: %w", err)
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrCategoryExists
			}
			return fmt.Errorf("rename category failed: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrCategoryUnknown
		}
	}

	if len(deletions) > 0 {
		// Detach members from deleted categories before removing them.
		query, args, err := psql.Update("public.organization_members").
			Set("category_id", nil).
			Where(squirrel.Eq{"organization_id": orgID, "category_id": deletions}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build detach members query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("detach members failed: %w", err)
		}

		query, args, err = psql.Delete("public.categories").
			Where(squirrel.Eq{"id": deletions, "organization_id": orgID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete categories query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("delete categories failed: %w", err)
		}
	}

	for _, name := range adds {
		query, args, err := psql.Insert("public.categories").
			Columns("organization_id", "name").
			Values(orgID, name).
			ToSql()
		if err != nil {
			return fmt.Errorf("build add category query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrCategoryExists
			}
			return fmt.Errorf("add category failed: %w", err)
		}
	}

	return tx.Commit(ctx)
}
