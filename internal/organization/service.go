package organization

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sessionshare/session-share/internal/pkg/apperror"
	"github.com/sessionshare/session-share/internal/pkg/mailer"
	"github.com/sessionshare/session-share/internal/user"
)

// Invitations expire after this period; an expired code can no longer be accepted.
const invitationTTL = 14 * 24 * time.Hour

// CreateRequest defines fields for creating an organization.
type CreateRequest struct {
	Name         string
	Domain       string
	IsDomainOpen bool
	Type         string
}

// UpdateRequest defines the fields that can be updated.
type UpdateRequest struct {
	Name         *string
	Domain       *string
	IsDomainOpen *bool
	Type         *string
}

// InviteEntry is one email to invite, with the role it will receive on acceptance.
type InviteEntry struct {
	Email string
	Role  Role
}

// Service defines business logic for organizations and their membership graph.
type Service interface {
	// Organization methods
	Create(ctx context.Context, ownerID string, req CreateRequest) (*Organization, error)
	Get(ctx context.Context, orgID string, actorID string) (*Details, error)
	Update(ctx context.Context, orgID string, actorID string, req UpdateRequest) (*Organization, error)
	Delete(ctx context.Context, orgID string, actorID string) error
	SetLogo(ctx context.Context, orgID string, actorID string, logoPath string) error

	// Invitation methods
	Invite(ctx context.Context, orgID string, actorID string, entries []InviteEntry) ([]*Invitation, error)
	ListInvitations(ctx context.Context, orgID string, actorID string) ([]*Invitation, error)
	CancelInvite(ctx context.Context, orgID string, actorID string, inviteID string) error
	InvitationByCode(ctx context.Context, code string) (*Invitation, *Organization, error)
	AcceptInvite(ctx context.Context, code string, userID string, userEmail string) (*Organization, error)

	// Role methods
	Promote(ctx context.Context, orgID string, actorID string, email string, role Role) error
	Demote(ctx context.Context, orgID string, actorID string, email string, role Role) error
	RemoveMember(ctx context.Context, orgID string, actorID string, targetUserID string) error
	RoleOf(ctx context.Context, orgID string, userID string) (Role, error)

	// Category methods
	UpdateCategories(ctx context.Context, orgID string, actorID string, renames []CategoryRename, deletions []string, adds []string) ([]*Category, error)
	UpdateMemberCategory(ctx context.Context, orgID string, actorID string, targetUserID string, categoryName string) error
}

type service struct {
	repo          Repository
	userService   user.Service
	mail          mailer.Mailer
	inviteBaseURL string
}

// NewService creates a new organization service.
func NewService(repo Repository, userService user.Service, mail mailer.Mailer, inviteBaseURL string) Service {
	return &service{
		repo:          repo,
		userService:   userService,
		mail:          mail,
		inviteBaseURL: strings.TrimRight(inviteBaseURL, "/"),
	}
}

// ------------------------
//   Organization methods
// ------------------------

func (s *service) Create(ctx context.Context, ownerID string, req CreateRequest) (*Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	owner, err := s.userService.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	org := &Organization{
		Name:         name,
		Domain:       strings.TrimSpace(req.Domain),
		IsDomainOpen: req.IsDomainOpen,
		Type:         strings.TrimSpace(req.Type),
		OwnerID:      owner.ID,
		OwnerEmail:   owner.Email,
	}

	if err := s.repo.Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *service) Get(ctx context.Context, orgID string, actorID string) (*Details, error) {
	// Any member may load the organization; non-members are rejected.
	if _, err := s.repo.GetMember(ctx, orgID, actorID); err != nil {
		return nil, err
	}

	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.ListInvitations(ctx, orgID)
	if err != nil {
		return nil, err
	}

	categories, err := s.repo.ListCategories(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return &Details{
		Organization:   org,
		Members:        members,
		PendingMembers: pending,
		Categories:     categories,
	}, nil
}

func (s *service) Update(ctx context.Context, orgID string, actorID string, req UpdateRequest) (*Organization, error) {
	if _, err := s.requireRole(ctx, orgID, actorID, RoleOwner); err != nil {
		return nil, err
	}

	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		org.Name = name
	}
	if req.Domain != nil {
		org.Domain = strings.TrimSpace(*req.Domain)
	}
	if req.IsDomainOpen != nil {
		org.IsDomainOpen = *req.IsDomainOpen
	}
	if req.Type != nil {
		org.Type = strings.TrimSpace(*req.Type)
	}

	if err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *service) Delete(ctx context.Context, orgID string, actorID string) error {
	if _, err := s.requireRole(ctx, orgID, actorID, RoleOwner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, orgID)
}

func (s *service) SetLogo(ctx context.Context, orgID string, actorID string, logoPath string) error {
	if _, err := s.requireRole(ctx, orgID, actorID, RoleOwner); err != nil {
		return err
	}

	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	org.LogoPath = &logoPath
	return s.repo.Update(ctx, org)
}

// ------------------------
//    Invitation methods
// ------------------------

// Invite creates pending invitations and mails out the invite links.
// Re-inviting an email that already has a pending invitation re-sends the
// mail without touching state.
func (s *service) Invite(ctx context.Context, orgID string, actorID string, entries []InviteEntry) ([]*Invitation, error) {
	actorRole, err := s.requireRole(ctx, orgID, actorID, RoleOwner, RoleModerator)
	if err != nil {
		return nil, err
	}

	org, err := s.repo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	invitations := make([]*Invitation, 0, len(entries))
	for _, entry := range entries {
		email := strings.ToLower(strings.TrimSpace(entry.Email))
		if email == "" {
			return nil, apperror.BadRequest("invite email is required")
		}

		role := entry.Role
		if role == "" {
			role = RoleMember
		}
		if !role.Valid() || role == RoleOwner {
			return nil, apperror.BadRequest(fmt.Sprintf("cannot invite with role %q", role))
		}
		// A moderator may only grant roles it can manage.
		if !actorRole.CanManage(role) {
			return nil, apperror.Forbidden("insufficient role to grant this role")
		}

		if _, err := s.repo.GetMemberByEmail(ctx, orgID, email); err == nil {
			return nil, ErrAlreadyMember
		} else if !errors.Is(err, ErrMemberNotFound) {
			return nil, err
		}

		// Existing pending invite: re-send only, first invite wins the role.
		if existing, err := s.repo.GetPendingInvitationByEmail(ctx, orgID, email); err == nil {
			if err := s.sendInviteMail(ctx, org, existing); err != nil {
				return nil, err
			}
			invitations = append(invitations, existing)
			continue
		} else if !errors.Is(err, ErrInviteNotFound) {
			return nil, err
		}

		inv := &Invitation{
			OrganizationID: orgID,
			Email:          email,
			Role:           role,
			Code:           uuid.NewString(),
			Status:         InvitationPending,
			InviterID:      actorID,
			ExpiresAt:      time.Now().UTC().Add(invitationTTL),
		}
		if err := s.repo.CreateInvitation(ctx, inv); err != nil {
			return nil, err
		}
		if err := s.sendInviteMail(ctx, org, inv); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}

	return invitations, nil
}

func (s *service) ListInvitations(ctx context.Context, orgID string, actorID string) ([]*Invitation, error) {
	if _, err := s.requireRole(ctx, orgID, actorID, RoleOwner, RoleModerator); err != nil {
		return nil, err
	}
	return s.repo.ListInvitations(ctx, orgID)
}

func (s *service) CancelInvite(ctx context.Context, orgID string, actorID string, inviteID string) error {
	if _, err := s.requireRole(ctx, orgID, actorID, RoleOwner, RoleModerator); err != nil {
		return err
	}

	inv, err := s.repo.GetInvitationByID(ctx, orgID, inviteID)
	if err != nil {
		return err
	}
	if inv.Status != InvitationPending {
		return ErrInviteNotFound
	}
	return s.repo.DeleteInvitation(ctx, orgID, inviteID)
}

func (s *service) InvitationByCode(ctx context.Context, code string) (*Invitation, *Organization, error) {
	inv, err := s.repo.GetInvitationByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if time.Now().UTC().After(inv.ExpiresAt) {
		return nil, nil, ErrInviteExpired
	}
	org, err := s.repo.GetByID(ctx, inv.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	return inv, org, nil
}

// AcceptInvite consumes an invitation and adds the caller as a member.
// Accepting an already-consumed code is idempotent when the caller is
// already a member: it short-circuits and returns the organization.
func (s *service) AcceptInvite(ctx context.Context, code string, userID string, userEmail string) (*Organization, error) {
	inv, err := s.repo.GetInvitationByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	org, err := s.repo.GetByID(ctx, inv.OrganizationID)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(inv.Email, userEmail) {
		return nil, ErrInviteMismatch
	}

	if inv.Status == InvitationAccepted {
		if _, err := s.repo.GetMember(ctx, inv.OrganizationID, userID); err == nil {
			return org, nil
		}
		return nil, ErrInviteNotFound
	}

	if time.Now().UTC().After(inv.ExpiresAt) {
		return nil, ErrInviteExpired
	}

	if err := s.repo.AddMember(ctx, inv.OrganizationID, userID, inv.Role); err != nil {
		// Already a member: treat the accept as a no-op success.
		if !errors.Is(err, ErrAlreadyMember) {
			return nil, err
		}
	}

	if err := s.repo.MarkInvitationAccepted(ctx, inv.ID); err != nil {
		return nil, err
	}

	return org, nil
}

// ------------------------
//      Role methods
// ------------------------

// Promote grants an elevated role to a member, replacing any previous one.
// Only the owner may create moderators; moderators may create editors.
func (s *service) Promote(ctx context.Context, orgID string, actorID string, email string, role Role) error {
	if role != RoleModerator && role != RoleEditor {
		return apperror.BadRequest(fmt.Sprintf("cannot promote to role %q", role))
	}

	actorRole, err := s.requireRole(ctx, orgID, actorID, RoleOwner, RoleModerator)
	if err != nil {
		return err
	}
	if role == RoleModerator && actorRole != RoleOwner {
		return apperror.Forbidden("only the owner can promote moderators")
	}

	target, err := s.repo.GetMemberByEmail(ctx, orgID, email)
	if err != nil {
		return err
	}
	if target.Role == RoleOwner {
		return ErrOwnerImmutable
	}
	if !actorRole.CanManage(target.Role) {
		return apperror.Forbidden("insufficient role to manage this member")
	}
	if target.Role == role {
		return nil
	}

	return s.repo.UpdateMemberRole(ctx, orgID, target.UserID, role)
}

// Demote clears an elevated role, returning the member to the base role.
func (s *service) Demote(ctx context.Context, orgID string, actorID string, email string, role Role) error {
	if role != RoleModerator && role != RoleEditor {
		return apperror.BadRequest(fmt.Sprintf("cannot demote from role %q", role))
	}

	actorRole, err := s.requireRole(ctx, orgID, actorID, RoleOwner, RoleModerator)
	if err != nil {
		return err
	}
	if role == RoleModerator && actorRole != RoleOwner {
		return apperror.Forbidden("only the owner can demote moderators")
	}

	target, err := s.repo.GetMemberByEmail(ctx, orgID, email)
	if err != nil {
		return err
	}
	if target.Role == RoleOwner {
		return ErrOwnerImmutable
	}
	if target.Role != role {
		return apperror.BadRequest(fmt.Sprintf("member does not hold role %q", role))
	}

	return s.repo.UpdateMemberRole(ctx, orgID, target.UserID, RoleMember)
}

// RemoveMember removes a non-owner member. The owner may remove anyone;
// a moderator only members and editors.
func (s *service) RemoveMember(ctx context.Context, orgID string, actorID string, targetUserID string) error {
	actorRole, err := s.requireRole(ctx, orgID, actorID, RoleOwner, RoleModerator)
	if err != nil {
		return err
	}

	target, err := s.repo.GetMember(ctx, orgID, targetUserID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return ErrMemberNotFound
		}
		return err
	}
	if target.Role == RoleOwner {
		return ErrOwnerImmutable
	}
	if !actorRole.CanManage(target.Role) {
		return apperror.Forbidden("insufficient role to remove this member")
	}

	return s.repo.RemoveMember(ctx, orgID, targetUserID)
}

// RoleOf returns the role the user holds in the organization, or ErrNotMember.
func (s *service) RoleOf(ctx context.Context, orgID string, userID string) (Role, error) {
	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

// ------------------------
//    Category methods
// ------------------------

// UpdateCategories applies the batch diff (renames, deletions, adds) and
// returns the resulting category list. Name collisions are rejected
// case-insensitively before any write happens.
func (s *service) UpdateCategories(ctx context.Context, orgID string, actorID string, renames []CategoryRename, deletions []string, adds []string) ([]*Category, error) {
	if _, err := s.requireRole(ctx, orgID, actorID, RoleOwner, RoleModerator); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListCategories(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := validateCategoryDiff(existing, renames, deletions, adds); err != nil {
		return nil, err
	}

	if err := s.repo.ApplyCategoryDiff(ctx, orgID, renames, deletions, adds); err != nil {
		return nil, err
	}

	// The caller replaces its whole category list with this response.
	return s.repo.ListCategories(ctx, orgID)
}

// UpdateMemberCategory sets the single category label on a plain member.
// The name "none" (or empty) clears the label.
func (s *service) UpdateMemberCategory(ctx context.Context, orgID string, actorID string, targetUserID string, categoryName string) error {
	if _, err := s.requireRole(ctx, orgID, actorID, RoleOwner, RoleModerator); err != nil {
		return err
	}

	target, err := s.repo.GetMember(ctx, orgID, targetUserID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return ErrMemberNotFound
		}
		return err
	}
	if target.Role != RoleMember {
		return apperror.BadRequest("categories apply only to plain members")
	}

	name := strings.TrimSpace(categoryName)
	if name == "" || strings.EqualFold(name, "none") {
		return s.repo.SetMemberCategory(ctx, orgID, targetUserID, nil)
	}

	cat, err := s.repo.GetCategoryByName(ctx, orgID, name)
	if err != nil {
		return err
	}
	return s.repo.SetMemberCategory(ctx, orgID, targetUserID, &cat.ID)
}

// ------------------------
//        Helpers
// ------------------------

// requireRole loads the actor's membership and checks it against the allowed
// roles. It returns the actor's role on success.
func (s *service) requireRole(ctx context.Context, orgID string, actorID string, allowed ...Role) (Role, error) {
	member, err := s.repo.GetMember(ctx, orgID, actorID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return "", apperror.Forbidden("not a member of this organization")
		}
		return "", err
	}
	for _, role := range allowed {
		if member.Role == role {
			return member.Role, nil
		}
	}
	return "", apperror.Forbidden("insufficient role for this operation")
}

// validateCategoryDiff simulates the diff against the current list and
// rejects case-insensitive name collisions.
func validateCategoryDiff(existing []*Category, renames []CategoryRename, deletions []string, adds []string) error {
	deleted := make(map[string]bool, len(deletions))
	for _, id := range deletions {
		deleted[id] = true
	}
	renamed := make(map[string]string, len(renames))
	for _, r := range renames {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return apperror.BadRequest("category name is required")
		}
		renamed[r.ID] = name
	}

	seen := make(map[string]bool)
	record := func(name string) error {
		key := strings.ToLower(name)
		if seen[key] {
			return ErrCategoryExists
		}
		seen[key] = true
		return nil
	}

	for _, cat := range existing {
		if deleted[cat.ID] {
			continue
		}
		name := cat.Name
		if renamedName, ok := renamed[cat.ID]; ok {
			name = renamedName
		}
		if err := record(name); err != nil {
			return err
		}
	}
	for _, name := range adds {
		name = strings.TrimSpace(name)
		if name == "" {
			return apperror.BadRequest("category name is required")
		}
		if err := record(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) sendInviteMail(ctx context.Context, org *Organization, inv *Invitation) error {
	params := url.Values{}
	params.Set("code", inv.Code)
	params.Set("email", inv.Email)
	params.Set("org", org.Name)
	link := fmt.Sprintf("%s/invites/accept?%s", s.inviteBaseURL, params.Encode())
	body := fmt.Sprintf(
		"You have been invited to join %s on Session Share as %s.\n\nAccept the invitation: %s\n\nThis invitation expires on %s.",
		org.Name, inv.Role, link, inv.ExpiresAt.Format(time.RFC1123))

	if err := s.mail.Send(ctx, inv.Email, fmt.Sprintf("Invitation to join %s", org.Name), body); err != nil {
		return fmt.Errorf("failed to send invitation mail: %w", err)
	}
	log.Printf("[organization] invitation mail sent to %s for org %s", inv.Email, org.ID)
	return nil
}
