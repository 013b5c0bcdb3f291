package organization

import (
	"errors"
	"time"
)

var (
	ErrOrgNotFound     = errors.New("organization not found")
	ErrNameRequired    = errors.New("organization name is required")
	ErrNotMember       = errors.New("user is not a member of this organization")
	ErrMemberNotFound  = errors.New("member not found in this organization")
	ErrAlreadyMember   = errors.New("user is already a member of this organization")
	ErrAlreadyInvited  = errors.New("an invitation for this email is already pending")
	ErrOwnerImmutable  = errors.New("the organization owner cannot be promoted, demoted or removed")
	ErrInviteNotFound  = errors.New("invitation not found")
	ErrInviteExpired   = errors.New("invitation has expired")
	ErrInviteMismatch  = errors.New("invitation email does not match the signed-in user")
	ErrCategoryExists  = errors.New("a category with this name already exists")
	ErrCategoryUnknown = errors.New("category not found in this organization")
)

// Role is the single authority level a member holds within an organization.
// Promoting a member replaces any previous elevated role; a member never
// holds two elevated roles at once.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleModerator Role = "moderator"
	RoleEditor    Role = "editor"
	RoleMember    Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleModerator, RoleEditor, RoleMember:
		return true
	}
	return false
}

// Elevated reports whether r carries authority beyond the base member role.
func (r Role) Elevated() bool {
	return r == RoleOwner || r == RoleModerator || r == RoleEditor
}

// CanManage reports whether an actor holding role r may act on a target
// holding role target. The owner is never a valid target; a moderator may
// only act on members and editors, never on another moderator or the owner.
func (r Role) CanManage(target Role) bool {
	if target == RoleOwner {
		return false
	}
	switch r {
	case RoleOwner:
		return true
	case RoleModerator:
		return target == RoleMember || target == RoleEditor
	default:
		return false
	}
}

// Organization is the aggregate root for membership, invitations and categories.
type Organization struct {
	ID           string // UUID
	Name         string
	Domain       string
	IsDomainOpen bool
	Type         string
	LogoPath     *string
	OwnerID      string
	OwnerEmail   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Member is a user belonging to an organization, joined with user identity.
type Member struct {
	UserID   string
	Email    string
	Name     *string
	Role     Role
	Category *string // only plain members carry a category label
}

// InvitationStatus tracks the lifecycle of a pending membership.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation is a pending, unaccepted membership tied to an email.
type Invitation struct {
	ID             string // UUID
	OrganizationID string
	Email          string
	Role           Role
	Code           string // opaque invite code sent by mail
	Status         InvitationStatus
	InviterID      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// UserRef is a minimal user reference embedded in category listings.
type UserRef struct {
	ID    string
	Email string
}

// Category is a named grouping of members, unique per organization
// (case-insensitive).
type Category struct {
	ID    string // UUID
	Name  string
	Users []UserRef
}

// CategoryRename is one entry of the batch category update.
type CategoryRename struct {
	ID   string
	Name string
}

// Details is the full membership graph returned on organization selection.
type Details struct {
	Organization   *Organization
	Members        []*Member
	PendingMembers []*Invitation
	Categories     []*Category
}

// Moderators returns the member references holding the moderator role.
func (d *Details) Moderators() []UserRef {
	return d.refsWithRole(RoleModerator)
}

// Editors returns the member references holding the editor role.
func (d *Details) Editors() []UserRef {
	return d.refsWithRole(RoleEditor)
}

func (d *Details) refsWithRole(role Role) []UserRef {
	refs := make([]UserRef, 0)
	for _, m := range d.Members {
		if m.Role == role {
			refs = append(refs, UserRef{ID: m.UserID, Email: m.Email})
		}
	}
	return refs
}
