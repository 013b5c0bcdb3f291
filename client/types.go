package client

import (
	"time"

	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

// Role values as serialized by the backend.
const (
	RoleOwner     = "owner"
	RoleModerator = "moderator"
	RoleEditor    = "editor"
	RoleMember    = "member"
)

// User is the authenticated identity.
type User struct {
	ID            string              `json:"id"`
	Email         string              `json:"email"`
	Name          string              `json:"name,omitempty"`
	Organizations []OrganizationBrief `json:"organizations"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrganizationBrief is one row of the user's organization list.
type OrganizationBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Session is the payload returned on login and register.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// UserRef is a minimal user reference.
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Organization is the organization envelope.
type Organization struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Domain            string    `json:"domain,omitempty"`
	IsDomainOpen      bool      `json:"is_domain_open"`
	Type              string    `json:"type,omitempty"`
	Logo              string    `json:"logo,omitempty"`
	OrganizationAdmin UserRef   `json:"organization_admin"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Member is one member row of an organization.
type Member struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Name       string   `json:"name,omitempty"`
	Roles      []string `json:"roles"`
	Categories []string `json:"categories"`
}

// Role collapses the serialized role list to the member's single
// effective role.
func (m Member) Role() string {
	if len(m.Roles) > 0 {
		return m.Roles[0]
	}
	return RoleMember
}

// Invitation is one pending member row.
type Invitation struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Status   string `json:"status"`
	UserRole string `json:"user_role"`
}

// Category is one user category with its member references.
type Category struct {
	ID           string    `json:"id"`
	CategoryName string    `json:"category_name"`
	Users        []UserRef `json:"users"`
}

// OrganizationDetails is the full membership graph of one organization.
type OrganizationDetails struct {
	Organization
	Members        []Member     `json:"members"`
	PendingMembers []Invitation `json:"pending_members"`
	Moderators     []UserRef    `json:"moderators"`
	Editors        []UserRef    `json:"editors"`
	UserCategories []Category   `json:"user_categories"`
}

// InviteEntry is one email to invite with the role it will receive.
type InviteEntry struct {
	Email string
	Role  string
}

// CategoryRename is one rename entry of a category batch update.
type CategoryRename struct {
	ID   string
	Name string
}

// CategoryDiff is a batch of category changes applied atomically.
type CategoryDiff struct {
	Renames   []CategoryRename
	Deletions []string
	Adds      []string
}

// InvitationInfo is the public invitation lookup payload.
type InvitationInfo struct {
	Email            string `json:"email"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	Role             string `json:"role"`
}

// AcceptedInvite confirms the organization joined through an invitation.
type AcceptedInvite struct {
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

// Service is one catalog entry. EncryptedCookies is the sealed bundle;
// it is opened locally with the organization key material.
type Service struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organization_id"`
	Name             string    `json:"name"`
	Domain           string    `json:"domain"`
	Category         string    `json:"category,omitempty"`
	LogoURL          string    `json:"logo_url,omitempty"`
	Tags             []string  `json:"tags"`
	EncryptedCookies string    `json:"encrypted_cookies"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// OrganizationUpdate carries the fields of an organization edit.
// Nil fields are left unchanged.
type OrganizationUpdate struct {
	Name         *string `json:"name,omitempty"`
	Domain       *string `json:"domain,omitempty"`
	IsDomainOpen *bool   `json:"is_domain_open,omitempty"`
	Type         *string `json:"type,omitempty"`
}

// ServiceInput is the payload for creating or editing a catalog entry.
// The cookie bundle is submitted in the clear and sealed server-side.
type ServiceInput struct {
	Name           string
	Domain         string
	Category       string
	LogoURL        string
	Tags           []string
	Cookies        []cookiecipher.Cookie
	CookieTTLHours int
}

// Keys is the organization key material.
type Keys struct {
	OrganizationID string `json:"organization_id"`
	PublicKey      string `json:"public_key"`
	PrivateKey     string `json:"private_key"`
}
