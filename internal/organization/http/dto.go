package http

import (
	"time"

	"github.com/sessionshare/session-share/internal/organization"
)

// CreateOrganizationRequest is the payload for POST /organizations.
type CreateOrganizationRequest struct {
	Name         string `json:"name" binding:"required"`
	Domain       string `json:"domain"`
	IsDomainOpen bool   `json:"is_domain_open"`
	Type         string `json:"type"`
}

// UpdateOrganizationRequest is the payload for PUT /organizations/:id.
type UpdateOrganizationRequest struct {
	Name         *string `json:"name"`
	Domain       *string `json:"domain"`
	IsDomainOpen *bool   `json:"is_domain_open"`
	Type         *string `json:"type"`
}

// InviteEntryRequest is one email in an invite batch.
type InviteEntryRequest struct {
	Email    string `json:"email" binding:"required,email"`
	UserRole string `json:"user_role"`
}

// InviteRequest is the payload for POST /organizations/invite.
// Re-sending an invitation posts the same email again.
type InviteRequest struct {
	OrganizationID string               `json:"organization_id" binding:"required,uuid"`
	Emails         []InviteEntryRequest `json:"emails" binding:"required,min=1,dive"`
}

// RoleChangeRequest targets a member by email for promote/demote.
type RoleChangeRequest struct {
	Email          string `json:"email" binding:"required,email"`
	OrganizationID string `json:"organization_id" binding:"required,uuid"`
}

// RemoveMemberRequest is the payload for DELETE /organizations/member/remove.
type RemoveMemberRequest struct {
	UserID         string `json:"user_id" binding:"required,uuid"`
	OrganizationID string `json:"organization_id" binding:"required,uuid"`
}

// CategoryRenameRequest is one rename entry of the batch category update.
type CategoryRenameRequest struct {
	ID   string `json:"id" binding:"required,uuid"`
	Name string `json:"name" binding:"required"`
}

// UpdateCategoriesRequest is the payload for PUT /organizations/categories/update.
type UpdateCategoriesRequest struct {
	OrganizationID string                  `json:"organization_id" binding:"required,uuid"`
	Renames        []CategoryRenameRequest `json:"renames"`
	Deletions      []string                `json:"deletions"`
	Adds           []string                `json:"adds"`
}

// UpdateMemberCategoryRequest is the payload for PUT /organizations/members/update.
type UpdateMemberCategoryRequest struct {
	UserID         string `json:"user_id" binding:"required,uuid"`
	OrganizationID string `json:"organization_id" binding:"required,uuid"`
	CategoryName   string `json:"category_name"`
}

// CancelInviteRequest binds the cancel-invite path parameters.
type CancelInviteRequest struct {
	OrganizationID string `uri:"id" binding:"required,uuid"`
	InviteID       string `uri:"invite_id" binding:"required,uuid"`
}

// UserRefResponse is a minimal user reference.
type UserRefResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// OrganizationResponse is the organization envelope.
type OrganizationResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Domain            string          `json:"domain,omitempty"`
	IsDomainOpen      bool            `json:"is_domain_open"`
	Type              string          `json:"type,omitempty"`
	Logo              string          `json:"logo,omitempty"`
	OrganizationAdmin UserRefResponse `json:"organization_admin"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MemberResponse is one member row. Roles is a list for wire compatibility
// but holds at most one elevated role.
type MemberResponse struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Name       string   `json:"name,omitempty"`
	Roles      []string `json:"roles"`
	Categories []string `json:"categories"`
}

// InvitationResponse is one pending member row.
type InvitationResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Status   string `json:"status"`
	UserRole string `json:"user_role"`
}

// CategoryResponse is one user category with its member references.
type CategoryResponse struct {
	ID           string            `json:"id"`
	CategoryName string            `json:"category_name"`
	Users        []UserRefResponse `json:"users"`
}

// DetailsResponse is the full membership graph returned on selection.
type DetailsResponse struct {
	OrganizationResponse
	Members        []MemberResponse     `json:"members"`
	PendingMembers []InvitationResponse `json:"pending_members"`
	Moderators     []UserRefResponse    `json:"moderators"`
	Editors        []UserRefResponse    `json:"editors"`
	UserCategories []CategoryResponse   `json:"user_categories"`
}

func NewOrganizationResponse(o *organization.Organization) OrganizationResponse {
	resp := OrganizationResponse{
		ID:           o.ID,
		Name:         o.Name,
		Domain:       o.Domain,
		IsDomainOpen: o.IsDomainOpen,
		Type:         o.Type,
		OrganizationAdmin: UserRefResponse{
			ID:    o.OwnerID,
			Email: o.OwnerEmail,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.LogoPath != nil {
		resp.Logo = *o.LogoPath
	}
	return resp
}

func NewMemberResponse(m *organization.Member) MemberResponse {
	resp := MemberResponse{
		ID:         m.UserID,
		Email:      m.Email,
		Roles:      make([]string, 0, 1),
		Categories: make([]string, 0, 1),
	}
	if m.Name != nil {
		resp.Name = *m.Name
	}
	if m.Role != organization.RoleMember {
		resp.Roles = append(resp.Roles, string(m.Role))
	}
	if m.Category != nil {
		resp.Categories = append(resp.Categories, *m.Category)
	}
	return resp
}

func NewInvitationResponse(inv *organization.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:       inv.ID,
		Email:    inv.Email,
		Status:   string(inv.Status),
		UserRole: string(inv.Role),
	}
}

func NewCategoryResponse(cat *organization.Category) CategoryResponse {
	users := make([]UserRefResponse, 0, len(cat.Users))
	for _, u := range cat.Users {
		users = append(users, UserRefResponse{ID: u.ID, Email: u.Email})
	}
	return CategoryResponse{
		ID:           cat.ID,
		CategoryName: cat.Name,
		Users:        users,
	}
}

func newUserRefResponses(refs []organization.UserRef) []UserRefResponse {
	out := make([]UserRefResponse, 0, len(refs))
	for _, r := range refs {
		out = append(out, UserRefResponse{ID: r.ID, Email: r.Email})
	}
	return out
}

func NewDetailsResponse(d *organization.Details) DetailsResponse {
	resp := DetailsResponse{
		OrganizationResponse: NewOrganizationResponse(d.Organization),
		Members:              make([]MemberResponse, 0, len(d.Members)),
		PendingMembers:       make([]InvitationResponse, 0, len(d.PendingMembers)),
		Moderators:           newUserRefResponses(d.Moderators()),
		Editors:              newUserRefResponses(d.Editors()),
		UserCategories:       make([]CategoryResponse, 0, len(d.Categories)),
	}
	for _, m := range d.Members {
		resp.Members = append(resp.Members, NewMemberResponse(m))
	}
	for _, inv := range d.PendingMembers {
		resp.PendingMembers = append(resp.PendingMembers, NewInvitationResponse(inv))
	}
	for _, cat := range d.Categories {
		resp.UserCategories = append(resp.UserCategories, NewCategoryResponse(cat))
	}
	return resp
}
