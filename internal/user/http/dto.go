package http

import (
	"time"

	"github.com/sessionshare/session-share/internal/organization"
	"github.com/sessionshare/session-share/internal/user"
)

// RegisterRequest is the payload for POST /users/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// LoginRequest is the payload for POST /users/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleAuthRequest is the payload for POST /users/google-auth.
type GoogleAuthRequest struct {
	Token string `json:"token" binding:"required"`
}

// ForgotPasswordRequest is the payload for POST /users/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the payload for POST /users/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// AcceptInviteRequest is the payload for POST /users/accept-invite.
type AcceptInviteRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

// UserResponse is the identity payload returned on login/register/me.
type UserResponse struct {
	ID            string                   `json:"id"`
	Email         string                   `json:"email"`
	Name          string                   `json:"name,omitempty"`
	Organizations []user.OrganizationBrief `json:"organizations"`
	CreatedAt     time.Time                `json:"created_at"`
}

// SessionResponse wraps the identity payload with the issued token.
// The token is also set as an HTTP-only cookie; it is echoed in the body
// for non-browser clients.
type SessionResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// InvitationInfoResponse is the public invitation lookup payload used to
// pre-fill the auth forms.
type InvitationInfoResponse struct {
	Email            string `json:"email"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	Role             string `json:"role"`
}

// AcceptInviteResponse confirms the joined organization.
type AcceptInviteResponse struct {
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

func NewUserResponse(u *user.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Organizations: u.Organizations,
		CreatedAt:     u.CreatedAt,
	}
	if u.DisplayName != nil {
		resp.Name = *u.DisplayName
	}
	if resp.Organizations == nil {
		resp.Organizations = make([]user.OrganizationBrief, 0)
	}
	return resp
}

func NewInvitationInfoResponse(inv *organization.Invitation, orgName string) InvitationInfoResponse {
	return InvitationInfoResponse{
		Email:            inv.Email,
		OrganizationID:   inv.OrganizationID,
		OrganizationName: orgName,
		Role:             string(inv.Role),
	}
}
