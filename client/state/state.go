// Package state holds the application state of the client as a single
// store with pure reducers. Mutations go through Dispatch, which applies
// the matching reducer and persists a snapshot under one namespaced key
// so a restart resumes where the user left off.
package state

import (
	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/invite"
)

// AuthState is the session slice.
type AuthState struct {
	User          *client.User `json:"user,omitempty"`
	Token         string       `json:"token,omitempty"`
	Authenticated bool         `json:"authenticated"`
}

// OrganizationState is the selected-organization slice.
type OrganizationState struct {
	Selected *client.OrganizationDetails `json:"selected,omitempty"`
}

// State is the full application state.
type State struct {
	Auth         AuthState         `json:"auth"`
	Organization OrganizationState `json:"organization"`
	Invite       invite.State      `json:"invite"`
}

// Action is a state mutation request. Each concrete action is handled by
// exactly one slice reducer; unknown actions leave the state unchanged.
type Action interface {
	isAction()
}

// SignedIn records a successful login or registration.
type SignedIn struct {
	User  client.User
	Token string
}

// SignedOut clears the session and everything derived from it.
type SignedOut struct{}

// OrganizationSelected replaces the selected organization graph.
type OrganizationSelected struct {
	Details *client.OrganizationDetails
}

// OrganizationCleared drops the selected organization.
type OrganizationCleared struct{}

// InvitationAppended adds a pending invitation after a successful invite.
type InvitationAppended struct {
	Invitation client.Invitation
}

// InvitationRemoved drops a pending invitation after a cancel.
type InvitationRemoved struct {
	ID string
}

// MemberRoleChanged replaces a member's role after a promote or demote.
// An empty role demotes to plain member.
type MemberRoleChanged struct {
	UserID string
	Role   string
}

// MemberRemoved filters a member out of the selected organization.
type MemberRemoved struct {
	UserID string
}

// CategoriesReplaced swaps in the category list returned by the server.
type CategoriesReplaced struct {
	Categories []client.Category
}

// MemberCategoryChanged replaces a member's category label. An empty
// name clears it.
type MemberCategoryChanged struct {
	UserID       string
	CategoryName string
}

// InviteCaptured stores an invitation pulled from a signup link.
type InviteCaptured struct {
	Capture invite.Capture
}

// InviteConsumed clears the held invitation.
type InviteConsumed struct{}

func (SignedIn) isAction()              {}
func (SignedOut) isAction()             {}
func (OrganizationSelected) isAction()  {}
func (OrganizationCleared) isAction()   {}
func (InvitationAppended) isAction()    {}
func (InvitationRemoved) isAction()     {}
func (MemberRoleChanged) isAction()     {}
func (MemberRemoved) isAction()         {}
func (CategoriesReplaced) isAction()    {}
func (MemberCategoryChanged) isAction() {}
func (InviteCaptured) isAction()        {}
func (InviteConsumed) isAction()        {}
