// Package policy derives the viewer's authority within an organization.
// The result drives navigation and control visibility only; the server
// re-validates every mutation, so nothing here is a trust boundary.
package policy

import (
	"github.com/sessionshare/session-share/client"
)

// Policy is the derived authority of one user within one organization.
// The flags are independent; Role() collapses them for display.
type Policy struct {
	IsAdmin     bool
	IsModerator bool
	IsEditor    bool
}

// Derive computes the policy for userID against the organization graph.
// It is a pure function and is recomputed whenever either input changes.
func Derive(userID string, org *client.OrganizationDetails) Policy {
	if org == nil || userID == "" {
		return Policy{}
	}

	p := Policy{
		IsAdmin: org.OrganizationAdmin.ID == userID,
	}
	for _, ref := range org.Moderators {
		if ref.ID == userID {
			p.IsModerator = true
			break
		}
	}
	for _, ref := range org.Editors {
		if ref.ID == userID {
			p.IsEditor = true
			break
		}
	}
	return p
}

// Role returns the single display role, highest authority first.
func (p Policy) Role() string {
	switch {
	case p.IsAdmin:
		return client.RoleOwner
	case p.IsModerator:
		return client.RoleModerator
	case p.IsEditor:
		return client.RoleEditor
	default:
		return client.RoleMember
	}
}

// Elevated reports whether the policy grants access to management views.
func (p Policy) Elevated() bool {
	return p.IsAdmin || p.IsModerator || p.IsEditor
}

// CanManage reports whether the viewer may promote, demote or remove a
// target holding targetRole. The owner is never a valid target and a
// moderator may only act on members and editors.
func (p Policy) CanManage(targetRole string) bool {
	if targetRole == client.RoleOwner {
		return false
	}
	if p.IsAdmin {
		return true
	}
	if p.IsModerator {
		return targetRole == client.RoleMember || targetRole == client.RoleEditor
	}
	return false
}
