package state

import (
	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/invite"
)

// Reduce applies an action to the state and returns the next state. It
// is a pure function; the input state is never modified.
func Reduce(s State, action Action) State {
	s.Auth = reduceAuth(s.Auth, action)
	s.Organization = reduceOrganization(s.Organization, action)
	s.Invite = reduceInvite(s.Invite, action)

	// Signing out drops every other slice as well.
	if _, ok := action.(SignedOut); ok {
		s.Organization = OrganizationState{}
		s.Invite = invite.State{}
	}
	return s
}

func reduceAuth(s AuthState, action Action) AuthState {
	switch a := action.(type) {
	case SignedIn:
		u := a.User
		return AuthState{User: &u, Token: a.Token, Authenticated: true}
	case SignedOut:
		return AuthState{}
	default:
		return s
	}
}

func reduceInvite(s invite.State, action Action) invite.State {
	switch a := action.(type) {
	case InviteCaptured:
		return invite.Apply(s, a.Capture)
	case InviteConsumed:
		return invite.Consume(s)
	default:
		return s
	}
}

func reduceOrganization(s OrganizationState, action Action) OrganizationState {
	switch a := action.(type) {
	case OrganizationSelected:
		return OrganizationState{Selected: cloneDetails(a.Details)}
	case OrganizationCleared:
		return OrganizationState{}
	case InvitationAppended:
		return s.mutate(func(d *client.OrganizationDetails) {
			d.PendingMembers = append(d.PendingMembers, a.Invitation)
		})
	case InvitationRemoved:
		return s.mutate(func(d *client.OrganizationDetails) {
			kept := d.PendingMembers[:0]
			for _, inv := range d.PendingMembers {
				if inv.ID != a.ID {
					kept = append(kept, inv)
				}
			}
			d.PendingMembers = kept
		})
	case MemberRoleChanged:
		return s.mutate(func(d *client.OrganizationDetails) {
			for i := range d.Members {
				if d.Members[i].ID == a.UserID {
					if a.Role == "" || a.Role == client.RoleMember {
						d.Members[i].Roles = []string{}
					} else {
						d.Members[i].Roles = []string{a.Role}
					}
				}
			}
			rebuildRoleLists(d)
		})
	case MemberRemoved:
		return s.mutate(func(d *client.OrganizationDetails) {
			kept := d.Members[:0]
			for _, m := range d.Members {
				if m.ID != a.UserID {
					kept = append(kept, m)
				}
			}
			d.Members = kept
			rebuildRoleLists(d)
		})
	case CategoriesReplaced:
		return s.mutate(func(d *client.OrganizationDetails) {
			d.UserCategories = append([]client.Category(nil), a.Categories...)
		})
	case MemberCategoryChanged:
		return s.mutate(func(d *client.OrganizationDetails) {
			for i := range d.Members {
				if d.Members[i].ID == a.UserID {
					if a.CategoryName == "" {
						d.Members[i].Categories = []string{}
					} else {
						d.Members[i].Categories = []string{a.CategoryName}
					}
				}
			}
		})
	default:
		return s
	}
}

// mutate clones the selected organization, applies fn to the clone and
// returns the resulting slice. With no selection it is a no-op.
func (s OrganizationState) mutate(fn func(*client.OrganizationDetails)) OrganizationState {
	if s.Selected == nil {
		return s
	}
	clone := cloneDetails(s.Selected)
	fn(clone)
	return OrganizationState{Selected: clone}
}

// rebuildRoleLists recomputes the moderator and editor reference lists
// from the member rows so a role change never leaves a stale entry.
func rebuildRoleLists(d *client.OrganizationDetails) {
	d.Moderators = make([]client.UserRef, 0)
	d.Editors = make([]client.UserRef, 0)
	for _, m := range d.Members {
		ref := client.UserRef{ID: m.ID, Email: m.Email}
		switch m.Role() {
		case client.RoleModerator:
			d.Moderators = append(d.Moderators, ref)
		case client.RoleEditor:
			d.Editors = append(d.Editors, ref)
		}
	}
}

func cloneDetails(d *client.OrganizationDetails) *client.OrganizationDetails {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Members = make([]client.Member, len(d.Members))
	for i, m := range d.Members {
		m.Roles = append([]string(nil), m.Roles...)
		m.Categories = append([]string(nil), m.Categories...)
		clone.Members[i] = m
	}
	clone.PendingMembers = append([]client.Invitation(nil), d.PendingMembers...)
	clone.Moderators = append([]client.UserRef(nil), d.Moderators...)
	clone.Editors = append([]client.UserRef(nil), d.Editors...)
	clone.UserCategories = make([]client.Category, len(d.UserCategories))
	for i, cat := range d.UserCategories {
		cat.Users = append([]client.UserRef(nil), cat.Users...)
		clone.UserCategories[i] = cat
	}
	return &clone
}
