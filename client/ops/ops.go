// Package ops implements the client-side operations: each one is a
// single API exchange followed by a local reconciliation of the state
// store. A failed exchange leaves local state untouched; nothing is
// retried automatically.
package ops

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/invite"
	"github.com/sessionshare/session-share/client/state"
)

// ErrDuplicateCategory is raised locally, before any request is sent,
// when a category add or rename collides case-insensitively.
var ErrDuplicateCategory = errors.New("a category with this name already exists")

// ErrInvalidEmail is raised locally when an invite entry does not carry
// a well-formed address.
var ErrInvalidEmail = errors.New("invalid email address")

// API is the slice of the backend client the operations need.
type API interface {
	Login(ctx context.Context, email, password string) (*client.Session, error)
	Register(ctx context.Context, email, password, name string) (*client.Session, error)
	GoogleAuth(ctx context.Context, idToken string) (*client.Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*client.User, error)
	AcceptInvite(ctx context.Context, code string) (*client.AcceptedInvite, error)

	Organization(ctx context.Context, orgID string) (*client.OrganizationDetails, error)
	Invite(ctx context.Context, orgID string, entries []client.InviteEntry) ([]client.Invitation, error)
	CancelInvite(ctx context.Context, orgID, inviteID string) error
	AddModerator(ctx context.Context, orgID, email string) error
	RemoveModerator(ctx context.Context, orgID, email string) error
	AddEditor(ctx context.Context, orgID, email string) error
	RemoveEditor(ctx context.Context, orgID, email string) error
	RemoveMember(ctx context.Context, orgID, userID string) error
	UpdateCategories(ctx context.Context, orgID string, diff client.CategoryDiff) ([]client.Category, error)
	UpdateMemberCategory(ctx context.Context, orgID, userID, categoryName string) error
}

// Operations binds the API client to the state store.
type Operations struct {
	api   API
	store *state.Store
}

// New creates the operations facade.
func New(api API, store *state.Store) *Operations {
	return &Operations{api: api, store: store}
}

// SignIn authenticates and records the session.
func (o *Operations) SignIn(ctx context.Context, email, password string) error {
	session, err := o.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	o.store.Dispatch(state.SignedIn{User: session.User, Token: session.Token})
	return nil
}

// SignUp registers an account and records the session.
func (o *Operations) SignUp(ctx context.Context, email, password, name string) error {
	session, err := o.api.Register(ctx, email, password, name)
	if err != nil {
		return err
	}
	o.store.Dispatch(state.SignedIn{User: session.User, Token: session.Token})
	return nil
}

// SignInWithGoogle authenticates with a Google ID token.
func (o *Operations) SignInWithGoogle(ctx context.Context, idToken string) error {
	session, err := o.api.GoogleAuth(ctx, idToken)
	if err != nil {
		return err
	}
	o.store.Dispatch(state.SignedIn{User: session.User, Token: session.Token})
	return nil
}

// SignOut closes the session. Local state is cleared even when the
// server call fails; the token simply expires server-side.
func (o *Operations) SignOut(ctx context.Context) error {
	err := o.api.Logout(ctx)
	o.store.Dispatch(state.SignedOut{})
	return err
}

// SelectOrganization loads the membership graph and stores it.
func (o *Operations) SelectOrganization(ctx context.Context, orgID string) error {
	details, err := o.api.Organization(ctx, orgID)
	if err != nil {
		return err
	}
	o.store.Dispatch(state.OrganizationSelected{Details: details})
	return nil
}

// CaptureInvite stores an invitation pulled from a signup link. The
// first capture wins.
func (o *Operations) CaptureInvite(c invite.Capture) {
	o.store.Dispatch(state.InviteCaptured{Capture: c})
}

// DismissInvite clears a held invitation without accepting it.
func (o *Operations) DismissInvite() {
	o.store.Dispatch(state.InviteConsumed{})
}

// AcceptInvite consumes the held invitation, refreshes the identity and
// selects the joined organization. Accepting twice is harmless; the
// server short-circuits when the user is already a member.
func (o *Operations) AcceptInvite(ctx context.Context) error {
	held := o.store.State().Invite
	if !held.Captured() {
		return errors.New("no invitation captured")
	}

	accepted, err := o.api.AcceptInvite(ctx, held.Code)
	if err != nil {
		return err
	}
	o.store.Dispatch(state.InviteConsumed{})

	// Refresh the organization list on the identity; best-effort.
	if me, err := o.api.Me(ctx); err == nil {
		token := o.store.State().Auth.Token
		o.store.Dispatch(state.SignedIn{User: *me, Token: token})
	}

	return o.SelectOrganization(ctx, accepted.OrganizationID)
}

// InviteMembers sends invitations and appends the created pending rows.
// Malformed addresses are rejected before any request is sent.
func (o *Operations) InviteMembers(ctx context.Context, entries []client.InviteEntry) error {
	orgID, err := o.selectedOrgID()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := validateEmail(e.Email); err != nil {
			return err
		}
	}

	invitations, err := o.api.Invite(ctx, orgID, entries)
	if err != nil {
		return err
	}
	for _, inv := range invitations {
		o.store.Dispatch(state.InvitationAppended{Invitation: inv})
	}
	return nil
}

// ResendInvite re-sends the invitation mail. No local state changes.
func (o *Operations) ResendInvite(ctx context.Context, email, role string) error {
	orgID, err := o.selectedOrgID()
	if err != nil {
		return err
	}
	_, err = o.api.Invite(ctx, orgID, []client.InviteEntry{{Email: email, Role: role}})
	return err
}

// CancelInvite withdraws a pending invitation and drops it locally.
func (o *Operations) CancelInvite(ctx context.Context, inviteID string) error {
	orgID, err := o.selectedOrgID()
	if err != nil {
		return err
	}
	if err := o.api.CancelInvite(ctx, orgID, inviteID); err != nil {
		return err
	}
	o.store.Dispatch(state.InvitationRemoved{ID: inviteID})
	return nil
}

// Promote grants an elevated role to a member and reconciles locally.
// Promoting replaces any previous elevated role.
func (o *Operations) Promote(ctx context.Context, userID, email, role string) error {
	orgID, err := o.selectedOrgID()
	if err != nil {
		return err
	}

	switch role {
	case client.RoleModerator:
		err = o.api.AddModerator(ctx, orgID, email)
	case client.RoleEditor:
		err = o.api.AddEditor(ctx, orgID, email)
	default:
		return fmt.Errorf("cannot promote to role %q", role)
	}
	if err != nil {
		return err
	}

	o.store.Dispatch(state.MemberRoleChanged{UserID: userID, Role: role})
	return nil
}

// Demote clears an elevated role and reconciles locally.
func (o *Operations) Demote(ctx context.Context, userID, email, role string) error {
	orgID, err := o.selectedOrgID()
	if err != nil {
		return err
	}

	switch role {
	case client.RoleModerator:
		err = o.api.RemoveModerator(ctx, orgID, email)
	case client.RoleEditor:
		err = o.api.RemoveEditor(ctx, orgID, email)
	default:
		return fmt.Errorf("cannot demote from role %q", role)
	}
	if err != nil {
		return err
	}

	o.store.Dispatch(state.MemberRoleChanged{UserID: userID, Role: client.RoleMember})
	return nil
}

// RemoveMember removes a member and filters it out locally.
func (o *Operations) RemoveMember(ctx context.Context, userID string) error {
	orgID, err := o.selectedOrgID()
	if err != nil {
		return err
	}
	if err := o.api.RemoveMember(ctx, orgID, userID); err != nil {
		return err
	}
	o.store.Dispatch(state.MemberRemoved{UserID: userID})
	return nil
}

// UpdateCategories validates the diff locally, applies it server-side
// and replaces the category list with the server response.
func (o *Operations) UpdateCategories(ctx context.Context, diff client.CategoryDiff) error {
	orgID, err := o.selectedOrgID()
	if err != nil {
		return err
	}

	if sel := o.store.State().Organization.Selected; sel != nil {
		if err := validateCategoryDiff(sel.UserCategories, diff); err != nil {
			return err
		}
	}

	categories, err := o.api.UpdateCategories(ctx, orgID, diff)
	if err != nil {
		return err
	}
	o.store.Dispatch(state.CategoriesReplaced{Categories: categories})
	return nil
}

// SetMemberCategory assigns or clears a member's category label.
func (o *Operations) SetMemberCategory(ctx context.Context, userID, categoryName string) error {
	orgID, err := o.selectedOrgID()
	if err != nil {
		return err
	}
	if err := o.api.UpdateMemberCategory(ctx, orgID, userID, categoryName); err != nil {
		return err
	}

	local := categoryName
	if strings.EqualFold(local, "none") {
		local = ""
	}
	o.store.Dispatch(state.MemberCategoryChanged{UserID: userID, CategoryName: local})
	return nil
}

// validateEmail rejects addresses a mail parser would not accept.
func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: address is empty", ErrInvalidEmail)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

func (o *Operations) selectedOrgID() (string, error) {
	sel := o.store.State().Organization.Selected
	if sel == nil {
		return "", errors.New("no organization selected")
	}
	return sel.ID, nil
}

// validateCategoryDiff simulates the resulting name set and rejects the
// diff when any two names collide case-insensitively.
func validateCategoryDiff(existing []client.Category, diff client.CategoryDiff) error {
	deleted := make(map[string]bool, len(diff.Deletions))
	for _, id := range diff.Deletions {
		deleted[id] = true
	}
	renamed := make(map[string]string, len(diff.Renames))
	for _, r := range diff.Renames {
		renamed[r.ID] = r.Name
	}

	names := make(map[string]bool)
	add := func(name string) error {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return errors.New("category name is required")
		}
		if names[key] {
			return ErrDuplicateCategory
		}
		names[key] = true
		return nil
	}

	for _, cat := range existing {
		if deleted[cat.ID] {
			continue
		}
		name := cat.CategoryName
		if renamedName, ok := renamed[cat.ID]; ok {
			name = renamedName
		}
		if err := add(name); err != nil {
			return err
		}
	}
	for _, name := range diff.Adds {
		if err := add(name); err != nil {
			return err
		}
	}
	return nil
}
