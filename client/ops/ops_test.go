package ops_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/invite"
	"github.com/sessionshare/session-share/client/ops"
	"github.com/sessionshare/session-share/client/state"
)

// fakeAPI records calls and serves canned responses.
type fakeAPI struct {
	calls []string
	err   error

	session     *client.Session
	details     *client.OrganizationDetails
	invitations []client.Invitation
	categories  []client.Category
	accepted    *client.AcceptedInvite
	me          *client.User
}

func (f *fakeAPI) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeAPI) Login(context.Context, string, string) (*client.Session, error) {
	if err := f.record("login"); err != nil {
		return nil, err
	}
	return f.session, nil
}

func (f *fakeAPI) Register(context.Context, string, string, string) (*client.Session, error) {
	if err := f.record("register"); err != nil {
		return nil, err
	}
	return f.session, nil
}

func (f *fakeAPI) GoogleAuth(context.Context, string) (*client.Session, error) {
	if err := f.record("google-auth"); err != nil {
		return nil, err
	}
	return f.session, nil
}

func (f *fakeAPI) Logout(context.Context) error { return f.record("logout") }

func (f *fakeAPI) Me(context.Context) (*client.User, error) {
	if err := f.record("me"); err != nil {
		return nil, err
	}
	if f.me == nil {
		return nil, errors.New("no identity")
	}
	return f.me, nil
}

func (f *fakeAPI) AcceptInvite(context.Context, string) (*client.AcceptedInvite, error) {
	if err := f.record("accept-invite"); err != nil {
		return nil, err
	}
	return f.accepted, nil
}

func (f *fakeAPI) Organization(context.Context, string) (*client.OrganizationDetails, error) {
	if err := f.record("organization"); err != nil {
		return nil, err
	}
	return f.details, nil
}

func (f *fakeAPI) Invite(context.Context, string, []client.InviteEntry) ([]client.Invitation, error) {
	if err := f.record("invite"); err != nil {
		return nil, err
	}
	return f.invitations, nil
}

func (f *fakeAPI) CancelInvite(context.Context, string, string) error {
	return f.record("cancel-invite")
}

func (f *fakeAPI) AddModerator(context.Context, string, string) error {
	return f.record("add-moderator")
}

func (f *fakeAPI) RemoveModerator(context.Context, string, string) error {
	return f.record("remove-moderator")
}

func (f *fakeAPI) AddEditor(context.Context, string, string) error {
	return f.record("add-editor")
}

func (f *fakeAPI) RemoveEditor(context.Context, string, string) error {
	return f.record("remove-editor")
}

func (f *fakeAPI) RemoveMember(context.Context, string, string) error {
	return f.record("remove-member")
}

func (f *fakeAPI) UpdateCategories(context.Context, string, client.CategoryDiff) ([]client.Category, error) {
	if err := f.record("update-categories"); err != nil {
		return nil, err
	}
	return f.categories, nil
}

func (f *fakeAPI) UpdateMemberCategory(context.Context, string, string, string) error {
	return f.record("update-member-category")
}

func testDetails() *client.OrganizationDetails {
	return &client.OrganizationDetails{
		Organization: client.Organization{
			ID:                "org-1",
			Name:              "Corp",
			OrganizationAdmin: client.UserRef{ID: "u-owner", Email: "owner@x.com"},
		},
		Members: []client.Member{
			{ID: "u-owner", Email: "owner@x.com", Roles: []string{client.RoleOwner}},
			{ID: "u-bob", Email: "bob@x.com", Roles: []string{}},
		},
		PendingMembers: []client.Invitation{},
		UserCategories: []client.Category{
			{ID: "cat-1", CategoryName: "Design"},
		},
	}
}

func newFixture(api *fakeAPI) (*ops.Operations, *state.Store) {
	store := state.NewStore(nil)
	if api.details != nil {
		store.Dispatch(state.OrganizationSelected{Details: api.details})
	}
	return ops.New(api, store), store
}

func TestSignInStoresSession(t *testing.T) {
	api := &fakeAPI{session: &client.Session{
		User:  client.User{ID: "u-bob", Email: "bob@x.com"},
		Token: "token-1",
	}}
	operations, store := newFixture(api)

	require.NoError(t, operations.SignIn(context.Background(), "bob@x.com", "secret"))

	st := store.State()
	assert.True(t, st.Auth.Authenticated)
	assert.Equal(t, "token-1", st.Auth.Token)
}

func TestFailedSignInLeavesStateUntouched(t *testing.T) {
	api := &fakeAPI{err: errors.New("invalid credentials")}
	operations, store := newFixture(api)

	require.Error(t, operations.SignIn(context.Background(), "bob@x.com", "wrong"))
	assert.False(t, store.State().Auth.Authenticated)
}

func TestInviteAppendsPendingMembers(t *testing.T) {
	api := &fakeAPI{
		details: testDetails(),
		invitations: []client.Invitation{
			{ID: "inv-1", Email: "new@x.com", Status: "pending", UserRole: client.RoleMember},
		},
	}
	operations, store := newFixture(api)

	err := operations.InviteMembers(context.Background(), []client.InviteEntry{
		{Email: "new@x.com", Role: client.RoleMember},
	})
	require.NoError(t, err)

	pending := store.State().Organization.Selected.PendingMembers
	require.Len(t, pending, 1)
	assert.Equal(t, "inv-1", pending[0].ID)
}

func TestInviteRejectsMalformedEmailBeforeRequest(t *testing.T) {
	api := &fakeAPI{details: testDetails()}
	operations, store := newFixture(api)
	before := store.State()

	for _, email := range []string{"", "   ", "not-an-email", "a@b@c", "new@x.com, extra@x.com"} {
		err := operations.InviteMembers(context.Background(), []client.InviteEntry{
			{Email: email, Role: client.RoleMember},
		})
		require.ErrorIs(t, err, ops.ErrInvalidEmail, "email %q", email)
	}

	// Nothing was sent and nothing changed locally.
	assert.Empty(t, api.calls)
	assert.Equal(t, before, store.State())
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	api := &fakeAPI{details: testDetails(), err: errors.New("server says no")}
	operations, store := newFixture(api)
	before := store.State()

	require.Error(t, operations.Promote(context.Background(), "u-bob", "bob@x.com", client.RoleEditor))
	require.Error(t, operations.RemoveMember(context.Background(), "u-bob"))

	assert.Equal(t, before, store.State())
}

func TestPromoteReconcilesLocally(t *testing.T) {
	api := &fakeAPI{details: testDetails()}
	operations, store := newFixture(api)

	require.NoError(t, operations.Promote(context.Background(), "u-bob", "bob@x.com", client.RoleEditor))
	assert.Equal(t, []string{"add-editor"}, api.calls)

	sel := store.State().Organization.Selected
	require.Len(t, sel.Editors, 1)
	assert.Equal(t, "u-bob", sel.Editors[0].ID)

	require.NoError(t, operations.Demote(context.Background(), "u-bob", "bob@x.com", client.RoleEditor))
	sel = store.State().Organization.Selected
	assert.Empty(t, sel.Editors)
}

func TestPromoteToOwnerRejectedLocally(t *testing.T) {
	api := &fakeAPI{details: testDetails()}
	operations, _ := newFixture(api)

	err := operations.Promote(context.Background(), "u-bob", "bob@x.com", client.RoleOwner)
	require.Error(t, err)
	assert.Empty(t, api.calls)
}

func TestDuplicateCategoryRejectedBeforeRequest(t *testing.T) {
	api := &fakeAPI{details: testDetails()}
	operations, _ := newFixture(api)

	err := operations.UpdateCategories(context.Background(), client.CategoryDiff{
		Adds: []string{"design"},
	})
	require.ErrorIs(t, err, ops.ErrDuplicateCategory)

	// The collision is caught locally; no request is sent.
	assert.Empty(t, api.calls)
}

func TestUpdateCategoriesReplacesList(t *testing.T) {
	api := &fakeAPI{
		details: testDetails(),
		categories: []client.Category{
			{ID: "cat-1", CategoryName: "Design"},
			{ID: "cat-2", CategoryName: "Sales"},
		},
	}
	operations, store := newFixture(api)

	err := operations.UpdateCategories(context.Background(), client.CategoryDiff{Adds: []string{"Sales"}})
	require.NoError(t, err)

	got := store.State().Organization.Selected.UserCategories
	require.Len(t, got, 2)
	assert.Equal(t, "Sales", got[1].CategoryName)
}

func TestAcceptInviteConsumesAndSelects(t *testing.T) {
	api := &fakeAPI{
		details:  testDetails(),
		accepted: &client.AcceptedInvite{OrganizationID: "org-1", OrganizationName: "Corp"},
		me: &client.User{ID: "u-bob", Email: "bob@x.com", Organizations: []client.OrganizationBrief{
			{ID: "org-1", Name: "Corp", Role: client.RoleMember},
		}},
	}
	store := state.NewStore(nil)
	store.Dispatch(state.SignedIn{User: client.User{ID: "u-bob", Email: "bob@x.com"}, Token: "token-1"})
	store.Dispatch(state.InviteCaptured{Capture: invite.Capture{Code: "code-1", Email: "bob@x.com"}})
	operations := ops.New(api, store)

	require.NoError(t, operations.AcceptInvite(context.Background()))

	st := store.State()
	assert.False(t, st.Invite.Captured())
	require.NotNil(t, st.Organization.Selected)
	assert.Equal(t, "org-1", st.Organization.Selected.ID)
	require.NotNil(t, st.Auth.User)
	assert.Len(t, st.Auth.User.Organizations, 1)
	assert.Equal(t, "token-1", st.Auth.Token)
}

func TestAcceptInviteWithoutCapture(t *testing.T) {
	api := &fakeAPI{}
	operations, _ := newFixture(api)

	require.Error(t, operations.AcceptInvite(context.Background()))
	assert.Empty(t, api.calls)
}

func TestResendInviteLeavesStateUntouched(t *testing.T) {
	api := &fakeAPI{details: testDetails(), invitations: []client.Invitation{
		{ID: "inv-1", Email: "new@x.com", Status: "pending"},
	}}
	operations, store := newFixture(api)
	before := store.State()

	require.NoError(t, operations.ResendInvite(context.Background(), "new@x.com", client.RoleMember))
	assert.Equal(t, []string{"invite"}, api.calls)
	assert.Equal(t, before, store.State())
}

func TestSetMemberCategoryNoneClearsLocally(t *testing.T) {
	api := &fakeAPI{details: testDetails()}
	operations, store := newFixture(api)

	require.NoError(t, operations.SetMemberCategory(context.Background(), "u-bob", "Design"))
	require.NoError(t, operations.SetMemberCategory(context.Background(), "u-bob", "none"))

	for _, m := range store.State().Organization.Selected.Members {
		if m.ID == "u-bob" {
			assert.Empty(t, m.Categories)
		}
	}
}
