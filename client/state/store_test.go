package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/invite"
	"github.com/sessionshare/session-share/client/state"
)

func selectedOrg() *client.OrganizationDetails {
	return &client.OrganizationDetails{
		Organization: client.Organization{
			ID:                "org-1",
			Name:              "Corp",
			OrganizationAdmin: client.UserRef{ID: "u-owner", Email: "owner@x.com"},
		},
		Members: []client.Member{
			{ID: "u-owner", Email: "owner@x.com", Roles: []string{client.RoleOwner}},
			{ID: "u-bob", Email: "bob@x.com", Roles: []string{}, Categories: []string{"Design"}},
			{ID: "u-mod", Email: "mod@x.com", Roles: []string{client.RoleModerator}},
		},
		PendingMembers: []client.Invitation{
			{ID: "inv-1", Email: "new@x.com", Status: "pending", UserRole: client.RoleMember},
		},
		Moderators: []client.UserRef{{ID: "u-mod", Email: "mod@x.com"}},
		Editors:    []client.UserRef{},
		UserCategories: []client.Category{
			{ID: "cat-1", CategoryName: "Design", Users: []client.UserRef{{ID: "u-bob", Email: "bob@x.com"}}},
		},
	}
}

func TestSignInAndOut(t *testing.T) {
	store := state.NewStore(state.NewMemoryStorage())

	store.Dispatch(state.SignedIn{
		User:  client.User{ID: "u-bob", Email: "bob@x.com"},
		Token: "token-1",
	})
	store.Dispatch(state.OrganizationSelected{Details: selectedOrg()})
	store.Dispatch(state.InviteCaptured{Capture: invite.Capture{Code: "code-1"}})

	st := store.State()
	assert.True(t, st.Auth.Authenticated)
	assert.Equal(t, "token-1", st.Auth.Token)
	require.NotNil(t, st.Organization.Selected)
	assert.True(t, st.Invite.Captured())

	// Signing out clears every slice.
	st = store.Dispatch(state.SignedOut{})
	assert.False(t, st.Auth.Authenticated)
	assert.Nil(t, st.Organization.Selected)
	assert.False(t, st.Invite.Captured())
}

func TestMemberRoleChangeRebuildsRoleLists(t *testing.T) {
	store := state.NewStore(nil)
	store.Dispatch(state.OrganizationSelected{Details: selectedOrg()})

	// Promote bob to editor.
	st := store.Dispatch(state.MemberRoleChanged{UserID: "u-bob", Role: client.RoleEditor})
	sel := st.Organization.Selected
	require.NotNil(t, sel)
	require.Len(t, sel.Editors, 1)
	assert.Equal(t, "u-bob", sel.Editors[0].ID)

	// Promote bob to moderator; editor entry must disappear.
	st = store.Dispatch(state.MemberRoleChanged{UserID: "u-bob", Role: client.RoleModerator})
	sel = st.Organization.Selected
	assert.Empty(t, sel.Editors)
	require.Len(t, sel.Moderators, 2)

	// Demote back to plain member.
	st = store.Dispatch(state.MemberRoleChanged{UserID: "u-bob", Role: client.RoleMember})
	sel = st.Organization.Selected
	require.Len(t, sel.Moderators, 1)
	assert.Equal(t, "u-mod", sel.Moderators[0].ID)
	for _, m := range sel.Members {
		if m.ID == "u-bob" {
			assert.Equal(t, client.RoleMember, m.Role())
		}
	}
}

func TestPromoteSequenceKeepsOnlyLatestRole(t *testing.T) {
	store := state.NewStore(nil)
	details := selectedOrg()
	store.Dispatch(state.OrganizationSelected{Details: details})

	store.Dispatch(state.MemberRoleChanged{UserID: "u-bob", Role: client.RoleModerator})
	st := store.Dispatch(state.MemberRoleChanged{UserID: "u-bob", Role: client.RoleEditor})

	sel := st.Organization.Selected
	require.NotNil(t, sel)
	require.Len(t, sel.Editors, 1)
	assert.Equal(t, "u-bob", sel.Editors[0].ID)
	for _, ref := range sel.Moderators {
		assert.NotEqual(t, "u-bob", ref.ID)
	}

	// Selection is a deep copy; the snapshot handed in stays untouched.
	assert.Empty(t, details.Members[1].Roles)
}

func TestMemberRemovedFiltersEverywhere(t *testing.T) {
	store := state.NewStore(nil)
	store.Dispatch(state.OrganizationSelected{Details: selectedOrg()})

	st := store.Dispatch(state.MemberRemoved{UserID: "u-mod"})
	sel := st.Organization.Selected
	require.NotNil(t, sel)
	assert.Len(t, sel.Members, 2)
	assert.Empty(t, sel.Moderators)
}

func TestInvitationReconciliation(t *testing.T) {
	store := state.NewStore(nil)
	store.Dispatch(state.OrganizationSelected{Details: selectedOrg()})

	st := store.Dispatch(state.InvitationAppended{
		Invitation: client.Invitation{ID: "inv-2", Email: "more@x.com", Status: "pending"},
	})
	assert.Len(t, st.Organization.Selected.PendingMembers, 2)

	st = store.Dispatch(state.InvitationRemoved{ID: "inv-1"})
	require.Len(t, st.Organization.Selected.PendingMembers, 1)
	assert.Equal(t, "inv-2", st.Organization.Selected.PendingMembers[0].ID)
}

func TestCategoryReconciliation(t *testing.T) {
	store := state.NewStore(nil)
	store.Dispatch(state.OrganizationSelected{Details: selectedOrg()})

	st := store.Dispatch(state.CategoriesReplaced{Categories: []client.Category{
		{ID: "cat-2", CategoryName: "Sales"},
	}})
	require.Len(t, st.Organization.Selected.UserCategories, 1)
	assert.Equal(t, "Sales", st.Organization.Selected.UserCategories[0].CategoryName)

	st = store.Dispatch(state.MemberCategoryChanged{UserID: "u-bob", CategoryName: "Sales"})
	for _, m := range st.Organization.Selected.Members {
		if m.ID == "u-bob" {
			assert.Equal(t, []string{"Sales"}, m.Categories)
		}
	}

	st = store.Dispatch(state.MemberCategoryChanged{UserID: "u-bob", CategoryName: ""})
	for _, m := range st.Organization.Selected.Members {
		if m.ID == "u-bob" {
			assert.Empty(t, m.Categories)
		}
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := state.State{Organization: state.OrganizationState{Selected: selectedOrg()}}

	after := state.Reduce(before, state.MemberRemoved{UserID: "u-bob"})

	assert.Len(t, before.Organization.Selected.Members, 3)
	assert.Len(t, after.Organization.Selected.Members, 2)
}

func TestPersistAndRehydrate(t *testing.T) {
	storage := state.NewMemoryStorage()

	store := state.NewStore(storage)
	store.Dispatch(state.SignedIn{User: client.User{ID: "u-bob", Email: "bob@x.com"}, Token: "token-1"})
	store.Dispatch(state.OrganizationSelected{Details: selectedOrg()})
	store.Dispatch(state.InviteCaptured{Capture: invite.Capture{Code: "code-1", Email: "bob@x.com"}})

	// A fresh store over the same storage resumes the session.
	revived := state.NewStore(storage)
	st := revived.State()
	assert.True(t, st.Auth.Authenticated)
	assert.Equal(t, "token-1", st.Auth.Token)
	require.NotNil(t, st.Organization.Selected)
	assert.Equal(t, "org-1", st.Organization.Selected.ID)
	assert.Equal(t, "code-1", st.Invite.Code)
}

func TestRehydrateFromFile(t *testing.T) {
	dir := t.TempDir()

	storage, err := state.NewFileStorage(dir)
	require.NoError(t, err)

	store := state.NewStore(storage)
	store.Dispatch(state.SignedIn{User: client.User{ID: "u-bob"}, Token: "token-1"})

	reopened, err := state.NewFileStorage(dir)
	require.NoError(t, err)
	revived := state.NewStore(reopened)
	assert.Equal(t, "token-1", revived.State().Auth.Token)
}

func TestCorruptSnapshotDiscarded(t *testing.T) {
	storage := state.NewMemoryStorage()
	require.NoError(t, storage.Set("session-share.state", []byte("{not json")))

	store := state.NewStore(storage)
	assert.Equal(t, state.State{}, store.State())
}
