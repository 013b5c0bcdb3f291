package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/policy"
)

func testOrg() *client.OrganizationDetails {
	return &client.OrganizationDetails{
		Organization: client.Organization{
			ID:                "org-1",
			OrganizationAdmin: client.UserRef{ID: "u-owner", Email: "owner@x.com"},
		},
		Moderators: []client.UserRef{{ID: "u-mod", Email: "mod@x.com"}},
		Editors:    []client.UserRef{{ID: "u-ed", Email: "ed@x.com"}},
	}
}

func TestDerive(t *testing.T) {
	org := testOrg()

	assert.Equal(t, policy.Policy{IsAdmin: true}, policy.Derive("u-owner", org))
	assert.Equal(t, policy.Policy{IsModerator: true}, policy.Derive("u-mod", org))
	assert.Equal(t, policy.Policy{IsEditor: true}, policy.Derive("u-ed", org))
	assert.Equal(t, policy.Policy{}, policy.Derive("u-plain", org))
	assert.Equal(t, policy.Policy{}, policy.Derive("", org))
	assert.Equal(t, policy.Policy{}, policy.Derive("u-owner", nil))
}

func TestRolePriority(t *testing.T) {
	assert.Equal(t, client.RoleOwner, policy.Policy{IsAdmin: true, IsModerator: true}.Role())
	assert.Equal(t, client.RoleModerator, policy.Policy{IsModerator: true, IsEditor: true}.Role())
	assert.Equal(t, client.RoleEditor, policy.Policy{IsEditor: true}.Role())
	assert.Equal(t, client.RoleMember, policy.Policy{}.Role())
}

func TestElevated(t *testing.T) {
	assert.True(t, policy.Policy{IsAdmin: true}.Elevated())
	assert.True(t, policy.Policy{IsModerator: true}.Elevated())
	assert.True(t, policy.Policy{IsEditor: true}.Elevated())
	assert.False(t, policy.Policy{}.Elevated())
}

func TestCanManage(t *testing.T) {
	admin := policy.Policy{IsAdmin: true}
	mod := policy.Policy{IsModerator: true}
	editor := policy.Policy{IsEditor: true}

	// Nobody may act on the owner.
	assert.False(t, admin.CanManage(client.RoleOwner))
	assert.False(t, mod.CanManage(client.RoleOwner))

	assert.True(t, admin.CanManage(client.RoleModerator))
	assert.True(t, admin.CanManage(client.RoleEditor))
	assert.True(t, admin.CanManage(client.RoleMember))

	// A moderator acts on members and editors only, never on peers.
	assert.False(t, mod.CanManage(client.RoleModerator))
	assert.True(t, mod.CanManage(client.RoleEditor))
	assert.True(t, mod.CanManage(client.RoleMember))

	assert.False(t, editor.CanManage(client.RoleMember))
}
