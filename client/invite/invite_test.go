package invite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sessionshare/session-share/client/invite"
)

func TestFirstCaptureWins(t *testing.T) {
	var s invite.State
	assert.False(t, s.Captured())

	s = invite.Apply(s, invite.Capture{Code: "code-1", Email: "bob@x.com", OrganizationID: "org-1"})
	assert.True(t, s.Captured())
	assert.Equal(t, "code-1", s.Code)

	// A second capture while one is held is ignored.
	s = invite.Apply(s, invite.Capture{Code: "code-2", Email: "eve@x.com", OrganizationID: "org-2"})
	assert.Equal(t, "code-1", s.Code)
	assert.Equal(t, "bob@x.com", s.Email)
}

func TestEmptyCaptureIgnored(t *testing.T) {
	s := invite.Apply(invite.State{}, invite.Capture{Email: "bob@x.com"})
	assert.False(t, s.Captured())
}

func TestConsumeClearsEverything(t *testing.T) {
	s := invite.Apply(invite.State{}, invite.Capture{Code: "code-1", Email: "bob@x.com"})
	s = invite.Consume(s)

	assert.False(t, s.Captured())
	assert.Equal(t, invite.State{}, s)

	// A new capture after consuming works again.
	s = invite.Apply(s, invite.Capture{Code: "code-2"})
	assert.Equal(t, "code-2", s.Code)
}
