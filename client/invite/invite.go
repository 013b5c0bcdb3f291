// Package invite tracks an invitation captured from a signup link until
// it is consumed or dismissed.
package invite

// State is the invite capture state. The zero value is Empty.
type State struct {
	Code             string
	Email            string
	OrganizationID   string
	OrganizationName string
	Role             string
}

// Captured reports whether an invitation is currently held.
func (s State) Captured() bool {
	return s.Code != ""
}

// Capture is one invitation pulled from a signup link.
type Capture struct {
	Code             string
	Email            string
	OrganizationID   string
	OrganizationName string
	Role             string
}

// Apply captures an invitation. The first capture wins; a later capture
// while one is already held is a no-op.
func Apply(s State, c Capture) State {
	if s.Captured() || c.Code == "" {
		return s
	}
	return State{
		Code:             c.Code,
		Email:            c.Email,
		OrganizationID:   c.OrganizationID,
		OrganizationName: c.OrganizationName,
		Role:             c.Role,
	}
}

// Consume clears the held invitation. Called after a successful accept,
// an explicit dismissal, or when the accept screen is torn down.
func Consume(State) State {
	return State{}
}
