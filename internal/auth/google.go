package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleProfile holds the identity extracted from a verified Google ID token.
type GoogleProfile struct {
	Email string
	Name  string
}

// GoogleVerifier validates Google ID tokens for sign-in.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*GoogleProfile, error)
}

// GoogleIDTokenVerifier verifies tokens against Google's public keys.
type GoogleIDTokenVerifier struct {
	clientID string
}

// NewGoogleIDTokenVerifier creates a verifier bound to the given OAuth client ID.
func NewGoogleIDTokenVerifier(clientID string) *GoogleIDTokenVerifier {
	return &GoogleIDTokenVerifier{clientID: clientID}
}

// Verify validates the token signature and audience and returns the profile.
func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, token string) (*GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate google id token: %w", err)
	}

	profile := &GoogleProfile{}
	if email, ok := payload.Claims["email"].(string); ok {
		profile.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		profile.Name = name
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("google id token has no email claim")
	}

	return profile, nil
}
