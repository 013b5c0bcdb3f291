package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sessionshare/session-share/internal/auth"
	"github.com/sessionshare/session-share/internal/pkg/mailer"
)

const resetTokenTTL = time.Hour

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, email, password, displayName string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GoogleLogin(ctx context.Context, idToken string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Me(ctx context.Context, id string) (*User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword string) error
}

type service struct {
	repo     Repository
	hasher   auth.PasswordHasher
	verifier auth.GoogleVerifier
	mail     mailer.Mailer

	resetBaseURL      string
	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher, verifier auth.GoogleVerifier, mail mailer.Mailer, resetBaseURL string) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		verifier:          verifier,
		mail:              mail,
		resetBaseURL:      strings.TrimRight(resetBaseURL, "/"),
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" {
		return nil, fmt.Errorf("email is required")
	}

	if len(password) < s.minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", s.minPasswordLength)
	}

	// Check if email is already used.
	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var displayNamePtr *string
	if strings.TrimSpace(displayName) != "" {
		d := strings.TrimSpace(displayName)
		displayNamePtr = &d
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  displayNamePtr,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	u.Organizations = make([]OrganizationBrief, 0)
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.touchLastLogin(ctx, u.ID)
	return s.withOrganizations(ctx, u)
}

// GoogleLogin verifies a Google ID token and signs the user in,
// creating the account on first sign-in.
func (s *service) GoogleLogin(ctx context.Context, idToken string) (*User, error) {
	if s.verifier == nil {
		return nil, fmt.Errorf("google sign-in is not configured")
	}

	profile, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, normalizeEmail(profile.Email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to fetch user by email: %w", err)
		}

		// First Google sign-in: create the account. The random password is
		// never disclosed; password login stays possible via reset.
		hash, hashErr := s.hasher.Hash(uuid.NewString())
		if hashErr != nil {
			return nil, fmt.Errorf("failed to hash generated password: %w", hashErr)
		}

		var displayNamePtr *string
		if profile.Name != "" {
			name := profile.Name
			displayNamePtr = &name
		}

		u = &User{
			Email:        normalizeEmail(profile.Email),
			PasswordHash: hash,
			DisplayName:  displayNamePtr,
			IsActive:     true,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	s.touchLastLogin(ctx, u.ID)
	return s.withOrganizations(ctx, u)
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

// Me returns the identity payload including the organization list.
func (s *service) Me(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withOrganizations(ctx, u)
}

// ForgotPassword issues a one-time reset token and mails the reset link.
// Unknown emails are ignored so the endpoint does not leak which addresses
// have accounts.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to fetch user by email: %w", err)
	}

	token := &ResetToken{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: time.Now().UTC().Add(resetTokenTTL),
	}
	if err := s.repo.CreateResetToken(ctx, token); err != nil {
		return err
	}

	params := url.Values{}
	params.Set("token", token.Token)
	params.Set("email", u.Email)
	link := fmt.Sprintf("%s/reset-password?%s", s.resetBaseURL, params.Encode())
	body := fmt.Sprintf("A password reset was requested for your account.\n\nReset your password: %s\n\nThe link expires in one hour. If you did not request this, ignore this mail.", link)

	if err := s.mail.Send(ctx, u.Email, "Reset your Session Share password", body); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *service) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if len(newPassword) < s.minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", s.minPasswordLength)
	}

	t, err := s.repo.GetResetToken(ctx, token)
	if err != nil {
		return err
	}
	if time.Now().UTC().After(t.ExpiresAt) {
		return ErrInvalidResetToken
	}

	u, err := s.repo.GetByID(ctx, t.UserID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(u.Email, strings.TrimSpace(email)) {
		return ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	// The token is single use.
	if err := s.repo.DeleteResetToken(ctx, token); err != nil {
		log.Printf("[user] failed to delete used reset token: %v", err)
	}
	return nil
}

func (s *service) withOrganizations(ctx context.Context, u *User) (*User, error) {
	orgs, err := s.repo.ListOrganizations(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	u.Organizations = orgs
	return u, nil
}

func (s *service) touchLastLogin(ctx context.Context, id string) {
	// Best effort; a failed timestamp update must not fail the login.
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, id, now); err != nil {
		log.Printf("[user] failed to update last login: %v", err)
	}
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
