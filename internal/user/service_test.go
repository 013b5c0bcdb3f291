package user_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionshare/session-share/internal/auth"
	"github.com/sessionshare/session-share/internal/pkg/mailer"
	"github.com/sessionshare/session-share/internal/user"
)

// fakeUserRepo is an in-memory user.Repository.
type fakeUserRepo struct {
	users  map[string]*user.User       // id -> user
	orgs   map[string][]user.OrganizationBrief
	tokens map[string]*user.ResetToken // token -> record
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*user.User),
		orgs:   make(map[string][]user.OrganizationBrief),
		tokens: make(map[string]*user.ResetToken),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailAlreadyUsed
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) ListOrganizations(_ context.Context, userID string) ([]user.OrganizationBrief, error) {
	return append([]user.OrganizationBrief{}, r.orgs[userID]...), nil
}

func (r *fakeUserRepo) CreateResetToken(_ context.Context, token *user.ResetToken) error {
	token.CreatedAt = time.Now().UTC()
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeUserRepo) GetResetToken(_ context.Context, token string) (*user.ResetToken, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, user.ErrInvalidResetToken
	}
	clone := *t
	return &clone, nil
}

func (r *fakeUserRepo) DeleteResetToken(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

// recordingMailer captures outbound mail.
type recordingMailer struct {
	to      []string
	subject []string
	body    []string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	m.body = append(m.body, body)
	return nil
}

func newTestService(repo user.Repository, mail mailer.Mailer) user.Service {
	// Low bcrypt cost keeps the tests fast.
	hasher := auth.NewBcryptPasswordHasherWithCost(4)
	return user.NewService(repo, hasher, nil, mail, "https://app.corp.test")
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, mailer.NoopMailer{})
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Alice@Example.COM ", "supersecret", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	require.NotNil(t, u.DisplayName)
	assert.Equal(t, "Alice", *u.DisplayName)
	assert.NotEqual(t, "supersecret", u.PasswordHash)

	logged, err := svc.Login(ctx, "alice@example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotNil(t, logged.Organizations)

	_, err = svc.Login(ctx, "alice@example.com", "wrongpass")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "supersecret")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, mailer.NoopMailer{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "supersecret", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ALICE@example.com", "othersecret", "")
	assert.ErrorIs(t, err, user.ErrEmailAlreadyUsed)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newTestService(newFakeUserRepo(), mailer.NoopMailer{})

	_, err := svc.Register(context.Background(), "alice@example.com", "short", "")
	require.Error(t, err)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, mailer.NoopMailer{})
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice@example.com", "supersecret", "")
	require.NoError(t, err)
	repo.users[u.ID].IsActive = false

	_, err = svc.Login(ctx, "alice@example.com", "supersecret")
	assert.ErrorIs(t, err, user.ErrInactiveUser)
}

func TestPasswordResetFlow(t *testing.T) {
	repo := newFakeUserRepo()
	mail := &recordingMailer{}
	svc := newTestService(repo, mail)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "supersecret", "")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	require.Len(t, mail.to, 1)
	assert.Equal(t, "alice@example.com", mail.to[0])

	require.Len(t, repo.tokens, 1)
	var token string
	for tok := range repo.tokens {
		token = tok
	}
	assert.Contains(t, mail.body[0], token)

	require.NoError(t, svc.ResetPassword(ctx, "alice@example.com", token, "newpassword"))

	_, err = svc.Login(ctx, "alice@example.com", "supersecret")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "alice@example.com", "newpassword")
	require.NoError(t, err)

	// The token is single use.
	err = svc.ResetPassword(ctx, "alice@example.com", token, "anotherpass")
	assert.ErrorIs(t, err, user.ErrInvalidResetToken)
}

func TestForgotPasswordHidesUnknownEmails(t *testing.T) {
	repo := newFakeUserRepo()
	mail := &recordingMailer{}
	svc := newTestService(repo, mail)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.Empty(t, mail.to)
	assert.Empty(t, repo.tokens)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, mailer.NoopMailer{})
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice@example.com", "supersecret", "")
	require.NoError(t, err)

	repo.tokens["stale"] = &user.ResetToken{
		Token:     "stale",
		UserID:    u.ID,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}

	err = svc.ResetPassword(ctx, "alice@example.com", "stale", "newpassword")
	assert.ErrorIs(t, err, user.ErrInvalidResetToken)
}

func TestResetPasswordRejectsEmailMismatch(t *testing.T) {
	repo := newFakeUserRepo()
	mail := &recordingMailer{}
	svc := newTestService(repo, mail)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "supersecret", "")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))

	var token string
	for tok := range repo.tokens {
		token = tok
	}

	err = svc.ResetPassword(ctx, "mallory@example.com", token, "newpassword")
	assert.ErrorIs(t, err, user.ErrInvalidResetToken)
}

func TestMeIncludesOrganizations(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo, mailer.NoopMailer{})
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice@example.com", "supersecret", "")
	require.NoError(t, err)
	repo.orgs[u.ID] = []user.OrganizationBrief{{ID: "org-1", Name: "Corp", Role: "owner"}}

	me, err := svc.Me(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, me.Organizations, 1)
	assert.Equal(t, "Corp", me.Organizations[0].Name)
}
