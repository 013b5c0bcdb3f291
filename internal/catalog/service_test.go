package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionshare/session-share/internal/organization"
	"github.com/sessionshare/session-share/internal/pkg/apperror"
	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

// fakeRepo is an in-memory catalog repository.
type fakeRepo struct {
	services map[string]*Service
	keys     map[string]*Keys
	nextID   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		services: make(map[string]*Service),
		keys:     make(map[string]*Keys),
	}
}

func (r *fakeRepo) Create(_ context.Context, svc *Service) error {
	r.nextID++
	svc.ID = fmt.Sprintf("svc-%d", r.nextID)
	svc.CreatedAt = time.Now()
	svc.UpdatedAt = svc.CreatedAt
	cp := *svc
	r.services[svc.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, orgID string, serviceID string) (*Service, error) {
	svc, ok := r.services[serviceID]
	if !ok || svc.OrganizationID != orgID {
		return nil, ErrServiceNotFound
	}
	cp := *svc
	return &cp, nil
}

func (r *fakeRepo) ListByOrganization(_ context.Context, orgID string) ([]*Service, error) {
	out := make([]*Service, 0)
	for _, svc := range r.services {
		if svc.OrganizationID == orgID {
			cp := *svc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, svc *Service) error {
	if _, ok := r.services[svc.ID]; !ok {
		return ErrServiceNotFound
	}
	svc.UpdatedAt = time.Now()
	cp := *svc
	r.services[svc.ID] = &cp
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, orgID string, serviceID string) error {
	svc, ok := r.services[serviceID]
	if !ok || svc.OrganizationID != orgID {
		return ErrServiceNotFound
	}
	delete(r.services, serviceID)
	return nil
}

func (r *fakeRepo) GetKeys(_ context.Context, orgID string) (*Keys, error) {
	keys, ok := r.keys[orgID]
	if !ok {
		return nil, ErrKeysNotFound
	}
	return keys, nil
}

func (r *fakeRepo) CreateKeys(_ context.Context, keys *Keys) error {
	keys.CreatedAt = time.Now()
	r.keys[keys.OrganizationID] = keys
	return nil
}

// fakeOrgService answers RoleOf from a static map. Other methods are
// never reached by the catalog service.
type fakeOrgService struct {
	organization.Service
	roles map[string]organization.Role
}

func (f *fakeOrgService) RoleOf(_ context.Context, _ string, userID string) (organization.Role, error) {
	role, ok := f.roles[userID]
	if !ok {
		return "", organization.ErrNotMember
	}
	return role, nil
}

const testOrgID = "org-1"

func newTestService() (ManagerService, *fakeRepo) {
	repo := newFakeRepo()
	orgService := &fakeOrgService{roles: map[string]organization.Role{
		"u-owner":  organization.RoleOwner,
		"u-mod":    organization.RoleModerator,
		"u-editor": organization.RoleEditor,
		"u-member": organization.RoleMember,
	}}
	return NewService(repo, orgService, cookiecipher.New()), repo
}

func createReq() CreateServiceRequest {
	return CreateServiceRequest{
		Name:   "Tool",
		Domain: "tool.example",
		Cookies: []cookiecipher.Cookie{
			{Name: "sid", Value: "secret", Domain: ".tool.example"},
		},
		CookieTTL: time.Hour,
	}
}

func TestCreateSealsOpenableBundle(t *testing.T) {
	svcService, repo := newTestService()
	ctx := context.Background()

	svc, err := svcService.Create(ctx, testOrgID, "u-editor", createReq())
	require.NoError(t, err)
	require.NotEmpty(t, svc.ID)
	assert.NotNil(t, svc.Tags)
	assert.NotContains(t, svc.EncryptedCookies, "secret")

	// Members open the bundle with the organization private key.
	keys, ok := repo.keys[testOrgID]
	require.True(t, ok)

	cookies, err := cookiecipher.New().Open(svc.EncryptedCookies, keys.PrivateKey)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, "secret", cookies[0].Value)
}

func TestCreateValidatesNameAndDomain(t *testing.T) {
	svcService, _ := newTestService()
	ctx := context.Background()

	req := createReq()
	req.Name = "   "
	_, err := svcService.Create(ctx, testOrgID, "u-owner", req)
	assert.ErrorIs(t, err, ErrNameRequired)

	req = createReq()
	req.Domain = ""
	_, err = svcService.Create(ctx, testOrgID, "u-owner", req)
	assert.ErrorIs(t, err, ErrDomainRequired)
}

func TestPlainMemberCannotManageContent(t *testing.T) {
	svcService, _ := newTestService()
	ctx := context.Background()

	_, err := svcService.Create(ctx, testOrgID, "u-member", createReq())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.Code)

	_, err = svcService.Create(ctx, testOrgID, "u-stranger", createReq())
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.Code)
}

func TestMemberCanReadCatalogAndKeys(t *testing.T) {
	svcService, _ := newTestService()
	ctx := context.Background()

	created, err := svcService.Create(ctx, testOrgID, "u-owner", createReq())
	require.NoError(t, err)

	got, err := svcService.Get(ctx, testOrgID, created.ID, "u-member")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	list, err := svcService.List(ctx, testOrgID, "u-member")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	keys, err := svcService.Keys(ctx, testOrgID, "u-member")
	require.NoError(t, err)
	assert.Equal(t, testOrgID, keys.OrganizationID)

	_, err = svcService.List(ctx, testOrgID, "u-stranger")
	assert.Error(t, err)
}

func TestUpdateWithoutCookiesKeepsBundle(t *testing.T) {
	svcService, _ := newTestService()
	ctx := context.Background()

	created, err := svcService.Create(ctx, testOrgID, "u-owner", createReq())
	require.NoError(t, err)

	newName := "Renamed"
	updated, err := svcService.Update(ctx, testOrgID, created.ID, "u-editor", UpdateServiceRequest{
		Name: &newName,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, created.EncryptedCookies, updated.EncryptedCookies)

	resealed, err := svcService.Update(ctx, testOrgID, created.ID, "u-editor", UpdateServiceRequest{
		Cookies: []cookiecipher.Cookie{
			{Name: "sid", Value: "rotated", Domain: ".tool.example"},
		},
		CookieTTL: time.Hour,
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.EncryptedCookies, resealed.EncryptedCookies)
}

func TestDeleteRequiresOwnerOrModerator(t *testing.T) {
	svcService, _ := newTestService()
	ctx := context.Background()

	created, err := svcService.Create(ctx, testOrgID, "u-owner", createReq())
	require.NoError(t, err)

	var appErr *apperror.AppError
	err = svcService.Delete(ctx, testOrgID, created.ID, "u-editor")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.Code)

	require.NoError(t, svcService.Delete(ctx, testOrgID, created.ID, "u-mod"))

	_, err = svcService.Get(ctx, testOrgID, created.ID, "u-member")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestKeysAreGeneratedOnceAndReused(t *testing.T) {
	svcService, repo := newTestService()
	ctx := context.Background()

	first, err := svcService.Keys(ctx, testOrgID, "u-member")
	require.NoError(t, err)
	require.Contains(t, first.PublicKey, "PUBLIC KEY")
	require.Contains(t, first.PrivateKey, "PRIVATE KEY")

	_, err = svcService.Create(ctx, testOrgID, "u-owner", createReq())
	require.NoError(t, err)

	second, err := svcService.Keys(ctx, testOrgID, "u-member")
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey, second.PublicKey)
	assert.Len(t, repo.keys, 1)
}
