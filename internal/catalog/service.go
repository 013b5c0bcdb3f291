package catalog

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sessionshare/session-share/internal/organization"
	"github.com/sessionshare/session-share/internal/pkg/apperror"
	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

// Cookie bundles sealed into the catalog expire after this period unless
// the request specifies its own TTL.
const defaultCookieTTL = 7 * 24 * time.Hour

// CreateServiceRequest defines fields for adding a service to the catalog.
type CreateServiceRequest struct {
	Name      string
	Domain    string
	Category  string
	LogoURL   string
	Tags      []string
	Cookies   []cookiecipher.Cookie
	CookieTTL time.Duration
}

// UpdateServiceRequest defines the fields that can be updated. A nil
// Cookies slice leaves the sealed bundle untouched.
type UpdateServiceRequest struct {
	Name      *string
	Domain    *string
	Category  *string
	LogoURL   *string
	Tags      []string
	Cookies   []cookiecipher.Cookie
	CookieTTL time.Duration
}

// ManagerService defines business logic for the service catalog.
type ManagerService interface {
	Create(ctx context.Context, orgID string, actorID string, req CreateServiceRequest) (*Service, error)
	Get(ctx context.Context, orgID string, serviceID string, actorID string) (*Service, error)
	List(ctx context.Context, orgID string, actorID string) ([]*Service, error)
	Update(ctx context.Context, orgID string, serviceID string, actorID string, req UpdateServiceRequest) (*Service, error)
	Delete(ctx context.Context, orgID string, serviceID string, actorID string) error
	Keys(ctx context.Context, orgID string, actorID string) (*Keys, error)
}

type managerService struct {
	repo       Repository
	orgService organization.Service
	cipher     cookiecipher.Cipher
}

// NewService creates a new catalog service.
func NewService(repo Repository, orgService organization.Service, cipher cookiecipher.Cipher) ManagerService {
	return &managerService{
		repo:       repo,
		orgService: orgService,
		cipher:     cipher,
	}
}

// Create seals the cookie bundle with the organization public key and
// stores the service. Owners, moderators and editors may manage content.
func (s *managerService) Create(ctx context.Context, orgID string, actorID string, req CreateServiceRequest) (*Service, error) {
	if err := s.requireContentRole(ctx, orgID, actorID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	domain := strings.TrimSpace(req.Domain)
	if domain == "" {
		return nil, ErrDomainRequired
	}

	keys, err := s.ensureKeys(ctx, orgID)
	if err != nil {
		return nil, err
	}

	ttl := req.CookieTTL
	if ttl <= 0 {
		ttl = defaultCookieTTL
	}
	sealed, err := s.cipher.Seal(req.Cookies, keys.PublicKey, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to seal cookie bundle: %w", err)
	}

	svc := &Service{
		OrganizationID:   orgID,
		Name:             name,
		Domain:           domain,
		Category:         strings.TrimSpace(req.Category),
		LogoURL:          strings.TrimSpace(req.LogoURL),
		Tags:             req.Tags,
		EncryptedCookies: sealed,
	}
	if svc.Tags == nil {
		svc.Tags = make([]string, 0)
	}

	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// Get returns a service. Any member of the organization may open services.
func (s *managerService) Get(ctx context.Context, orgID string, serviceID string, actorID string) (*Service, error) {
	if err := s.requireMember(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, orgID, serviceID)
}

func (s *managerService) List(ctx context.Context, orgID string, actorID string) ([]*Service, error) {
	if err := s.requireMember(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	return s.repo.ListByOrganization(ctx, orgID)
}

func (s *managerService) Update(ctx context.Context, orgID string, serviceID string, actorID string, req UpdateServiceRequest) (*Service, error) {
	if err := s.requireContentRole(ctx, orgID, actorID); err != nil {
		return nil, err
	}

	svc, err := s.repo.GetByID(ctx, orgID, serviceID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		svc.Name = name
	}
	if req.Domain != nil {
		domain := strings.TrimSpace(*req.Domain)
		if domain == "" {
			return nil, ErrDomainRequired
		}
		svc.Domain = domain
	}
	if req.Category != nil {
		svc.Category = strings.TrimSpace(*req.Category)
	}
	if req.LogoURL != nil {
		svc.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	if req.Tags != nil {
		svc.Tags = req.Tags
	}

	if req.Cookies != nil {
		keys, err := s.ensureKeys(ctx, orgID)
		if err != nil {
			return nil, err
		}
		ttl := req.CookieTTL
		if ttl <= 0 {
			ttl = defaultCookieTTL
		}
		sealed, err := s.cipher.Seal(req.Cookies, keys.PublicKey, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to seal cookie bundle: %w", err)
		}
		svc.EncryptedCookies = sealed
	}

	if err := s.repo.Update(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// Delete removes a service. Restricted to owner and moderators.
func (s *managerService) Delete(ctx context.Context, orgID string, serviceID string, actorID string) error {
	role, err := s.orgService.RoleOf(ctx, orgID, actorID)
	if err != nil {
		if errors.Is(err, organization.ErrNotMember) {
			return apperror.Forbidden("not a member of this organization")
		}
		return err
	}
	if role != organization.RoleOwner && role != organization.RoleModerator {
		return apperror.Forbidden("insufficient role to delete services")
	}

	return s.repo.Delete(ctx, orgID, serviceID)
}

// Keys returns the organization key material, generating it on first use.
// Any member may fetch the keys; they are what lets the member's browser
// open the sealed cookie bundles.
func (s *managerService) Keys(ctx context.Context, orgID string, actorID string) (*Keys, error) {
	if err := s.requireMember(ctx, orgID, actorID); err != nil {
		return nil, err
	}
	return s.ensureKeys(ctx, orgID)
}

func (s *managerService) ensureKeys(ctx context.Context, orgID string) (*Keys, error) {
	keys, err := s.repo.GetKeys(ctx, orgID)
	if err == nil {
		return keys, nil
	}
	if !errors.Is(err, ErrKeysNotFound) {
		return nil, err
	}

	keys, err = generateKeys(orgID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateKeys(ctx, keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *managerService) requireMember(ctx context.Context, orgID string, actorID string) error {
	if _, err := s.orgService.RoleOf(ctx, orgID, actorID); err != nil {
		if errors.Is(err, organization.ErrNotMember) {
			return apperror.Forbidden("not a member of this organization")
		}
		return err
	}
	return nil
}

func (s *managerService) requireContentRole(ctx context.Context, orgID string, actorID string) error {
	role, err := s.orgService.RoleOf(ctx, orgID, actorID)
	if err != nil {
		if errors.Is(err, organization.ErrNotMember) {
			return apperror.Forbidden("not a member of this organization")
		}
		return err
	}
	if role == organization.RoleMember {
		return apperror.Forbidden("insufficient role to manage services")
	}
	return nil
}

// generateKeys creates a fresh RSA-2048 key pair in PEM form.
func generateKeys(orgID string) (*Keys, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rsa key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	return &Keys{
		OrganizationID: orgID,
		PrivateKey:     string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		PublicKey:      string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
	}, nil
}
