package http

import (
	"time"

	"github.com/sessionshare/session-share/internal/catalog"
	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

// CookieRequest is one browser cookie in a submitted bundle.
type CookieRequest struct {
	Name     string  `json:"name" binding:"required"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expirationDate"`
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite"`
}

// CreateServiceRequest is the payload for POST /services.
type CreateServiceRequest struct {
	OrganizationID string          `json:"organization_id" binding:"required,uuid"`
	Name           string          `json:"name" binding:"required"`
	Domain         string          `json:"domain" binding:"required"`
	Category       string          `json:"category"`
	LogoURL        string          `json:"logo_url"`
	Tags           []string        `json:"tags"`
	Cookies        []CookieRequest `json:"cookies" binding:"required,min=1,dive"`
	CookieTTLHours int             `json:"cookie_ttl_hours"`
}

// UpdateServiceRequest is the payload for PUT /services/:service_id/organization/:id.
// Omitting cookies keeps the existing sealed bundle.
type UpdateServiceRequest struct {
	Name           *string         `json:"name"`
	Domain         *string         `json:"domain"`
	Category       *string         `json:"category"`
	LogoURL        *string         `json:"logo_url"`
	Tags           []string        `json:"tags"`
	Cookies        []CookieRequest `json:"cookies"`
	CookieTTLHours int             `json:"cookie_ttl_hours"`
}

// ByServiceRequest binds the service/organization path parameter pair.
type ByServiceRequest struct {
	ServiceID      string `uri:"service_id" binding:"required,uuid"`
	OrganizationID string `uri:"id" binding:"required,uuid"`
}

// ServiceResponse is the catalog entry payload. EncryptedCookies is the
// sealed bundle; clients decrypt it locally with the organization key.
type ServiceResponse struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organization_id"`
	Name             string    `json:"name"`
	Domain           string    `json:"domain"`
	Category         string    `json:"category,omitempty"`
	LogoURL          string    `json:"logo_url,omitempty"`
	Tags             []string  `json:"tags"`
	EncryptedCookies string    `json:"encrypted_cookies"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// KeysResponse carries the organization key pair. The private key is only
// served to authenticated members of the organization.
type KeysResponse struct {
	OrganizationID string `json:"organization_id"`
	PublicKey      string `json:"public_key"`
	PrivateKey     string `json:"private_key"`
}

func NewServiceResponse(svc *catalog.Service) ServiceResponse {
	resp := ServiceResponse{
		ID:               svc.ID,
		OrganizationID:   svc.OrganizationID,
		Name:             svc.Name,
		Domain:           svc.Domain,
		Category:         svc.Category,
		LogoURL:          svc.LogoURL,
		Tags:             svc.Tags,
		EncryptedCookies: svc.EncryptedCookies,
		CreatedAt:        svc.CreatedAt,
		UpdatedAt:        svc.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = make([]string, 0)
	}
	return resp
}

func NewKeysResponse(keys *catalog.Keys) KeysResponse {
	return KeysResponse{
		OrganizationID: keys.OrganizationID,
		PublicKey:      keys.PublicKey,
		PrivateKey:     keys.PrivateKey,
	}
}

func toCookies(reqs []CookieRequest) []cookiecipher.Cookie {
	if reqs == nil {
		return nil
	}
	cookies := make([]cookiecipher.Cookie, 0, len(reqs))
	for _, r := range reqs {
		cookies = append(cookies, cookiecipher.Cookie{
			Name:           r.Name,
			Value:          r.Value,
			Domain:         r.Domain,
			Path:           r.Path,
			ExpirationDate: r.Expires,
			Secure:         r.Secure,
			HTTPOnly:       r.HTTPOnly,
			SameSite:       r.SameSite,
		})
	}
	return cookies
}
