package catalog

import (
	"errors"
	"time"
)

var (
	ErrServiceNotFound = errors.New("service not found")
	ErrNameRequired    = errors.New("service name is required")
	ErrDomainRequired  = errors.New("service domain is required")
	ErrKeysNotFound    = errors.New("encryption keys not found for this organization")
)

// Service is a third-party tool the organization grants session-based
// access to. Its cookie bundle is stored sealed; plaintext cookies never
// touch the database.
type Service struct {
	ID               string // UUID
	OrganizationID   string
	Name             string
	Domain           string
	Category         string
	LogoURL          string
	Tags             []string
	EncryptedCookies string // compact JWE
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Keys is the per-organization key material used to seal and open cookie
// bundles. PublicKey seals; PrivateKey is handed to members for opening.
type Keys struct {
	OrganizationID string
	PublicKey      string // PEM
	PrivateKey     string // PEM
	CreatedAt      time.Time
}
