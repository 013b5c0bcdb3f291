// Package handoff drives the open-service flow: fetch the sealed cookie
// bundle and key material, open the bundle locally and forward the
// cookies to the browser extension.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/bridge"
	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

// Phase is the position of an open-service flow.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseDecrypting Phase = "decrypting"
	PhaseForwarding Phase = "forwarding"
)

var (
	// ErrBusy is returned when an open flow is already running. The
	// caller treats it as a no-op.
	ErrBusy = errors.New("handoff: another service is already being opened")

	// ErrCookiesExpired means the sealed bundle has passed its expiry;
	// re-trying cannot help, an administrator has to refresh the cookies.
	ErrCookiesExpired = errors.New("encrypted cookies have expired: contact your organization administrator to refresh them")

	// ErrDecryptFailed is the generic open failure for anything other
	// than expiry.
	ErrDecryptFailed = errors.New("handoff: failed to decrypt cookie bundle")
)

// CatalogAPI is the slice of the backend client the coordinator needs.
type CatalogAPI interface {
	Service(ctx context.Context, serviceID, orgID string) (*client.Service, error)
	Keys(ctx context.Context, orgID string) (*client.Keys, error)
}

// Coordinator runs open-service flows. At most one flow is active at a
// time; starting a second while one runs returns ErrBusy.
type Coordinator struct {
	api    CatalogAPI
	cipher cookiecipher.Cipher
	bridge bridge.Bridge

	// OnPhase, when set, observes phase transitions of the active flow.
	OnPhase func(serviceID string, phase Phase)

	mu              sync.Mutex
	activeServiceID string
}

// NewCoordinator creates a handoff coordinator.
func NewCoordinator(api CatalogAPI, cipher cookiecipher.Cipher, b bridge.Bridge) *Coordinator {
	return &Coordinator{
		api:    api,
		cipher: cipher,
		bridge: b,
	}
}

// Active returns the id of the service currently being opened, or the
// empty string when idle.
func (c *Coordinator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeServiceID
}

// Open runs the full flow for one service. The active-service guard is
// cleared on every exit path, success or failure.
func (c *Coordinator) Open(ctx context.Context, orgID, serviceID string) error {
	c.mu.Lock()
	if c.activeServiceID != "" {
		c.mu.Unlock()
		return ErrBusy
	}
	c.activeServiceID = serviceID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.activeServiceID = ""
		c.mu.Unlock()
		c.phase(serviceID, PhaseIdle)
	}()

	c.phase(serviceID, PhaseFetching)
	svc, err := c.api.Service(ctx, serviceID, orgID)
	if err != nil {
		return fmt.Errorf("failed to fetch service: %w", err)
	}
	keys, err := c.api.Keys(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to fetch key material: %w", err)
	}

	c.phase(serviceID, PhaseDecrypting)
	cookies, err := c.cipher.Open(svc.EncryptedCookies, keys.PrivateKey)
	if err != nil {
		if errors.Is(err, cookiecipher.ErrExpired) {
			return ErrCookiesExpired
		}
		return fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	c.phase(serviceID, PhaseForwarding)
	if err := c.bridge.Send(ctx, bridge.Payload{
		URL:     serviceURL(svc),
		Cookies: cookies,
	}); err != nil {
		return fmt.Errorf("failed to forward cookies: %w", err)
	}

	return nil
}

func (c *Coordinator) phase(serviceID string, p Phase) {
	if c.OnPhase != nil {
		c.OnPhase(serviceID, p)
	}
}

func serviceURL(svc *client.Service) string {
	if svc.Domain == "" {
		return ""
	}
	return "https://" + svc.Domain
}
