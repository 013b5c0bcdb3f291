package handoff_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionshare/session-share/client"
	"github.com/sessionshare/session-share/client/bridge"
	"github.com/sessionshare/session-share/client/handoff"
	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

// fakeAPI serves one service and one key set, optionally blocking the
// service fetch until released.
type fakeAPI struct {
	service *client.Service
	keys    *client.Keys
	block   chan struct{}
	err     error
}

func (f *fakeAPI) Service(ctx context.Context, serviceID, orgID string) (*client.Service, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.service, nil
}

func (f *fakeAPI) Keys(ctx context.Context, orgID string) (*client.Keys, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.keys, nil
}

// captureBridge records forwarded payloads.
type captureBridge struct {
	mu       sync.Mutex
	payloads []bridge.Payload
}

func (b *captureBridge) Send(_ context.Context, p bridge.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, p)
	return nil
}

func (b *captureBridge) Available() bool { return true }

func (b *captureBridge) sent() []bridge.Payload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bridge.Payload(nil), b.payloads...)
}

func rawKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)[:32]
}

func sealedService(t *testing.T, key string, ttl time.Duration) *client.Service {
	t.Helper()
	token, err := cookiecipher.New().Seal([]cookiecipher.Cookie{
		{Name: "sid", Value: "secret", Domain: ".tool.example"},
	}, key, ttl)
	require.NoError(t, err)
	return &client.Service{
		ID:               "svc-1",
		OrganizationID:   "org-1",
		Name:             "Tool",
		Domain:           "tool.example",
		EncryptedCookies: token,
	}
}

func TestOpenForwardsDecryptedCookies(t *testing.T) {
	key := rawKey(t)
	api := &fakeAPI{
		service: sealedService(t, key, time.Hour),
		keys:    &client.Keys{OrganizationID: "org-1", PrivateKey: key},
	}
	sink := &captureBridge{}

	var phases []handoff.Phase
	coordinator := handoff.NewCoordinator(api, cookiecipher.New(), sink)
	coordinator.OnPhase = func(_ string, p handoff.Phase) { phases = append(phases, p) }

	require.NoError(t, coordinator.Open(context.Background(), "org-1", "svc-1"))

	sent := sink.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "https://tool.example", sent[0].URL)
	require.Len(t, sent[0].Cookies, 1)
	assert.Equal(t, "sid", sent[0].Cookies[0].Name)
	assert.Equal(t, "secret", sent[0].Cookies[0].Value)

	assert.Equal(t, []handoff.Phase{
		handoff.PhaseFetching,
		handoff.PhaseDecrypting,
		handoff.PhaseForwarding,
		handoff.PhaseIdle,
	}, phases)
	assert.Empty(t, coordinator.Active())
}

func TestOpenExpiredBundleReturnsDistinctError(t *testing.T) {
	key := rawKey(t)
	api := &fakeAPI{
		// Sealed well past the clock-skew tolerance.
		service: sealedService(t, key, -5*time.Minute),
		keys:    &client.Keys{OrganizationID: "org-1", PrivateKey: key},
	}
	sink := &captureBridge{}
	coordinator := handoff.NewCoordinator(api, cookiecipher.New(), sink)

	err := coordinator.Open(context.Background(), "org-1", "svc-1")
	require.ErrorIs(t, err, handoff.ErrCookiesExpired)
	assert.NotErrorIs(t, err, handoff.ErrDecryptFailed)

	// Nothing reaches the bridge and the guard is cleared.
	assert.Empty(t, sink.sent())
	assert.Empty(t, coordinator.Active())
}

func TestOpenWrongKeyIsGenericDecryptFailure(t *testing.T) {
	api := &fakeAPI{
		service: sealedService(t, rawKey(t), time.Hour),
		keys:    &client.Keys{OrganizationID: "org-1", PrivateKey: rawKey(t)},
	}
	coordinator := handoff.NewCoordinator(api, cookiecipher.New(), &captureBridge{})

	err := coordinator.Open(context.Background(), "org-1", "svc-1")
	require.ErrorIs(t, err, handoff.ErrDecryptFailed)
	assert.NotErrorIs(t, err, handoff.ErrCookiesExpired)
}

func TestOpenIsSingleFlight(t *testing.T) {
	key := rawKey(t)
	api := &fakeAPI{
		service: sealedService(t, key, time.Hour),
		keys:    &client.Keys{OrganizationID: "org-1", PrivateKey: key},
		block:   make(chan struct{}),
	}
	sink := &captureBridge{}
	coordinator := handoff.NewCoordinator(api, cookiecipher.New(), sink)

	done := make(chan error, 1)
	go func() {
		done <- coordinator.Open(context.Background(), "org-1", "svc-1")
	}()

	// Wait until the first flow holds the guard.
	require.Eventually(t, func() bool {
		return coordinator.Active() == "svc-1"
	}, time.Second, 5*time.Millisecond)

	// A second open while the first is in flight is rejected.
	err := coordinator.Open(context.Background(), "org-1", "svc-2")
	assert.ErrorIs(t, err, handoff.ErrBusy)

	close(api.block)
	require.NoError(t, <-done)
	assert.Len(t, sink.sent(), 1)

	// After completion the guard is free again.
	require.NoError(t, coordinator.Open(context.Background(), "org-1", "svc-1"))
}

func TestOpenAbortsOnFetchFailure(t *testing.T) {
	api := &fakeAPI{err: errors.New("boom")}
	sink := &captureBridge{}
	coordinator := handoff.NewCoordinator(api, cookiecipher.New(), sink)

	err := coordinator.Open(context.Background(), "org-1", "svc-1")
	require.Error(t, err)
	assert.Empty(t, sink.sent())
	assert.Empty(t, coordinator.Active())
}
