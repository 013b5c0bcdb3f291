package bridge_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionshare/session-share/client/bridge"
	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

func testPayload() bridge.Payload {
	return bridge.Payload{
		URL: "https://tool.example",
		Cookies: []cookiecipher.Cookie{
			{Name: "sid", Value: "secret", Domain: ".tool.example"},
		},
	}
}

func TestNativeBridgeFraming(t *testing.T) {
	var buf bytes.Buffer
	b := bridge.NewNativeBridge(&buf, "ext-123")
	require.True(t, b.Available())

	require.NoError(t, b.Send(context.Background(), testPayload()))

	frame := buf.Bytes()
	require.Greater(t, len(frame), 4)

	size := binary.LittleEndian.Uint32(frame[:4])
	body := frame[4:]
	require.Equal(t, int(size), len(body))

	var msg struct {
		ExtensionID string         `json:"extension_id"`
		Type        string         `json:"type"`
		Payload     bridge.Payload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "ext-123", msg.ExtensionID)
	assert.Equal(t, "SEND_COOKIES", msg.Type)
	assert.Equal(t, "https://tool.example", msg.Payload.URL)
	require.Len(t, msg.Payload.Cookies, 1)
	assert.Equal(t, "sid", msg.Payload.Cookies[0].Name)
}

func TestNativeBridgeWithoutSink(t *testing.T) {
	b := bridge.NewNativeBridge(nil, "ext-123")
	assert.False(t, b.Available())
	assert.ErrorIs(t, b.Send(context.Background(), testPayload()), bridge.ErrUnavailable)
}

func TestBroadcastBridgeEnvelope(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	b := bridge.NewBroadcastBridge(server.URL)
	require.True(t, b.Available())
	require.NoError(t, b.Send(context.Background(), testPayload()))

	assert.Equal(t, "cookie-export-website", got["source"])
	assert.Equal(t, "SEND_COOKIES", got["type"])
	payload, ok := got["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://tool.example", payload["url"])
}

func TestBroadcastBridgeWithoutEndpoint(t *testing.T) {
	b := bridge.NewBroadcastBridge("")
	assert.False(t, b.Available())
	assert.ErrorIs(t, b.Send(context.Background(), testPayload()), bridge.ErrUnavailable)
}

func TestDetectPrefersAvailableBridge(t *testing.T) {
	var buf bytes.Buffer
	native := bridge.NewNativeBridge(&buf, "ext-123")
	fallback := bridge.NewBroadcastBridge("http://localhost:1")

	assert.Same(t, bridge.Bridge(native), bridge.Detect(native, fallback))

	// With no native sink the fallback wins.
	unavailable := bridge.NewNativeBridge(nil, "ext-123")
	assert.Same(t, bridge.Bridge(fallback), bridge.Detect(unavailable, fallback))

	// Nothing available: the last candidate is returned so Send can
	// report the concrete failure.
	dead := bridge.NewBroadcastBridge("")
	assert.Same(t, bridge.Bridge(dead), bridge.Detect(unavailable, dead))
}
