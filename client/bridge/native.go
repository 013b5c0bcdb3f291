package bridge

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Native messaging frames are capped at 1 MiB by the browser runtime.
const maxFrameSize = 1 << 20

// NativeBridge speaks the browser native-messaging protocol: each
// message is a 32-bit little-endian length prefix followed by that many
// bytes of JSON.
type NativeBridge struct {
	mu          sync.Mutex
	w           io.Writer
	extensionID string
}

// NewNativeBridge creates a bridge writing frames to w, typically the
// stdin pipe of the extension's native messaging host.
func NewNativeBridge(w io.Writer, extensionID string) *NativeBridge {
	return &NativeBridge{w: w, extensionID: extensionID}
}

type nativeEnvelope struct {
	ExtensionID string  `json:"extension_id,omitempty"`
	Type        string  `json:"type"`
	Payload     Payload `json:"payload"`
}

// Send implements Bridge.
func (b *NativeBridge) Send(ctx context.Context, p Payload) error {
	if b.w == nil {
		return ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(nativeEnvelope{
		ExtensionID: b.extensionID,
		Type:        "SEND_COOKIES",
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to encode bridge message: %w", err)
	}
	if len(raw) > maxFrameSize {
		return fmt.Errorf("bridge message too large: %d bytes", len(raw))
	}

	frame := make([]byte, 4+len(raw))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(raw)))
	copy(frame[4:], raw)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write bridge frame: %w", err)
	}
	return nil
}

// Available implements Bridge.
func (b *NativeBridge) Available() bool {
	return b.w != nil
}
