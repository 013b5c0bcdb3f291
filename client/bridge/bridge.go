// Package bridge forwards decrypted cookie bundles to the browser
// extension. The native messaging transport is preferred; when no
// extension host is reachable, a broadcast envelope over HTTP is used
// as fallback.
package bridge

import (
	"context"
	"errors"

	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
)

// Payload is the one-way message handed to the extension.
type Payload struct {
	URL     string                `json:"url"`
	Cookies []cookiecipher.Cookie `json:"cookies"`
}

// ErrUnavailable is returned when the transport cannot reach its peer.
var ErrUnavailable = errors.New("bridge: transport unavailable")

// Bridge delivers cookie payloads to the extension.
type Bridge interface {
	// Send forwards the payload. Delivery is fire-and-forget; an error
	// means the payload never left this process.
	Send(ctx context.Context, p Payload) error

	// Available reports whether the transport can currently deliver.
	Available() bool
}

// Detect picks the first available bridge, falling back to the last one
// regardless of availability so Send can report the concrete failure.
func Detect(bridges ...Bridge) Bridge {
	var last Bridge
	for _, b := range bridges {
		if b == nil {
			continue
		}
		if b.Available() {
			return b
		}
		last = b
	}
	return last
}
