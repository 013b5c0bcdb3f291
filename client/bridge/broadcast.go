package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// broadcastSource identifies this sender to extensions listening for
// broadcast envelopes.
const broadcastSource = "cookie-export-website"

const broadcastTimeout = 5 * time.Second

// BroadcastBridge posts the broadcast envelope to an HTTP endpoint the
// extension listens on. Used when no native messaging host is present.
type BroadcastBridge struct {
	rest     *resty.Client
	endpoint string
}

// NewBroadcastBridge creates a bridge posting to the given endpoint.
func NewBroadcastBridge(endpoint string) *BroadcastBridge {
	return &BroadcastBridge{
		rest:     resty.New().SetTimeout(broadcastTimeout),
		endpoint: endpoint,
	}
}

type broadcastEnvelope struct {
	Source  string  `json:"source"`
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

// Send implements Bridge.
func (b *BroadcastBridge) Send(ctx context.Context, p Payload) error {
	if b.endpoint == "" {
		return ErrUnavailable
	}

	resp, err := b.rest.R().
		SetContext(ctx).
		SetBody(broadcastEnvelope{
			Source:  broadcastSource,
			Type:    "SEND_COOKIES",
			Payload: p,
		}).
		Post(b.endpoint)
	if err != nil {
		return fmt.Errorf("broadcast send failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("broadcast send failed: status %d", resp.StatusCode())
	}
	return nil
}

// Available implements Bridge.
func (b *BroadcastBridge) Available() bool {
	return b.endpoint != ""
}
