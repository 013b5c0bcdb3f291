package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridMailerHonorsContextCancellation(t *testing.T) {
	m := NewSendGridMailer("SG.test-key", "Session Share", "no-reply@sessionshare.dev")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The canceled context aborts before any request leaves the process.
	err := m.Send(ctx, "bob@x.com", "subject", "body")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendGridMailerValidatesInput(t *testing.T) {
	ctx := context.Background()

	m := NewSendGridMailer("", "Session Share", "no-reply@sessionshare.dev")
	assert.Error(t, m.Send(ctx, "bob@x.com", "subject", "body"))

	m = NewSendGridMailer("SG.test-key", "Session Share", "no-reply@sessionshare.dev")
	assert.Error(t, m.Send(ctx, "", "subject", "body"))
}

func TestNoopMailerDiscardsMail(t *testing.T) {
	assert.NoError(t, NoopMailer{}.Send(context.Background(), "bob@x.com", "subject", "body"))
}
