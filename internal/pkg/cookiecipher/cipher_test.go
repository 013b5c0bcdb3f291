package cookiecipher

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatePEMKeyPair(t *testing.T) (privPEM, pubPEM string) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	privPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}))

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pubPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))

	return privPEM, pubPEM
}

func sampleCookies() []Cookie {
	return []Cookie{
		{Name: "session", Value: "abc123", Domain: ".example.com", Path: "/", HTTPOnly: true, Secure: true},
		{Name: "csrf", Value: "tok", Domain: ".example.com", Path: "/"},
	}
}

func TestSealOpenRSA(t *testing.T) {
	privPEM, pubPEM := generatePEMKeyPair(t)
	cipher := New()

	token, err := cipher.Seal(sampleCookies(), pubPEM, time.Hour)
	require.NoError(t, err)

	cookies, err := cipher.Open(token, privPEM)
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
	assert.True(t, cookies[0].HTTPOnly)
}

func TestSealOpenRawAESKey(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef" // 32 bytes
	cipher := New()

	token, err := cipher.Seal(sampleCookies(), key, time.Hour)
	require.NoError(t, err)

	cookies, err := cipher.Open(token, key)
	require.NoError(t, err)
	assert.Len(t, cookies, 2)
}

func TestOpenExpiredToken(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"

	sealer := New()
	sealer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := sealer.Seal(sampleCookies(), key, time.Hour)
	require.NoError(t, err)

	_, err = New().Open(token, key)
	require.ErrorIs(t, err, ErrExpired)
	assert.Contains(t, err.Error(), "encrypted cookies have expired")
}

func TestOpenToleratesClockSkew(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"

	// Token expired 10 seconds ago; within the 30s leeway.
	sealer := New()
	sealer.now = func() time.Time { return time.Now().Add(-time.Hour - 10*time.Second) }

	token, err := sealer.Seal(sampleCookies(), key, time.Hour)
	require.NoError(t, err)

	_, err = New().Open(token, key)
	assert.NoError(t, err)
}

func TestOpenWithWrongKey(t *testing.T) {
	privPEM, pubPEM := generatePEMKeyPair(t)
	otherPriv, _ := generatePEMKeyPair(t)

	cipher := New()
	token, err := cipher.Seal(sampleCookies(), pubPEM, time.Hour)
	require.NoError(t, err)

	_, err = cipher.Open(token, otherPriv)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrExpired)
	_ = privPEM
}

func TestOpenRejectsGarbage(t *testing.T) {
	cipher := New()

	_, err := cipher.Open("", "0123456789abcdef0123456789abcdef")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = cipher.Open("not-a-jwe", "0123456789abcdef0123456789abcdef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSealRejectsBadRawKeyLength(t *testing.T) {
	cipher := New()
	_, err := cipher.Seal(sampleCookies(), "short", time.Hour)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
