package cookiecipher

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	// ErrExpired signals that the embedded expiry has passed. Callers show a
	// dedicated message for this case since the remedy (an administrator
	// refreshing the service cookies) differs from a plain retry.
	ErrExpired = errors.New("encrypted cookies have expired: contact your organization administrator to refresh the service cookies")

	ErrInvalidToken = errors.New("invalid encrypted cookie token")
	ErrInvalidKey   = errors.New("invalid cookie encryption key")
)

// Cookie mirrors the browser cookie shape forwarded to the extension.
type Cookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain,omitempty"`
	Path           string  `json:"path,omitempty"`
	ExpirationDate float64 `json:"expirationDate,omitempty"`
	HTTPOnly       bool    `json:"httpOnly,omitempty"`
	Secure         bool    `json:"secure,omitempty"`
	SameSite       string  `json:"sameSite,omitempty"`
}

// Cipher seals and opens cookie bundles as compact JWE tokens.
// PEM-formatted keys select RSA-OAEP; any other key material is used
// byte-for-byte as a direct AES-GCM key.
type Cipher interface {
	Seal(cookies []Cookie, key string, ttl time.Duration) (string, error)
	Open(token string, key string) ([]Cookie, error)
}

type cookieClaims struct {
	Cookies []Cookie `json:"cookies"`
	jwt.Claims
}

// JoseCipher is the go-jose backed Cipher implementation.
type JoseCipher struct {
	// Leeway tolerated on expiry checks to absorb clock skew between the
	// sealing host and the opening host.
	Leeway time.Duration

	now func() time.Time
}

const defaultLeeway = 30 * time.Second

// New returns a JoseCipher with the default 30s clock-skew tolerance.
func New() *JoseCipher {
	return &JoseCipher{Leeway: defaultLeeway, now: time.Now}
}

// Seal encrypts the cookie set into a compact JWE expiring after ttl.
func (c *JoseCipher) Seal(cookies []Cookie, key string, ttl time.Duration) (string, error) {
	recipient, enc, err := sealRecipient(key)
	if err != nil {
		return "", err
	}

	encrypter, err := jose.NewEncrypter(enc, recipient, (&jose.EncrypterOptions{}).WithType("JWT"))
	if err != nil {
		return "", fmt.Errorf("failed to build encrypter: %w", err)
	}

	now := c.clock()
	claims := cookieClaims{
		Cookies: cookies,
		Claims: jwt.Claims{
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.Encrypted(encrypter).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to seal cookies: %w", err)
	}
	return token, nil
}

// Open decrypts a compact JWE and returns the embedded cookie set.
// An expired token returns ErrExpired; all other failures wrap ErrInvalidToken.
func (c *JoseCipher) Open(token string, key string) ([]Cookie, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	decryptKey, algs, err := openKey(key)
	if err != nil {
		return nil, err
	}

	parsed, err := jwt.ParseEncrypted(token, algs, []jose.ContentEncryption{jose.A128GCM, jose.A192GCM, jose.A256GCM})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims cookieClaims
	if err := parsed.Claims(decryptKey, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	leeway := c.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{Time: c.clock()}, leeway); err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims.Cookies, nil
}

func (c *JoseCipher) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// sealRecipient resolves the encryption recipient for the given key material.
func sealRecipient(key string) (jose.Recipient, jose.ContentEncryption, error) {
	if isPEM(key) {
		pub, err := parseRSAPublicKey(key)
		if err != nil {
			return jose.Recipient{}, "", err
		}
		return jose.Recipient{Algorithm: jose.RSA_OAEP_256, Key: pub}, jose.A256GCM, nil
	}

	raw := []byte(key)
	enc, err := gcmEncryption(len(raw))
	if err != nil {
		return jose.Recipient{}, "", err
	}
	return jose.Recipient{Algorithm: jose.DIRECT, Key: raw}, enc, nil
}

// openKey resolves the decryption key and the key algorithms it can satisfy.
func openKey(key string) (any, []jose.KeyAlgorithm, error) {
	if isPEM(key) {
		priv, err := parseRSAPrivateKey(key)
		if err != nil {
			return nil, nil, err
		}
		return priv, []jose.KeyAlgorithm{jose.RSA_OAEP, jose.RSA_OAEP_256}, nil
	}

	raw := []byte(key)
	if _, err := gcmEncryption(len(raw)); err != nil {
		return nil, nil, err
	}
	return raw, []jose.KeyAlgorithm{jose.DIRECT}, nil
}

func isPEM(key string) bool {
	return strings.Contains(key, "-----BEGIN")
}

func gcmEncryption(keyLen int) (jose.ContentEncryption, error) {
	switch keyLen {
	case 16:
		return jose.A128GCM, nil
	case 24:
		return jose.A192GCM, nil
	case 32:
		return jose.A256GCM, nil
	default:
		return "", fmt.Errorf("%w: raw key must be 16, 24 or 32 bytes, got %d", ErrInvalidKey, keyLen)
	}
}

func parseRSAPrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("%w: not valid PEM", ErrInvalidKey)
	}

	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if priv, ok := parsed.(*rsa.PrivateKey); ok {
			return priv, nil
		}
		return nil, fmt.Errorf("%w: PKCS8 key is not RSA", ErrInvalidKey)
	}

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return priv, nil
}

func parseRSAPublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("%w: not valid PEM", ErrInvalidKey)
	}

	// Accept either a public key or a private key (use its public half).
	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		if pub, ok := parsed.(*rsa.PublicKey); ok {
			return pub, nil
		}
		return nil, fmt.Errorf("%w: PKIX key is not RSA", ErrInvalidKey)
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if priv, ok := parsed.(*rsa.PrivateKey); ok {
			return &priv.PublicKey, nil
		}
	}
	if priv, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &priv.PublicKey, nil
	}

	return nil, fmt.Errorf("%w: unsupported public key format", ErrInvalidKey)
}
