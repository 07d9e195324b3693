package security

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-reauth/core"
	"golang.org/x/crypto/hkdf"
)

const (
	defaultKeyID   = "app-key"
	defaultVersion = 1
)

type cipherKey struct {
	id      string
	version int
	aead    cipher.AEAD
}

// TokenCipher seals credentials with AES-256-GCM under an application key.
// Retired keys can still open tokens sealed before a rotation.
type TokenCipher struct {
	active  cipherKey
	retired map[string]cipherKey
}

type Option func(*cipherOptions)

type cipherOptions struct {
	keyID   string
	version int
	retired []retiredKey
}

type retiredKey struct {
	id       string
	version  int
	material []byte
}

func WithKeyID(keyID string) Option {
	return func(o *cipherOptions) {
		if trimmed := strings.TrimSpace(keyID); trimmed != "" {
			o.keyID = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(o *cipherOptions) {
		if version > 0 {
			o.version = version
		}
	}
}

// WithRetiredKey registers a decrypt-only key for tokens sealed before rotation.
func WithRetiredKey(keyID string, version int, material []byte) Option {
	return func(o *cipherOptions) {
		keyID = strings.TrimSpace(keyID)
		if keyID == "" || len(material) == 0 {
			return
		}
		o.retired = append(o.retired, retiredKey{
			id:       keyID,
			version:  version,
			material: append([]byte(nil), material...),
		})
	}
}

func NewTokenCipher(keyMaterial []byte, opts ...Option) (*TokenCipher, error) {
	options := cipherOptions{keyID: defaultKeyID, version: defaultVersion}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	active, err := newCipherKey(options.keyID, options.version, keyMaterial)
	if err != nil {
		return nil, err
	}
	tc := &TokenCipher{active: active, retired: map[string]cipherKey{}}
	for _, retired := range options.retired {
		if retired.id == active.id && retired.version == active.version {
			return nil, fmt.Errorf("security: retired key %s/v%d collides with the active key", retired.id, retired.version)
		}
		key, keyErr := newCipherKey(retired.id, retired.version, retired.material)
		if keyErr != nil {
			return nil, keyErr
		}
		tc.retired[keyRef(key.id, key.version)] = key
	}
	return tc, nil
}

func NewTokenCipherFromString(keyMaterial string, opts ...Option) (*TokenCipher, error) {
	return NewTokenCipher([]byte(strings.TrimSpace(keyMaterial)), opts...)
}

func (c *TokenCipher) KeyID() string {
	if c == nil {
		return ""
	}
	return c.active.id
}

func (c *TokenCipher) Version() int {
	if c == nil {
		return 0
	}
	return c.active.version
}

func (c *TokenCipher) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if c == nil || c.active.aead == nil {
		return nil, fmt.Errorf("security: token cipher is not configured")
	}
	nonce := make([]byte, c.active.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("security: generate nonce: %w", err)
	}
	sealed := c.active.aead.Seal(nil, nonce, plaintext, c.active.additionalData())
	return marshalSealed(sealedToken{
		KeyID:      c.active.id,
		Version:    c.active.version,
		Algorithm:  sealedAlgorithm,
		Nonce:      encodeSegment(nonce),
		Ciphertext: encodeSegment(sealed),
	})
}

func (c *TokenCipher) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if c == nil || c.active.aead == nil {
		return nil, fmt.Errorf("security: token cipher is not configured")
	}
	sealed, err := unmarshalSealed(ciphertext)
	if err != nil {
		return nil, err
	}
	if sealed.Algorithm != sealedAlgorithm {
		return nil, fmt.Errorf("security: unsupported algorithm %q", sealed.Algorithm)
	}
	key, ok := c.keyFor(sealed.KeyID, sealed.Version)
	if !ok {
		return nil, fmt.Errorf("security: no key for %s/v%d", sealed.KeyID, sealed.Version)
	}
	nonce, err := decodeSegment("nonce", sealed.Nonce)
	if err != nil {
		return nil, err
	}
	if len(nonce) != key.aead.NonceSize() {
		return nil, fmt.Errorf("security: invalid nonce size")
	}
	payload, err := decodeSegment("ciphertext", sealed.Ciphertext)
	if err != nil {
		return nil, err
	}
	plaintext, err := key.aead.Open(nil, nonce, payload, key.additionalData())
	if err != nil {
		return nil, fmt.Errorf("security: open sealed token: %w", err)
	}
	return plaintext, nil
}

func (c *TokenCipher) keyFor(keyID string, version int) (cipherKey, bool) {
	if keyID == c.active.id && version == c.active.version {
		return c.active, true
	}
	key, ok := c.retired[keyRef(keyID, version)]
	return key, ok
}

func newCipherKey(keyID string, version int, material []byte) (cipherKey, error) {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return cipherKey{}, fmt.Errorf("security: key id is required")
	}
	if version <= 0 {
		version = defaultVersion
	}
	if len(material) == 0 {
		return cipherKey{}, fmt.Errorf("security: key material is required")
	}
	derived := make([]byte, 32)
	reader := hkdf.New(sha256.New, material, nil, []byte("reauth.token."+keyRef(keyID, version)))
	if _, err := io.ReadFull(reader, derived); err != nil {
		return cipherKey{}, fmt.Errorf("security: derive key: %w", err)
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return cipherKey{}, fmt.Errorf("security: init aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return cipherKey{}, fmt.Errorf("security: init gcm: %w", err)
	}
	return cipherKey{id: keyID, version: version, aead: aead}, nil
}

// additionalData binds the ciphertext to the key reference it was sealed with.
func (k cipherKey) additionalData() []byte {
	return []byte(keyRef(k.id, k.version))
}

func keyRef(keyID string, version int) string {
	return fmt.Sprintf("%s/v%d", keyID, version)
}

var _ core.SecretProvider = (*TokenCipher)(nil)
