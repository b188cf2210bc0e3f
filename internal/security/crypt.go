package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

var ErrBadKey = errors.New("token encryption key must be base64 of 32 bytes")

// Sealer encrypts access tokens before they reach a durable store.
type Sealer struct {
	aead cipher.AEAD
}

func LoadKeyFromBase64(b64 string) ([]byte, error) {
	k, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, ErrBadKey
	}
	if len(k) != 32 {
		return nil, ErrBadKey
	}
	return k, nil
}

// NewSealer builds an AES-256-GCM sealer from a base64 key.
func NewSealer(keyB64 string) (*Sealer, error) {
	key, err := LoadKeyFromBase64(keyB64)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: gcm}, nil
}

// Seal returns base64url(nonce|ciphertext). The shop domain is bound as
// additional data so a sealed token cannot be replayed under another shop.
func (s *Sealer) Seal(shop, plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nil, nonce, []byte(plaintext), []byte(shop))
	out := append(nonce, ct...)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Sealer) Open(shop, b64url string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(b64url)
	if err != nil {
		return "", err
	}

	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ciphertext too short")
	}

	pt, err := s.aead.Open(nil, raw[:ns], raw[ns:], []byte(shop))
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
