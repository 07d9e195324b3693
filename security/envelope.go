package security

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	sealedPrefix    = "reauth.token.v1:"
	sealedAlgorithm = "aes-256-gcm"
)

// sealedToken is the persisted form of an encrypted credential.
type sealedToken struct {
	KeyID      string `json:"kid"`
	Version    int    `json:"ver"`
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ct"`
}

// SealedMetadata describes which key sealed a payload without opening it.
type SealedMetadata struct {
	KeyID     string
	Version   int
	Algorithm string
}

// IsSealed reports whether payload carries the sealed token prefix.
func IsSealed(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte(sealedPrefix))
}

func InspectSealed(payload []byte) (SealedMetadata, error) {
	sealed, err := unmarshalSealed(payload)
	if err != nil {
		return SealedMetadata{}, err
	}
	return SealedMetadata{
		KeyID:     sealed.KeyID,
		Version:   sealed.Version,
		Algorithm: sealed.Algorithm,
	}, nil
}

func marshalSealed(sealed sealedToken) ([]byte, error) {
	sealed.KeyID = strings.TrimSpace(sealed.KeyID)
	sealed.Algorithm = strings.ToLower(strings.TrimSpace(sealed.Algorithm))
	data, err := json.Marshal(sealed)
	if err != nil {
		return nil, fmt.Errorf("security: encode sealed token: %w", err)
	}
	return append([]byte(sealedPrefix), data...), nil
}

func unmarshalSealed(payload []byte) (sealedToken, error) {
	if len(payload) == 0 {
		return sealedToken{}, fmt.Errorf("security: sealed token is empty")
	}
	if !IsSealed(payload) {
		return sealedToken{}, fmt.Errorf("security: payload is not a sealed token")
	}
	sealed := sealedToken{}
	if err := json.Unmarshal(payload[len(sealedPrefix):], &sealed); err != nil {
		return sealedToken{}, fmt.Errorf("security: decode sealed token: %w", err)
	}
	sealed.KeyID = strings.TrimSpace(sealed.KeyID)
	sealed.Algorithm = strings.ToLower(strings.TrimSpace(sealed.Algorithm))
	if sealed.Ciphertext == "" {
		return sealedToken{}, fmt.Errorf("security: sealed token ciphertext is required")
	}
	return sealed, nil
}

func encodeSegment(value []byte) string {
	return base64.RawURLEncoding.EncodeToString(value)
}

func decodeSegment(name string, value string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("security: decode %s: %w", name, err)
	}
	return decoded, nil
}
