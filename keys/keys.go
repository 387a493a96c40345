// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
)

// KeyID identifies the active signing key in JWT headers and the JWKS.
const KeyID = "clear-vote-key-1"

// Manager loads or generates the RSA key pair used to sign and verify
// smart-wallet session tokens.
type Manager struct {
	dir     string
	private *rsa.PrivateKey
}

// JWK is a single RSA public key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is the key-set document served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// Load reads the key pair from dir, generating and persisting a new
// 2048-bit pair when none exists.
func Load(dir string) (*Manager, error) {
	privPath := filepath.Join(dir, "private.pem")

	data, err := os.ReadFile(privPath)
	if err == nil {
		key, err := parsePrivatePEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", privPath, err)
		}
		return &Manager{dir: dir, private: key}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create keys directory: %w", err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	if err := os.WriteFile(filepath.Join(dir, "public.pem"), pubPEM, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	return &Manager{dir: dir, private: key}, nil
}

// Private returns the signing key.
func (m *Manager) Private() *rsa.PrivateKey {
	return m.private
}

// Public returns the verification key.
func (m *Manager) Public() *rsa.PublicKey {
	return &m.private.PublicKey
}

// KeySet returns the JWKS document for the active key.
func (m *Manager) KeySet() JWKS {
	pub := m.Public()
	return JWKS{
		Keys: []JWK{
			{
				Kty: "RSA",
				Use: "sig",
				Kid: KeyID,
				Alg: "RS256",
				N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(bigEndianBytes(pub.E)),
			},
		},
	}
}

func parsePrivatePEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return key, nil
}

func bigEndianBytes(n int) []byte {
	return new(big.Int).SetInt64(int64(n)).Bytes()
}
