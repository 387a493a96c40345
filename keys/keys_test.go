// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package keys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()

	m1, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Both PEM files should exist after first load.
	if _, err := os.Stat(filepath.Join(dir, "private.pem")); err != nil {
		t.Errorf("private.pem not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "public.pem")); err != nil {
		t.Errorf("public.pem not written: %v", err)
	}

	// The private key must not be world-readable.
	info, err := os.Stat(filepath.Join(dir, "private.pem"))
	if err != nil {
		t.Fatalf("stat private.pem: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("private.pem mode = %o, want 600", perm)
	}

	// A second load must return the same key, not a fresh pair.
	m2, err := Load(dir)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if m1.Public().N.Cmp(m2.Public().N) != 0 {
		t.Error("second Load() returned a different key")
	}
}

func TestKeySet(t *testing.T) {
	m, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	set := m.KeySet()
	if len(set.Keys) != 1 {
		t.Fatalf("KeySet() has %d keys, want 1", len(set.Keys))
	}

	jwk := set.Keys[0]
	if jwk.Kty != "RSA" {
		t.Errorf("Kty = %q, want RSA", jwk.Kty)
	}
	if jwk.Use != "sig" {
		t.Errorf("Use = %q, want sig", jwk.Use)
	}
	if jwk.Alg != "RS256" {
		t.Errorf("Alg = %q, want RS256", jwk.Alg)
	}
	if jwk.Kid != KeyID {
		t.Errorf("Kid = %q, want %q", jwk.Kid, KeyID)
	}
	if jwk.N == "" || jwk.E == "" {
		t.Error("modulus or exponent missing from JWK")
	}
}

func TestLoadRejectsCorruptKey(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "private.pem"), []byte("not a pem"), 0o600); err != nil {
		t.Fatalf("write corrupt key: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() accepted a corrupt private key")
	}
}
