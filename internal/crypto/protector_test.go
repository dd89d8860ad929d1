// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32))
}

func TestProtector_RoundTrip(t *testing.T) {
	p, err := NewProtector(testKey(), "session:tokens")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plaintext := []byte(`{"access_token":"at","refresh_token":"rt"}`)
	sealed, err := p.Seal(plaintext)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if bytes.Contains(sealed, []byte("access_token")) {
		t.Error("sealed blob leaks plaintext")
	}

	opened, err := p.Open(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("expected %q, got %q", plaintext, opened)
	}
}

func TestProtector_PurposeBinding(t *testing.T) {
	tokens, _ := NewProtector(testKey(), "session:tokens")
	other, _ := NewProtector(testKey(), "session:data")

	sealed, err := tokens.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	if _, err := other.Open(sealed); err == nil {
		t.Error("expected cross-purpose open to fail")
	}
}

func TestProtector_TamperDetection(t *testing.T) {
	p, _ := NewProtector(testKey(), "session:tokens")

	sealed, err := p.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}

	sealed[len(sealed)-1] ^= 0xff
	if _, err := p.Open(sealed); err == nil {
		t.Error("expected tampered blob to fail authentication")
	}
}

func TestNewProtector_InvalidKey(t *testing.T) {
	testCases := []struct {
		name string
		key  string
	}{
		{name: "not base64", key: "%%%"},
		{name: "wrong length", key: base64.StdEncoding.EncodeToString([]byte("short"))},
		{name: "empty", key: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewProtector(tc.key, "session:tokens"); err == nil {
				t.Error("expected error")
			}
		})
	}
}
