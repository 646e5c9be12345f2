/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hashicorp/go-ikeguard/protocol"
)

func TestSKEYSEEDDeterministic(t *testing.T) {
	ni := bytes.Repeat([]byte{0x01}, 32)
	nr := bytes.Repeat([]byte{0x02}, 32)
	secret := bytes.Repeat([]byte{0x03}, 32)

	a, err := SKEYSEED(protocol.PRF_HMAC_SHA2_256, ni, nr, secret)
	if err != nil {
		t.Fatal(err)
	}
	b, err := SKEYSEED(protocol.PRF_HMAC_SHA2_256, ni, nr, secret)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("SKEYSEED not deterministic")
	}
	if len(a) != 32 {
		t.Fatalf("SKEYSEED length %d, want 32", len(a))
	}

	// swapping the nonces must change the key
	c, err := SKEYSEED(protocol.PRF_HMAC_SHA2_256, nr, ni, secret)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, c) {
		t.Fatal("SKEYSEED ignores nonce order")
	}
}

func TestPlusExpandPrefixProperty(t *testing.T) {
	key := bytes.Repeat([]byte{0xaa}, 32)
	seed := []byte("seed material")

	long, err := PlusExpand(protocol.PRF_HMAC_SHA2_256, key, seed, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(long) != 200 {
		t.Fatalf("keystream length %d, want 200", len(long))
	}
	short, err := PlusExpand(protocol.PRF_HMAC_SHA2_256, key, seed, 40)
	if err != nil {
		t.Fatal(err)
	}
	// prf+ is a stream: shorter requests are prefixes of longer ones
	if !bytes.Equal(short, long[:40]) {
		t.Fatal("shorter expansion is not a prefix of the longer one")
	}
}

func TestPlusExpandDistinctSeeds(t *testing.T) {
	key := bytes.Repeat([]byte{0xbb}, 32)
	a, err := PlusExpand(protocol.PRF_HMAC_SHA1, key, []byte("seed-a"), 64)
	if err != nil {
		t.Fatal(err)
	}
	b, err := PlusExpand(protocol.PRF_HMAC_SHA1, key, []byte("seed-b"), 64)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("different seeds produced the same keystream")
	}
}

func TestPRFSizes(t *testing.T) {
	cases := []struct {
		id   protocol.PRFTransformID
		size int
	}{
		{protocol.PRF_HMAC_SHA1, 20},
		{protocol.PRF_HMAC_SHA2_256, 32},
		{protocol.PRF_HMAC_SHA2_384, 48},
	}
	for _, tc := range cases {
		got, err := PRFSize(tc.id)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.size {
			t.Fatalf("PRF %d size %d, want %d", tc.id, got, tc.size)
		}
	}
}

func TestPRFUnsupported(t *testing.T) {
	if _, err := NewPRF(protocol.PRFTransformID(999), []byte("k")); !errors.Is(err, ErrUnsupportedTransform) {
		t.Fatalf("expected ErrUnsupportedTransform, got %v", err)
	}
	if _, err := PRFSize(protocol.PRFTransformID(999)); !errors.Is(err, ErrUnsupportedTransform) {
		t.Fatalf("expected ErrUnsupportedTransform, got %v", err)
	}
}
