/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"errors"
	"testing"

	ikecrypto "github.com/hashicorp/go-ikeguard/crypto"
	"github.com/hashicorp/go-ikeguard/protocol"
)

func TestExchangeContextLifecycle(t *testing.T) {
	exch, err := newExchangeContext(protocol.CURVE25519, 32)
	if err != nil {
		t.Fatal(err)
	}
	if exch.sentNonce.Len() != 32 {
		t.Fatalf("sent nonce %d bytes, want 32", exch.sentNonce.Len())
	}

	peer, err := ikecrypto.NewDiffieHellman(protocol.CURVE25519)
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Destroy()

	exch.setPeerPublic(peer.PublicValue())
	exch.setReceivedNonce(make([]byte, 32))

	if err := exch.computeSharedSecret(); err != nil {
		t.Fatal(err)
	}
	if exch.sharedSecret.Len() == 0 {
		t.Fatal("no shared secret derived")
	}

	secret := exch.sharedSecret
	exch.destroy()
	if secret.Len() != 0 {
		t.Fatal("destroy left the shared secret readable")
	}
	exch.destroy() // idempotent
}

func TestExchangeContextContract(t *testing.T) {
	peer, err := ikecrypto.NewDiffieHellman(protocol.CURVE25519)
	if err != nil {
		t.Fatal(err)
	}
	defer peer.Destroy()

	t.Run("missing peer public", func(t *testing.T) {
		exch, err := newExchangeContext(protocol.CURVE25519, 32)
		if err != nil {
			t.Fatal(err)
		}
		defer exch.destroy()
		exch.setReceivedNonce(make([]byte, 32))
		if err := exch.computeSharedSecret(); !errors.Is(err, ErrContractViolation) {
			t.Fatalf("expected ErrContractViolation, got %v", err)
		}
	})

	t.Run("missing peer nonce", func(t *testing.T) {
		exch, err := newExchangeContext(protocol.CURVE25519, 32)
		if err != nil {
			t.Fatal(err)
		}
		defer exch.destroy()
		exch.setPeerPublic(peer.PublicValue())
		if err := exch.computeSharedSecret(); !errors.Is(err, ErrContractViolation) {
			t.Fatalf("expected ErrContractViolation, got %v", err)
		}
	})

	t.Run("double derivation", func(t *testing.T) {
		exch, err := newExchangeContext(protocol.CURVE25519, 32)
		if err != nil {
			t.Fatal(err)
		}
		defer exch.destroy()
		exch.setPeerPublic(peer.PublicValue())
		exch.setReceivedNonce(make([]byte, 32))
		if err := exch.computeSharedSecret(); err != nil {
			t.Fatal(err)
		}
		if err := exch.computeSharedSecret(); !errors.Is(err, ErrContractViolation) {
			t.Fatalf("expected ErrContractViolation, got %v", err)
		}
	})
}

func TestExchangeContextDuplicateNonceWipesFirst(t *testing.T) {
	exch, err := newExchangeContext(protocol.CURVE25519, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer exch.destroy()

	exch.setReceivedNonce(make([]byte, 32))
	first := exch.receivedNonce
	exch.setReceivedNonce(make([]byte, 32))

	if first.Len() != 0 {
		t.Fatal("superseded nonce not wiped")
	}
	if exch.receivedNonce.Len() != 32 {
		t.Fatal("replacement nonce missing")
	}
}
