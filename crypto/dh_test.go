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

func TestDiffieHellmanAgreement(t *testing.T) {
	groups := []protocol.DHTransformID{
		protocol.CURVE25519,
		protocol.MODP_1024,
		protocol.MODP_2048,
	}
	for _, group := range groups {
		group := group
		t.Run(group.String(), func(t *testing.T) {
			alice, err := NewDiffieHellman(group)
			if err != nil {
				t.Fatal(err)
			}
			defer alice.Destroy()
			bob, err := NewDiffieHellman(group)
			if err != nil {
				t.Fatal(err)
			}
			defer bob.Destroy()

			if alice.Group() != group {
				t.Fatalf("group %d, want %d", alice.Group(), group)
			}

			sa, err := alice.SharedSecret(bob.PublicValue())
			if err != nil {
				t.Fatal(err)
			}
			defer sa.Wipe()
			sb, err := bob.SharedSecret(alice.PublicValue())
			if err != nil {
				t.Fatal(err)
			}
			defer sb.Wipe()

			if sa.Len() == 0 {
				t.Fatal("empty shared secret")
			}
			if !bytes.Equal(sa.Bytes(), sb.Bytes()) {
				t.Fatal("sides disagree on the shared secret")
			}
		})
	}
}

func TestDiffieHellmanUnsupportedGroup(t *testing.T) {
	if _, err := NewDiffieHellman(protocol.DHTransformID(9999)); !errors.Is(err, ErrUnsupportedGroup) {
		t.Fatalf("expected ErrUnsupportedGroup, got %v", err)
	}
}

func TestModpRejectsDegeneratePublicValue(t *testing.T) {
	dh, err := NewDiffieHellman(protocol.MODP_1024)
	if err != nil {
		t.Fatal(err)
	}
	defer dh.Destroy()

	// y = 1 yields the trivial subgroup
	bad := make([]byte, len(dh.PublicValue()))
	bad[len(bad)-1] = 1
	if _, err := dh.SharedSecret(bad); err == nil {
		t.Fatal("accepted a degenerate public value")
	}
}

func TestCurve25519RejectsShortPublicValue(t *testing.T) {
	dh, err := NewDiffieHellman(protocol.CURVE25519)
	if err != nil {
		t.Fatal(err)
	}
	defer dh.Destroy()

	if _, err := dh.SharedSecret(make([]byte, 16)); err == nil {
		t.Fatal("accepted a short public value")
	}
}

func TestDiffieHellmanDestroyedKeyRefusesDerivation(t *testing.T) {
	alice, err := NewDiffieHellman(protocol.MODP_1024)
	if err != nil {
		t.Fatal(err)
	}
	bob, err := NewDiffieHellman(protocol.MODP_1024)
	if err != nil {
		t.Fatal(err)
	}
	defer bob.Destroy()

	alice.Destroy()
	if _, err := alice.SharedSecret(bob.PublicValue()); err == nil {
		t.Fatal("derived a secret from a destroyed keypair")
	}
}
