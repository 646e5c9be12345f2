/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/go-ikeguard/protocol"
)

func TestDefaultNegotiatorAcceptsSupported(t *testing.T) {
	n := NewDefaultNegotiator()
	selected, err := n.Select([]*protocol.Proposal{testProposal()})
	require.NoError(t, err)
	require.NotNil(t, selected)

	// the selection is a copy, not an alias into the offer
	offer := testProposal()
	selected, err = n.Select([]*protocol.Proposal{offer})
	require.NoError(t, err)
	assert.NotSame(t, offer, selected)
}

func TestDefaultNegotiatorTakesFirstAcceptable(t *testing.T) {
	bad := protocol.NewProposal(1, protocol.ProtoIKE, nil)
	bad.AddTransform(protocol.TransformEncr, uint16(protocol.ENCR_3DES))
	bad.AddTransform(protocol.TransformPRF, uint16(protocol.PRF_HMAC_SHA2_256))
	bad.AddTransform(protocol.TransformDH, uint16(protocol.CURVE25519))

	good := testProposal()
	good.Number = 2

	selected, err := NewDefaultNegotiator().Select([]*protocol.Proposal{bad, good})
	require.NoError(t, err)
	assert.Equal(t, uint8(2), selected.Number)
}

func TestDefaultNegotiatorRejections(t *testing.T) {
	cases := []struct {
		name  string
		build func() *protocol.Proposal
	}{
		{"unsupported encryption", func() *protocol.Proposal {
			p := protocol.NewProposal(1, protocol.ProtoIKE, nil)
			p.AddTransform(protocol.TransformEncr, uint16(protocol.ENCR_3DES))
			p.AddTransform(protocol.TransformPRF, uint16(protocol.PRF_HMAC_SHA2_256))
			p.AddTransform(protocol.TransformDH, uint16(protocol.CURVE25519))
			return p
		}},
		{"unsupported integrity", func() *protocol.Proposal {
			p := testProposal()
			p.AddTransform(protocol.TransformInteg, uint16(protocol.AUTH_HMAC_SHA1_96))
			return p
		}},
		{"missing DH", func() *protocol.Proposal {
			p := protocol.NewProposal(1, protocol.ProtoIKE, nil)
			p.AddTransformKeyLen(protocol.TransformEncr, uint16(protocol.ENCR_AES_GCM_16), 256)
			p.AddTransform(protocol.TransformPRF, uint16(protocol.PRF_HMAC_SHA2_256))
			return p
		}},
		{"wrong protocol", func() *protocol.Proposal {
			p := testProposal()
			p.Protocol = protocol.ProtoESP
			return p
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDefaultNegotiator().Select([]*protocol.Proposal{tc.build()})
			require.ErrorIs(t, err, ErrProposalRejected)
		})
	}
}

func TestDefaultNegotiatorEmptyOffer(t *testing.T) {
	_, err := NewDefaultNegotiator().Select(nil)
	require.ErrorIs(t, err, ErrProposalRejected)
}

func TestConfigValidation(t *testing.T) {
	require.NoError(t, testConfig().validate())

	broken := []func(*Config){
		func(c *Config) { c.LocalIdentity = Identity{} },
		func(c *Config) { c.Authenticator = nil },
		func(c *Config) { c.Proposals = nil },
		func(c *Config) { c.DHGroup = protocol.MODP_NONE },
		func(c *Config) { c.NonceSize = 4 },
	}
	for i, mutate := range broken {
		cfg := testConfig()
		mutate(cfg)
		assert.Error(t, cfg.validate(), "case %d", i)
	}
}

func TestPresharedKeyAuthRoundTrip(t *testing.T) {
	a := NewPresharedKeyAuth([]byte("shared secret"))
	octets := []byte("signed octets")

	proof, err := a.Sign(octets)
	require.NoError(t, err)
	require.NoError(t, a.Verify(octets, proof))

	require.ErrorIs(t, a.Verify([]byte("other octets"), proof), ErrAuthenticationFailed)
	require.ErrorIs(t, a.Verify(octets, []byte("bad proof")), ErrAuthenticationFailed)

	b := NewPresharedKeyAuth([]byte("different secret"))
	require.ErrorIs(t, b.Verify(octets, proof), ErrAuthenticationFailed)
}
