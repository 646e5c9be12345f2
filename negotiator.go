/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-ikeguard/protocol"
)

// Negotiator validates and selects one acceptable proposal from a
// candidate list. Implementations must be deterministic for identical
// inputs and must neither retain nor mutate the candidates.
type Negotiator interface {
	Select(offered []*protocol.Proposal) (*protocol.Proposal, error)
}

// preferenceNegotiator accepts a proposal whose mandatory transforms all
// appear in the local preference lists.
type preferenceNegotiator struct {
	encr  []protocol.EncrTransformID
	prf   []protocol.PRFTransformID
	integ []protocol.IntegTransformID
	dh    []protocol.DHTransformID
}

// NewDefaultNegotiator returns a negotiator with this library's supported
// algorithm set, strongest first.
func NewDefaultNegotiator() Negotiator {
	return &preferenceNegotiator{
		encr: []protocol.EncrTransformID{
			protocol.ENCR_AES_GCM_16,
			protocol.ENCR_CHACHA20_POLY1305,
		},
		prf: []protocol.PRFTransformID{
			protocol.PRF_HMAC_SHA2_384,
			protocol.PRF_HMAC_SHA2_256,
			protocol.PRF_HMAC_SHA1,
		},
		integ: []protocol.IntegTransformID{
			protocol.AUTH_NONE, // AEAD suites need no separate integrity
		},
		dh: []protocol.DHTransformID{
			protocol.CURVE25519,
			protocol.MODP_3072,
			protocol.MODP_2048,
			protocol.MODP_1536,
			protocol.MODP_1024,
		},
	}
}

func (n *preferenceNegotiator) Select(offered []*protocol.Proposal) (*protocol.Proposal, error) {
	for _, p := range offered {
		if err := n.match(p); err == nil {
			return p.Clone(), nil
		}
	}
	if len(offered) == 1 {
		// surface why the single candidate was refused
		return nil, fmt.Errorf("%w: %v", ErrProposalRejected, n.match(offered[0]))
	}
	return nil, ErrProposalRejected
}

func (n *preferenceNegotiator) match(p *protocol.Proposal) error {
	if p.Protocol != protocol.ProtoIKE {
		return fmt.Errorf("protocol %d is not IKE", p.Protocol)
	}
	var haveEncr, havePRF, haveDH bool
	for _, t := range p.Transforms {
		switch t.Type {
		case protocol.TransformEncr:
			if !contains(n.encr, protocol.EncrTransformID(t.ID)) {
				return fmt.Errorf("encryption transform %d unsupported", t.ID)
			}
			haveEncr = true
		case protocol.TransformPRF:
			if !contains(n.prf, protocol.PRFTransformID(t.ID)) {
				return fmt.Errorf("PRF transform %d unsupported", t.ID)
			}
			havePRF = true
		case protocol.TransformInteg:
			if !contains(n.integ, protocol.IntegTransformID(t.ID)) {
				return fmt.Errorf("integrity transform %d unsupported", t.ID)
			}
		case protocol.TransformDH:
			if !contains(n.dh, protocol.DHTransformID(t.ID)) {
				return fmt.Errorf("DH group %d unsupported", t.ID)
			}
			haveDH = true
		case protocol.TransformESN:
			// not meaningful for the IKE SA itself
		default:
			return fmt.Errorf("transform type %d unknown", t.Type)
		}
	}
	if !haveEncr || !havePRF || !haveDH {
		return errors.New("proposal lacks a mandatory transform type")
	}
	return nil
}

func contains[T comparable](list []T, v T) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
