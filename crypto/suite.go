/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/hashicorp/go-ikeguard/protocol"
)

// Suite is the instantiated transform set of one IKE SA, built from the
// selected proposal. Only AEAD encryption transforms are supported, so
// the integrity transform must be absent or NONE.
type Suite struct {
	Encr       protocol.EncrTransformID
	EncrKeyLen int // bytes
	PRF        protocol.PRFTransformID
	DHGroup    protocol.DHTransformID
}

// NewSuite validates a selected proposal and instantiates the transform
// set. Proposals carrying transforms with no implementation fail here.
func NewSuite(p *protocol.Proposal) (*Suite, error) {
	encr := p.First(protocol.TransformEncr)
	prf := p.First(protocol.TransformPRF)
	dh := p.First(protocol.TransformDH)
	if encr == nil || prf == nil || dh == nil {
		return nil, errors.New("proposal lacks a mandatory transform type")
	}
	s := &Suite{
		Encr:    protocol.EncrTransformID(encr.ID),
		PRF:     protocol.PRFTransformID(prf.ID),
		DHGroup: protocol.DHTransformID(dh.ID),
	}
	switch s.Encr {
	case protocol.ENCR_AES_GCM_16:
		switch encr.KeyLength() {
		case 128, 192, 256:
			s.EncrKeyLen = int(encr.KeyLength()) / 8
		default:
			return nil, fmt.Errorf("%w: AES-GCM key length %d", ErrUnsupportedTransform, encr.KeyLength())
		}
	case protocol.ENCR_CHACHA20_POLY1305:
		s.EncrKeyLen = chacha20poly1305.KeySize
	default:
		return nil, fmt.Errorf("%w: encryption %d", ErrUnsupportedTransform, s.Encr)
	}
	if integ := p.First(protocol.TransformInteg); integ != nil && integ.ID != uint16(protocol.AUTH_NONE) {
		return nil, fmt.Errorf("%w: separate integrity %d with AEAD encryption", ErrUnsupportedTransform, integ.ID)
	}
	if _, err := PRFSize(s.PRF); err != nil {
		return nil, err
	}
	return s, nil
}

// PRFKeySize returns the SK_p / SK_d key size in bytes.
func (s *Suite) PRFKeySize() (int, error) { return PRFSize(s.PRF) }

func (s *Suite) newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != s.EncrKeyLen {
		return nil, fmt.Errorf("key is %d bytes, suite needs %d", len(key), s.EncrKeyLen)
	}
	switch s.Encr {
	case protocol.ENCR_AES_GCM_16:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case protocol.ENCR_CHACHA20_POLY1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: encryption %d", ErrUnsupportedTransform, s.Encr)
	}
}

// Sealer seals and opens SK payload contents for one direction of one
// IKE SA. It satisfies the protocol package's SKSealer and SKOpener.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer binds a directional key to the suite's AEAD.
func (s *Suite) NewSealer(key *SecureBuffer) (*Sealer, error) {
	aead, err := s.newAEAD(key.Bytes())
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Overhead is the fixed expansion of SealSK: a fresh nonce plus the tag.
func (s *Sealer) Overhead() int {
	return s.aead.NonceSize() + s.aead.Overhead()
}

// SealSK seals plaintext with a fresh random nonce, binding aad. The
// nonce is prepended to the ciphertext.
func (s *Sealer) SealSK(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// OpenSK reverses SealSK.
func (s *Sealer) OpenSK(ciphertext, aad []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(ciphertext) < ns+s.aead.Overhead() {
		return nil, errors.New("sealed body too short")
	}
	return s.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], aad)
}
