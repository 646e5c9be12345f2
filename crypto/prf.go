/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"github.com/hashicorp/go-ikeguard/protocol"
)

// ErrUnsupportedTransform is returned when a negotiated transform ID has
// no implementation.
var ErrUnsupportedTransform = errors.New("unsupported transform")

// NewPRF returns the keyed pseudorandom function for a transform ID. The
// IKEv2 PRF registry entries implemented here are all HMACs.
func NewPRF(id protocol.PRFTransformID, key []byte) (hash.Hash, error) {
	switch id {
	case protocol.PRF_HMAC_SHA1:
		return hmac.New(sha1.New, key), nil
	case protocol.PRF_HMAC_SHA2_256:
		return hmac.New(sha256.New, key), nil
	case protocol.PRF_HMAC_SHA2_384:
		return hmac.New(sha512.New384, key), nil
	default:
		return nil, fmt.Errorf("%w: PRF %d", ErrUnsupportedTransform, id)
	}
}

// PRFSize returns the output (and preferred key) size of a PRF in bytes.
func PRFSize(id protocol.PRFTransformID) (int, error) {
	switch id {
	case protocol.PRF_HMAC_SHA1:
		return sha1.Size, nil
	case protocol.PRF_HMAC_SHA2_256:
		return sha256.Size, nil
	case protocol.PRF_HMAC_SHA2_384:
		return sha512.Size384, nil
	default:
		return 0, fmt.Errorf("%w: PRF %d", ErrUnsupportedTransform, id)
	}
}

// SKEYSEED computes prf(Ni | Nr, g^ir), RFC 7296 2.14.
func SKEYSEED(id protocol.PRFTransformID, ni, nr, sharedSecret []byte) ([]byte, error) {
	prf, err := NewPRF(id, append(append([]byte(nil), ni...), nr...))
	if err != nil {
		return nil, err
	}
	if _, err := prf.Write(sharedSecret); err != nil {
		return nil, err
	}
	return prf.Sum(nil), nil
}

// PlusExpand is the prf+ keystream of RFC 7296 2.13:
//
//	T1 = prf(K, S | 0x01), Tn = prf(K, Tn-1 | S | n)
//
// truncated to total bytes.
func PlusExpand(id protocol.PRFTransformID, key, seed []byte, total int) ([]byte, error) {
	var keystream, block []byte
	for counter := byte(1); len(keystream) < total; counter++ {
		if counter == 0 {
			return nil, errors.New("prf+ keystream exhausted")
		}
		prf, err := NewPRF(id, key)
		if err != nil {
			return nil, err
		}
		prf.Write(block)
		prf.Write(seed)
		prf.Write([]byte{counter})
		block = prf.Sum(nil)
		keystream = append(keystream, block...)
	}
	return keystream[:total], nil
}
