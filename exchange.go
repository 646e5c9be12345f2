/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"fmt"

	ikecrypto "github.com/hashicorp/go-ikeguard/crypto"
	"github.com/hashicorp/go-ikeguard/protocol"
)

// exchangeContext holds one session's ephemeral key material: the local
// DH keypair, the nonce we sent, the peer's nonce and public value once
// received, and the derived shared secret. It is owned by exactly one
// state at a time and destroyed, with a full wipe, when that state exits.
type exchangeContext struct {
	dh            ikecrypto.DiffieHellman
	sentNonce     *ikecrypto.SecureBuffer
	receivedNonce *ikecrypto.SecureBuffer
	sharedSecret  *ikecrypto.SecureBuffer
	peerPublic    []byte
}

// newExchangeContext generates a fresh DH keypair and nonce.
func newExchangeContext(group protocol.DHTransformID, nonceSize int) (*exchangeContext, error) {
	dh, err := ikecrypto.NewDiffieHellman(group)
	if err != nil {
		return nil, err
	}
	nonce, err := ikecrypto.RandomSecureBuffer(nonceSize)
	if err != nil {
		dh.Destroy()
		return nil, err
	}
	return &exchangeContext{dh: dh, sentNonce: nonce}, nil
}

// setPeerPublic records the peer's DH public value. The shared secret is
// computed later, once all payloads of the response are consumed.
func (x *exchangeContext) setPeerPublic(v []byte) {
	x.peerPublic = append([]byte(nil), v...)
}

// setReceivedNonce records the peer's nonce, wiping any previous value so
// a duplicate nonce payload cannot leak the first.
func (x *exchangeContext) setReceivedNonce(b []byte) {
	x.receivedNonce.Wipe()
	x.receivedNonce = ikecrypto.NewSecureBuffer(append([]byte(nil), b...))
}

// computeSharedSecret derives g^ir. Both the peer public value and the
// received nonce must have been recorded, and the secret must not have
// been derived before; either violation is a bug in the calling state,
// not peer input.
func (x *exchangeContext) computeSharedSecret() error {
	if x.sharedSecret != nil {
		return fmt.Errorf("%w: shared secret derived twice", ErrContractViolation)
	}
	if x.peerPublic == nil {
		return fmt.Errorf("%w: peer public value never received", ErrContractViolation)
	}
	if x.receivedNonce.Len() == 0 {
		return fmt.Errorf("%w: peer nonce never received", ErrContractViolation)
	}
	secret, err := x.dh.SharedSecret(x.peerPublic)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	x.sharedSecret = secret
	return nil
}

// destroy wipes and releases everything the context owns. Safe on every
// exit path, including contexts that never saw a response.
func (x *exchangeContext) destroy() {
	if x == nil {
		return
	}
	if x.dh != nil {
		x.dh.Destroy()
		x.dh = nil
	}
	x.sentNonce.Wipe()
	x.receivedNonce.Wipe()
	x.sharedSecret.Wipe()
	x.peerPublic = nil
}
