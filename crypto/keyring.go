/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package crypto

import (
	"encoding/binary"
)

// Keyring holds the working keys of one IKE SA, RFC 7296 2.14: SK_d for
// child key derivation, SK_a* for integrity (empty with AEAD suites),
// SK_e* for encryption, SK_p* for the AUTH payload computation. Each key
// is an owned SecureBuffer; Wipe is the single release point.
type Keyring struct {
	SKd  *SecureBuffer
	SKai *SecureBuffer
	SKar *SecureBuffer
	SKei *SecureBuffer
	SKer *SecureBuffer
	SKpi *SecureBuffer
	SKpr *SecureBuffer
}

// DeriveKeyring runs SKEYSEED and the prf+ expansion and splits the
// keystream into the SA's working keys.
//
//	SKEYSEED = prf(Ni | Nr, g^ir)
//	{SK_d | SK_ai | SK_ar | SK_ei | SK_er | SK_pi | SK_pr}
//	         = prf+(SKEYSEED, Ni | Nr | SPIi | SPIr)
func DeriveKeyring(suite *Suite, sharedSecret, ni, nr *SecureBuffer, spiI, spiR uint64) (*Keyring, error) {
	prfLen, err := PRFSize(suite.PRF)
	if err != nil {
		return nil, err
	}
	// AEAD suites carry no separate integrity keys
	integLen := 0
	encrLen := suite.EncrKeyLen

	skeyseed, err := SKEYSEED(suite.PRF, ni.Bytes(), nr.Bytes(), sharedSecret.Bytes())
	if err != nil {
		return nil, err
	}
	defer setZero(skeyseed)

	seed := make([]byte, 0, ni.Len()+nr.Len()+16)
	seed = append(seed, ni.Bytes()...)
	seed = append(seed, nr.Bytes()...)
	seed = binary.BigEndian.AppendUint64(seed, spiI)
	seed = binary.BigEndian.AppendUint64(seed, spiR)
	defer setZero(seed)

	total := prfLen + 2*integLen + 2*encrLen + 2*prfLen
	keystream, err := PlusExpand(suite.PRF, skeyseed, seed, total)
	if err != nil {
		return nil, err
	}
	defer setZero(keystream)

	k := &Keyring{}
	rest := keystream
	next := func(n int) *SecureBuffer {
		buf := NewSecureBuffer(append([]byte(nil), rest[:n]...))
		rest = rest[n:]
		return buf
	}
	k.SKd = next(prfLen)
	k.SKai = next(integLen)
	k.SKar = next(integLen)
	k.SKei = next(encrLen)
	k.SKer = next(encrLen)
	k.SKpi = next(prfLen)
	k.SKpr = next(prfLen)
	return k, nil
}

// Wipe erases every key in the ring.
func (k *Keyring) Wipe() {
	if k == nil {
		return
	}
	k.SKd.Wipe()
	k.SKai.Wipe()
	k.SKar.Wipe()
	k.SKei.Wipe()
	k.SKer.Wipe()
	k.SKpi.Wipe()
	k.SKpr.Wipe()
}
