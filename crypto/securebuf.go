/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package crypto

import (
	"crypto/rand"
	"errors"
)

/* Due to limitations in Go there is currently no way to guarantee that
 * key material never touches swap or gets copied by the runtime. What we
 * can guarantee is that every sensitive buffer has exactly one owner and
 * one wipe point, which this type provides.
 */

// SecureBuffer owns a sensitive byte sequence. Ownership is exclusive:
// the bytes passed to NewSecureBuffer must not be retained by the caller.
// Wipe zeroes the contents and detaches them; it is safe on a nil buffer
// and safe to call more than once.
type SecureBuffer struct {
	b []byte
}

// NewSecureBuffer takes ownership of b.
func NewSecureBuffer(b []byte) *SecureBuffer {
	return &SecureBuffer{b: b}
}

// RandomSecureBuffer returns n bytes from the system CSPRNG.
func RandomSecureBuffer(n int) (*SecureBuffer, error) {
	if n <= 0 {
		return nil, errors.New("invalid secure buffer size")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return &SecureBuffer{b: b}, nil
}

// Bytes exposes the contents for the duration of a derivation step. The
// slice aliases the buffer and must not outlive it.
func (s *SecureBuffer) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.b
}

func (s *SecureBuffer) Len() int {
	if s == nil {
		return 0
	}
	return len(s.b)
}

// Wipe zeroes and releases the contents.
func (s *SecureBuffer) Wipe() {
	if s == nil {
		return
	}
	setZero(s.b)
	s.b = nil
}

func setZero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
