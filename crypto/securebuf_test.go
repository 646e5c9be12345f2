/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package crypto

import (
	"bytes"
	"testing"
)

func TestSecureBufferWipe(t *testing.T) {
	backing := []byte{1, 2, 3, 4}
	buf := NewSecureBuffer(backing)
	if buf.Len() != 4 {
		t.Fatalf("length %d, want 4", buf.Len())
	}
	buf.Wipe()
	// the buffer owns its backing slice; Wipe must zero it in place
	if !bytes.Equal(backing, []byte{0, 0, 0, 0}) {
		t.Fatalf("backing slice not zeroed: %v", backing)
	}
	if buf.Len() != 0 {
		t.Fatal("wiped buffer still reports a length")
	}
}

func TestSecureBufferNilSafe(t *testing.T) {
	var buf *SecureBuffer
	buf.Wipe()
	if buf.Len() != 0 {
		t.Fatal("nil buffer reports a length")
	}
	if buf.Bytes() != nil {
		t.Fatal("nil buffer reports bytes")
	}
}

func TestRandomSecureBuffer(t *testing.T) {
	a, err := RandomSecureBuffer(32)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Wipe()
	b, err := RandomSecureBuffer(32)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Wipe()

	if a.Len() != 32 || b.Len() != 32 {
		t.Fatal("wrong buffer length")
	}
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("two random buffers are identical")
	}
}
