/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/curve25519"

	"github.com/hashicorp/go-ikeguard/protocol"
)

// DiffieHellman is one session's ephemeral key exchange state. A context
// is bound to a single group; SharedSecret may be called once the peer's
// public value is known. Destroy erases the private exponent.
type DiffieHellman interface {
	Group() protocol.DHTransformID
	PublicValue() []byte
	SharedSecret(peerPublic []byte) (*SecureBuffer, error)
	Destroy()
}

var (
	ErrUnsupportedGroup = errors.New("unsupported Diffie-Hellman group")
	errBadPeerValue     = errors.New("invalid peer public value")
)

// NewDiffieHellman generates an ephemeral keypair for the given group.
func NewDiffieHellman(group protocol.DHTransformID) (DiffieHellman, error) {
	switch group {
	case protocol.CURVE25519:
		return newCurve25519()
	case protocol.MODP_1024, protocol.MODP_1536, protocol.MODP_2048, protocol.MODP_3072:
		return newModp(group)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedGroup, group)
	}
}

/* MODP groups, RFC 2409 / RFC 3526. Generator is 2 for all of them. */

var modpPrimes = map[protocol.DHTransformID]string{
	protocol.MODP_1024: "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE65381" +
		"FFFFFFFFFFFFFFFF",
	protocol.MODP_1536: "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
		"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
		"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
		"670C354E4ABC9804F1746C08CA237327FFFFFFFFFFFFFFFF",
	protocol.MODP_2048: "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
		"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
		"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
		"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
		"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
		"15728E5A8AACAA68FFFFFFFFFFFFFFFF",
	protocol.MODP_3072: "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
		"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
		"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
		"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
		"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
		"15728E5A8AAAC42DAD33170D04507A33A85521ABDF1CBA64" +
		"ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
		"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6B" +
		"F12FFA06D98A0864D87602733EC86A64521F2B18177B200C" +
		"BBE117577A615D6C770988C0BAD946E208E24FA074E5AB31" +
		"43DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF",
}

type modpGroup struct {
	group   protocol.DHTransformID
	prime   *big.Int
	private *big.Int
	public  []byte
}

func newModp(group protocol.DHTransformID) (*modpGroup, error) {
	prime, ok := new(big.Int).SetString(modpPrimes[group], 16)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedGroup, group)
	}
	size := len(modpPrimes[group]) / 2
	private, err := rand.Int(rand.Reader, prime)
	if err != nil {
		return nil, err
	}
	public := new(big.Int).Exp(big.NewInt(2), private, prime)
	return &modpGroup{
		group:   group,
		prime:   prime,
		private: private,
		public:  leftPad(public.Bytes(), size),
	}, nil
}

func (g *modpGroup) Group() protocol.DHTransformID { return g.group }

func (g *modpGroup) PublicValue() []byte { return g.public }

func (g *modpGroup) SharedSecret(peerPublic []byte) (*SecureBuffer, error) {
	if g.private == nil {
		return nil, errors.New("private exponent already destroyed")
	}
	y := new(big.Int).SetBytes(peerPublic)
	// reject the degenerate subgroup: y <= 1 or y >= p-1
	pMinus1 := new(big.Int).Sub(g.prime, big.NewInt(1))
	if y.Cmp(big.NewInt(1)) <= 0 || y.Cmp(pMinus1) >= 0 {
		return nil, errBadPeerValue
	}
	secret := new(big.Int).Exp(y, g.private, g.prime)
	b := leftPad(secret.Bytes(), len(g.public))
	secret.SetInt64(0)
	return NewSecureBuffer(b), nil
}

func (g *modpGroup) Destroy() {
	// big.Int offers no wiping primitive; overwriting the limbs is the
	// best available
	if g.private != nil {
		g.private.SetInt64(0)
		g.private = nil
	}
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

/* Curve25519, IKEv2 group 31 (RFC 8031). */

type curve25519Group struct {
	private   [curve25519.ScalarSize]byte
	public    []byte
	destroyed bool
}

func newCurve25519() (*curve25519Group, error) {
	g := &curve25519Group{}
	if _, err := rand.Read(g.private[:]); err != nil {
		return nil, err
	}
	public, err := curve25519.X25519(g.private[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	g.public = public
	return g, nil
}

func (g *curve25519Group) Group() protocol.DHTransformID { return protocol.CURVE25519 }

func (g *curve25519Group) PublicValue() []byte { return g.public }

func (g *curve25519Group) SharedSecret(peerPublic []byte) (*SecureBuffer, error) {
	if g.destroyed {
		return nil, errors.New("private scalar already destroyed")
	}
	if len(peerPublic) != curve25519.PointSize {
		return nil, errBadPeerValue
	}
	secret, err := curve25519.X25519(g.private[:], peerPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPeerValue, err)
	}
	return NewSecureBuffer(secret), nil
}

func (g *curve25519Group) Destroy() {
	setZero(g.private[:])
	g.destroyed = true
}
