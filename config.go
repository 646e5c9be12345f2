/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"github.com/hashicorp/go-ikeguard/protocol"
)

// Identity is one identity type/value pair carried in an ID payload.
type Identity struct {
	Type protocol.IDType
	Data []byte
}

func (id Identity) valid() bool { return id.Type != 0 && len(id.Data) > 0 }

// Authenticator supplies and checks AUTH payload material. Implementations
// are the configuration collaborator's concern; the state machine only
// calls Method, Sign and Verify.
type Authenticator interface {
	Method() protocol.AuthMethod
	Sign(octets []byte) ([]byte, error)
	Verify(octets, authData []byte) error
}

// PresharedKeyAuth authenticates with a shared secret,
// prf(secret, octets) on both sides.
type PresharedKeyAuth struct {
	secret []byte
}

func NewPresharedKeyAuth(secret []byte) *PresharedKeyAuth {
	return &PresharedKeyAuth{secret: append([]byte(nil), secret...)}
}

func (a *PresharedKeyAuth) Method() protocol.AuthMethod { return protocol.AuthSharedKeyMAC }

func (a *PresharedKeyAuth) Sign(octets []byte) ([]byte, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("empty preshared key")
	}
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(octets)
	return mac.Sum(nil), nil
}

func (a *PresharedKeyAuth) Verify(octets, authData []byte) error {
	want, err := a.Sign(octets)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(want, authData) != 1 {
		return ErrAuthenticationFailed
	}
	return nil
}

// Config is everything a session needs from the configuration manager:
// the local identity, the authentication material, the proposals to
// offer and the DH group to open with. It is plain data; callers own it
// and must not mutate it while a session built from it is live.
type Config struct {
	LocalIdentity Identity
	Authenticator Authenticator

	// Proposals offered in the IKE_SA_INIT request, in preference order.
	Proposals []*protocol.Proposal

	// DHGroup opens the exchange. It should match the first proposal's
	// DH transform; responders picking another group answer with
	// INVALID_KE_PAYLOAD, which tears this session down.
	DHGroup protocol.DHTransformID

	// DHGroupPriority records which configured group preference DHGroup
	// came from, for renegotiation bookkeeping and logging.
	DHGroupPriority uint16

	// Negotiator validates the responder's selection. Defaults to the
	// preference-order negotiator.
	Negotiator Negotiator

	// NonceSize overrides the sent nonce length in bytes.
	NonceSize int
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if !c.LocalIdentity.valid() {
		return errors.New("local identity not configured")
	}
	if c.Authenticator == nil {
		return errors.New("authenticator not configured")
	}
	if len(c.Proposals) == 0 {
		return errors.New("no proposals configured")
	}
	if c.DHGroup == protocol.MODP_NONE {
		return errors.New("no Diffie-Hellman group configured")
	}
	if c.NonceSize != 0 && (c.NonceSize < 16 || c.NonceSize > 256) {
		return errors.New("nonce size out of range")
	}
	return nil
}

func (c *Config) nonceSize() int {
	if c.NonceSize != 0 {
		return c.NonceSize
	}
	return defaultNonceSize
}

func (c *Config) negotiator() Negotiator {
	if c.Negotiator != nil {
		return c.Negotiator
	}
	return NewDefaultNegotiator()
}
