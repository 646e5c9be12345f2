/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"sync"
	"testing"

	ikecrypto "github.com/hashicorp/go-ikeguard/crypto"
	"github.com/hashicorp/go-ikeguard/protocol"
	"github.com/hashicorp/go-ikeguard/transport"
)

// captureSender records every message a session sends, in order, so tests
// can assert on exchange types, payload order and packet counts.
type captureSender struct {
	mu      sync.Mutex
	msgs    []*protocol.Message
	sealers []*ikecrypto.Sealer
	packets []*transport.Packet

	generateErr error
	enqueueErr  error
}

func (s *captureSender) GeneratePacket(msg *protocol.Message, sealer *ikecrypto.Sealer) (*transport.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	var (
		data []byte
		err  error
	)
	if sealer == nil {
		data, err = msg.Encode()
	} else {
		data, err = msg.EncodeSealed(sealer)
	}
	if err != nil {
		return nil, err
	}
	s.msgs = append(s.msgs, msg)
	s.sealers = append(s.sealers, sealer)
	return &transport.Packet{Session: msg.InitiatorSPI, Data: data}, nil
}

func (s *captureSender) Enqueue(p *transport.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.packets = append(s.packets, p)
	return nil
}

func (s *captureSender) sent() []*protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*protocol.Message(nil), s.msgs...)
}

func (s *captureSender) packetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.packets)
}

func testProposal() *protocol.Proposal {
	p := protocol.NewProposal(1, protocol.ProtoIKE, nil)
	p.AddTransformKeyLen(protocol.TransformEncr, uint16(protocol.ENCR_AES_GCM_16), 256)
	p.AddTransform(protocol.TransformPRF, uint16(protocol.PRF_HMAC_SHA2_256))
	p.AddTransform(protocol.TransformDH, uint16(protocol.CURVE25519))
	return p
}

func testConfig() *Config {
	return &Config{
		LocalIdentity: Identity{Type: protocol.ID_FQDN, Data: []byte("initiator.example.org")},
		Authenticator: NewPresharedKeyAuth([]byte("test preshared key")),
		Proposals:     []*protocol.Proposal{testProposal()},
		DHGroup:       protocol.CURVE25519,
	}
}

// responder mirrors the peer side of an exchange well enough to produce
// valid IKE_SA_INIT and IKE_AUTH responses for a session under test.
type responder struct {
	t      *testing.T
	spi    uint64
	dh     ikecrypto.DiffieHellman
	nonce  []byte
	secret *ikecrypto.SecureBuffer
}

func newResponder(t *testing.T) *responder {
	t.Helper()
	dh, err := ikecrypto.NewDiffieHellman(protocol.CURVE25519)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dh.Destroy)
	nonce, err := ikecrypto.RandomSecureBuffer(32)
	if err != nil {
		t.Fatal(err)
	}
	return &responder{t: t, spi: 0x5a5a5a5a5a5a5a5a, dh: dh, nonce: nonce.Bytes()}
}

// initResponse builds the responder's IKE_SA_INIT reply to the captured
// request, on the wire and parsed back the way an inbound datagram is.
func (r *responder) initResponse(request *protocol.Message, mutate func(*protocol.Message)) *protocol.Message {
	r.t.Helper()

	if err := request.ParseBody(nil); err != nil {
		r.t.Fatal(err)
	}
	it := request.Payloads()
	defer it.Release()
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		if ke, ok := p.(*protocol.KeyExchange); ok {
			secret, err := r.dh.SharedSecret(ke.PeerPublicValue())
			if err != nil {
				r.t.Fatal(err)
			}
			r.secret = secret
			r.t.Cleanup(secret.Wipe)
		}
	}

	msg := protocol.NewMessage(protocol.IKE_SA_INIT, false)
	msg.InitiatorSPI = request.InitiatorSPI
	msg.ResponderSPI = r.spi
	msg.AppendPayload(&protocol.SecurityAssociation{Props: []*protocol.Proposal{testProposal()}})
	msg.AppendPayload(&protocol.KeyExchange{Group: protocol.CURVE25519, KeyData: r.dh.PublicValue()})
	msg.AppendPayload(&protocol.Nonce{Data: r.nonce})
	if mutate != nil {
		mutate(msg)
	}
	return reparse(r.t, msg, nil)
}

// reparse pushes a message through its wire form, simulating delivery.
func reparse(t *testing.T, msg *protocol.Message, sealer *ikecrypto.Sealer) *protocol.Message {
	t.Helper()
	var (
		b   []byte
		err error
	)
	if sealer == nil {
		b, err = msg.Encode()
	} else {
		b, err = msg.EncodeSealed(sealer)
	}
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := protocol.ParseMessage(b)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}
