/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

// Package ikeguard implements the negotiation core of an IKEv2 daemon:
// the per-session state machine that drives a security association from
// the initial Diffie-Hellman exchange through mutual authentication.
// Wire codecs, the network writer and configuration storage are
// collaborators behind narrow interfaces; the package has no global
// state.
package ikeguard

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	ikecrypto "github.com/hashicorp/go-ikeguard/crypto"
	"github.com/hashicorp/go-ikeguard/protocol"
	"github.com/hashicorp/go-ikeguard/transport"
)

// Sender is the transport collaborator: packet generation and the shared
// send queue. Enqueue must accept concurrent calls from many sessions and
// preserve per-session FIFO order. Satisfied by transport.Outbox.
type Sender interface {
	GeneratePacket(msg *protocol.Message, sealer *ikecrypto.Sealer) (*transport.Packet, error)
	Enqueue(p *transport.Packet) error
}

// SA is one IKE security association: the SPI pair, the active exchange
// state, the negotiated transforms and derived keys, and the
// retransmission bookkeeping. All message processing for one SA runs
// under its session lock, so a state transition is a single critical
// section; independent SAs share nothing but the Sender.
type SA struct {
	mu     sync.Mutex
	closed bool

	log    hclog.Logger
	cfg    *Config
	neg    Negotiator
	sender Sender

	initiatorSPI uint64
	responderSPI uint64

	st    state
	suite *ikecrypto.Suite
	keys  *ikecrypto.Keyring

	peerIdentity *Identity

	lastSentRequest *protocol.Message
	lastSentPacket  *transport.Packet
	nextRequestID   uint32

	retransmit         *saTimer
	retransmitAttempts atomic.Uint32
}

// HandleMessage feeds a decrypted, header-parsed inbound message to the
// active state. It returns nil on a completed transition or one of the
// terminal error classes; on error the failed state stays installed and
// the caller decides whether to Shutdown the session.
func (sa *SA) HandleMessage(msg *protocol.Message) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if sa.closed {
		return &TransportError{Err: ErrSessionClosed}
	}
	switch st := sa.st.(type) {
	case *initRequested:
		return st.processMessage(sa, msg)
	case *authRequested:
		return st.processMessage(sa, msg)
	case *established:
		return protocolError(ErrUnexpectedExchangeType, msg.ExchangeType(), protocol.TypeNone)
	case *dead:
		return &TransportError{Err: ErrSessionClosed}
	default:
		return fmt.Errorf("unhandled state %T", sa.st)
	}
}

// selectAndInstallTransforms instantiates the session's cipher suite from
// the negotiated proposal.
func (sa *SA) selectAndInstallTransforms(p *protocol.Proposal) error {
	suite, err := ikecrypto.NewSuite(p)
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("%w: %v", ErrTransformCreation, err)}
	}
	sa.suite = suite
	return nil
}

// deriveKeys populates the working keys from the exchange results.
func (sa *SA) deriveKeys(sharedSecret, sentNonce, receivedNonce *ikecrypto.SecureBuffer) error {
	if sa.suite == nil {
		return fmt.Errorf("%w: transforms not installed before key derivation", ErrContractViolation)
	}
	keys, err := ikecrypto.DeriveKeyring(sa.suite, sharedSecret, sentNonce, receivedNonce,
		sa.initiatorSPI, sa.responderSPI)
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("%w: %v", ErrTransformCreation, err)}
	}
	sa.keys = keys
	return nil
}

// buildEmptyMessage starts a new outbound message for this session.
func (sa *SA) buildEmptyMessage(exchange protocol.ExchangeType, request bool) *protocol.Message {
	msg := protocol.NewMessage(exchange, request)
	msg.InitiatorSPI = sa.initiatorSPI
	msg.ResponderSPI = sa.responderSPI
	msg.Initiator = true
	if request {
		msg.MessageID = sa.nextRequestID
	}
	return msg
}

// setLastSentRequest records an outbound request for retransmission and
// re-arms the retransmit timer.
func (sa *SA) setLastSentRequest(msg *protocol.Message, pkt *transport.Packet) error {
	if sa.closed {
		return ErrSessionClosed
	}
	if msg == nil || pkt == nil {
		return errors.New("nil request")
	}
	sa.lastSentRequest = msg
	sa.lastSentPacket = pkt
	sa.nextRequestID++
	sa.timersRequestSent()
	return nil
}

// replaceState installs the successor. The caller holds the session
// lock, making ownership transfer a single step: no observer can see the
// SA between states.
func (sa *SA) replaceState(next state) {
	old := sa.st
	sa.st = next
	sa.log.Debug("state changed", "from", old.name(), "to", next.name())
}

// sealerFor binds a directional key to the negotiated AEAD.
func (sa *SA) sealerFor(key *ikecrypto.SecureBuffer) (*ikecrypto.Sealer, error) {
	if sa.suite == nil || sa.keys == nil {
		return nil, &ConfigError{Err: fmt.Errorf("%w: no keys derived", ErrTransformCreation)}
	}
	sealer, err := sa.suite.NewSealer(key)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("%w: %v", ErrTransformCreation, err)}
	}
	return sealer, nil
}

// signedOctets computes the data covered by an AUTH payload:
// prf(SK_p, SPIi | SPIr), binding the proof to this session's keys.
func (sa *SA) signedOctets(key *ikecrypto.SecureBuffer) ([]byte, error) {
	prf, err := ikecrypto.NewPRF(sa.suite.PRF, key.Bytes())
	if err != nil {
		return nil, err
	}
	var spis [16]byte
	binary.BigEndian.PutUint64(spis[0:8], sa.initiatorSPI)
	binary.BigEndian.PutUint64(spis[8:16], sa.responderSPI)
	prf.Write(spis[:])
	return prf.Sum(nil), nil
}

// Shutdown tears the session down: wipes keys and any state-owned
// exchange material, stops retransmission and rejects further messages.
// Idempotent.
func (sa *SA) Shutdown() {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	sa.shutdownLocked()
}

func (sa *SA) shutdownLocked() {
	if sa.closed {
		return
	}
	sa.closed = true
	if sa.retransmit != nil {
		sa.retransmit.Del()
	}
	if sa.st != nil {
		sa.st.destroy()
	}
	sa.st = &dead{}
	sa.keys.Wipe()
	sa.keys = nil
	sa.lastSentRequest = nil
	sa.lastSentPacket = nil
	sa.log.Debug("session shut down")
}

// InitiatorSPI returns the session identifier chosen at initiation.
func (sa *SA) InitiatorSPI() uint64 { return sa.initiatorSPI }

// ResponderSPI returns the peer's SPI, zero until the first response.
func (sa *SA) ResponderSPI() uint64 {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return sa.responderSPI
}

// StateName reports the active state for logging and tests.
func (sa *SA) StateName() string {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return sa.st.name()
}

// PeerIdentity returns the responder identity seen in IKE_AUTH, or nil
// before authentication completes.
func (sa *SA) PeerIdentity() *Identity {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return sa.peerIdentity
}

func newSPI() (uint64, error) {
	var b [8]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, err
		}
		if spi := binary.BigEndian.Uint64(b[:]); spi != 0 {
			return spi, nil
		}
	}
}
