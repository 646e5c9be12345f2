/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-ikeguard/protocol"
)

// Every failure of the negotiation core is terminal for the state that
// reported it and falls into one of four classes. The sentinel names the
// condition, the class names who is at fault: the peer (ProtocolError),
// the negotiation (NegotiationError), the local configuration
// (ConfigError) or the send path (TransportError).

var (
	ErrUnexpectedExchangeType = errors.New("exchange type not supported in this state")
	ErrUnexpectedRole         = errors.New("message is a request, expected a response")
	ErrMalformedPayload       = errors.New("message body could not be parsed")
	ErrInvalidProposalCount   = errors.New("response must carry exactly one proposal")
	ErrUnsupportedPayload     = errors.New("payload type not supported in this exchange")
	ErrInvalidKEGroup         = errors.New("KE payload group does not match the initiated group")

	ErrProposalRejected = errors.New("selected proposal not a suggested one")

	ErrTransformCreation = errors.New("transforms could not be created from selected proposal")

	ErrPacketGeneration = errors.New("could not generate packet from message")
	ErrPacketEnqueue    = errors.New("could not enqueue packet for transmission")
	ErrSessionClosed    = errors.New("session is shut down")

	ErrAuthenticationFailed = errors.New("peer authentication failed")
	ErrPeerNotify           = errors.New("peer reported an error notification")

	// ErrContractViolation indicates a bug in this library, not peer
	// input: a derivation step ran before its inputs were recorded.
	ErrContractViolation = errors.New("exchange contract violation")
)

// ProtocolError reports a violation of the exchange rules by the peer,
// with enough context for the caller to log.
type ProtocolError struct {
	Err      error
	Exchange protocol.ExchangeType
	Payload  protocol.PayloadType
}

func (e *ProtocolError) Error() string {
	if e.Payload != protocol.TypeNone {
		return fmt.Sprintf("protocol: %v (exchange %s, payload %s)", e.Err, e.Exchange, e.Payload)
	}
	return fmt.Sprintf("protocol: %v (exchange %s)", e.Err, e.Exchange)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NegotiationError reports that no offered proposal was acceptable.
type NegotiationError struct {
	Err error
}

func (e *NegotiationError) Error() string { return fmt.Sprintf("negotiation: %v", e.Err) }
func (e *NegotiationError) Unwrap() error { return e.Err }

// ConfigError reports a local misconfiguration: an otherwise valid
// exchange could not proceed with what this endpoint has.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError reports a failure to generate or enqueue a packet.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

func protocolError(err error, exchange protocol.ExchangeType, payload protocol.PayloadType) error {
	return &ProtocolError{Err: err, Exchange: exchange, Payload: payload}
}
