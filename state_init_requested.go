/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"fmt"

	"github.com/hashicorp/go-ikeguard/protocol"
)

// processMessage consumes the responder's IKE_SA_INIT reply: negotiates
// the transform set, completes the Diffie-Hellman exchange, derives the
// SA's working keys, sends the IKE_AUTH request and installs the
// successor state. Every failure is terminal for this state; the caller
// disposes of the session, and destroy() wipes whatever the exchange
// context still owns.
func (st *initRequested) processMessage(sa *SA, reply *protocol.Message) error {
	if reply.ExchangeType() != protocol.IKE_SA_INIT {
		sa.log.Error("unexpected exchange type", "state", st.name(),
			"exchange", reply.ExchangeType().String(), "dh_group_priority", st.dhGroupPriority)
		return protocolError(ErrUnexpectedExchangeType, reply.ExchangeType(), protocol.TypeNone)
	}
	if reply.IsRequest() {
		sa.log.Error("only responses supported in this state", "state", st.name())
		return protocolError(ErrUnexpectedRole, reply.ExchangeType(), protocol.TypeNone)
	}
	// first response of the session: still unprotected at the IKE layer
	if err := reply.ParseBody(nil); err != nil {
		sa.log.Error("could not parse message body", "error", err)
		return protocolError(fmt.Errorf("%w: %v", ErrMalformedPayload, err), reply.ExchangeType(), protocol.TypeNone)
	}

	sa.responderSPI = reply.ResponderSPI

	// payload order is not canonical; each type is handled on arrival
	// and the shared secret is computed only after the loop
	payloads := reply.Payloads()
	defer payloads.Release()

	for {
		p, ok := payloads.Next()
		if !ok {
			break
		}
		sa.log.Trace("processing payload", "type", p.Type().String())

		switch pl := p.(type) {
		case *protocol.SecurityAssociation:
			proposals := pl.Proposals()
			if len(proposals) != 1 {
				sa.log.Error("response did not narrow to one proposal", "count", len(proposals))
				return protocolError(ErrInvalidProposalCount, reply.ExchangeType(), protocol.TypeSA)
			}
			selected, err := sa.neg.Select(proposals)
			if err != nil {
				sa.log.Error("proposal rejected", "error", err, "dh_group_priority", st.dhGroupPriority)
				return &NegotiationError{Err: err}
			}
			if err := sa.selectAndInstallTransforms(selected); err != nil {
				sa.log.Error("transform instantiation failed", "error", err)
				return err
			}

		case *protocol.KeyExchange:
			// same-size MODP groups make a mismatch undetectable by
			// value length alone; the tag must match what we initiated
			if pl.Group != st.exch.dh.Group() {
				sa.log.Error("KE group mismatch", "got", pl.Group.String(),
					"initiated", st.exch.dh.Group().String())
				return protocolError(ErrInvalidKEGroup, reply.ExchangeType(), protocol.TypeKE)
			}
			st.exch.setPeerPublic(pl.PeerPublicValue())
			// shared secret is computed AFTER processing of all payloads

		case *protocol.Nonce:
			st.exch.setReceivedNonce(pl.NonceBytes())

		default:
			sa.log.Error("payload type not supported in this exchange", "type", p.Type().String())
			return protocolError(ErrUnsupportedPayload, reply.ExchangeType(), p.Type())
		}
	}

	if err := st.exch.computeSharedSecret(); err != nil {
		sa.log.Error("shared secret derivation refused", "error", err)
		return err
	}
	if err := sa.deriveKeys(st.exch.sharedSecret, st.exch.sentNonce, st.exch.receivedNonce); err != nil {
		sa.log.Error("key derivation failed", "error", err)
		return err
	}

	request, err := st.buildAuthRequest(sa)
	if err != nil {
		sa.log.Error("could not build IKE_AUTH request", "error", err)
		return err
	}

	sealer, err := sa.sealerFor(sa.keys.SKei)
	if err != nil {
		return err
	}
	pkt, err := sa.sender.GeneratePacket(request, sealer)
	if err != nil {
		sa.log.Error("could not generate packet from message", "error", err)
		return &TransportError{Err: fmt.Errorf("%w: %v", ErrPacketGeneration, err)}
	}
	if err := sa.sender.Enqueue(pkt); err != nil {
		return &TransportError{Err: fmt.Errorf("%w: %v", ErrPacketEnqueue, err)}
	}

	successor := &authRequested{}
	if err := sa.setLastSentRequest(request, pkt); err != nil {
		// retransmission bookkeeping is broken; the successor and the
		// request must not survive
		successor.destroy()
		sa.log.Error("could not record last sent request", "error", err)
		return &TransportError{Err: err}
	}

	sa.replaceState(successor)

	// the exchange material served its purpose; wipe it so a second
	// derivation is unreachable
	st.destroy()
	return nil
}

// buildAuthRequest assembles the IKE_AUTH request: the local identity
// payload followed by the proof-of-possession AUTH payload, both sourced
// from configuration. Receivers may stage verification as identity then
// proof, so the order is fixed.
func (st *initRequested) buildAuthRequest(sa *SA) (*protocol.Message, error) {
	msg := sa.buildEmptyMessage(protocol.IKE_AUTH, true)

	msg.AppendPayload(&protocol.IdentificationInitiator{
		IDType: sa.cfg.LocalIdentity.Type,
		Data:   sa.cfg.LocalIdentity.Data,
	})

	octets, err := sa.signedOctets(sa.keys.SKpi)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	authData, err := sa.cfg.Authenticator.Sign(octets)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	msg.AppendPayload(&protocol.Authentication{
		Method: sa.cfg.Authenticator.Method(),
		Data:   authData,
	})
	return msg, nil
}
