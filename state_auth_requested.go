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

// processMessage consumes the responder's IKE_AUTH reply: opens the SK
// payload with the responder's keys, verifies the peer's identity and
// proof of possession, and moves the session to ESTABLISHED.
func (st *authRequested) processMessage(sa *SA, reply *protocol.Message) error {
	if reply.ExchangeType() != protocol.IKE_AUTH {
		sa.log.Error("unexpected exchange type", "state", st.name(),
			"exchange", reply.ExchangeType().String())
		return protocolError(ErrUnexpectedExchangeType, reply.ExchangeType(), protocol.TypeNone)
	}
	if reply.IsRequest() {
		sa.log.Error("only responses supported in this state", "state", st.name())
		return protocolError(ErrUnexpectedRole, reply.ExchangeType(), protocol.TypeNone)
	}

	opener, err := sa.sealerFor(sa.keys.SKer)
	if err != nil {
		return err
	}
	if err := reply.ParseBody(opener); err != nil {
		sa.log.Error("could not parse message body", "error", err)
		return protocolError(fmt.Errorf("%w: %v", ErrMalformedPayload, err), reply.ExchangeType(), protocol.TypeNone)
	}

	var (
		peerID *protocol.IdentificationResponder
		auth   *protocol.Authentication
	)

	payloads := reply.Payloads()
	defer payloads.Release()

	for {
		p, ok := payloads.Next()
		if !ok {
			break
		}
		sa.log.Trace("processing payload", "type", p.Type().String())

		switch pl := p.(type) {
		case *protocol.IdentificationResponder:
			peerID = pl
		case *protocol.Authentication:
			auth = pl
		case *protocol.Notify:
			if pl.NotifyType.IsError() {
				sa.log.Error("peer rejected authentication", "notify", pl.NotifyType.String())
				return protocolError(fmt.Errorf("%w: %s", ErrPeerNotify, pl.NotifyType),
					reply.ExchangeType(), protocol.TypeN)
			}
			// status notifications carry no obligations here
		case *protocol.SecurityAssociation, *protocol.Raw:
			// CHILD_SA and traffic selector material is handled by the
			// layer above once the IKE_SA is up
		default:
			sa.log.Error("payload type not supported in this exchange", "type", p.Type().String())
			return protocolError(ErrUnsupportedPayload, reply.ExchangeType(), p.Type())
		}
	}

	if peerID == nil || auth == nil {
		sa.log.Error("response lacks identity or authentication payload",
			"have_id", peerID != nil, "have_auth", auth != nil)
		return protocolError(ErrMalformedPayload, reply.ExchangeType(), protocol.TypeNone)
	}

	octets, err := sa.signedOctets(sa.keys.SKpr)
	if err != nil {
		return &ConfigError{Err: err}
	}
	if err := sa.cfg.Authenticator.Verify(octets, auth.Data); err != nil {
		sa.log.Error("peer authentication failed", "error", err)
		return protocolError(ErrAuthenticationFailed, reply.ExchangeType(), protocol.TypeAUTH)
	}

	sa.peerIdentity = &Identity{Type: peerID.IDType, Data: append([]byte(nil), peerID.Data...)}

	sa.replaceState(&established{})
	sa.timersExchangeComplete()
	st.destroy()

	sa.log.Info("IKE_SA established",
		"initiator_spi", fmt.Sprintf("%016x", sa.initiatorSPI),
		"responder_spi", fmt.Sprintf("%016x", sa.responderSPI))
	return nil
}
