/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-ikeguard/protocol"
)

// NewInitiatorSA opens a new session as initiator: it generates the
// session's SPI, ephemeral keypair and nonce, sends the IKE_SA_INIT
// request through the sender, and returns the SA waiting for the
// responder's reply. The returned SA owns its retransmission timer;
// callers must Shutdown sessions they abandon.
func NewInitiatorSA(cfg *Config, sender Sender, logger hclog.Logger) (*SA, error) {
	if err := cfg.validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	if sender == nil {
		return nil, &ConfigError{Err: fmt.Errorf("nil sender")}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	spi, err := newSPI()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	exch, err := newExchangeContext(cfg.DHGroup, cfg.nonceSize())
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("%w: %v", ErrTransformCreation, err)}
	}

	sa := &SA{
		log:          logger.Named("ike").With("initiator_spi", fmt.Sprintf("%016x", spi)),
		cfg:          cfg,
		neg:          cfg.negotiator(),
		sender:       sender,
		initiatorSPI: spi,
		st:           &initRequested{exch: exch, dhGroupPriority: cfg.DHGroupPriority},
	}
	sa.timersInit()

	request := sa.buildEmptyMessage(protocol.IKE_SA_INIT, true)
	request.AppendPayload(&protocol.SecurityAssociation{Props: cloneProposals(cfg.Proposals)})
	request.AppendPayload(&protocol.KeyExchange{
		Group:   exch.dh.Group(),
		KeyData: exch.dh.PublicValue(),
	})
	request.AppendPayload(&protocol.Nonce{
		Data: append([]byte(nil), exch.sentNonce.Bytes()...),
	})

	// IKE_SA_INIT goes out unprotected
	pkt, err := sender.GeneratePacket(request, nil)
	if err != nil {
		sa.shutdownLocked()
		return nil, &TransportError{Err: fmt.Errorf("%w: %v", ErrPacketGeneration, err)}
	}
	if err := sender.Enqueue(pkt); err != nil {
		sa.shutdownLocked()
		return nil, &TransportError{Err: fmt.Errorf("%w: %v", ErrPacketEnqueue, err)}
	}
	if err := sa.setLastSentRequest(request, pkt); err != nil {
		sa.shutdownLocked()
		return nil, &TransportError{Err: err}
	}

	sa.log.Info("initiating IKE_SA", "dh_group", cfg.DHGroup.String(),
		"proposals", len(cfg.Proposals))
	return sa, nil
}

func cloneProposals(in []*protocol.Proposal) []*protocol.Proposal {
	out := make([]*protocol.Proposal, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
