/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package transport

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/go-ikeguard/crypto"
	"github.com/hashicorp/go-ikeguard/protocol"
)

// Outbox turns built messages into wire packets and feeds the shared
// send queue. One Outbox serves all sessions of a daemon.
type Outbox struct {
	queue *SendQueue
	log   hclog.Logger
}

func NewOutbox(logger hclog.Logger) *Outbox {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Outbox{
		queue: NewSendQueue(),
		log:   logger.Named("outbox"),
	}
}

// Queue exposes the shared send queue for the network writer.
func (o *Outbox) Queue() *SendQueue { return o.queue }

// GeneratePacket encodes a message for transmission. A nil sealer
// produces the unprotected IKE_SA_INIT form; otherwise the payload chain
// is sealed into an SK payload with the session's transforms.
func (o *Outbox) GeneratePacket(msg *protocol.Message, sealer *crypto.Sealer) (*Packet, error) {
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
	if len(data) > maxPacketSize {
		return nil, fmt.Errorf("packet is %d bytes, limit %d", len(data), maxPacketSize)
	}
	o.log.Trace("generated packet",
		"exchange", msg.ExchangeType().String(),
		"bytes", len(data),
		"protected", sealer != nil)
	return &Packet{Session: msg.InitiatorSPI, Data: data}, nil
}

// Enqueue hands a generated packet to the shared send queue.
func (o *Outbox) Enqueue(p *Packet) error {
	if err := o.queue.Enqueue(p); err != nil {
		o.log.Warn("dropping outbound packet", "session", p.Session, "error", err)
		return err
	}
	return nil
}

// Close shuts the queue down.
func (o *Outbox) Close() {
	o.queue.Close()
}
