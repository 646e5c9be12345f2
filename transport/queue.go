/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package transport

import (
	"errors"
	"sync"
)

const (
	maxPacketSize = 65535
	queueSendSize = 1024
)

var (
	// ErrQueueFull is returned when the network writer has fallen
	// behind; a session's enqueue never blocks on it.
	ErrQueueFull = errors.New("send queue full")

	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("send queue closed")
)

// Packet is one encoded IKE datagram ready for transmission.
type Packet struct {
	// Session is the initiator SPI of the originating IKE SA, carried
	// for the writer's logging only.
	Session uint64
	Data    []byte
}

// SendQueue is the process-wide outbound queue. Sessions enqueue
// concurrently; a single channel keeps every session's packets in its
// enqueue order, which is all the ordering the protocol needs
// (cross-session order is incidental).
type SendQueue struct {
	c      chan *Packet
	closed chan struct{}
	once   sync.Once
}

func NewSendQueue() *SendQueue {
	return &SendQueue{
		c:      make(chan *Packet, queueSendSize),
		closed: make(chan struct{}),
	}
}

// Enqueue adds a packet without blocking.
func (q *SendQueue) Enqueue(p *Packet) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case q.c <- p:
		return nil
	default:
		return ErrQueueFull
	}
}

// Outbound is drained by the network writer.
func (q *SendQueue) Outbound() <-chan *Packet {
	return q.c
}

// Close stops the queue. Packets already enqueued remain readable.
func (q *SendQueue) Close() {
	q.once.Do(func() { close(q.closed) })
}
