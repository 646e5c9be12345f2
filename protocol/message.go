/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

/* IKE header, RFC 7296 3.1:
 *
 *    0: initiator SPI (8)
 *    8: responder SPI (8)
 *   16: next payload | version | exchange type | flags
 *   20: message ID (4)
 *   24: length (4)
 *
 * Generic payload header:
 *
 *    0: next payload | critical/reserved | payload length (2)
 */

const (
	HeaderLen        = 28
	payloadHeaderLen = 4
)

var (
	ErrMalformed = errors.New("malformed message")

	errEncryptedBody = errors.New("encrypted body requires a transform context")
)

// SKSealer seals a plaintext payload chain into SK payload contents.
// Implemented by the negotiated cipher suite.
type SKSealer interface {
	SealSK(plaintext, aad []byte) ([]byte, error)
	// Overhead is the fixed size added by sealing (nonce plus tag).
	Overhead() int
}

// SKOpener opens SK payload contents back into a plaintext payload chain.
type SKOpener interface {
	OpenSK(ciphertext, aad []byte) ([]byte, error)
}

// Message is one IKE message. Inbound messages keep their raw body until
// ParseBody decodes it; outbound messages accumulate typed payloads until
// Encode.
type Message struct {
	InitiatorSPI uint64
	ResponderSPI uint64
	Exchange     ExchangeType
	MessageID    uint32
	Response     bool
	Initiator    bool

	payloads  []Payload
	rawBody   []byte
	firstType PayloadType
	parsed    bool
}

// NewMessage returns an empty outbound message.
func NewMessage(exchange ExchangeType, request bool) *Message {
	return &Message{
		Exchange: exchange,
		Response: !request,
		parsed:   true,
	}
}

// ExchangeType returns the exchange this message belongs to.
func (m *Message) ExchangeType() ExchangeType { return m.Exchange }

// IsRequest reports whether the message is a request.
func (m *Message) IsRequest() bool { return !m.Response }

// AppendPayload adds a payload to the end of the chain.
func (m *Message) AppendPayload(p Payload) {
	m.payloads = append(m.payloads, p)
}

// ParseMessage decodes an IKE header and retains the body for ParseBody.
func ParseMessage(b []byte) (*Message, error) {
	if len(b) < HeaderLen {
		return nil, fmt.Errorf("%w: %d header bytes", ErrMalformed, len(b))
	}
	length := binary.BigEndian.Uint32(b[24:28])
	if int(length) != len(b) {
		return nil, fmt.Errorf("%w: header length %d, datagram %d", ErrMalformed, length, len(b))
	}
	if b[17] != Version {
		return nil, fmt.Errorf("%w: version %#x", ErrMalformed, b[17])
	}
	flags := b[19]
	m := &Message{
		InitiatorSPI: binary.BigEndian.Uint64(b[0:8]),
		ResponderSPI: binary.BigEndian.Uint64(b[8:16]),
		Exchange:     ExchangeType(b[18]),
		MessageID:    binary.BigEndian.Uint32(b[20:24]),
		Response:     flags&FlagResponse != 0,
		Initiator:    flags&FlagInitiator != 0,
		firstType:    PayloadType(b[16]),
		rawBody:      append([]byte(nil), b[HeaderLen:]...),
	}
	return m, nil
}

// ParseBody decodes the retained body into typed payloads. A nil opener is
// valid only for the unprotected IKE_SA_INIT exchange; protected exchanges
// carry a single SK payload that is opened with the negotiated transforms
// before the inner chain is decoded.
func (m *Message) ParseBody(opener SKOpener) error {
	if m.parsed {
		return nil
	}
	payloads, err := decodeChain(m.firstType, m.rawBody)
	if err != nil {
		return err
	}
	if len(payloads) == 1 {
		if sk, ok := payloads[0].(*Encrypted); ok {
			if opener == nil {
				return errEncryptedBody
			}
			plain, err := opener.OpenSK(sk.Data, sealedAAD(m, sk.innerFirst, len(sk.Data)))
			if err != nil {
				return fmt.Errorf("%w: SK payload: %v", ErrMalformed, err)
			}
			inner, err := decodeChain(sk.innerFirst, plain)
			if err != nil {
				return err
			}
			payloads = inner
		}
	}
	m.payloads = payloads
	m.rawBody = nil
	m.parsed = true
	return nil
}

// decodeChain walks a generic payload chain.
func decodeChain(first PayloadType, b []byte) ([]Payload, error) {
	var payloads []Payload
	next := first
	for next != TypeNone {
		if len(b) < payloadHeaderLen {
			return nil, fmt.Errorf("%w: %d payload header bytes", ErrMalformed, len(b))
		}
		length := int(binary.BigEndian.Uint16(b[2:4]))
		if length < payloadHeaderLen || length > len(b) {
			return nil, fmt.Errorf("%w: payload length %d of %d", ErrMalformed, length, len(b))
		}
		p, err := decodePayloadBody(next, b[payloadHeaderLen:length])
		if err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformed, next, err)
		}
		payloads = append(payloads, p)
		next = PayloadType(b[0])
		b = b[length:]
		if sk, ok := p.(*Encrypted); ok {
			// the SK payload ends the outer chain; its next-payload
			// octet names the first payload of the wrapped chain
			sk.innerFirst = next
			next = TypeNone
		}
	}
	if len(b) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(b))
	}
	return payloads, nil
}

func encodeChain(payloads []Payload) []byte {
	var b []byte
	for i, p := range payloads {
		body := p.encodeBody()
		hdr := make([]byte, payloadHeaderLen)
		if i+1 < len(payloads) {
			hdr[0] = uint8(payloads[i+1].Type())
		}
		binary.BigEndian.PutUint16(hdr[2:4], uint16(payloadHeaderLen+len(body)))
		b = append(b, hdr...)
		b = append(b, body...)
	}
	return b
}

func (m *Message) encodeHeader(first PayloadType, length uint32) []byte {
	b := make([]byte, HeaderLen)
	binary.BigEndian.PutUint64(b[0:8], m.InitiatorSPI)
	binary.BigEndian.PutUint64(b[8:16], m.ResponderSPI)
	b[16] = uint8(first)
	b[17] = Version
	b[18] = uint8(m.Exchange)
	if m.Response {
		b[19] |= FlagResponse
	}
	if m.Initiator {
		b[19] |= FlagInitiator
	}
	binary.BigEndian.PutUint32(b[20:24], m.MessageID)
	binary.BigEndian.PutUint32(b[24:28], length)
	return b
}

// Encode produces the unprotected wire form of the message.
func (m *Message) Encode() ([]byte, error) {
	body := encodeChain(m.payloads)
	first := TypeNone
	if len(m.payloads) > 0 {
		first = m.payloads[0].Type()
	}
	hdr := m.encodeHeader(first, uint32(HeaderLen+len(body)))
	return append(hdr, body...), nil
}

// sealedAAD is the associated data binding an SK payload to its message:
// the IKE header plus the SK payload's own generic header. The generic
// header carries the inner chain's first payload type in the clear, so it
// must be covered by the tag or an attacker could re-type the decrypted
// chain.
func sealedAAD(m *Message, inner PayloadType, sealedLen int) []byte {
	aad := m.encodeHeader(TypeSK, uint32(HeaderLen+payloadHeaderLen+sealedLen))
	skHdr := make([]byte, payloadHeaderLen)
	skHdr[0] = uint8(inner)
	binary.BigEndian.PutUint16(skHdr[2:4], uint16(payloadHeaderLen+sealedLen))
	return append(aad, skHdr...)
}

// EncodeSealed produces the protected wire form: the payload chain sealed
// into a single SK payload, bound to the full framing via AAD.
func (m *Message) EncodeSealed(sealer SKSealer) ([]byte, error) {
	if sealer == nil {
		return nil, errEncryptedBody
	}
	plain := encodeChain(m.payloads)
	inner := TypeNone
	if len(m.payloads) > 0 {
		inner = m.payloads[0].Type()
	}
	// the sealed length is known up front: AEAD overhead is constant
	sealedLen := len(plain) + sealer.Overhead()
	aad := sealedAAD(m, inner, sealedLen)

	sealed, err := sealer.SealSK(plain, aad)
	if err != nil {
		return nil, err
	}
	if len(sealed) != sealedLen {
		return nil, fmt.Errorf("sealed body is %d bytes, expected %d", len(sealed), sealedLen)
	}
	return append(aad, sealed...), nil
}

// PayloadIterator is a single-pass walk over a parsed message's payloads.
// Callers must Release it on every exit path.
type PayloadIterator struct {
	payloads []Payload
	idx      int
	released bool
}

// Payloads returns an iterator over the parsed payload chain, in arrival
// order.
func (m *Message) Payloads() *PayloadIterator {
	return &PayloadIterator{payloads: m.payloads}
}

// Next returns the next payload, or false when the chain is exhausted or
// the iterator was released.
func (it *PayloadIterator) Next() (Payload, bool) {
	if it.released || it.idx >= len(it.payloads) {
		return nil, false
	}
	p := it.payloads[it.idx]
	it.idx++
	return p, true
}

// Release ends the iteration. Further Next calls return false.
func (it *PayloadIterator) Release() {
	it.released = true
	it.payloads = nil
}

// Released reports whether Release was called; used by tests to assert the
// iterator contract.
func (it *PayloadIterator) Released() bool { return it.released }
