/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package protocol

import (
	"encoding/binary"
	"errors"
)

// Payload is a typed IKEv2 payload. The negotiation core only ever calls
// the typed accessors; wire form is confined to this package.
type Payload interface {
	Type() PayloadType
	encodeBody() []byte
}

var errShortPayload = errors.New("payload body truncated")

// SecurityAssociation carries the offered or selected proposal list.
type SecurityAssociation struct {
	Props []*Proposal
}

func (p *SecurityAssociation) Type() PayloadType { return TypeSA }

// Proposals returns the candidate list carried by the payload.
func (p *SecurityAssociation) Proposals() []*Proposal { return p.Props }

func (p *SecurityAssociation) encodeBody() []byte {
	var b []byte
	for i, prop := range p.Props {
		b = append(b, prop.encode(i == len(p.Props)-1)...)
	}
	return b
}

func decodeSecurityAssociation(b []byte) (*SecurityAssociation, error) {
	p := &SecurityAssociation{}
	for len(b) > 0 {
		prop, used, err := decodeProposal(b)
		if err != nil {
			return nil, err
		}
		p.Props = append(p.Props, prop)
		b = b[used:]
	}
	return p, nil
}

// KeyExchange carries a Diffie-Hellman public value, RFC 7296 3.4.
type KeyExchange struct {
	Group   DHTransformID
	KeyData []byte
}

func (p *KeyExchange) Type() PayloadType { return TypeKE }

// PeerPublicValue returns the peer's DH public value bytes.
func (p *KeyExchange) PeerPublicValue() []byte { return p.KeyData }

func (p *KeyExchange) encodeBody() []byte {
	b := make([]byte, 4+len(p.KeyData))
	binary.BigEndian.PutUint16(b[0:2], uint16(p.Group))
	copy(b[4:], p.KeyData)
	return b
}

func decodeKeyExchange(b []byte) (*KeyExchange, error) {
	if len(b) < 4 {
		return nil, errShortPayload
	}
	return &KeyExchange{
		Group:   DHTransformID(binary.BigEndian.Uint16(b[0:2])),
		KeyData: append([]byte(nil), b[4:]...),
	}, nil
}

// Nonce carries a fresh random value, RFC 7296 3.10.
type Nonce struct {
	Data []byte
}

func (p *Nonce) Type() PayloadType { return TypeNiNr }

// NonceBytes returns the nonce byte sequence.
func (p *Nonce) NonceBytes() []byte { return p.Data }

func (p *Nonce) encodeBody() []byte { return p.Data }

func decodeNonce(b []byte) (*Nonce, error) {
	// RFC 7296 3.10: nonces are 16 to 256 octets
	if len(b) < 16 || len(b) > 256 {
		return nil, errShortPayload
	}
	return &Nonce{Data: append([]byte(nil), b...)}, nil
}

// IdentificationInitiator is the IDi payload.
type IdentificationInitiator struct {
	IDType IDType
	Data   []byte
}

func (p *IdentificationInitiator) Type() PayloadType { return TypeIDi }
func (p *IdentificationInitiator) encodeBody() []byte {
	return encodeIdentification(p.IDType, p.Data)
}

// IdentificationResponder is the IDr payload.
type IdentificationResponder struct {
	IDType IDType
	Data   []byte
}

func (p *IdentificationResponder) Type() PayloadType { return TypeIDr }
func (p *IdentificationResponder) encodeBody() []byte {
	return encodeIdentification(p.IDType, p.Data)
}

func encodeIdentification(idType IDType, data []byte) []byte {
	b := make([]byte, 4+len(data))
	b[0] = uint8(idType)
	copy(b[4:], data)
	return b
}

func decodeIdentification(b []byte) (IDType, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errShortPayload
	}
	return IDType(b[0]), append([]byte(nil), b[4:]...), nil
}

// Authentication carries the authentication method and data, RFC 7296 3.8.
type Authentication struct {
	Method AuthMethod
	Data   []byte
}

func (p *Authentication) Type() PayloadType { return TypeAUTH }

func (p *Authentication) encodeBody() []byte {
	b := make([]byte, 4+len(p.Data))
	b[0] = uint8(p.Method)
	copy(b[4:], p.Data)
	return b
}

func decodeAuthentication(b []byte) (*Authentication, error) {
	if len(b) < 4 {
		return nil, errShortPayload
	}
	return &Authentication{
		Method: AuthMethod(b[0]),
		Data:   append([]byte(nil), b[4:]...),
	}, nil
}

// Notify is a status or error notification, RFC 7296 3.10.1.
type Notify struct {
	Protocol   ProtocolID
	NotifyType NotifyType
	SPI        []byte
	Data       []byte
}

func (p *Notify) Type() PayloadType { return TypeN }

func (p *Notify) encodeBody() []byte {
	b := make([]byte, 4+len(p.SPI)+len(p.Data))
	b[0] = uint8(p.Protocol)
	b[1] = uint8(len(p.SPI))
	binary.BigEndian.PutUint16(b[2:4], uint16(p.NotifyType))
	copy(b[4:], p.SPI)
	copy(b[4+len(p.SPI):], p.Data)
	return b
}

func decodeNotify(b []byte) (*Notify, error) {
	if len(b) < 4 {
		return nil, errShortPayload
	}
	spiSize := int(b[1])
	if len(b) < 4+spiSize {
		return nil, errShortPayload
	}
	return &Notify{
		Protocol:   ProtocolID(b[0]),
		NotifyType: NotifyType(binary.BigEndian.Uint16(b[2:4])),
		SPI:        append([]byte(nil), b[4:4+spiSize]...),
		Data:       append([]byte(nil), b[4+spiSize:]...),
	}, nil
}

// Encrypted is the SK payload: the sealed inner payload chain. It only
// exists transiently between wire decode and ParseBody.
type Encrypted struct {
	Data []byte

	innerFirst PayloadType // first payload type of the wrapped chain
}

func (p *Encrypted) Type() PayloadType  { return TypeSK }
func (p *Encrypted) encodeBody() []byte { return p.Data }

// Raw preserves payload types this library does not interpret (traffic
// selectors, certificates). States decide whether to tolerate them.
type Raw struct {
	PayloadType PayloadType
	Data        []byte
}

func (p *Raw) Type() PayloadType  { return p.PayloadType }
func (p *Raw) encodeBody() []byte { return p.Data }

func decodePayloadBody(t PayloadType, b []byte) (Payload, error) {
	switch t {
	case TypeSA:
		return decodeSecurityAssociation(b)
	case TypeKE:
		return decodeKeyExchange(b)
	case TypeNiNr:
		return decodeNonce(b)
	case TypeIDi:
		idType, data, err := decodeIdentification(b)
		if err != nil {
			return nil, err
		}
		return &IdentificationInitiator{IDType: idType, Data: data}, nil
	case TypeIDr:
		idType, data, err := decodeIdentification(b)
		if err != nil {
			return nil, err
		}
		return &IdentificationResponder{IDType: idType, Data: data}, nil
	case TypeAUTH:
		return decodeAuthentication(b)
	case TypeN:
		return decodeNotify(b)
	case TypeSK:
		return &Encrypted{Data: append([]byte(nil), b...)}, nil
	default:
		return &Raw{PayloadType: t, Data: append([]byte(nil), b...)}, nil
	}
}
