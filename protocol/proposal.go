/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package protocol

import (
	"encoding/binary"
	"errors"
)

// TransformAttribute is a TV-form transform attribute. Key Length is the
// only attribute this library produces or consumes.
type TransformAttribute struct {
	Type  uint16
	Value uint16
}

// Transform is one algorithm entry inside a proposal.
type Transform struct {
	Type       TransformType
	ID         uint16
	Attributes []TransformAttribute
}

// KeyLength returns the Key Length attribute in bits, or 0 if absent.
func (t *Transform) KeyLength() uint16 {
	for _, attr := range t.Attributes {
		if attr.Type == AttributeKeyLength {
			return attr.Value
		}
	}
	return 0
}

// Proposal is one candidate transform set offered in an SA payload.
type Proposal struct {
	Number     uint8
	Protocol   ProtocolID
	SPI        []byte
	Transforms []*Transform
}

// NewProposal returns an empty proposal for the given protocol.
func NewProposal(number uint8, protocol ProtocolID, spi []byte) *Proposal {
	return &Proposal{Number: number, Protocol: protocol, SPI: spi}
}

// AddTransform appends a transform without attributes.
func (p *Proposal) AddTransform(tType TransformType, id uint16) {
	p.Transforms = append(p.Transforms, &Transform{Type: tType, ID: id})
}

// AddTransformKeyLen appends a transform carrying a Key Length attribute
// in bits.
func (p *Proposal) AddTransformKeyLen(tType TransformType, id uint16, keyLenBits uint16) {
	p.Transforms = append(p.Transforms, &Transform{
		Type: tType,
		ID:   id,
		Attributes: []TransformAttribute{
			{Type: AttributeKeyLength, Value: keyLenBits},
		},
	})
}

// Transform lookup helpers used by negotiation and suite instantiation.

func (p *Proposal) First(tType TransformType) *Transform {
	for _, t := range p.Transforms {
		if t.Type == tType {
			return t
		}
	}
	return nil
}

func (p *Proposal) Clone() *Proposal {
	c := &Proposal{
		Number:   p.Number,
		Protocol: p.Protocol,
		SPI:      append([]byte(nil), p.SPI...),
	}
	for _, t := range p.Transforms {
		c.Transforms = append(c.Transforms, &Transform{
			Type:       t.Type,
			ID:         t.ID,
			Attributes: append([]TransformAttribute(nil), t.Attributes...),
		})
	}
	return c
}

/* Wire form, RFC 7296 3.3:
 *
 * proposal substructure
 *   0: last/more (0 = last)
 *   2: proposal length
 *   4: proposal num | protocol id | spi size | num transforms
 *   8: spi, transforms
 *
 * transform substructure
 *   0: last/more
 *   2: transform length
 *   4: transform type | reserved | transform id
 *   8: attributes (TV form only)
 */

const (
	minProposalLen  = 8
	minTransformLen = 8
)

var errTruncated = errors.New("proposal substructure truncated")

func (t *Transform) encode(last bool) []byte {
	length := minTransformLen + 4*len(t.Attributes)
	b := make([]byte, length)
	if !last {
		b[0] = 3
	}
	binary.BigEndian.PutUint16(b[2:4], uint16(length))
	b[4] = uint8(t.Type)
	binary.BigEndian.PutUint16(b[6:8], t.ID)
	off := 8
	for _, attr := range t.Attributes {
		// TV form: set the AF bit
		binary.BigEndian.PutUint16(b[off:off+2], attr.Type|0x8000)
		binary.BigEndian.PutUint16(b[off+2:off+4], attr.Value)
		off += 4
	}
	return b
}

func decodeTransform(b []byte) (*Transform, int, error) {
	if len(b) < minTransformLen {
		return nil, 0, errTruncated
	}
	length := int(binary.BigEndian.Uint16(b[2:4]))
	if length < minTransformLen || length > len(b) {
		return nil, 0, errTruncated
	}
	t := &Transform{
		Type: TransformType(b[4]),
		ID:   binary.BigEndian.Uint16(b[6:8]),
	}
	attrs := b[8:length]
	for len(attrs) > 0 {
		if len(attrs) < 4 {
			return nil, 0, errTruncated
		}
		aType := binary.BigEndian.Uint16(attrs[0:2])
		if aType&0x8000 == 0 {
			// TLV-form attributes are not produced by any supported
			// transform
			return nil, 0, errTruncated
		}
		t.Attributes = append(t.Attributes, TransformAttribute{
			Type:  aType &^ 0x8000,
			Value: binary.BigEndian.Uint16(attrs[2:4]),
		})
		attrs = attrs[4:]
	}
	return t, length, nil
}

func (p *Proposal) encode(last bool) []byte {
	var body []byte
	for i, t := range p.Transforms {
		body = append(body, t.encode(i == len(p.Transforms)-1)...)
	}
	length := minProposalLen + len(p.SPI) + len(body)
	b := make([]byte, minProposalLen+len(p.SPI), length)
	if !last {
		b[0] = 2
	}
	binary.BigEndian.PutUint16(b[2:4], uint16(length))
	b[4] = p.Number
	b[5] = uint8(p.Protocol)
	b[6] = uint8(len(p.SPI))
	b[7] = uint8(len(p.Transforms))
	copy(b[8:], p.SPI)
	return append(b, body...)
}

func decodeProposal(b []byte) (*Proposal, int, error) {
	if len(b) < minProposalLen {
		return nil, 0, errTruncated
	}
	length := int(binary.BigEndian.Uint16(b[2:4]))
	spiSize := int(b[6])
	numTransforms := int(b[7])
	if length > len(b) || length < minProposalLen+spiSize {
		return nil, 0, errTruncated
	}
	p := &Proposal{
		Number:   b[4],
		Protocol: ProtocolID(b[5]),
		SPI:      append([]byte(nil), b[8:8+spiSize]...),
	}
	rest := b[8+spiSize : length]
	for len(rest) > 0 {
		t, used, err := decodeTransform(rest)
		if err != nil {
			return nil, 0, err
		}
		p.Transforms = append(p.Transforms, t)
		rest = rest[used:]
	}
	if len(p.Transforms) != numTransforms {
		return nil, 0, errTruncated
	}
	return p, length, nil
}
