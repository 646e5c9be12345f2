/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package protocol

// IKEv2 constant space, RFC 7296 and the IANA IKEv2 registries.
// Only the identifiers this library negotiates or rejects are listed.

const (
	MajorVersion = 2
	MinorVersion = 0

	// Version is the version octet of the IKE header (MjVer | MnVer).
	Version = MajorVersion<<4 | MinorVersion
)

type ExchangeType uint8

const (
	IKE_SA_INIT     ExchangeType = 34
	IKE_AUTH        ExchangeType = 35
	CREATE_CHILD_SA ExchangeType = 36
	INFORMATIONAL   ExchangeType = 37
)

func (t ExchangeType) String() string {
	switch t {
	case IKE_SA_INIT:
		return "IKE_SA_INIT"
	case IKE_AUTH:
		return "IKE_AUTH"
	case CREATE_CHILD_SA:
		return "CREATE_CHILD_SA"
	case INFORMATIONAL:
		return "INFORMATIONAL"
	default:
		return "EXCHANGE_UNKNOWN"
	}
}

type PayloadType uint8

const (
	TypeNone    PayloadType = 0  // No Next Payload
	TypeSA      PayloadType = 33 // Security Association
	TypeKE      PayloadType = 34 // Key Exchange
	TypeIDi     PayloadType = 35 // Identification - Initiator
	TypeIDr     PayloadType = 36 // Identification - Responder
	TypeCERT    PayloadType = 37 // Certificate
	TypeCERTREQ PayloadType = 38 // Certificate Request
	TypeAUTH    PayloadType = 39 // Authentication
	TypeNiNr    PayloadType = 40 // Nonce
	TypeN       PayloadType = 41 // Notify
	TypeD       PayloadType = 42 // Delete
	TypeV       PayloadType = 43 // Vendor ID
	TypeTSi     PayloadType = 44 // Traffic Selector - Initiator
	TypeTSr     PayloadType = 45 // Traffic Selector - Responder
	TypeSK      PayloadType = 46 // Encrypted and Authenticated
	TypeCP      PayloadType = 47 // Configuration
	TypeEAP     PayloadType = 48 // Extensible Authentication
)

func (t PayloadType) String() string {
	switch t {
	case TypeNone:
		return "NONE"
	case TypeSA:
		return "SA"
	case TypeKE:
		return "KE"
	case TypeIDi:
		return "IDi"
	case TypeIDr:
		return "IDr"
	case TypeCERT:
		return "CERT"
	case TypeCERTREQ:
		return "CERTREQ"
	case TypeAUTH:
		return "AUTH"
	case TypeNiNr:
		return "Ni/Nr"
	case TypeN:
		return "N"
	case TypeTSi:
		return "TSi"
	case TypeTSr:
		return "TSr"
	case TypeSK:
		return "SK"
	default:
		return "PAYLOAD_UNKNOWN"
	}
}

// Header flag bits.
const (
	FlagResponse  = 1 << 5
	FlagVersion   = 1 << 4
	FlagInitiator = 1 << 3
)

type ProtocolID uint8

const (
	ProtoIKE ProtocolID = 1
	ProtoAH  ProtocolID = 2
	ProtoESP ProtocolID = 3
)

type TransformType uint8

const (
	TransformEncr  TransformType = 1
	TransformPRF   TransformType = 2
	TransformInteg TransformType = 3
	TransformDH    TransformType = 4
	TransformESN   TransformType = 5
)

type EncrTransformID uint16

const (
	ENCR_3DES              EncrTransformID = 3
	ENCR_AES_CBC           EncrTransformID = 12
	ENCR_AES_CTR           EncrTransformID = 13
	ENCR_AES_GCM_16        EncrTransformID = 20
	ENCR_CHACHA20_POLY1305 EncrTransformID = 28
)

type PRFTransformID uint16

const (
	PRF_HMAC_SHA1     PRFTransformID = 2
	PRF_HMAC_SHA2_256 PRFTransformID = 5
	PRF_HMAC_SHA2_384 PRFTransformID = 6
)

type IntegTransformID uint16

const (
	AUTH_NONE              IntegTransformID = 0
	AUTH_HMAC_SHA1_96      IntegTransformID = 2
	AUTH_HMAC_SHA2_256_128 IntegTransformID = 12
	AUTH_HMAC_SHA2_384_192 IntegTransformID = 13
)

type DHTransformID uint16

const (
	MODP_NONE  DHTransformID = 0
	MODP_1024  DHTransformID = 2
	MODP_1536  DHTransformID = 5
	MODP_2048  DHTransformID = 14
	MODP_3072  DHTransformID = 15
	CURVE25519 DHTransformID = 31
)

func (t DHTransformID) String() string {
	switch t {
	case MODP_1024:
		return "MODP_1024"
	case MODP_1536:
		return "MODP_1536"
	case MODP_2048:
		return "MODP_2048"
	case MODP_3072:
		return "MODP_3072"
	case CURVE25519:
		return "CURVE25519"
	default:
		return "GROUP_UNKNOWN"
	}
}

// Transform attribute types. Key Length is the only one in common use.
const (
	AttributeKeyLength = 14
)

type IDType uint8

const (
	ID_IPV4_ADDR   IDType = 1
	ID_FQDN        IDType = 2
	ID_RFC822_ADDR IDType = 3
	ID_KEY_ID      IDType = 11
)

type AuthMethod uint8

const (
	AuthRSASignature  AuthMethod = 1
	AuthSharedKeyMAC  AuthMethod = 2
	AuthDSSSignature  AuthMethod = 3
	AuthECDSASHA256   AuthMethod = 9
	AuthDigitalSig    AuthMethod = 14
)

type NotifyType uint16

// Notify types below 16384 signal errors, the rest are status notifies.
const (
	NotifyInvalidSyntax        NotifyType = 7
	NotifyNoProposalChosen     NotifyType = 14
	NotifyInvalidKEPayload     NotifyType = 17
	NotifyAuthenticationFailed NotifyType = 24
	NotifyNATDetectionSourceIP NotifyType = 16388
	NotifyNATDetectionDestIP   NotifyType = 16389
)

// IsError reports whether the notify type signals a protocol error.
func (t NotifyType) IsError() bool { return t < 16384 }

func (t NotifyType) String() string {
	switch t {
	case NotifyInvalidSyntax:
		return "INVALID_SYNTAX"
	case NotifyNoProposalChosen:
		return "NO_PROPOSAL_CHOSEN"
	case NotifyInvalidKEPayload:
		return "INVALID_KE_PAYLOAD"
	case NotifyAuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	case NotifyNATDetectionSourceIP:
		return "NAT_DETECTION_SOURCE_IP"
	case NotifyNATDetectionDestIP:
		return "NAT_DETECTION_DESTINATION_IP"
	default:
		return "NOTIFY_UNKNOWN"
	}
}
