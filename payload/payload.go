package payload

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers, frozen for interop.
const (
	identityKeyField     protowire.Number = 1
	staticSignatureField protowire.Number = 2
	earlyDataField       protowire.Number = 3
	earlyDataSigField    protowire.Number = 4
)

// ErrPayloadDecode indicates payload bytes that do not parse as the
// handshake payload record.
var ErrPayloadDecode = errors.New("handshake payload does not decode")

// HandshakePayload is the identity-binding record carried inside the
// encrypted portion of Noise messages 2 and 3.
type HandshakePayload struct {
	// IdentityPublicKey is the libp2p-marshalled identity public key.
	IdentityPublicKey []byte
	// NoiseStaticSignature signs the static-key proof prefix plus the
	// sender's Noise static public key.
	NoiseStaticSignature []byte
	// EarlyData is optional application data authenticated inside the
	// handshake.
	EarlyData []byte
	// EarlyDataSignature signs the early-data proof prefix plus
	// EarlyData. Without it, EarlyData is ignored by verification.
	EarlyDataSignature []byte
}

// Marshal encodes the payload with fields in ascending tag order.
// Optional fields are omitted when empty.
func (p *HandshakePayload) Marshal() []byte {
	buf := protowire.AppendTag(nil, identityKeyField, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.IdentityPublicKey)
	buf = protowire.AppendTag(buf, staticSignatureField, protowire.BytesType)
	buf = protowire.AppendBytes(buf, p.NoiseStaticSignature)
	if len(p.EarlyData) > 0 {
		buf = protowire.AppendTag(buf, earlyDataField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, p.EarlyData)
	}
	if len(p.EarlyDataSignature) > 0 {
		buf = protowire.AppendTag(buf, earlyDataSigField, protowire.BytesType)
		buf = protowire.AppendBytes(buf, p.EarlyDataSignature)
	}
	return buf
}

// Unmarshal decodes payload bytes. Unknown fields are skipped so future
// extensions remain readable.
func Unmarshal(data []byte) (*HandshakePayload, error) {
	var p HandshakePayload
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrPayloadDecode, protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrPayloadDecode, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrPayloadDecode, protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case identityKeyField:
			p.IdentityPublicKey = append([]byte(nil), v...)
		case staticSignatureField:
			p.NoiseStaticSignature = append([]byte(nil), v...)
		case earlyDataField:
			p.EarlyData = append([]byte(nil), v...)
		case earlyDataSigField:
			p.EarlyDataSignature = append([]byte(nil), v...)
		}
	}

	if len(p.IdentityPublicKey) == 0 || len(p.NoiseStaticSignature) == 0 {
		return nil, fmt.Errorf("%w: missing identity key or static key signature", ErrPayloadDecode)
	}
	return &p, nil
}
