package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/multiformats/go-multihash"
	"google.golang.org/protobuf/encoding/protowire"
)

// KeyType identifies the algorithm of a marshalled public key, using the
// libp2p key-type enumeration.
type KeyType int32

const (
	// KeyTypeRSA is an RSA public key.
	KeyTypeRSA KeyType = 0
	// KeyTypeEd25519 is an Ed25519 public key.
	KeyTypeEd25519 KeyType = 1
	// KeyTypeSecp256k1 is a secp256k1 public key.
	KeyTypeSecp256k1 KeyType = 2
	// KeyTypeECDSA is a NIST P-256 ECDSA public key.
	KeyTypeECDSA KeyType = 3
)

// Envelope field numbers, frozen for interop.
const (
	keyTypeField protowire.Number = 1
	keyDataField protowire.Number = 2
)

// maxInlineKeyLength is the largest marshalled key that is inlined into
// the peer ID with the identity multihash instead of being hashed.
const maxInlineKeyLength = 42

var (
	// ErrMalformedPublicKey indicates envelope bytes that do not parse.
	ErrMalformedPublicKey = errors.New("malformed public key envelope")
	// ErrUnsupportedKeyType indicates a key algorithm this module cannot
	// verify signatures for.
	ErrUnsupportedKeyType = errors.New("unsupported key type")
)

// MarshalPublicKey encodes a raw public key into the libp2p envelope.
func MarshalPublicKey(keyType KeyType, raw []byte) []byte {
	buf := protowire.AppendTag(nil, keyTypeField, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(keyType))
	buf = protowire.AppendTag(buf, keyDataField, protowire.BytesType)
	buf = protowire.AppendBytes(buf, raw)
	return buf
}

// UnmarshalPublicKey decodes a libp2p public key envelope into its
// algorithm tag and raw key bytes. Unknown fields are skipped.
func UnmarshalPublicKey(envelope []byte) (KeyType, []byte, error) {
	var (
		keyType KeyType
		raw     []byte
		sawType bool
		sawData bool
	)

	for len(envelope) > 0 {
		num, typ, n := protowire.ConsumeTag(envelope)
		if n < 0 {
			return 0, nil, fmt.Errorf("%w: %v", ErrMalformedPublicKey, protowire.ParseError(n))
		}
		envelope = envelope[n:]

		switch {
		case num == keyTypeField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(envelope)
			if n < 0 {
				return 0, nil, fmt.Errorf("%w: %v", ErrMalformedPublicKey, protowire.ParseError(n))
			}
			keyType = KeyType(v)
			sawType = true
			envelope = envelope[n:]
		case num == keyDataField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(envelope)
			if n < 0 {
				return 0, nil, fmt.Errorf("%w: %v", ErrMalformedPublicKey, protowire.ParseError(n))
			}
			raw = append([]byte(nil), v...)
			sawData = true
			envelope = envelope[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, envelope)
			if n < 0 {
				return 0, nil, fmt.Errorf("%w: %v", ErrMalformedPublicKey, protowire.ParseError(n))
			}
			envelope = envelope[n:]
		}
	}

	if !sawType || !sawData {
		return 0, nil, fmt.Errorf("%w: missing key type or key data", ErrMalformedPublicKey)
	}
	return keyType, raw, nil
}

// Verify checks a signature over data against a marshalled public key,
// dispatching on the envelope's algorithm tag.
func Verify(publicKeyBytes, data, signature []byte) (bool, error) {
	keyType, raw, err := UnmarshalPublicKey(publicKeyBytes)
	if err != nil {
		return false, err
	}

	switch keyType {
	case KeyTypeEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return false, fmt.Errorf("%w: ed25519 key must be %d bytes, got %d",
				ErrMalformedPublicKey, ed25519.PublicKeySize, len(raw))
		}
		return ed25519.Verify(ed25519.PublicKey(raw), data, signature), nil
	case KeyTypeRSA, KeyTypeSecp256k1, KeyTypeECDSA:
		return false, fmt.Errorf("%w: %d", ErrUnsupportedKeyType, keyType)
	default:
		return false, fmt.Errorf("%w: %d", ErrUnsupportedKeyType, keyType)
	}
}

// PeerIDFromPublicKey derives the canonical peer ID from a marshalled
// public key: small envelopes are inlined with the identity multihash,
// larger ones hashed with SHA2-256.
func PeerIDFromPublicKey(publicKeyBytes []byte) ([]byte, error) {
	code := uint64(multihash.SHA2_256)
	if len(publicKeyBytes) <= maxInlineKeyLength {
		code = multihash.IDENTITY
	}

	mh, err := multihash.Sum(publicKeyBytes, code, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to derive peer ID: %w", err)
	}
	return []byte(mh), nil
}
