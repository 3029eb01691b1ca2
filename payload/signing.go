package payload

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/noisexx/identity"
)

const (
	// StaticKeyPrefix is prepended to the Noise static public key before
	// signing. Frozen, ASCII, no terminator.
	StaticKeyPrefix = "noise-libp2p-static-key:"
	// EarlyDataPrefix is prepended to early data before signing. Frozen,
	// ASCII, no terminator.
	EarlyDataPrefix = "noise-libp2p-early-data:"
	// VerifyErrPrefix wraps every verification failure so upstream code
	// can pattern-match. Frozen.
	VerifyErrPrefix = "Error occurred while verifying signed payload: "
)

var (
	// ErrPeerIDMismatch indicates the derived peer ID disagrees with the
	// expected one. The message text is frozen.
	ErrPeerIDMismatch = errors.New("Peer ID doesn't match libp2p public key.")
	// ErrStaticKeyNotAuthenticated indicates the static-key proof did
	// not verify against the identity public key.
	ErrStaticKeyNotAuthenticated = errors.New("static Noise key signature verification failed")
	// ErrEarlyDataNotAuthenticated indicates the early-data proof did
	// not verify against the identity public key.
	ErrEarlyDataNotAuthenticated = errors.New("early data signature verification failed")
)

// verificationError wraps a cause with the frozen user-facing prefix.
func verificationError(cause error) error {
	return fmt.Errorf("%s%w", VerifyErrPrefix, cause)
}

// Result is the outcome of successful payload verification.
type Result struct {
	// PeerID is the peer ID derived from the identity public key.
	PeerID []byte
	// IdentityPublicKey is the marshalled identity public key.
	IdentityPublicKey []byte
	// EarlyData is the authenticated early data, nil when the payload
	// carried none or carried it unsigned.
	EarlyData []byte
}

// CreateSignedPayload builds and signs the handshake payload for a peer
// with the given identity and Noise static public key. Early data is
// optional; when present it is signed under its own prefix.
func CreateSignedPayload(id identity.Identity, noiseStatic [32]byte, earlyData []byte) ([]byte, error) {
	toSign := append([]byte(StaticKeyPrefix), noiseStatic[:]...)
	staticSig, err := id.Sign(toSign)
	if err != nil {
		return nil, fmt.Errorf("failed to sign static key proof: %w", err)
	}

	p := &HandshakePayload{
		IdentityPublicKey:    id.PublicKeyBytes(),
		NoiseStaticSignature: staticSig,
	}

	if len(earlyData) > 0 {
		edSigned := append([]byte(EarlyDataPrefix), earlyData...)
		edSig, err := id.Sign(edSigned)
		if err != nil {
			return nil, fmt.Errorf("failed to sign early data: %w", err)
		}
		p.EarlyData = append([]byte(nil), earlyData...)
		p.EarlyDataSignature = edSig
	}

	return p.Marshal(), nil
}

// Verify parses a received payload and checks it against the remote
// Noise static key learned from the handshake and, when non-nil, the
// peer ID the caller expects to be talking to. Every failure is wrapped
// with VerifyErrPrefix and is terminal for the handshake.
func Verify(data []byte, remoteStatic [32]byte, expectedPeerID []byte) (*Result, error) {
	p, err := Unmarshal(data)
	if err != nil {
		return nil, verificationError(err)
	}

	derivedPeerID, err := identity.PeerIDFromPublicKey(p.IdentityPublicKey)
	if err != nil {
		return nil, verificationError(err)
	}

	if expectedPeerID != nil && !bytes.Equal(expectedPeerID, derivedPeerID) {
		logrus.WithFields(logrus.Fields{
			"function":        "Verify",
			"expected_prefix": fmt.Sprintf("%x", prefixOf(expectedPeerID)),
			"derived_prefix":  fmt.Sprintf("%x", prefixOf(derivedPeerID)),
		}).Warn("Peer ID mismatch in handshake payload")
		return nil, verificationError(ErrPeerIDMismatch)
	}

	signed := append([]byte(StaticKeyPrefix), remoteStatic[:]...)
	ok, err := identity.Verify(p.IdentityPublicKey, signed, p.NoiseStaticSignature)
	if err != nil {
		return nil, verificationError(fmt.Errorf("%w: %v", ErrStaticKeyNotAuthenticated, err))
	}
	if !ok {
		return nil, verificationError(ErrStaticKeyNotAuthenticated)
	}

	result := &Result{
		PeerID:            derivedPeerID,
		IdentityPublicKey: p.IdentityPublicKey,
	}

	if len(p.EarlyDataSignature) > 0 {
		edSigned := append([]byte(EarlyDataPrefix), p.EarlyData...)
		ok, err := identity.Verify(p.IdentityPublicKey, edSigned, p.EarlyDataSignature)
		if err != nil {
			return nil, verificationError(fmt.Errorf("%w: %v", ErrEarlyDataNotAuthenticated, err))
		}
		if !ok {
			return nil, verificationError(ErrEarlyDataNotAuthenticated)
		}
		result.EarlyData = p.EarlyData
	}

	return result, nil
}

func prefixOf(b []byte) []byte {
	if len(b) > 8 {
		return b[:8]
	}
	return b
}
