package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Ed25519Identity is an Identity backed by an Ed25519 key pair. It is
// the provider used throughout this module's tests and the one most
// libp2p deployments run.
type Ed25519Identity struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	envelope   []byte
	peerID     []byte
}

// GenerateEd25519Identity creates a new identity from system entropy.
func GenerateEd25519Identity() (*Ed25519Identity, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 identity: %w", err)
	}
	return newEd25519Identity(publicKey, privateKey)
}

// Ed25519IdentityFromSeed creates an identity deterministically from a
// 32-byte seed, matching ed25519.NewKeyFromSeed.
func Ed25519IdentityFromSeed(seed []byte) (*Ed25519Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)
	return newEd25519Identity(publicKey, privateKey)
}

func newEd25519Identity(publicKey ed25519.PublicKey, privateKey ed25519.PrivateKey) (*Ed25519Identity, error) {
	envelope := MarshalPublicKey(KeyTypeEd25519, publicKey)
	peerID, err := PeerIDFromPublicKey(envelope)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":       "newEd25519Identity",
		"peer_id_prefix": fmt.Sprintf("%x", peerID[:8]),
	}).Debug("Created Ed25519 identity")

	return &Ed25519Identity{
		privateKey: privateKey,
		publicKey:  publicKey,
		envelope:   envelope,
		peerID:     peerID,
	}, nil
}

// Sign signs data with the identity's private key.
func (id *Ed25519Identity) Sign(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty message")
	}
	return ed25519.Sign(id.privateKey, data), nil
}

// PublicKeyBytes returns the identity's public key in the libp2p
// envelope encoding. The returned slice is a copy.
func (id *Ed25519Identity) PublicKeyBytes() []byte {
	return append([]byte(nil), id.envelope...)
}

// PeerIDBytes returns the canonical peer ID for this identity. The
// returned slice is a copy.
func (id *Ed25519Identity) PeerIDBytes() []byte {
	return append([]byte(nil), id.peerID...)
}
