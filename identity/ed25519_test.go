package identity

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEd25519Identity(t *testing.T) {
	id1, err := GenerateEd25519Identity()
	require.NoError(t, err)
	id2, err := GenerateEd25519Identity()
	require.NoError(t, err)

	assert.NotEqual(t, id1.PeerIDBytes(), id2.PeerIDBytes())
}

func TestEd25519IdentityFromSeed(t *testing.T) {
	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	a, err := Ed25519IdentityFromSeed(seed)
	require.NoError(t, err)
	b, err := Ed25519IdentityFromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, a.PeerIDBytes(), b.PeerIDBytes(), "same seed must yield same identity")

	_, err = Ed25519IdentityFromSeed(seed[:16])
	assert.Error(t, err)
}

func TestEd25519IdentitySignVerify(t *testing.T) {
	id, err := GenerateEd25519Identity()
	require.NoError(t, err)

	message := []byte("noise-libp2p-static-key:somekey")
	signature, err := id.Sign(message)
	require.NoError(t, err)

	ok, err := Verify(id.PublicKeyBytes(), message, signature)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = id.Sign(nil)
	assert.Error(t, err, "empty message must be rejected")
}

func TestEd25519IdentityPeerIDConsistent(t *testing.T) {
	id, err := GenerateEd25519Identity()
	require.NoError(t, err)

	derived, err := PeerIDFromPublicKey(id.PublicKeyBytes())
	require.NoError(t, err)
	assert.Equal(t, id.PeerIDBytes(), derived,
		"the identity's own peer ID must match derivation from its envelope")
}

func TestEd25519IdentityReturnsCopies(t *testing.T) {
	id, err := GenerateEd25519Identity()
	require.NoError(t, err)

	envelope := id.PublicKeyBytes()
	envelope[0] ^= 0xff
	assert.NotEqual(t, envelope, id.PublicKeyBytes(), "mutating the returned slice must not affect the identity")

	peerID := id.PeerIDBytes()
	peerID[0] ^= 0xff
	assert.NotEqual(t, peerID, id.PeerIDBytes())
}
