package noise

import (
	"crypto/sha256"
	"fmt"

	"github.com/opd-ai/noisexx/crypto"
)

// SymmetricState combines the chaining key, the handshake hash, and the
// current handshake cipher. The chaining key accumulates every DH secret
// performed during the handshake; the hash commits to every byte sent on
// the wire in transcript order.
type SymmetricState struct {
	cs CipherState
	ck [crypto.HashLen]byte
	h  [crypto.HashLen]byte
}

// InitializeSymmetric creates a SymmetricState from a protocol name.
// Names of 32 bytes or fewer become the hash directly, right-padded with
// zeros; longer names are hashed.
func InitializeSymmetric(protocolName []byte) SymmetricState {
	var s SymmetricState
	if len(protocolName) <= crypto.HashLen {
		copy(s.h[:], protocolName)
	} else {
		s.h = sha256.Sum256(protocolName)
	}
	s.ck = s.h
	return s
}

// MixHash absorbs data into the handshake hash.
func (s *SymmetricState) MixHash(data []byte) {
	s.h = crypto.Hash(s.h[:], data)
}

// MixKey ratchets the chaining key with new input key material and keys
// the handshake cipher with the derived temporary key, resetting its
// nonce to zero.
func (s *SymmetricState) MixKey(ikm []byte) error {
	ck, tempK, err := crypto.HKDF2(s.ck, ikm)
	if err != nil {
		return fmt.Errorf("mix key derivation failed: %w", err)
	}
	crypto.WipeKey(&s.ck)
	s.ck = ck
	s.cs.InitializeKey(tempK)
	crypto.WipeKey(&tempK)
	return nil
}

// MixKeyAndHash ratchets the chaining key with a 3-output expansion,
// mixing the middle output into the handshake hash. The XX pattern never
// calls this; it exists for PSK-style extensions.
func (s *SymmetricState) MixKeyAndHash(ikm []byte) error {
	ck, tempH, tempK, err := crypto.HKDF3(s.ck, ikm)
	if err != nil {
		return fmt.Errorf("mix key and hash derivation failed: %w", err)
	}
	crypto.WipeKey(&s.ck)
	s.ck = ck
	s.MixHash(tempH[:])
	s.cs.InitializeKey(tempK)
	crypto.WipeKey(&tempH)
	crypto.WipeKey(&tempK)
	return nil
}

// EncryptAndHash encrypts plaintext with the handshake hash as
// associated data, then absorbs the ciphertext into the hash. Before the
// first MixKey the plaintext passes through unchanged but is still
// hashed.
func (s *SymmetricState) EncryptAndHash(plaintext []byte) ([]byte, error) {
	ciphertext, err := s.cs.EncryptWithAd(s.h[:], plaintext)
	if err != nil {
		return nil, err
	}
	s.MixHash(ciphertext)
	return ciphertext, nil
}

// DecryptAndHash decrypts ciphertext with the handshake hash as
// associated data, then absorbs the ciphertext into the hash. The hash
// is only updated after successful authentication.
func (s *SymmetricState) DecryptAndHash(ciphertext []byte) ([]byte, error) {
	plaintext, err := s.cs.DecryptWithAd(s.h[:], ciphertext)
	if err != nil {
		return nil, err
	}
	s.MixHash(ciphertext)
	return plaintext, nil
}

// Split derives the two transport cipher states from the final chaining
// key. The first is keyed for initiator-to-responder traffic, the second
// for the reverse direction.
func (s *SymmetricState) Split() (*CipherState, *CipherState, error) {
	k1, k2, err := crypto.HKDF2(s.ck, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("split derivation failed: %w", err)
	}
	cs1 := new(CipherState)
	cs2 := new(CipherState)
	cs1.InitializeKey(k1)
	cs2.InitializeKey(k2)
	crypto.WipeKey(&k1)
	crypto.WipeKey(&k2)
	return cs1, cs2, nil
}

// HandshakeHash returns the current transcript hash. After the final
// handshake message this value serves as a channel binding.
func (s *SymmetricState) HandshakeHash() [crypto.HashLen]byte {
	return s.h
}

// Wipe erases the chaining key and the handshake cipher key. The
// transcript hash is retained; it is public by construction.
func (s *SymmetricState) Wipe() {
	crypto.WipeKey(&s.ck)
	s.cs.Wipe()
}
