package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HashLen is the output size of the handshake hash function (SHA-256).
const HashLen = 32

// Hash computes SHA-256 over the concatenation of a and b. This is the
// only hash construction the handshake transcript uses.
func Hash(a, b []byte) [HashLen]byte {
	return sha256.Sum256(append(a[:len(a):len(a)], b...))
}

// HKDF2 derives two 32-byte outputs from a chaining key and input key
// material using HKDF-SHA-256 with empty info, per the Noise key
// schedule.
func HKDF2(chainingKey [HashLen]byte, ikm []byte) ([HashLen]byte, [HashLen]byte, error) {
	var out1, out2 [HashLen]byte
	reader := hkdf.New(sha256.New, ikm, chainingKey[:], nil)
	if _, err := io.ReadFull(reader, out1[:]); err != nil {
		return out1, out2, fmt.Errorf("hkdf expand failed: %w", err)
	}
	if _, err := io.ReadFull(reader, out2[:]); err != nil {
		WipeKey(&out1)
		return out1, out2, fmt.Errorf("hkdf expand failed: %w", err)
	}
	return out1, out2, nil
}

// HKDF3 derives three 32-byte outputs from a chaining key and input key
// material. The Noise XX pattern itself only needs two outputs; the
// third serves MixKeyAndHash.
func HKDF3(chainingKey [HashLen]byte, ikm []byte) ([HashLen]byte, [HashLen]byte, [HashLen]byte, error) {
	var out1, out2, out3 [HashLen]byte
	reader := hkdf.New(sha256.New, ikm, chainingKey[:], nil)
	for _, out := range [][]byte{out1[:], out2[:], out3[:]} {
		if _, err := io.ReadFull(reader, out); err != nil {
			WipeKey(&out1)
			WipeKey(&out2)
			WipeKey(&out3)
			return out1, out2, out3, fmt.Errorf("hkdf expand failed: %w", err)
		}
	}
	return out1, out2, out3, nil
}
