// Package crypto implements the cryptographic primitives for the Noise-XX
// secure channel.
//
// This package provides the fixed algorithm suite used by the handshake:
// X25519 Diffie-Hellman key agreement, SHA-256 hashing, and HKDF-SHA-256
// key derivation, together with secure key-material handling. The AEAD
// (ChaCha20-Poly1305) lives with the cipher state in the noise package;
// everything below it is here.
//
// # Core Types
//
//   - [KeyPair]: X25519 key pair used for both static and ephemeral
//     Diffie-Hellman keys
//
// # Key Agreement
//
// Shared secrets are computed with X25519 and validated against low-order
// peer keys. A peer public key whose shared secret is the all-zero string
// is rejected:
//
//	secret, err := crypto.DeriveSharedSecret(peerPublic, keyPair.Private)
//	if err != nil {
//	    // handshake must be aborted
//	}
//
// # Key Derivation
//
// HKDF-SHA-256 with two or three 32-byte outputs drives the Noise key
// schedule:
//
//	ck, temp, err := crypto.HKDF2(chainingKey, dhOutput[:])
//
// # Memory Hygiene
//
// All intermediate secrets are wiped before release. Callers owning key
// material should do the same:
//
//	defer crypto.WipeKeyPair(kp)
//	defer crypto.WipeKey(&secret)
package crypto
