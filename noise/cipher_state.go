package noise

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/opd-ai/noisexx/crypto"
)

const (
	// KeyLen is the size of a ChaCha20-Poly1305 key.
	KeyLen = 32
	// TagLen is the size of a Poly1305 authentication tag.
	TagLen = 16
)

// maxNonce is reserved for Rekey; regular operations fail before
// reaching it so no (key, nonce) pair is ever used twice.
const maxNonce = ^uint64(0)

var (
	// ErrNonceExhausted indicates the 64-bit nonce counter would overflow.
	ErrNonceExhausted = errors.New("nonce counter exhausted")
	// ErrMessageAuthFailed indicates Poly1305 tag verification failed.
	ErrMessageAuthFailed = errors.New("message authentication failed")
)

// CipherState holds a ChaCha20-Poly1305 key and a 64-bit nonce counter.
// Before a key is set, encryption and decryption pass data through
// unchanged, matching the Noise specification for the unkeyed phase.
//
// A CipherState is not safe for concurrent use.
type CipherState struct {
	k      [KeyLen]byte
	n      uint64
	hasKey bool
}

// InitializeKey sets the cipher key and resets the nonce counter to zero.
// Any previous key is wiped first.
func (c *CipherState) InitializeKey(key [KeyLen]byte) {
	crypto.WipeKey(&c.k)
	c.k = key
	c.n = 0
	c.hasKey = true
}

// HasKey reports whether a key has been set.
func (c *CipherState) HasKey() bool {
	return c.hasKey
}

// Nonce returns the current nonce counter.
func (c *CipherState) Nonce() uint64 {
	return c.n
}

// SetNonce sets the nonce counter. Used only for out-of-band nonce
// bookkeeping; normal operation increments the counter internally.
func (c *CipherState) SetNonce(n uint64) {
	c.n = n
}

// EncryptWithAd encrypts plaintext bound to the given associated data
// and advances the nonce. Without a key the plaintext is returned
// unchanged and the nonce does not move.
func (c *CipherState) EncryptWithAd(ad, plaintext []byte) ([]byte, error) {
	if !c.hasKey {
		return plaintext, nil
	}
	if c.n == maxNonce {
		return nil, ErrNonceExhausted
	}

	aead, err := chacha20poly1305.New(c.k[:])
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AEAD: %w", err)
	}

	var nonce [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[4:], c.n)
	ciphertext := aead.Seal(nil, nonce[:], plaintext, ad)
	c.n++

	return ciphertext, nil
}

// DecryptWithAd decrypts ciphertext bound to the given associated data
// and advances the nonce. An authentication failure is terminal for this
// CipherState: the nonce is not advanced and the caller must discard the
// state.
func (c *CipherState) DecryptWithAd(ad, ciphertext []byte) ([]byte, error) {
	if !c.hasKey {
		return ciphertext, nil
	}
	if c.n == maxNonce {
		return nil, ErrNonceExhausted
	}

	aead, err := chacha20poly1305.New(c.k[:])
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AEAD: %w", err)
	}

	var nonce [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[4:], c.n)
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, ad)
	if err != nil {
		return nil, ErrMessageAuthFailed
	}
	c.n++

	return plaintext, nil
}

// Rekey replaces the key with ENCRYPT(k, 2^64-1, empty, zeros[32])[:32]
// per the Noise specification. The nonce counter is unchanged.
func (c *CipherState) Rekey() error {
	if !c.hasKey {
		return errors.New("cannot rekey without a key")
	}

	aead, err := chacha20poly1305.New(c.k[:])
	if err != nil {
		return fmt.Errorf("failed to initialize AEAD: %w", err)
	}

	var nonce [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[4:], maxNonce)
	var zeros [KeyLen]byte
	keystream := aead.Seal(nil, nonce[:], zeros[:], nil)

	crypto.WipeKey(&c.k)
	copy(c.k[:], keystream[:KeyLen])
	crypto.ZeroBytes(keystream)

	return nil
}

// Wipe erases the key and marks the state unkeyed.
func (c *CipherState) Wipe() {
	crypto.WipeKey(&c.k)
	c.hasKey = false
	c.n = 0
}
