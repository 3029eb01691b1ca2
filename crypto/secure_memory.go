package crypto

import "runtime"

// Key material in this module lives in fixed-size 32-byte arrays:
// KeyPair privates, chaining keys, AEAD keys, and DH outputs. WipeKey
// clears one in place.
//
// The pointer is kept alive past the zeroing loop so the compiler
// cannot treat the stores as dead writes to a value about to leave
// scope.
func WipeKey(k *[32]byte) {
	if k == nil {
		return
	}
	for i := range k {
		k[i] = 0
	}
	runtime.KeepAlive(k)
}

// ZeroBytes clears a byte slice holding variable-length secrets:
// X25519 outputs, decrypted key fields, AEAD keystream buffers.
func ZeroBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
	if len(data) > 0 {
		runtime.KeepAlive(&data[0])
	}
}

// WipeKeyPair clears the private half of a key pair. The public half is
// wire-visible and keeps its value. Wiping nil is a no-op.
func WipeKeyPair(kp *KeyPair) {
	if kp == nil {
		return
	}
	WipeKey(&kp.Private)
}
