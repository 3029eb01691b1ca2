package crypto

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"
)

// ErrLowOrderPublicKey indicates a peer public key that produced the
// all-zero shared secret. Such keys are low-order or otherwise invalid
// and must abort the handshake.
var ErrLowOrderPublicKey = errors.New("invalid public key: all-zero shared secret")

// DeriveSharedSecret computes an X25519 shared secret between a peer's
// public key and our private key.
//
// The all-zero output is rejected: it indicates a low-order peer public
// key and would let an attacker force a predictable key schedule. The
// check runs in constant time.
func DeriveSharedSecret(peerPublicKey, privateKey [32]byte) ([32]byte, error) {
	var privateKeyCopy [32]byte
	copy(privateKeyCopy[:], privateKey[:])

	sharedSecret, err := curve25519.X25519(privateKeyCopy[:], peerPublicKey[:])
	WipeKey(&privateKeyCopy)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":        "DeriveSharedSecret",
			"peer_key_prefix": fmt.Sprintf("%x", peerPublicKey[:8]),
			"error":           err.Error(),
		}).Debug("X25519 computation rejected peer public key")
		return [32]byte{}, fmt.Errorf("%w: %v", ErrLowOrderPublicKey, err)
	}

	var zero [32]byte
	if subtle.ConstantTimeCompare(sharedSecret, zero[:]) == 1 {
		ZeroBytes(sharedSecret)
		return [32]byte{}, ErrLowOrderPublicKey
	}

	var result [32]byte
	copy(result[:], sharedSecret)
	ZeroBytes(sharedSecret)

	return result, nil
}
