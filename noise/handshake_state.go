package noise

import (
	"errors"
	"fmt"

	"github.com/opd-ai/noisexx/crypto"
)

// ProtocolName is the Noise protocol this package implements. The name
// is exactly 32 bytes, so initialization uses it as the initial hash
// directly instead of hashing it.
const ProtocolName = "Noise_XX_25519_ChaChaPoly_SHA256"

// DHLen is the size of an X25519 public key on the wire.
const DHLen = 32

// encryptedKeyLen is the wire size of an encrypted static key
// (32-byte key plus 16-byte tag).
const encryptedKeyLen = DHLen + TagLen

var (
	// ErrMalformedMessage indicates a handshake message shorter than the
	// fixed minimum for its step.
	ErrMalformedMessage = errors.New("malformed handshake message")
	// ErrOutOfOrder indicates a read or write that does not match the
	// pattern's next expected operation for this role.
	ErrOutOfOrder = errors.New("handshake operation out of order")
	// ErrHandshakeComplete indicates the handshake already finished and
	// the state has been consumed.
	ErrHandshakeComplete = errors.New("handshake already complete")
	// ErrHandshakeFailed indicates a previous step failed and the state
	// is unusable.
	ErrHandshakeFailed = errors.New("handshake previously failed")
)

// HandshakeRole defines whether we initiate or respond to a handshake.
type HandshakeRole uint8

const (
	// Initiator starts the handshake and sends message 1.
	Initiator HandshakeRole = iota
	// Responder answers with message 2.
	Responder
)

// String returns the role name for logging.
func (r HandshakeRole) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// HandshakeState drives the three-message XX pattern for one role.
//
// The state is single use: after the final message succeeds, or after
// any step fails, it is consumed and all contained key material is
// wiped. The caller's static key pair is copied in and the copy wiped on
// consumption; the caller's own copy is untouched.
type HandshakeState struct {
	ss SymmetricState
	s  crypto.KeyPair
	e  *crypto.KeyPair
	rs [DHLen]byte
	re [DHLen]byte

	role     HandshakeRole
	mc       uint8
	hasRS    bool
	complete bool
	failed   bool
	hash     [crypto.HashLen]byte
}

// NewHandshakeState creates an XX handshake state for the given role.
// The prologue is mixed into the transcript before message 1; both sides
// must supply identical prologue bytes or the first encrypted field will
// fail to authenticate.
func NewHandshakeState(role HandshakeRole, static *crypto.KeyPair, prologue []byte) (*HandshakeState, error) {
	if static == nil {
		return nil, errors.New("static key pair is required")
	}
	if isZero(static.Private[:]) {
		return nil, errors.New("static private key must not be all zeros")
	}

	hs := &HandshakeState{
		role: role,
		ss:   InitializeSymmetric([]byte(ProtocolName)),
	}
	hs.s = *static
	hs.ss.MixHash(prologue)

	return hs, nil
}

// WriteMessage produces the next handshake message for the wire,
// embedding the given payload. On the final message it also returns the
// two transport cipher states; before that both are nil.
func (hs *HandshakeState) WriteMessage(payload []byte) ([]byte, *CipherState, *CipherState, error) {
	if err := hs.checkTurn(true); err != nil {
		return nil, nil, nil, err
	}

	var (
		msg      []byte
		cs1, cs2 *CipherState
		err      error
	)
	switch hs.mc {
	case 0:
		msg, err = hs.writeMessageA(payload)
	case 1:
		msg, err = hs.writeMessageB(payload)
	case 2:
		msg, cs1, cs2, err = hs.writeMessageC(payload)
	}
	if err != nil {
		hs.fail()
		return nil, nil, nil, err
	}
	hs.mc++

	return msg, cs1, cs2, nil
}

// ReadMessage consumes a handshake message received from the peer and
// returns the embedded payload. On the final message it also returns the
// two transport cipher states; before that both are nil.
func (hs *HandshakeState) ReadMessage(message []byte) ([]byte, *CipherState, *CipherState, error) {
	if err := hs.checkTurn(false); err != nil {
		return nil, nil, nil, err
	}

	var (
		payload  []byte
		cs1, cs2 *CipherState
		err      error
	)
	switch hs.mc {
	case 0:
		payload, err = hs.readMessageA(message)
	case 1:
		payload, err = hs.readMessageB(message)
	case 2:
		payload, cs1, cs2, err = hs.readMessageC(message)
	}
	if err != nil {
		hs.fail()
		return nil, nil, nil, err
	}
	hs.mc++

	return payload, cs1, cs2, nil
}

// RemoteStatic returns the peer's static public key once it has been
// received (message 2 for the initiator, message 3 for the responder).
func (hs *HandshakeState) RemoteStatic() ([DHLen]byte, error) {
	if !hs.hasRS {
		return [DHLen]byte{}, errors.New("remote static key not yet received")
	}
	return hs.rs, nil
}

// HandshakeHash returns the transcript hash. After completion this is
// the channel-binding value; before completion it reflects the
// transcript so far.
func (hs *HandshakeState) HandshakeHash() [crypto.HashLen]byte {
	if hs.complete {
		return hs.hash
	}
	return hs.ss.HandshakeHash()
}

// checkTurn validates the state machine: not failed, not complete, and
// the requested direction matches whose turn it is. Messages 1 and 3 are
// written by the initiator, message 2 by the responder.
func (hs *HandshakeState) checkTurn(writing bool) error {
	if hs.failed {
		return ErrHandshakeFailed
	}
	if hs.complete {
		return ErrHandshakeComplete
	}

	initiatorWrites := hs.mc%2 == 0
	writerTurn := hs.role == Initiator && initiatorWrites ||
		hs.role == Responder && !initiatorWrites
	if writing != writerTurn {
		return fmt.Errorf("%w: message %d is not %s's to %s", ErrOutOfOrder,
			hs.mc+1, hs.role, direction(writing))
	}
	return nil
}

func direction(writing bool) string {
	if writing {
		return "write"
	}
	return "read"
}

// writeMessageA implements "-> e".
func (hs *HandshakeState) writeMessageA(payload []byte) ([]byte, error) {
	e, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	hs.e = e

	msg := make([]byte, 0, DHLen+len(payload))
	msg = append(msg, e.Public[:]...)
	hs.ss.MixHash(e.Public[:])

	ct, err := hs.ss.EncryptAndHash(payload)
	if err != nil {
		return nil, err
	}
	return append(msg, ct...), nil
}

// readMessageA implements the responder side of "-> e".
func (hs *HandshakeState) readMessageA(message []byte) ([]byte, error) {
	if len(message) < DHLen {
		return nil, fmt.Errorf("%w: message 1 shorter than %d bytes", ErrMalformedMessage, DHLen)
	}

	copy(hs.re[:], message[:DHLen])
	hs.ss.MixHash(hs.re[:])

	return hs.ss.DecryptAndHash(message[DHLen:])
}

// writeMessageB implements "<- e, ee, s, es".
func (hs *HandshakeState) writeMessageB(payload []byte) ([]byte, error) {
	e, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	hs.e = e

	msg := make([]byte, 0, DHLen+encryptedKeyLen+len(payload)+TagLen)
	msg = append(msg, e.Public[:]...)
	hs.ss.MixHash(e.Public[:])

	if err := hs.mixDH(hs.e.Private, hs.re); err != nil { // ee
		return nil, err
	}

	encS, err := hs.ss.EncryptAndHash(hs.s.Public[:])
	if err != nil {
		return nil, err
	}
	msg = append(msg, encS...)

	if err := hs.mixDH(hs.s.Private, hs.re); err != nil { // es
		return nil, err
	}

	ct, err := hs.ss.EncryptAndHash(payload)
	if err != nil {
		return nil, err
	}
	return append(msg, ct...), nil
}

// readMessageB implements the initiator side of "<- e, ee, s, es".
func (hs *HandshakeState) readMessageB(message []byte) ([]byte, error) {
	if len(message) < DHLen+encryptedKeyLen {
		return nil, fmt.Errorf("%w: message 2 shorter than %d bytes", ErrMalformedMessage, DHLen+encryptedKeyLen)
	}

	copy(hs.re[:], message[:DHLen])
	hs.ss.MixHash(hs.re[:])

	if err := hs.mixDH(hs.e.Private, hs.re); err != nil { // ee
		return nil, err
	}

	rs, err := hs.ss.DecryptAndHash(message[DHLen : DHLen+encryptedKeyLen])
	if err != nil {
		return nil, err
	}
	copy(hs.rs[:], rs)
	hs.hasRS = true
	crypto.ZeroBytes(rs)

	if err := hs.mixDH(hs.e.Private, hs.rs); err != nil { // es
		return nil, err
	}

	return hs.ss.DecryptAndHash(message[DHLen+encryptedKeyLen:])
}

// writeMessageC implements "-> s, se" and completes the handshake.
func (hs *HandshakeState) writeMessageC(payload []byte) ([]byte, *CipherState, *CipherState, error) {
	encS, err := hs.ss.EncryptAndHash(hs.s.Public[:])
	if err != nil {
		return nil, nil, nil, err
	}

	if err := hs.mixDH(hs.s.Private, hs.re); err != nil { // se
		return nil, nil, nil, err
	}

	ct, err := hs.ss.EncryptAndHash(payload)
	if err != nil {
		return nil, nil, nil, err
	}

	cs1, cs2, err := hs.split()
	if err != nil {
		return nil, nil, nil, err
	}
	return append(encS, ct...), cs1, cs2, nil
}

// readMessageC implements the responder side of "-> s, se" and completes
// the handshake.
func (hs *HandshakeState) readMessageC(message []byte) ([]byte, *CipherState, *CipherState, error) {
	if len(message) < encryptedKeyLen {
		return nil, nil, nil, fmt.Errorf("%w: message 3 shorter than %d bytes", ErrMalformedMessage, encryptedKeyLen)
	}

	rs, err := hs.ss.DecryptAndHash(message[:encryptedKeyLen])
	if err != nil {
		return nil, nil, nil, err
	}
	copy(hs.rs[:], rs)
	hs.hasRS = true
	crypto.ZeroBytes(rs)

	if err := hs.mixDH(hs.e.Private, hs.rs); err != nil { // se
		return nil, nil, nil, err
	}

	payload, err := hs.ss.DecryptAndHash(message[encryptedKeyLen:])
	if err != nil {
		return nil, nil, nil, err
	}

	cs1, cs2, err := hs.split()
	if err != nil {
		return nil, nil, nil, err
	}
	return payload, cs1, cs2, nil
}

// mixDH performs one DH of the schedule and ratchets the chaining key
// with the result. The shared secret is wiped immediately after mixing.
func (hs *HandshakeState) mixDH(private [DHLen]byte, public [DHLen]byte) error {
	secret, err := crypto.DeriveSharedSecret(public, private)
	if err != nil {
		return err
	}
	err = hs.ss.MixKey(secret[:])
	crypto.WipeKey(&secret)
	return err
}

// split derives the transport cipher pair and consumes the state.
func (hs *HandshakeState) split() (*CipherState, *CipherState, error) {
	cs1, cs2, err := hs.ss.Split()
	if err != nil {
		return nil, nil, err
	}
	hs.hash = hs.ss.HandshakeHash()
	hs.complete = true
	hs.wipe()
	return cs1, cs2, nil
}

// Abort terminally fails the handshake and wipes all key material. Used
// by orchestration code when the transport dies between messages; a
// completed or already-failed state is left untouched.
func (hs *HandshakeState) Abort() {
	if hs.complete || hs.failed {
		return
	}
	hs.fail()
}

// fail marks the state terminally failed and releases key material.
func (hs *HandshakeState) fail() {
	hs.failed = true
	hs.wipe()
}

// wipe erases the symmetric state keys, the ephemeral private key, and
// the internal copy of the static private key.
func (hs *HandshakeState) wipe() {
	hs.ss.Wipe()
	crypto.WipeKeyPair(hs.e)
	crypto.WipeKey(&hs.s.Private)
}

// isZero reports whether b consists entirely of zero bytes.
func isZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}
