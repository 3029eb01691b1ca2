package session

import (
	"errors"
	"fmt"

	"github.com/opd-ai/noisexx/crypto"
	"github.com/opd-ai/noisexx/noise"
	"github.com/opd-ai/noisexx/payload"
)

// ErrSessionClosed indicates use of a session after Close.
var ErrSessionClosed = errors.New("session is closed")

// Session is an established secure channel: the transport cipher pair
// produced by the handshake plus the authenticated remote identity.
//
// Each direction owns an independent key and nonce counter. A Session is
// not safe for concurrent use of the same direction; the two directions
// are independent.
type Session struct {
	send *noise.CipherState
	recv *noise.CipherState

	transport FramedTransport

	remotePeerID      []byte
	remoteIdentityKey []byte
	remoteEarlyData   []byte
	remoteStatic      [32]byte
	handshakeHash     [32]byte
	closed            bool
}

func newSession(role noise.HandshakeRole, cs1, cs2 *noise.CipherState, transport FramedTransport, remote *payload.Result, remoteStatic [32]byte, handshakeHash [32]byte) *Session {
	send, recv := cs1, cs2
	if role == noise.Responder {
		send, recv = cs2, cs1
	}
	return &Session{
		send:              send,
		recv:              recv,
		transport:         transport,
		remotePeerID:      remote.PeerID,
		remoteIdentityKey: remote.IdentityPublicKey,
		remoteEarlyData:   remote.EarlyData,
		remoteStatic:      remoteStatic,
		handshakeHash:     handshakeHash,
	}
}

// Encrypt seals plaintext with the send cipher, advancing its nonce.
func (s *Session) Encrypt(plaintext []byte) ([]byte, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.send.EncryptWithAd(nil, plaintext)
}

// Decrypt opens ciphertext with the receive cipher, advancing its nonce.
// An authentication failure is fatal for the receive direction.
func (s *Session) Decrypt(ciphertext []byte) ([]byte, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.recv.DecryptWithAd(nil, ciphertext)
}

// WriteMessage encrypts plaintext and writes it as one frame. The
// plaintext must leave room for the 16-byte tag within the frame limit.
func (s *Session) WriteMessage(plaintext []byte) error {
	if len(plaintext)+noise.TagLen > MaxFrameLen {
		return fmt.Errorf("%w: %d bytes plus tag", ErrFrameTooLarge, len(plaintext))
	}
	ciphertext, err := s.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return s.transport.WriteFrame(ciphertext)
}

// ReadMessage reads one frame and decrypts it.
func (s *Session) ReadMessage() ([]byte, error) {
	frame, err := s.transport.ReadFrame()
	if err != nil {
		return nil, err
	}
	return s.Decrypt(frame)
}

// RemotePeerID returns the authenticated remote peer ID.
func (s *Session) RemotePeerID() []byte {
	return append([]byte(nil), s.remotePeerID...)
}

// RemoteIdentityKey returns the remote peer's marshalled identity
// public key.
func (s *Session) RemoteIdentityKey() []byte {
	return append([]byte(nil), s.remoteIdentityKey...)
}

// RemoteEarlyData returns the authenticated early data the peer sent,
// or nil.
func (s *Session) RemoteEarlyData() []byte {
	if s.remoteEarlyData == nil {
		return nil
	}
	return append([]byte(nil), s.remoteEarlyData...)
}

// RemoteStaticKey returns the remote Noise static public key bound to
// the peer identity during the handshake.
func (s *Session) RemoteStaticKey() [32]byte {
	return s.remoteStatic
}

// HandshakeHash returns the transcript hash of the completed handshake,
// usable as a channel-binding value.
func (s *Session) HandshakeHash() [32]byte {
	return s.handshakeHash
}

// SendNonce returns the send direction's nonce counter: the number of
// messages encrypted so far.
func (s *Session) SendNonce() uint64 {
	return s.send.Nonce()
}

// RecvNonce returns the receive direction's nonce counter: the number
// of messages decrypted so far.
func (s *Session) RecvNonce() uint64 {
	return s.recv.Nonce()
}

// Close wipes both direction keys. The session is unusable afterwards.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.send.Wipe()
	s.recv.Wipe()
	crypto.WipeKey(&s.remoteStatic)
	s.closed = true
}
