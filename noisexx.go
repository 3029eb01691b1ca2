// Package noisexx establishes mutually-authenticated secure channels
// between libp2p peers using the Noise-XX handshake
// (Noise_XX_25519_ChaChaPoly_SHA256).
//
// The module is layered into subpackages: crypto (primitives), noise
// (the XX state machines), identity (libp2p identities and peer IDs),
// payload (the signed identity-binding record), and session (the
// orchestrator and the established channel). This package is a thin
// facade over them for the common case of one handshake over one duplex
// stream:
//
//	static, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id, err := identity.GenerateEd25519Identity()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sess, err := noisexx.Initiate(conn, static, id,
//	    session.WithExpectedPeer(remotePeerID))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if err := sess.WriteMessage([]byte("hello")); err != nil {
//	    log.Fatal(err)
//	}
//
// The other end calls [Respond] with its own keys. Each call runs the
// three handshake steps in order and returns the established
// [session.Session], or the first error, after which the stream should
// be dropped.
package noisexx

import (
	"io"

	"github.com/opd-ai/noisexx/crypto"
	"github.com/opd-ai/noisexx/identity"
	"github.com/opd-ai/noisexx/noise"
	"github.com/opd-ai/noisexx/session"
)

// Initiate runs the initiator side of a Noise-XX handshake over rw and
// returns the established session.
func Initiate(rw io.ReadWriter, static *crypto.KeyPair, id identity.Identity, opts ...session.Option) (*session.Session, error) {
	return run(noise.Initiator, rw, static, id, opts...)
}

// Respond runs the responder side of a Noise-XX handshake over rw and
// returns the established session.
func Respond(rw io.ReadWriter, static *crypto.KeyPair, id identity.Identity, opts ...session.Option) (*session.Session, error) {
	return run(noise.Responder, rw, static, id, opts...)
}

func run(role noise.HandshakeRole, rw io.ReadWriter, static *crypto.KeyPair, id identity.Identity, opts ...session.Option) (*session.Session, error) {
	hs, err := session.NewXXHandshake(role, static, id, session.NewFramedTransport(rw), opts...)
	if err != nil {
		return nil, err
	}
	if err := hs.Propose(); err != nil {
		return nil, err
	}
	if err := hs.Exchange(); err != nil {
		return nil, err
	}
	return hs.Finish()
}
