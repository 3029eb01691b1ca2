// Package session orchestrates the Noise-XX handshake over a framed
// transport and exposes the resulting secure session.
//
// The three-step driver mirrors the XX message flow. Both sides call the
// same sequence; the framing enforces cross-side ordering:
//
//	hs, err := session.NewXXHandshake(noise.Initiator, staticKeys, id,
//	    session.NewFramedTransport(conn),
//	    session.WithExpectedPeer(remotePeerID))
//	if err != nil {
//	    return err
//	}
//	if err := hs.Propose(); err != nil { ... }   // message 1
//	if err := hs.Exchange(); err != nil { ... }  // message 2 + identity check
//	sess, err := hs.Finish()                     // message 3 + identity check
//
// Propose sends or receives the initiator's ephemeral key. Exchange
// carries the responder's static key and signed identity payload, which
// the initiator verifies before proceeding. Finish carries the
// initiator's own proof the other way and yields the [Session]: a pair
// of transport ciphers bound to the authenticated remote peer.
//
// Handshake messages and transport messages share the same framing: a
// 16-bit big-endian length prefix, bounding every message at 65535
// bytes.
//
// Any error is terminal. The handshake wipes its key material and
// rejects further steps; the caller drops the transport.
package session
