// Package noise implements the symmetric-state and handshake-state
// machinery of the Noise Protocol Framework for the XX pattern,
// instantiated as Noise_XX_25519_ChaChaPoly_SHA256.
//
// The package is layered the way the framework defines it:
//
//   - [CipherState]: a ChaCha20-Poly1305 key with a 64-bit nonce counter
//   - [SymmetricState]: the chaining key and handshake hash driving key
//     derivation and transcript commitment
//   - [HandshakeState]: the three-message XX driver that produces the
//     transport cipher pair
//
// # Message Flow
//
// XX provides mutual authentication without prior knowledge of the
// peer's static key (1.5 round trips):
//
//	Initiator                              Responder
//	─────────                              ─────────
//	-> e
//	                                       <- e, ee, s, es
//	-> s, se
//	[session established]
//
// Security properties:
//   - Mutual authentication: both static keys are transmitted and mixed
//     into the key schedule
//   - Forward secrecy: session keys depend on both ephemeral keys
//   - Transcript binding: every wire byte is absorbed into the handshake
//     hash, which authenticates each encrypted field
//
// # Usage
//
// Both sides drive the same state object; message direction alternates
// with the pattern:
//
//	hs, err := noise.NewHandshakeState(noise.Initiator, staticKeys, prologue)
//	if err != nil {
//	    return err
//	}
//	msg1, _, _, err := hs.WriteMessage(nil)       // -> e
//	// send msg1, receive msg2 ...
//	payload, _, _, err := hs.ReadMessage(msg2)    // <- e, ee, s, es
//	// send msg3; the final message yields the cipher pair
//	msg3, cs1, cs2, err := hs.WriteMessage(ownPayload)
//
// The first cipher state always protects initiator-to-responder traffic
// and the second responder-to-initiator traffic, on both sides.
//
// A HandshakeState is single use. Any failure is terminal: the state
// wipes its key material and rejects further operations. Callers that
// need identity binding on top of the raw pattern should use the session
// package, which attaches and verifies the signed identity payload.
package noise
