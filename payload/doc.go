// Package payload implements the libp2p handshake payload: the signed
// record each peer embeds in the second and third Noise messages to bind
// its long-term identity to its Noise static key.
//
// The payload is a protobuf-wire record with four fields: the marshalled
// identity public key, a signature over the Noise static key, and
// optional early data with its own signature. [CreateSignedPayload]
// builds and signs it; [Verify] checks a received payload against the
// remote static key learned from the handshake and, optionally, an
// expected peer ID.
//
// Verification failures are wrapped with a stable prefix so upstream
// code can pattern-match them; see [VerifyErrPrefix].
package payload
