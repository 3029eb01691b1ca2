// Package identity models the long-term libp2p identity that the Noise
// handshake binds to its static keys.
//
// The handshake core treats identities as an externally-owned capability:
// it asks an [Identity] to sign bytes and to describe itself, and it uses
// the package-level helpers to verify signatures and derive peer IDs from
// marshalled public keys. The signature algorithm behind an identity is
// opaque to the handshake.
//
// # Public Key Envelopes
//
// Public keys travel in the libp2p envelope: a protobuf record tagging
// the algorithm and carrying the raw key bytes. [MarshalPublicKey] and
// [UnmarshalPublicKey] implement that record.
//
// # Peer IDs
//
// A peer ID is a multihash over the marshalled public key. Keys whose
// envelope is at most 42 bytes are inlined with the identity multihash;
// larger envelopes are hashed with SHA2-256. [PeerIDFromPublicKey]
// implements both paths.
//
// # Providers
//
// [Ed25519Identity] is the concrete provider shipped with this module:
//
//	id, err := identity.GenerateEd25519Identity()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sig, _ := id.Sign([]byte("message"))
//	ok, _ := identity.Verify(id.PublicKeyBytes(), []byte("message"), sig)
package identity
