package identity

// Identity is a long-term signing identity owned by the caller. The
// handshake uses it to produce the static-key proof carried in the
// handshake payload; it never takes ownership of the underlying key.
type Identity interface {
	// Sign signs data with the identity's private key.
	Sign(data []byte) ([]byte, error)

	// PublicKeyBytes returns the identity's public key in the libp2p
	// envelope encoding.
	PublicKeyBytes() []byte

	// PeerIDBytes returns the canonical peer ID derived from the
	// identity's public key.
	PeerIDBytes() []byte
}
