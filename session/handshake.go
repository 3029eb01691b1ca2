package session

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/noisexx/crypto"
	"github.com/opd-ai/noisexx/identity"
	"github.com/opd-ai/noisexx/noise"
	"github.com/opd-ai/noisexx/payload"
)

var (
	// ErrStepOutOfOrder indicates Propose/Exchange/Finish invoked out of
	// their fixed order, or a step repeated.
	ErrStepOutOfOrder = errors.New("handshake step invoked out of order")
	// ErrHandshakeAborted indicates a previous step failed; the
	// handshake cannot continue.
	ErrHandshakeAborted = errors.New("handshake aborted by earlier failure")
)

// handshake stages, advanced strictly in order.
type stage uint8

const (
	stageInit stage = iota
	stageProposed
	stageExchanged
	stageFinished
	stageFailed
)

type config struct {
	prologue     []byte
	earlyData    []byte
	expectedPeer []byte
}

// Option configures an XXHandshake.
type Option func(*config)

// WithPrologue mixes caller-supplied context bytes into the transcript
// before message 1. Both sides must agree on the prologue.
func WithPrologue(prologue []byte) Option {
	return func(cfg *config) {
		cfg.prologue = prologue
	}
}

// WithEarlyData authenticates application bytes inside the handshake
// payload, before the transport session is live.
func WithEarlyData(data []byte) Option {
	return func(cfg *config) {
		cfg.earlyData = data
	}
}

// WithExpectedPeer pins the remote peer ID. If the peer that completes
// the handshake derives to a different ID, verification fails.
func WithExpectedPeer(peerID []byte) Option {
	return func(cfg *config) {
		cfg.expectedPeer = peerID
	}
}

// XXHandshake drives the three-step Noise-XX exchange over a framed
// transport and binds the remote Noise static key to a libp2p identity.
//
// The three steps must be called in order: Propose, Exchange, Finish.
// An XXHandshake is single use and not safe for concurrent use.
type XXHandshake struct {
	role      noise.HandshakeRole
	hs        *noise.HandshakeState
	transport FramedTransport
	id        identity.Identity

	ownPayload   []byte
	expectedPeer []byte

	stage  stage
	remote *payload.Result

	cs1, cs2 *noise.CipherState
}

// NewXXHandshake prepares a handshake for one role. The static key pair
// is the caller's Noise static key; the identity signs the payload that
// binds it. The signed payload is prepared here so the identity provider
// is not consulted again mid-handshake.
func NewXXHandshake(role noise.HandshakeRole, static *crypto.KeyPair, id identity.Identity, transport FramedTransport, opts ...Option) (*XXHandshake, error) {
	if static == nil {
		return nil, errors.New("static key pair is required")
	}
	if id == nil {
		return nil, errors.New("identity is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}

	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	hs, err := noise.NewHandshakeState(role, static, cfg.prologue)
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake state: %w", err)
	}

	ownPayload, err := payload.CreateSignedPayload(id, static.Public, cfg.earlyData)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare signed payload: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewXXHandshake",
		"role":          role.String(),
		"has_early":     len(cfg.earlyData) > 0,
		"peer_expected": cfg.expectedPeer != nil,
	}).Debug("Prepared XX handshake")

	return &XXHandshake{
		role:         role,
		hs:           hs,
		transport:    transport,
		id:           id,
		ownPayload:   ownPayload,
		expectedPeer: cfg.expectedPeer,
	}, nil
}

// Propose performs message 1: the initiator sends its ephemeral key, the
// responder receives it.
func (x *XXHandshake) Propose() error {
	if err := x.requireStage(stageInit); err != nil {
		return err
	}

	var err error
	if x.role == noise.Initiator {
		err = x.writeHandshakeMessage(nil)
	} else {
		_, err = x.readHandshakeMessage()
	}
	if err != nil {
		return x.abort(err)
	}

	x.stage = stageProposed
	return nil
}

// Exchange performs message 2: the responder sends its static key and
// signed payload, the initiator receives and verifies them. On the
// initiator, a successful Exchange means the responder's identity is
// authenticated.
func (x *XXHandshake) Exchange() error {
	if err := x.requireStage(stageProposed); err != nil {
		return err
	}

	var err error
	if x.role == noise.Responder {
		err = x.writeHandshakeMessage(x.ownPayload)
	} else {
		var remotePayload []byte
		remotePayload, err = x.readHandshakeMessage()
		if err == nil {
			err = x.verifyRemote(remotePayload)
		}
	}
	if err != nil {
		return x.abort(err)
	}

	x.stage = stageExchanged
	return nil
}

// Finish performs message 3: the initiator sends its static key and
// signed payload, the responder receives and verifies them. Both sides
// derive the transport cipher pair and return the established session.
func (x *XXHandshake) Finish() (*Session, error) {
	if err := x.requireStage(stageExchanged); err != nil {
		return nil, err
	}

	var err error
	if x.role == noise.Initiator {
		err = x.writeHandshakeMessage(x.ownPayload)
	} else {
		var remotePayload []byte
		remotePayload, err = x.readHandshakeMessage()
		if err == nil {
			err = x.verifyRemote(remotePayload)
		}
	}
	if err != nil {
		return nil, x.abort(err)
	}

	remoteStatic, err := x.hs.RemoteStatic()
	if err != nil {
		return nil, x.abort(err)
	}

	session := newSession(x.role, x.cs1, x.cs2, x.transport, x.remote, remoteStatic, x.hs.HandshakeHash())
	x.stage = stageFinished
	x.cs1, x.cs2 = nil, nil

	logrus.WithFields(logrus.Fields{
		"function":       "Finish",
		"role":           x.role.String(),
		"peer_id_prefix": fmt.Sprintf("%x", session.RemotePeerID()[:8]),
	}).Info("Noise-XX handshake established")

	return session, nil
}

// requireStage enforces the fixed Propose/Exchange/Finish order.
func (x *XXHandshake) requireStage(want stage) error {
	if x.stage == stageFailed {
		return ErrHandshakeAborted
	}
	if x.stage != want {
		return fmt.Errorf("%w: stage %d, expected %d", ErrStepOutOfOrder, x.stage, want)
	}
	return nil
}

// writeHandshakeMessage advances the pattern one message and frames it
// onto the transport, capturing the cipher pair on the final message.
func (x *XXHandshake) writeHandshakeMessage(msgPayload []byte) error {
	msg, cs1, cs2, err := x.hs.WriteMessage(msgPayload)
	if err != nil {
		return err
	}
	x.cs1, x.cs2 = cs1, cs2
	return x.transport.WriteFrame(msg)
}

// readHandshakeMessage reads one framed message and advances the
// pattern, capturing the cipher pair on the final message.
func (x *XXHandshake) readHandshakeMessage() ([]byte, error) {
	frame, err := x.transport.ReadFrame()
	if err != nil {
		return nil, err
	}
	msgPayload, cs1, cs2, err := x.hs.ReadMessage(frame)
	if err != nil {
		return nil, err
	}
	x.cs1, x.cs2 = cs1, cs2
	return msgPayload, nil
}

// verifyRemote checks the peer's signed payload against the static key
// the pattern just surfaced and the expected peer ID, if pinned.
func (x *XXHandshake) verifyRemote(remotePayload []byte) error {
	remoteStatic, err := x.hs.RemoteStatic()
	if err != nil {
		return err
	}

	result, err := payload.Verify(remotePayload, remoteStatic, x.expectedPeer)
	if err != nil {
		return err
	}
	x.remote = result
	return nil
}

// abort consumes the handshake: key material is wiped, the stage locked.
func (x *XXHandshake) abort(err error) error {
	logrus.WithFields(logrus.Fields{
		"function": "abort",
		"role":     x.role.String(),
		"stage":    x.stage,
		"error":    err.Error(),
	}).Error("Noise-XX handshake failed")

	x.stage = stageFailed
	x.hs.Abort()
	if x.cs1 != nil {
		x.cs1.Wipe()
		x.cs1 = nil
	}
	if x.cs2 != nil {
		x.cs2.Wipe()
		x.cs2 = nil
	}
	return err
}
