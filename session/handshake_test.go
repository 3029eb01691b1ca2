package session

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/noisexx/crypto"
	"github.com/opd-ai/noisexx/identity"
	"github.com/opd-ai/noisexx/noise"
	"github.com/opd-ai/noisexx/payload"
)

// chanTransport is an in-memory FramedTransport over buffered channels.
// The buffering lets tests drive both sides from a single goroutine in
// pattern order.
type chanTransport struct {
	in  <-chan []byte
	out chan<- []byte
}

func (c *chanTransport) ReadFrame() ([]byte, error) {
	frame, ok := <-c.in
	if !ok {
		return nil, io.EOF
	}
	return frame, nil
}

func (c *chanTransport) WriteFrame(data []byte) error {
	c.out <- append([]byte(nil), data...)
	return nil
}

func newChanPair() (FramedTransport, FramedTransport, chan []byte, chan []byte) {
	aToB := make(chan []byte, 4)
	bToA := make(chan []byte, 4)
	a := &chanTransport{in: bToA, out: aToB}
	b := &chanTransport{in: aToB, out: bToA}
	return a, b, aToB, bToA
}

// tamperedRead wraps a transport and mutates every frame read through it.
type tamperedRead struct {
	FramedTransport
	mutate func([]byte)
}

func (tr *tamperedRead) ReadFrame() ([]byte, error) {
	frame, err := tr.FramedTransport.ReadFrame()
	if err != nil {
		return nil, err
	}
	tr.mutate(frame)
	return frame, nil
}

type testPeer struct {
	static *crypto.KeyPair
	id     *identity.Ed25519Identity
}

func newTestPeer(t *testing.T) *testPeer {
	t.Helper()
	static, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	id, err := identity.GenerateEd25519Identity()
	require.NoError(t, err)
	return &testPeer{static: static, id: id}
}

// runBoth drives a full handshake in pattern order over buffered
// channels and returns both sessions.
func runBoth(t *testing.T, ini, resp *XXHandshake) (*Session, *Session) {
	t.Helper()
	require.NoError(t, ini.Propose())
	require.NoError(t, resp.Propose())
	require.NoError(t, resp.Exchange())
	require.NoError(t, ini.Exchange())
	iniSession, err := ini.Finish()
	require.NoError(t, err)
	respSession, err := resp.Finish()
	require.NoError(t, err)
	return iniSession, respSession
}

// S1: two honest peers converge and the channel carries data.
func TestHandshakeHappyPath(t *testing.T) {
	peerA := newTestPeer(t)
	peerB := newTestPeer(t)
	ta, tb, _, _ := newChanPair()

	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, ta)
	require.NoError(t, err)
	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb)
	require.NoError(t, err)

	iniSession, respSession := runBoth(t, ini, resp)

	assert.Equal(t, peerB.id.PeerIDBytes(), iniSession.RemotePeerID())
	assert.Equal(t, peerA.id.PeerIDBytes(), respSession.RemotePeerID())
	assert.Equal(t, peerB.static.Public, iniSession.RemoteStaticKey())
	assert.Equal(t, peerA.static.Public, respSession.RemoteStaticKey())
	assert.Equal(t, iniSession.HandshakeHash(), respSession.HandshakeHash())

	ct, err := iniSession.Encrypt([]byte("encryptthis"))
	require.NoError(t, err)
	pt, err := respSession.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("encryptthis"), pt)

	ct, err = respSession.Encrypt([]byte("replying"))
	require.NoError(t, err)
	pt, err = iniSession.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("replying"), pt)
}

// S2: the initiator expects a different peer; Exchange fails with the
// frozen message.
func TestHandshakeInitiatorExpectsWrongPeer(t *testing.T) {
	peerA := newTestPeer(t)
	peerB := newTestPeer(t)
	fakePeer := newTestPeer(t)
	ta, tb, _, _ := newChanPair()

	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, ta,
		WithExpectedPeer(fakePeer.id.PeerIDBytes()))
	require.NoError(t, err)
	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb)
	require.NoError(t, err)

	require.NoError(t, ini.Propose())
	require.NoError(t, resp.Propose())
	require.NoError(t, resp.Exchange())

	err = ini.Exchange()
	require.Error(t, err)
	assert.Equal(t,
		"Error occurred while verifying signed payload: Peer ID doesn't match libp2p public key.",
		err.Error())
	assert.ErrorIs(t, err, payload.ErrPeerIDMismatch)

	// The handshake is consumed.
	_, err = ini.Finish()
	assert.ErrorIs(t, err, ErrHandshakeAborted)
}

// S3: the responder expects a different peer; its Finish fails with the
// same frozen message while the initiator completes.
func TestHandshakeResponderExpectsWrongPeer(t *testing.T) {
	peerA := newTestPeer(t)
	peerB := newTestPeer(t)
	fakePeer := newTestPeer(t)
	ta, tb, _, _ := newChanPair()

	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, ta)
	require.NoError(t, err)
	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb,
		WithExpectedPeer(fakePeer.id.PeerIDBytes()))
	require.NoError(t, err)

	require.NoError(t, ini.Propose())
	require.NoError(t, resp.Propose())
	require.NoError(t, resp.Exchange())
	require.NoError(t, ini.Exchange())

	_, err = ini.Finish()
	require.NoError(t, err, "the initiator is done after sending message 3")

	_, err = resp.Finish()
	require.Error(t, err)
	assert.Equal(t,
		"Error occurred while verifying signed payload: Peer ID doesn't match libp2p public key.",
		err.Error())
}

// S4: one flipped byte in message 2's encrypted static field fails the
// initiator's Exchange with an authentication error.
func TestHandshakeTamperedMessage2(t *testing.T) {
	peerA := newTestPeer(t)
	peerB := newTestPeer(t)
	ta, tb, _, _ := newChanPair()

	tampered := &tamperedRead{
		FramedTransport: ta,
		mutate: func(frame []byte) {
			if len(frame) > noise.DHLen {
				frame[noise.DHLen] ^= 0x01 // inside the encrypted s field
			}
		},
	}

	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, tampered)
	require.NoError(t, err)
	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb)
	require.NoError(t, err)

	require.NoError(t, ini.Propose())
	require.NoError(t, resp.Propose())
	require.NoError(t, resp.Exchange())

	err = ini.Exchange()
	assert.ErrorIs(t, err, noise.ErrMessageAuthFailed)
}

// S5: a low-order remote ephemeral kills the responder's Exchange
// before any payload is processed.
func TestHandshakeLowOrderEphemeral(t *testing.T) {
	peerB := newTestPeer(t)
	_, tb, aToB, _ := newChanPair()

	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb)
	require.NoError(t, err)

	aToB <- make([]byte, noise.DHLen) // forged message 1: all-zero ephemeral

	require.NoError(t, resp.Propose())
	err = resp.Exchange()
	assert.ErrorIs(t, err, crypto.ErrLowOrderPublicKey)
}

// S6: a payload without early-data fields verifies cleanly.
func TestHandshakeWithoutEarlyData(t *testing.T) {
	peerA := newTestPeer(t)
	peerB := newTestPeer(t)
	ta, tb, _, _ := newChanPair()

	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, ta)
	require.NoError(t, err)
	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb)
	require.NoError(t, err)

	iniSession, respSession := runBoth(t, ini, resp)
	assert.Nil(t, iniSession.RemoteEarlyData())
	assert.Nil(t, respSession.RemoteEarlyData())
}

func TestHandshakeEarlyData(t *testing.T) {
	peerA := newTestPeer(t)
	peerB := newTestPeer(t)
	ta, tb, _, _ := newChanPair()

	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, ta,
		WithEarlyData([]byte("initiator says hi")))
	require.NoError(t, err)
	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb,
		WithEarlyData([]byte("responder says hi")))
	require.NoError(t, err)

	iniSession, respSession := runBoth(t, ini, resp)
	assert.Equal(t, []byte("responder says hi"), iniSession.RemoteEarlyData())
	assert.Equal(t, []byte("initiator says hi"), respSession.RemoteEarlyData())
}

func TestHandshakePinnedPeerAccepted(t *testing.T) {
	peerA := newTestPeer(t)
	peerB := newTestPeer(t)
	ta, tb, _, _ := newChanPair()

	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, ta,
		WithExpectedPeer(peerB.id.PeerIDBytes()))
	require.NoError(t, err)
	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb,
		WithExpectedPeer(peerA.id.PeerIDBytes()))
	require.NoError(t, err)

	runBoth(t, ini, resp)
}

// Property 8: steps repeated or out of order are misuse.
func TestHandshakeStepOrder(t *testing.T) {
	peerA := newTestPeer(t)
	peerB := newTestPeer(t)
	ta, tb, _, _ := newChanPair()

	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, ta)
	require.NoError(t, err)
	resp, err := NewXXHandshake(noise.Responder, peerB.static, peerB.id, tb)
	require.NoError(t, err)

	_, err = ini.Finish()
	assert.ErrorIs(t, err, ErrStepOutOfOrder)
	err = ini.Exchange()
	assert.ErrorIs(t, err, ErrStepOutOfOrder)

	require.NoError(t, ini.Propose())
	err = ini.Propose()
	assert.ErrorIs(t, err, ErrStepOutOfOrder)

	require.NoError(t, resp.Propose())
	require.NoError(t, resp.Exchange())
	require.NoError(t, ini.Exchange())
	_, err = ini.Finish()
	require.NoError(t, err)
	_, err = ini.Finish()
	assert.ErrorIs(t, err, ErrStepOutOfOrder)
}

func TestHandshakeTransportFailure(t *testing.T) {
	peerA := newTestPeer(t)
	_, _, _, bToA := newChanPair()
	close(bToA)

	in := &chanTransport{in: bToA, out: make(chan []byte, 4)}
	ini, err := NewXXHandshake(noise.Initiator, peerA.static, peerA.id, in)
	require.NoError(t, err)

	require.NoError(t, ini.Propose())
	err = ini.Exchange()
	assert.ErrorIs(t, err, io.EOF)

	// Transport failures consume the handshake like any other error.
	_, err = ini.Finish()
	assert.ErrorIs(t, err, ErrHandshakeAborted)
}

func TestNewXXHandshakeValidation(t *testing.T) {
	peer := newTestPeer(t)
	ta, _, _, _ := newChanPair()

	_, err := NewXXHandshake(noise.Initiator, nil, peer.id, ta)
	assert.Error(t, err)
	_, err = NewXXHandshake(noise.Initiator, peer.static, nil, ta)
	assert.Error(t, err)
	_, err = NewXXHandshake(noise.Initiator, peer.static, peer.id, nil)
	assert.Error(t, err)
}
