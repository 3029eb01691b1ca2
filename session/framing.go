package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameLen is the largest frame the 16-bit length prefix can
// describe. Handshake and transport messages alike must fit.
const MaxFrameLen = 65535

// lengthPrefixLen is the size of the frame header.
const lengthPrefixLen = 2

var (
	// ErrFrameTooLarge indicates an outgoing frame exceeding MaxFrameLen.
	ErrFrameTooLarge = errors.New("frame exceeds maximum length")
	// ErrMalformedFrame indicates a frame body shorter than its length
	// prefix promised.
	ErrMalformedFrame = errors.New("malformed frame")
)

// FramedTransport is an ordered, reliable, length-delimited byte channel.
// The handshake and the post-handshake session speak only through this
// interface.
type FramedTransport interface {
	// ReadFrame reads the next length-prefixed frame.
	ReadFrame() ([]byte, error)
	// WriteFrame writes one length-prefixed frame.
	WriteFrame(data []byte) error
}

// framedConn implements FramedTransport over any duplex byte stream
// with a 16-bit big-endian length prefix per frame.
type framedConn struct {
	rw io.ReadWriter
}

// NewFramedTransport wraps a duplex byte stream in libp2p secure-channel
// framing.
func NewFramedTransport(rw io.ReadWriter) FramedTransport {
	return &framedConn{rw: rw}
}

func (f *framedConn) ReadFrame() ([]byte, error) {
	var header [lengthPrefixLen]byte
	if _, err := io.ReadFull(f.rw, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	length := binary.BigEndian.Uint16(header[:])
	data := make([]byte, length)
	if _, err := io.ReadFull(f.rw, data); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: body shorter than %d-byte prefix: %v", ErrMalformedFrame, length, err)
		}
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}
	return data, nil
}

func (f *framedConn) WriteFrame(data []byte) error {
	if len(data) > MaxFrameLen {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	// Header and body go out in one write so concurrent writers on the
	// underlying stream cannot interleave mid-frame.
	frame := make([]byte, lengthPrefixLen+len(data))
	binary.BigEndian.PutUint16(frame, uint16(len(data)))
	copy(frame[lengthPrefixLen:], data)

	if _, err := f.rw.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
