package session

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	ProtocolVersion byte = 3
	handshakeSize        = 1536
)

var (
	ErrVersionMismatch = errors.New("session: handshake version mismatch")
	ErrHandshake       = errors.New("session: handshake failed")
)

// Handshake performs the simple (unsigned) client handshake on rw:
// C0+C1 out, S0+S1 in, C2 out, S2 in.
func Handshake(rw io.ReadWriter) error {
	c0c1 := make([]byte, 1+handshakeSize)
	c0c1[0] = ProtocolVersion
	binary.BigEndian.PutUint32(c0c1[1:5], uint32(time.Now().UnixMilli()))
	if _, err := io.ReadFull(rand.Reader, c0c1[9:]); err != nil {
		return fmt.Errorf("%w: random c1: %v", ErrHandshake, err)
	}
	if _, err := rw.Write(c0c1); err != nil {
		return fmt.Errorf("%w: write c0c1: %w", ErrHandshake, err)
	}

	s0s1 := make([]byte, 1+handshakeSize)
	if _, err := io.ReadFull(rw, s0s1); err != nil {
		return fmt.Errorf("%w: read s0s1: %w", ErrHandshake, err)
	}
	if s0s1[0] != ProtocolVersion {
		return fmt.Errorf("%w: server version %d", ErrVersionMismatch, s0s1[0])
	}

	// C2 echoes S1.
	if _, err := rw.Write(s0s1[1:]); err != nil {
		return fmt.Errorf("%w: write c2: %w", ErrHandshake, err)
	}

	s2 := make([]byte, handshakeSize)
	if _, err := io.ReadFull(rw, s2); err != nil {
		return fmt.Errorf("%w: read s2: %w", ErrHandshake, err)
	}
	return nil
}
