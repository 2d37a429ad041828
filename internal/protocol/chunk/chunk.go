// Package chunk owns RTMP chunk stream framing.
//
// Ownership boundary:
// - basic and message header primitives
// - message reassembly across interleaved chunk streams
// - protocol control message bodies
package chunk

import (
	"errors"
)

const (
	DefaultChunkSize uint32 = 128
	maxMessageHeader        = 11 + 4
	extendedTimestamp       = 0xFFFFFF
)

// Chunk stream IDs used by the client side of a session.
const (
	StreamProtocolControl uint32 = 2
	StreamCommand         uint32 = 3
	StreamMedia           uint32 = 8
)

// Message type IDs.
const (
	TypeSetChunkSize     uint8 = 1
	TypeAbort            uint8 = 2
	TypeAcknowledgement  uint8 = 3
	TypeUserControl      uint8 = 4
	TypeWindowAckSize    uint8 = 5
	TypeSetPeerBandwidth uint8 = 6
	TypeAudio            uint8 = 8
	TypeVideo            uint8 = 9
	TypeDataAMF3         uint8 = 15
	TypeCommandAMF3      uint8 = 17
	TypeDataAMF0         uint8 = 18
	TypeCommandAMF0      uint8 = 20
)

var (
	ErrTruncated         = errors.New("chunk: truncated chunk")
	ErrNoPreviousHeader  = errors.New("chunk: compressed header without previous header")
	ErrMessageTooLarge   = errors.New("chunk: message too large")
	ErrInvalidChunkSize  = errors.New("chunk: invalid chunk size")
	ErrInvalidStreamID   = errors.New("chunk: invalid chunk stream id")
	ErrShortControlValue = errors.New("chunk: short control message body")
)

// Header is the reassembled message header.
type Header struct {
	ChunkStreamID uint32
	Timestamp     uint32
	Length        uint32
	TypeID        uint8
	StreamID      uint32
}

// Message is one complete RTMP message.
type Message struct {
	Header
	Body []byte
}

// IsCommand reports whether the message carries an AMF command body.
func (m Message) IsCommand() bool {
	return m.TypeID == TypeCommandAMF0 || m.TypeID == TypeCommandAMF3
}

// Limits constrains reassembly memory use.
type Limits struct {
	MaxMessageBytes uint32
	MaxChunkSize    uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxMessageBytes: 8 * 1024 * 1024,
		MaxChunkSize:    1 << 24,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxMessageBytes == 0 {
		l.MaxMessageBytes = def.MaxMessageBytes
	}
	if l.MaxChunkSize == 0 {
		l.MaxChunkSize = def.MaxChunkSize
	}
	return l
}

func validChunkSize(size uint32, limits Limits) bool {
	return size >= 1 && size <= 0x7FFFFFFF && size <= limits.MaxChunkSize
}
