package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type streamState struct {
	header   Header
	delta    uint32
	extended bool
	body     []byte
	pending  bool
}

// Reader reassembles messages from an RTMP chunk stream.
type Reader struct {
	r         io.Reader
	limits    Limits
	chunkSize uint32
	streams   map[uint32]*streamState
	bytesRead uint64
	scratch   [maxMessageHeader]byte
}

func NewReader(r io.Reader, limits Limits) *Reader {
	return &Reader{
		r:         r,
		limits:    limits.withDefaults(),
		chunkSize: DefaultChunkSize,
		streams:   make(map[uint32]*streamState),
	}
}

// SetChunkSize applies a peer Set Chunk Size to subsequent chunks.
func (r *Reader) SetChunkSize(size uint32) error {
	if !validChunkSize(size, r.limits) {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	r.chunkSize = size
	return nil
}

func (r *Reader) ChunkSize() uint32 {
	return r.chunkSize
}

// BytesRead is the number of bytes consumed from the underlying stream.
func (r *Reader) BytesRead() uint64 {
	return r.bytesRead
}

// Abort drops any partially received message on csid.
func (r *Reader) Abort(csid uint32) {
	if st, ok := r.streams[csid]; ok {
		st.body = nil
		st.pending = false
	}
}

// readFull reads within a chunk. Running out of input here always cuts a chunk short.
func (r *Reader) readFull(buf []byte) error {
	n, err := io.ReadFull(r.r, buf)
	r.bytesRead += uint64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return err
	}
	return nil
}

// readFirst reads the byte that opens a chunk. io.EOF is a clean end of stream
// only when no message is partially assembled.
func (r *Reader) readFirst(buf []byte) error {
	n, err := io.ReadFull(r.r, buf)
	r.bytesRead += uint64(n)
	if errors.Is(err, io.EOF) && r.partial() {
		return ErrTruncated
	}
	return err
}

func (r *Reader) partial() bool {
	for _, st := range r.streams {
		if st.pending {
			return true
		}
	}
	return false
}

// ReadMessage reads chunks until one message is complete.
func (r *Reader) ReadMessage() (Message, error) {
	for {
		msg, done, err := r.readChunk()
		if err != nil {
			return Message{}, err
		}
		if done {
			return msg, nil
		}
	}
}

func (r *Reader) readChunk() (Message, bool, error) {
	format, csid, err := r.readBasicHeader()
	if err != nil {
		return Message{}, false, err
	}

	st, ok := r.streams[csid]
	if !ok {
		if format != 0 {
			return Message{}, false, fmt.Errorf("%w: csid=%d fmt=%d", ErrNoPreviousHeader, csid, format)
		}
		st = &streamState{}
		r.streams[csid] = st
	}

	if err := r.readMessageHeader(st, csid, format); err != nil {
		return Message{}, false, err
	}

	if !st.pending {
		if st.header.Length > r.limits.MaxMessageBytes {
			return Message{}, false, fmt.Errorf("%w: %d bytes on csid=%d", ErrMessageTooLarge, st.header.Length, csid)
		}
		st.body = make([]byte, 0, st.header.Length)
		st.pending = true
	}

	remaining := st.header.Length - uint32(len(st.body))
	n := remaining
	if n > r.chunkSize {
		n = r.chunkSize
	}
	if n > 0 {
		start := len(st.body)
		st.body = st.body[:start+int(n)]
		if err := r.readFull(st.body[start:]); err != nil {
			return Message{}, false, err
		}
	}

	if uint32(len(st.body)) < st.header.Length {
		return Message{}, false, nil
	}
	msg := Message{Header: st.header, Body: st.body}
	st.body = nil
	st.pending = false
	return msg, true, nil
}

func (r *Reader) readBasicHeader() (uint8, uint32, error) {
	b := r.scratch[:1]
	if err := r.readFirst(b); err != nil {
		return 0, 0, err
	}
	format := b[0] >> 6
	csid := uint32(b[0] & 0x3F)
	switch csid {
	case 0:
		if err := r.readFull(b); err != nil {
			return 0, 0, err
		}
		csid = 64 + uint32(b[0])
	case 1:
		ext := r.scratch[:2]
		if err := r.readFull(ext); err != nil {
			return 0, 0, err
		}
		csid = 64 + uint32(ext[0]) + uint32(ext[1])*256
	}
	return format, csid, nil
}

func (r *Reader) readMessageHeader(st *streamState, csid uint32, format uint8) error {
	var size int
	switch format {
	case 0:
		size = 11
	case 1:
		size = 7
	case 2:
		size = 3
	}
	buf := r.scratch[:size]
	if size > 0 {
		if err := r.readFull(buf); err != nil {
			return err
		}
	}

	// A non-continuation header always starts a new message.
	if format != 3 {
		st.body = nil
		st.pending = false
	}

	var ts uint32
	if format != 3 {
		ts = uint24(buf[0:3])
		st.extended = ts == extendedTimestamp
	}
	if format <= 1 {
		st.header.Length = uint24(buf[3:6])
		st.header.TypeID = buf[6]
	}
	if format == 0 {
		st.header.StreamID = binary.LittleEndian.Uint32(buf[7:11])
	}
	if st.extended {
		ext := r.scratch[11:15]
		if err := r.readFull(ext); err != nil {
			return err
		}
		if format != 3 {
			ts = binary.BigEndian.Uint32(ext)
		}
	}

	st.header.ChunkStreamID = csid
	switch format {
	case 0:
		st.header.Timestamp = ts
		st.delta = 0
	case 1, 2:
		st.delta = ts
		st.header.Timestamp += ts
	case 3:
		if !st.pending {
			st.header.Timestamp += st.delta
		}
	}
	return nil
}

func uint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
