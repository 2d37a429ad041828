package chunk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Writer splits messages into chunks. Every message starts with a type 0 header
// and continues with type 3 headers.
type Writer struct {
	w         io.Writer
	limits    Limits
	chunkSize uint32
}

func NewWriter(w io.Writer, limits Limits) *Writer {
	return &Writer{
		w:         w,
		limits:    limits.withDefaults(),
		chunkSize: DefaultChunkSize,
	}
}

// SetChunkSize changes the outbound chunk size. The caller announces it to the peer
// with a Set Chunk Size message first.
func (w *Writer) SetChunkSize(size uint32) error {
	if !validChunkSize(size, w.limits) {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	w.chunkSize = size
	return nil
}

func (w *Writer) WriteMessage(m Message) error {
	if m.ChunkStreamID < 2 || m.ChunkStreamID > 65599 {
		return fmt.Errorf("%w: %d", ErrInvalidStreamID, m.ChunkStreamID)
	}
	if uint64(len(m.Body)) > uint64(w.limits.MaxMessageBytes) || len(m.Body) > 0xFFFFFF {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(m.Body))
	}

	var buf bytes.Buffer
	extended := m.Timestamp >= extendedTimestamp
	writeBasicHeader(&buf, 0, m.ChunkStreamID)

	var head [11]byte
	ts := m.Timestamp
	if extended {
		ts = extendedTimestamp
	}
	putUint24(head[0:3], ts)
	putUint24(head[3:6], uint32(len(m.Body)))
	head[6] = m.TypeID
	binary.LittleEndian.PutUint32(head[7:11], m.StreamID)
	buf.Write(head[:])
	if extended {
		writeExtended(&buf, m.Timestamp)
	}

	body := m.Body
	for {
		n := len(body)
		if uint32(n) > w.chunkSize {
			n = int(w.chunkSize)
		}
		buf.Write(body[:n])
		body = body[n:]
		if len(body) == 0 {
			break
		}
		writeBasicHeader(&buf, 3, m.ChunkStreamID)
		if extended {
			writeExtended(&buf, m.Timestamp)
		}
	}

	_, err := w.w.Write(buf.Bytes())
	return err
}

func writeBasicHeader(buf *bytes.Buffer, format uint8, csid uint32) {
	switch {
	case csid < 64:
		buf.WriteByte(format<<6 | byte(csid))
	case csid < 320:
		buf.WriteByte(format << 6)
		buf.WriteByte(byte(csid - 64))
	default:
		v := csid - 64
		buf.WriteByte(format<<6 | 1)
		buf.WriteByte(byte(v))
		buf.WriteByte(byte(v >> 8))
	}
}

func writeExtended(buf *bytes.Buffer, ts uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], ts)
	buf.Write(b[:])
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}
