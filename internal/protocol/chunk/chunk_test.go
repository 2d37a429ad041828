package chunk

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestWriteReadMessageRoundTripAcrossChunks(t *testing.T) {
	body := bytes.Repeat([]byte("abcdefgh"), 50)
	in := Message{
		Header: Header{ChunkStreamID: StreamCommand, Timestamp: 1000, TypeID: TypeCommandAMF0, StreamID: 1},
		Body:   body,
	}
	var buf bytes.Buffer
	if err := NewWriter(&buf, DefaultLimits()).WriteMessage(in); err != nil {
		t.Fatalf("write message: %v", err)
	}
	// 400 bytes at 128 per chunk: one type 0 header plus three type 3 continuations.
	if want := 1 + 11 + 400 + 3; buf.Len() != want {
		t.Fatalf("unexpected encoded length: got %d want %d", buf.Len(), want)
	}
	r := NewReader(&buf, DefaultLimits())
	out, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if out.ChunkStreamID != StreamCommand || out.TypeID != TypeCommandAMF0 || out.StreamID != 1 || out.Timestamp != 1000 {
		t.Fatalf("header mismatch: %+v", out.Header)
	}
	if !bytes.Equal(out.Body, body) {
		t.Fatalf("body mismatch")
	}
	if r.BytesRead() != uint64(1+11+400+3) {
		t.Fatalf("unexpected bytes read: %d", r.BytesRead())
	}
	if _, err := r.ReadMessage(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after last message, got %v", err)
	}
}

func TestReadMessageInterleavedStreams(t *testing.T) {
	// csid 3 carries a 4-byte message split in 2-byte chunks with csid 4 between them.
	raw := []byte{
		0x03, 0, 0, 10, 0, 0, 4, TypeCommandAMF0, 0, 0, 0, 0,
		'a', 'b',
		0x04, 0, 0, 20, 0, 0, 1, TypeDataAMF0, 1, 0, 0, 0,
		'x',
		0xC3,
		'c', 'd',
	}
	r := NewReader(bytes.NewReader(raw), DefaultLimits())
	r.chunkSize = 2

	first, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if first.ChunkStreamID != 4 || string(first.Body) != "x" || first.StreamID != 1 {
		t.Fatalf("unexpected first message: %+v %q", first.Header, first.Body)
	}
	second, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if second.ChunkStreamID != 3 || string(second.Body) != "abcd" || second.Timestamp != 10 {
		t.Fatalf("unexpected second message: %+v %q", second.Header, second.Body)
	}
}

func TestReadMessageCompressedHeaders(t *testing.T) {
	raw := []byte{
		// type 0: ts=100 len=1 type=20 stream=1
		0x03, 0, 0, 100, 0, 0, 1, TypeCommandAMF0, 1, 0, 0, 0, 'a',
		// type 1: delta=5 len=2 type=18
		0x43, 0, 0, 5, 0, 0, 2, TypeDataAMF0, 'b', 'c',
		// type 2: delta=7
		0x83, 0, 0, 7, 'd', 'e',
		// type 3: reuse delta=7
		0xC3, 'f', 'g',
	}
	r := NewReader(bytes.NewReader(raw), DefaultLimits())
	want := []struct {
		ts     uint32
		typeID uint8
		body   string
	}{
		{100, TypeCommandAMF0, "a"},
		{105, TypeDataAMF0, "bc"},
		{112, TypeDataAMF0, "de"},
		{119, TypeDataAMF0, "fg"},
	}
	for i, w := range want {
		msg, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if msg.Timestamp != w.ts || msg.TypeID != w.typeID || string(msg.Body) != w.body || msg.StreamID != 1 {
			t.Fatalf("message %d: got %+v %q", i, msg.Header, msg.Body)
		}
	}
}

func TestExtendedTimestampRoundTrip(t *testing.T) {
	in := Message{
		Header: Header{ChunkStreamID: 3, Timestamp: 0x01020304, TypeID: TypeCommandAMF0},
		Body:   bytes.Repeat([]byte{0x05}, 200),
	}
	var buf bytes.Buffer
	if err := NewWriter(&buf, DefaultLimits()).WriteMessage(in); err != nil {
		t.Fatalf("write message: %v", err)
	}
	out, err := NewReader(&buf, DefaultLimits()).ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if out.Timestamp != in.Timestamp || !bytes.Equal(out.Body, in.Body) {
		t.Fatalf("extended timestamp message mismatch: %+v", out.Header)
	}
}

func TestMultiByteChunkStreamIDs(t *testing.T) {
	for _, csid := range []uint32{64, 319, 320, 65599} {
		var buf bytes.Buffer
		in := Message{Header: Header{ChunkStreamID: csid, TypeID: TypeDataAMF0}, Body: []byte("v")}
		if err := NewWriter(&buf, DefaultLimits()).WriteMessage(in); err != nil {
			t.Fatalf("csid %d: write: %v", csid, err)
		}
		out, err := NewReader(&buf, DefaultLimits()).ReadMessage()
		if err != nil {
			t.Fatalf("csid %d: read: %v", csid, err)
		}
		if out.ChunkStreamID != csid {
			t.Fatalf("csid mismatch: got %d want %d", out.ChunkStreamID, csid)
		}
	}
}

func TestSetChunkSizeAppliesToReads(t *testing.T) {
	body := bytes.Repeat([]byte{0xAB}, 300)
	var buf bytes.Buffer
	w := NewWriter(&buf, DefaultLimits())
	if err := w.SetChunkSize(4096); err != nil {
		t.Fatalf("set writer chunk size: %v", err)
	}
	if err := w.WriteMessage(Message{Header: Header{ChunkStreamID: 3, TypeID: TypeCommandAMF0}, Body: body}); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := NewReader(&buf, DefaultLimits())
	if err := r.SetChunkSize(4096); err != nil {
		t.Fatalf("set reader chunk size: %v", err)
	}
	out, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(out.Body) != 300 {
		t.Fatalf("unexpected body length: %d", len(out.Body))
	}
}

func TestSetChunkSizeRejectsInvalid(t *testing.T) {
	r := NewReader(bytes.NewReader(nil), DefaultLimits())
	if err := r.SetChunkSize(0); !errors.Is(err, ErrInvalidChunkSize) {
		t.Fatalf("expected ErrInvalidChunkSize, got %v", err)
	}
	if err := r.SetChunkSize(DefaultLimits().MaxChunkSize + 1); !errors.Is(err, ErrInvalidChunkSize) {
		t.Fatalf("expected ErrInvalidChunkSize, got %v", err)
	}
}

func TestReadMessageWithoutPreviousHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0xC3, 'a'}), DefaultLimits()).ReadMessage()
	if !errors.Is(err, ErrNoPreviousHeader) {
		t.Fatalf("expected ErrNoPreviousHeader, got %v", err)
	}
}

func TestReadMessageTooLarge(t *testing.T) {
	raw := []byte{0x03, 0, 0, 0, 0x00, 0x10, 0x00, TypeCommandAMF0, 0, 0, 0, 0}
	_, err := NewReader(bytes.NewReader(raw), Limits{MaxMessageBytes: 1024}).ReadMessage()
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestReadMessageTruncatedBody(t *testing.T) {
	raw := []byte{0x03, 0, 0, 0, 0, 0, 4, TypeCommandAMF0, 0, 0, 0, 0, 'a'}
	_, err := NewReader(bytes.NewReader(raw), DefaultLimits()).ReadMessage()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadMessageCleanEOF(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil), DefaultLimits()).ReadMessage()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on empty stream, got %v", err)
	}
}

func TestReadMessageHangupAfterBasicHeader(t *testing.T) {
	cases := map[string][]byte{
		"one byte csid":   {0x03},
		"two byte csid":   {0x00},
		"three byte csid": {0x01, 0x10},
	}
	for name, raw := range cases {
		_, err := NewReader(bytes.NewReader(raw), DefaultLimits()).ReadMessage()
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("%s: expected ErrTruncated, got %v", name, err)
		}
	}
}

func TestReadMessageHangupAfterMessageHeader(t *testing.T) {
	raw := []byte{0x03, 0, 0, 0, 0, 0, 10, TypeCommandAMF0, 0, 0, 0, 0}
	_, err := NewReader(bytes.NewReader(raw), DefaultLimits()).ReadMessage()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}

	extended := []byte{0x03, 0xFF, 0xFF, 0xFF, 0, 0, 1, TypeCommandAMF0, 0, 0, 0, 0}
	_, err = NewReader(bytes.NewReader(extended), DefaultLimits()).ReadMessage()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("extended timestamp: expected ErrTruncated, got %v", err)
	}
}

func TestReadMessageHangupBetweenChunks(t *testing.T) {
	raw := []byte{0x03, 0, 0, 0, 0, 0, 4, TypeCommandAMF0, 0, 0, 0, 0, 'a', 'b'}
	r := NewReader(bytes.NewReader(raw), DefaultLimits())
	r.chunkSize = 2
	_, err := r.ReadMessage()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestAbortDropsPartialMessage(t *testing.T) {
	raw := []byte{
		0x03, 0, 0, 0, 0, 0, 4, TypeCommandAMF0, 0, 0, 0, 0, 'a', 'b',
		0x03, 0, 0, 0, 0, 0, 1, TypeCommandAMF0, 0, 0, 0, 0, 'z',
	}
	r := NewReader(bytes.NewReader(raw), DefaultLimits())
	r.chunkSize = 2
	if _, done, err := r.readChunk(); err != nil || done {
		t.Fatalf("expected partial chunk, done=%v err=%v", done, err)
	}
	r.Abort(3)
	msg, err := r.ReadMessage()
	if err != nil {
		t.Fatalf("read after abort: %v", err)
	}
	if string(msg.Body) != "z" {
		t.Fatalf("unexpected body after abort: %q", msg.Body)
	}
}

func TestControlMessages(t *testing.T) {
	msg := SetChunkSizeMessage(4096)
	if msg.ChunkStreamID != StreamProtocolControl || msg.TypeID != TypeSetChunkSize {
		t.Fatalf("unexpected set chunk size header: %+v", msg.Header)
	}
	v, err := ParseUint32(msg.Body)
	if err != nil || v != 4096 {
		t.Fatalf("unexpected set chunk size value: %d err=%v", v, err)
	}
	ping := UserControlMessage(EventPingResponse, []byte{0, 0, 0, 9})
	event, data, err := ParseUserControl(ping.Body)
	if err != nil || event != EventPingResponse || !bytes.Equal(data, []byte{0, 0, 0, 9}) {
		t.Fatalf("unexpected user control: event=%d data=%v err=%v", event, data, err)
	}
	if _, err := ParseUint32([]byte{1, 2}); !errors.Is(err, ErrShortControlValue) {
		t.Fatalf("expected ErrShortControlValue, got %v", err)
	}
}
