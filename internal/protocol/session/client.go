package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/invokereader/internal/protocol/amf"
	"github.com/danmuck/invokereader/internal/protocol/chunk"
)

const (
	playStartLive    = -1000
	playStartDefault = -2
)

var ErrClosed = errors.New("session: closed")

// Packet is one reassembled message as seen by the caller. Channel is the chunk
// stream id the message arrived on.
type Packet struct {
	Channel   uint32
	TypeID    uint8
	StreamID  uint32
	Timestamp uint32
	Body      []byte
}

// IsCommand reports whether the packet carries an AMF command body.
func (p Packet) IsCommand() bool {
	return p.TypeID == chunk.TypeCommandAMF0 || p.TypeID == chunk.TypeCommandAMF3
}

// Client is one RTMP session over an established connection.
type Client struct {
	conn   net.Conn
	link   Link
	cfg    Config
	reader *chunk.Reader
	writer *chunk.Writer
	logger zerolog.Logger
	id     string

	window    uint32
	lastAck   uint64
	nextTxn   float64
	pending   map[float64]string
	streamID  uint32
	connected bool
	closed    atomic.Bool
}

// Dial connects to link, performs the handshake and sends connect.
func Dial(ctx context.Context, link Link, cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	var (
		conn net.Conn
		err  error
	)
	if link.Secure {
		tlsCfg, tlsErr := cfg.TLS.ClientTLSConfig(link.Host)
		if tlsErr != nil {
			return nil, tlsErr
		}
		td := &tls.Dialer{NetDialer: dialer, Config: tlsCfg}
		conn, err = td.DialContext(ctx, "tcp", link.Address())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", link.Address())
	}
	if err != nil {
		return nil, fmt.Errorf("session: dial %s: %w", link.Address(), err)
	}

	c := NewClient(conn, link, cfg)
	if err := c.Start(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps an established connection. Start must be called before reading.
func NewClient(conn net.Conn, link Link, cfg Config) *Client {
	cfg = cfg.WithDefaults()
	id := uuid.NewString()
	return &Client{
		conn:    conn,
		link:    link,
		cfg:     cfg,
		reader:  chunk.NewReader(conn, cfg.ChunkLimits),
		writer:  chunk.NewWriter(conn, cfg.ChunkLimits),
		logger:  log.With().Str("session_id", id).Str("addr", link.Address()).Logger(),
		id:      id,
		nextTxn: 1,
		pending: make(map[float64]string),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Link() Link {
	return c.link
}

// StreamID is the message stream id returned by createStream, or 0.
func (c *Client) StreamID() uint32 {
	return c.streamID
}

// Connected reports whether the server accepted connect.
func (c *Client) Connected() bool {
	return c.connected
}

// Start runs the handshake and sends the connect command.
func (c *Client) Start(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return err
	}
	if err := Handshake(c.conn); err != nil {
		return err
	}
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return err
	}
	c.logger.Debug().Msg("session.handshake complete")
	return c.sendConnect()
}

// ReadPacket returns the next complete message. Protocol control messages and the
// session's own transaction results are acted on before being returned.
func (c *Client) ReadPacket(ctx context.Context) (Packet, error) {
	if c.closed.Load() {
		return Packet{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Packet{}, err
	}
	var deadline time.Time
	if c.cfg.ReadTimeout > 0 {
		deadline = time.Now().Add(c.cfg.ReadTimeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return Packet{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	msg, err := c.reader.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Packet{}, ctxErr
		}
		if c.closed.Load() {
			return Packet{}, ErrClosed
		}
		return Packet{}, err
	}
	if err := c.handle(msg); err != nil {
		return Packet{}, err
	}
	if err := c.maybeAck(); err != nil {
		return Packet{}, err
	}
	return Packet{
		Channel:   msg.ChunkStreamID,
		TypeID:    msg.TypeID,
		StreamID:  msg.StreamID,
		Timestamp: msg.Timestamp,
		Body:      msg.Body,
	}, nil
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) handle(msg chunk.Message) error {
	switch msg.TypeID {
	case chunk.TypeSetChunkSize:
		size, err := chunk.ParseUint32(msg.Body)
		if err != nil {
			return err
		}
		if err := c.reader.SetChunkSize(size & 0x7FFFFFFF); err != nil {
			return err
		}
		c.logger.Debug().Uint32("chunk_size", size).Msg("session.set_chunk_size")
	case chunk.TypeAbort:
		csid, err := chunk.ParseUint32(msg.Body)
		if err != nil {
			return err
		}
		c.reader.Abort(csid)
	case chunk.TypeWindowAckSize:
		size, err := chunk.ParseUint32(msg.Body)
		if err != nil {
			return err
		}
		c.window = size
		c.logger.Debug().Uint32("window", size).Msg("session.window_ack_size")
	case chunk.TypeUserControl:
		event, data, err := chunk.ParseUserControl(msg.Body)
		if err != nil {
			return err
		}
		if event == chunk.EventPingRequest {
			return c.writeMessage(chunk.UserControlMessage(chunk.EventPingResponse, data))
		}
	case chunk.TypeCommandAMF0, chunk.TypeCommandAMF3:
		return c.handleCommand(msg)
	}
	return nil
}

func (c *Client) handleCommand(msg chunk.Message) error {
	body := msg.Body
	if msg.TypeID == chunk.TypeCommandAMF3 && len(body) > 0 && body[0] == 0 {
		body = body[1:]
	}
	values, err := amf.Decode(body)
	if err != nil || len(values) < 2 {
		return nil
	}
	if values[0].Type != amf.TypeString || values[1].Type != amf.TypeNumber {
		return nil
	}
	name, txn := values[0].Text, values[1].Number
	method, ok := c.pending[txn]
	if !ok || (name != "_result" && name != "_error") {
		return nil
	}
	delete(c.pending, txn)

	if name == "_error" {
		c.logger.Warn().Str("method", method).Float64("txn", txn).Msg("session.command rejected")
		return nil
	}

	switch method {
	case "connect":
		c.connected = true
		c.logger.Info().Str("app", c.link.App).Msg("session.connected")
		if c.link.PlayPath != "" {
			return c.sendCommand(chunk.StreamCommand, 0, "createStream", amf.Null(""))
		}
	case "createStream":
		if len(values) < 4 || values[3].Type != amf.TypeNumber {
			c.logger.Warn().Msg("session.createStream result without stream id")
			return nil
		}
		c.streamID = uint32(values[3].Number)
		return c.sendPlay()
	}
	return nil
}

func (c *Client) sendConnect() error {
	return c.sendCommand(chunk.StreamCommand, 0, "connect", amf.Object("",
		amf.String("app", c.link.App),
		amf.String("flashVer", c.cfg.FlashVer),
		amf.String("tcUrl", c.link.TCURL),
		amf.Boolean("fpad", false),
		amf.Number("capabilities", 15),
		amf.Number("audioCodecs", 3191),
		amf.Number("videoCodecs", 252),
		amf.Number("videoFunction", 1),
		amf.Number("objectEncoding", 0),
	))
}

func (c *Client) sendPlay() error {
	start := float64(playStartDefault)
	if c.cfg.Live {
		start = playStartLive
	}
	body, err := amf.EncodeValues(
		amf.String("", "play"),
		amf.Number("", 0),
		amf.Null(""),
		amf.String("", c.link.PlayPath),
		amf.Number("", start),
	)
	if err != nil {
		return err
	}
	c.logger.Info().Str("play_path", c.link.PlayPath).Uint32("stream_id", c.streamID).Msg("session.play")
	return c.writeMessage(chunk.Message{
		Header: chunk.Header{ChunkStreamID: chunk.StreamMedia, TypeID: chunk.TypeCommandAMF0, StreamID: c.streamID},
		Body:   body,
	})
}

func (c *Client) sendCommand(csid, streamID uint32, name string, args ...amf.Value) error {
	txn := c.nextTxn
	c.nextTxn++
	values := append([]amf.Value{amf.String("", name), amf.Number("", txn)}, args...)
	body, err := amf.EncodeValues(values...)
	if err != nil {
		return err
	}
	c.pending[txn] = name
	return c.writeMessage(chunk.Message{
		Header: chunk.Header{ChunkStreamID: csid, TypeID: chunk.TypeCommandAMF0, StreamID: streamID},
		Body:   body,
	})
}

func (c *Client) maybeAck() error {
	if c.window == 0 {
		return nil
	}
	read := c.reader.BytesRead()
	if read-c.lastAck < uint64(c.window) {
		return nil
	}
	c.lastAck = read
	return c.writeMessage(chunk.AcknowledgementMessage(uint32(read)))
}

func (c *Client) writeMessage(msg chunk.Message) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := c.writer.WriteMessage(msg); err != nil {
		return fmt.Errorf("session: write message type=%d: %w", msg.TypeID, err)
	}
	return nil
}
