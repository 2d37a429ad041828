package session

import (
	"time"

	"github.com/danmuck/invokereader/internal/protocol/chunk"
)

const DefaultFlashVer = "LNX 9,0,124,2"

// TLSConfig configures rtmps transport.
type TLSConfig struct {
	CAFile             string
	CertFile           string
	KeyFile            string
	ServerName         string
	InsecureSkipVerify bool
}

// Config defines transport timeouts and session defaults.
type Config struct {
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	FlashVer         string
	Live             bool
	ChunkLimits      chunk.Limits
	TLS              TLSConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:   10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      0,
		WriteTimeout:     10 * time.Second,
		FlashVer:         DefaultFlashVer,
		Live:             true,
		ChunkLimits:      chunk.DefaultLimits(),
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig. A zero ReadTimeout
// means reads wait for the next packet indefinitely.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.FlashVer == "" {
		c.FlashVer = def.FlashVer
	}
	if c.ChunkLimits.MaxMessageBytes == 0 {
		c.ChunkLimits.MaxMessageBytes = def.ChunkLimits.MaxMessageBytes
	}
	if c.ChunkLimits.MaxChunkSize == 0 {
		c.ChunkLimits.MaxChunkSize = def.ChunkLimits.MaxChunkSize
	}
	return c
}
