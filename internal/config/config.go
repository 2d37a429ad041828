// Package config loads invokereader settings from TOML. Keys present in the file
// override the defaults; absent keys keep them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/invokereader/internal/protocol/chunk"
	"github.com/danmuck/invokereader/internal/protocol/session"
)

type Config struct {
	URL              string
	ControlChannel   uint32
	PlayPath         string
	FlashVer         string
	Live             bool
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	MaxMessageBytes  uint32
	MetricsAddr      string
	MetricsToken     string
	CORSOrigins      []string
	LogLevel         string
	TLS              session.TLSConfig
}

type fileConfig struct {
	URL              string   `toml:"url"`
	ControlChannel   int64    `toml:"control_channel"`
	PlayPath         string   `toml:"play_path"`
	FlashVer         string   `toml:"flash_ver"`
	Live             bool     `toml:"live"`
	ConnectTimeout   string   `toml:"connect_timeout"`
	HandshakeTimeout string   `toml:"handshake_timeout"`
	ReadTimeout      string   `toml:"read_timeout"`
	WriteTimeout     string   `toml:"write_timeout"`
	MaxMessageBytes  int64    `toml:"max_message_bytes"`
	MetricsAddr      string   `toml:"metrics_addr"`
	MetricsToken     string   `toml:"metrics_token"`
	CORSOrigins      []string `toml:"cors_origins"`
	LogLevel         string   `toml:"log_level"`
	TLS              fileTLS  `toml:"tls"`
}

type fileTLS struct {
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

func Default() Config {
	s := session.DefaultConfig()
	return Config{
		ControlChannel:   chunk.StreamCommand,
		FlashVer:         s.FlashVer,
		Live:             s.Live,
		ConnectTimeout:   s.ConnectTimeout,
		HandshakeTimeout: s.HandshakeTimeout,
		ReadTimeout:      s.ReadTimeout,
		WriteTimeout:     s.WriteTimeout,
		MaxMessageBytes:  s.ChunkLimits.MaxMessageBytes,
		LogLevel:         "info",
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("control_channel") {
		if raw.ControlChannel < 2 || raw.ControlChannel > 65599 {
			return Config{}, fmt.Errorf("load config: control_channel %d out of range", raw.ControlChannel)
		}
		cfg.ControlChannel = uint32(raw.ControlChannel)
	}
	if meta.IsDefined("play_path") {
		cfg.PlayPath = strings.TrimSpace(raw.PlayPath)
	}
	if meta.IsDefined("flash_ver") {
		cfg.FlashVer = raw.FlashVer
	}
	if meta.IsDefined("live") {
		cfg.Live = raw.Live
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("max_message_bytes") {
		if raw.MaxMessageBytes <= 0 || raw.MaxMessageBytes > 0xFFFFFF {
			return Config{}, fmt.Errorf("load config: max_message_bytes %d out of range", raw.MaxMessageBytes)
		}
		cfg.MaxMessageBytes = uint32(raw.MaxMessageBytes)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("metrics_token") {
		cfg.MetricsToken = strings.TrimSpace(raw.MetricsToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CORSOrigins)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("tls", "ca_file") {
		cfg.TLS.CAFile = strings.TrimSpace(raw.TLS.CAFile)
	}
	if meta.IsDefined("tls", "cert_file") {
		cfg.TLS.CertFile = strings.TrimSpace(raw.TLS.CertFile)
	}
	if meta.IsDefined("tls", "key_file") {
		cfg.TLS.KeyFile = strings.TrimSpace(raw.TLS.KeyFile)
	}
	if meta.IsDefined("tls", "server_name") {
		cfg.TLS.ServerName = strings.TrimSpace(raw.TLS.ServerName)
	}
	if meta.IsDefined("tls", "insecure_skip_verify") {
		cfg.TLS.InsecureSkipVerify = raw.TLS.InsecureSkipVerify
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that do not depend on the target URL.
func (c Config) Validate() error {
	if c.ControlChannel < 2 {
		return errors.New("config: control_channel must be at least 2")
	}
	for name, d := range map[string]time.Duration{
		"connect_timeout":   c.ConnectTimeout,
		"handshake_timeout": c.HandshakeTimeout,
		"read_timeout":      c.ReadTimeout,
		"write_timeout":     c.WriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	if err := c.TLS.ValidateClientTransport(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Session returns the transport settings for session.Dial.
func (c Config) Session() session.Config {
	out := session.DefaultConfig()
	out.ConnectTimeout = c.ConnectTimeout
	out.HandshakeTimeout = c.HandshakeTimeout
	out.ReadTimeout = c.ReadTimeout
	out.WriteTimeout = c.WriteTimeout
	out.FlashVer = c.FlashVer
	out.Live = c.Live
	out.ChunkLimits.MaxMessageBytes = c.MaxMessageBytes
	out.TLS = c.TLS
	return out.WithDefaults()
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
