package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/invokereader/internal/testutil/testlog"
)

func TestMissingURLIsUsageError(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	cmd := newRootCommand(&options{}, &out)
	cmd.SetArgs([]string{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("Usage:")) {
		t.Fatalf("expected usage text, got %q", out.String())
	}
}

func TestResolveFlagsOverrideConfig(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	data := []byte(`url = "rtmp://file.example.com/live/file"
control_channel = 6
metrics_addr = "127.0.0.1:9000"
read_timeout = "20s"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	opts := &options{}
	cmd := newRootCommand(opts, &bytes.Buffer{})
	if err := cmd.ParseFlags([]string{"--config", path, "--channel", "4", "--play", "cam9", "--timeout", "3s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, link, err := resolve(cmd, opts, []string{"rtmp://arg.example.com:1940/app"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.ControlChannel != 4 {
		t.Fatalf("unexpected channel=%d", cfg.ControlChannel)
	}
	if cfg.MetricsAddr != "127.0.0.1:9000" {
		t.Fatalf("unexpected metrics addr=%q", cfg.MetricsAddr)
	}
	if cfg.ReadTimeout != 3*time.Second {
		t.Fatalf("unexpected read timeout=%v", cfg.ReadTimeout)
	}
	if link.Host != "arg.example.com" || link.Port != 1940 || link.App != "app" || link.PlayPath != "cam9" {
		t.Fatalf("unexpected link=%+v", link)
	}
}

func TestResolveUsesConfigURL(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`url = "rtmp://file.example.com/live/file"`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	opts := &options{}
	cmd := newRootCommand(opts, &bytes.Buffer{})
	if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, link, err := resolve(cmd, opts, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.ControlChannel != 3 || link.PlayPath != "file" || link.Port != 1935 {
		t.Fatalf("unexpected cfg=%+v link=%+v", cfg, link)
	}
}

func TestResolveRejectsBadURL(t *testing.T) {
	testlog.Start(t)
	opts := &options{}
	cmd := newRootCommand(opts, &bytes.Buffer{})
	if _, _, err := resolve(cmd, opts, []string{"http://example.com/app"}); err == nil {
		t.Fatalf("expected url error")
	}
}

func TestSampleConfigLoads(t *testing.T) {
	testlog.Start(t)
	opts := &options{}
	cmd := newRootCommand(opts, &bytes.Buffer{})
	if err := cmd.ParseFlags([]string{"--config", "ex.config.toml"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, link, err := resolve(cmd, opts, nil)
	if err != nil {
		t.Fatalf("resolve sample: %v", err)
	}
	if cfg.MaxMessageBytes != 8388608 || link.App != "live" || link.PlayPath != "cam1" {
		t.Fatalf("unexpected sample cfg=%+v link=%+v", cfg, link)
	}
}
