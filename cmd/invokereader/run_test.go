package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/invokereader/internal/config"
	"github.com/danmuck/invokereader/internal/protocol/amf"
	"github.com/danmuck/invokereader/internal/protocol/chunk"
	"github.com/danmuck/invokereader/internal/protocol/session"
	"github.com/danmuck/invokereader/internal/testutil/testlog"
)

// serveOnce plays a server that accepts connect, sends two commands and hangs up.
func serveOnce(ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	c0c1 := make([]byte, 1537)
	if _, err := io.ReadFull(conn, c0c1); err != nil {
		return fmt.Errorf("read c0c1: %w", err)
	}
	s0s1 := make([]byte, 1537)
	s0s1[0] = session.ProtocolVersion
	if _, err := conn.Write(s0s1); err != nil {
		return err
	}
	if _, err := io.ReadFull(conn, make([]byte, 1536)); err != nil {
		return fmt.Errorf("read c2: %w", err)
	}
	if _, err := conn.Write(c0c1[1:]); err != nil {
		return err
	}

	r := chunk.NewReader(conn, chunk.DefaultLimits())
	if _, err := r.ReadMessage(); err != nil {
		return fmt.Errorf("read connect: %w", err)
	}
	w := chunk.NewWriter(conn, chunk.DefaultLimits())
	for _, values := range [][]amf.Value{
		{amf.String("", "_result"), amf.Number("", 1), amf.Null(""), amf.Object("", amf.String("code", "NetConnection.Connect.Success"))},
		{amf.String("", "onBWDone"), amf.Number("", 0), amf.Null(""), amf.Number("", 8192)},
	} {
		body, err := amf.EncodeValues(values...)
		if err != nil {
			return err
		}
		msg := chunk.Message{Header: chunk.Header{ChunkStreamID: chunk.StreamCommand, TypeID: chunk.TypeCommandAMF0}, Body: body}
		if err := w.WriteMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

func TestRunPrintsUntilServerCloses(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	serverErr := make(chan error, 1)
	go func() { serverErr <- serveOnce(ln) }()

	cfg := config.Default()
	cfg.URL = "rtmp://" + ln.Addr().String() + "/live"
	link, err := session.ParseURL(cfg.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := run(ctx, cfg, link, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := <-serverErr; err != nil {
		t.Fatalf("server: %v", err)
	}

	want := "InvokeName: _result params count: 1\n" +
		"params[1][AMF_OBJECT]\n" +
		"Key: code Value: NetConnection.Connect.Success[STRING]\n" +
		"\n" +
		"\n" +
		"InvokeName: onBWDone params count: 1\n" +
		"params[1][AMF_NUMBER]\n" +
		"Key: --PARAMS-- Value: 8192[NUMBER]\n" +
		"\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out.String(), want)
	}
	if strings.Contains(out.String(), "connect\n") {
		t.Fatalf("client commands must not be printed")
	}
}
