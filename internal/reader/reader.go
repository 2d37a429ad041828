// Package reader runs the packet loop: filter command messages on the control
// channel, decode them, and print each invocation as it arrives.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/danmuck/invokereader/internal/property"
	"github.com/danmuck/invokereader/internal/protocol/amf"
	"github.com/danmuck/invokereader/internal/protocol/chunk"
	"github.com/danmuck/invokereader/internal/protocol/session"
)

const DefaultControlChannel uint32 = chunk.StreamCommand

const stringMarker = 0x02

// Outcome labels one processed packet.
type Outcome string

const (
	OutcomeRendered    Outcome = "rendered"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeNoMethod    Outcome = "no_method"
	OutcomeNotInvoke   Outcome = "not_invoke"
	OutcomeDecodeError Outcome = "decode_error"
)

type PacketSource interface {
	ReadPacket(ctx context.Context) (session.Packet, error)
}

// Metrics receives per-packet outcomes. A nil Metrics records nothing.
type Metrics interface {
	Packet(outcome Outcome)
	Invocation(command string, nodes int)
}

type Reader struct {
	Source         PacketSource
	Sink           io.Writer
	ControlChannel uint32
	Logger         zerolog.Logger
	Metrics        Metrics
}

// Run reads packets until the source reports EOF or ctx is done. Either ends the
// loop cleanly; any other source or sink error is returned.
func (r *Reader) Run(ctx context.Context) error {
	if r.Source == nil || r.Sink == nil {
		return errors.New("reader: source and sink are required")
	}
	for {
		p, err := r.Source.ReadPacket(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.Logger.Info().Msg("reader.source closed")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reader: read packet: %w", err)
		}
		if _, err := r.Process(p); err != nil {
			return err
		}
	}
}

// Process handles one packet. The returned error is a sink write failure; every
// other condition is reported through the outcome.
func (r *Reader) Process(p session.Packet) (Outcome, error) {
	if p.Channel != r.controlChannel() || !carriesAMF(p.TypeID) {
		return r.record(OutcomeIgnored), nil
	}

	body := p.Body
	if p.TypeID == chunk.TypeCommandAMF3 && len(body) > 0 && body[0] == 0 {
		body = body[1:]
	}
	if len(body) == 0 || body[0] != stringMarker {
		r.Logger.Debug().Uint32("channel", p.Channel).Msg("reader.no string method")
		return r.record(OutcomeNoMethod), nil
	}

	values, err := amf.Decode(body)
	if err != nil {
		r.Logger.Warn().Err(err).Uint32("channel", p.Channel).Int("bytes", len(body)).Msg("reader.decode failed")
		return r.record(OutcomeDecodeError), nil
	}

	inv, ok := property.FromDecoded(values)
	if !ok {
		r.Logger.Debug().Int("values", len(values)).Msg("reader.not an invocation")
		return r.record(OutcomeNotInvoke), nil
	}
	defer inv.Release()

	nodes := inv.Count()
	if err := property.WriteInvocation(r.Sink, inv); err != nil {
		return OutcomeRendered, fmt.Errorf("reader: write invocation: %w", err)
	}
	if r.Metrics != nil {
		r.Metrics.Invocation(inv.Command, nodes)
	}
	r.Logger.Debug().
		Str("command", inv.Command).
		Float64("txn", inv.TransactionID).
		Int("nodes", nodes).
		Msg("reader.invocation")
	return r.record(OutcomeRendered), nil
}

// carriesAMF reports whether a message type holds an AMF0 body that can be an
// invocation: commands and AMF0 data messages.
func carriesAMF(typeID uint8) bool {
	switch typeID {
	case chunk.TypeCommandAMF0, chunk.TypeCommandAMF3, chunk.TypeDataAMF0:
		return true
	default:
		return false
	}
}

func (r *Reader) controlChannel() uint32 {
	if r.ControlChannel == 0 {
		return DefaultControlChannel
	}
	return r.ControlChannel
}

func (r *Reader) record(o Outcome) Outcome {
	if r.Metrics != nil {
		r.Metrics.Packet(o)
	}
	return o
}
