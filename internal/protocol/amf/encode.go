package amf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder appends AMF0 values to an internal buffer. It serves outbound command
// messages; decoded trees are never re-encoded.
type Encoder struct {
	buf bytes.Buffer
	err error
}

// Bytes returns the encoded body, or the first encode error.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]byte, e.buf.Len())
	copy(out, e.buf.Bytes())
	return out, nil
}

// Encode appends each value in order.
func (e *Encoder) Encode(values ...Value) *Encoder {
	for _, v := range values {
		if e.err != nil {
			return e
		}
		e.err = e.value(v)
	}
	return e
}

// EncodeValues is a convenience wrapper returning the body for values.
func EncodeValues(values ...Value) ([]byte, error) {
	var e Encoder
	return e.Encode(values...).Bytes()
}

func (e *Encoder) value(v Value) error {
	switch v.Type {
	case TypeNumber:
		e.buf.WriteByte(byte(TypeNumber))
		e.f64(v.Number)
	case TypeBoolean:
		e.buf.WriteByte(byte(TypeBoolean))
		if v.Number != 0 {
			e.buf.WriteByte(1)
		} else {
			e.buf.WriteByte(0)
		}
	case TypeString:
		if len(v.Text) > math.MaxUint16 {
			e.buf.WriteByte(markerLongString)
			e.u32(uint32(len(v.Text)))
		} else {
			e.buf.WriteByte(byte(TypeString))
			e.u16(uint16(len(v.Text)))
		}
		e.buf.WriteString(v.Text)
	case TypeNull:
		e.buf.WriteByte(byte(TypeNull))
	case TypeObject:
		e.buf.WriteByte(byte(TypeObject))
		return e.properties(v.Children)
	case TypeEcmaArray:
		e.buf.WriteByte(byte(TypeEcmaArray))
		e.u32(uint32(len(v.Children)))
		return e.properties(v.Children)
	case TypeStrictArray:
		e.buf.WriteByte(byte(TypeStrictArray))
		e.u32(uint32(len(v.Children)))
		for _, c := range v.Children {
			if err := e.value(c); err != nil {
				return err
			}
		}
	case TypeDate:
		e.buf.WriteByte(byte(TypeDate))
		e.f64(v.Number)
		e.u16(uint16(v.TimeZone))
	default:
		return fmt.Errorf("%w: %d", ErrUnencodable, v.Type)
	}
	return nil
}

func (e *Encoder) properties(props []Value) error {
	for _, p := range props {
		if len(p.Name) > math.MaxUint16 {
			return fmt.Errorf("%w: property name of %d bytes", ErrStringTooLong, len(p.Name))
		}
		e.u16(uint16(len(p.Name)))
		e.buf.WriteString(p.Name)
		if err := e.value(p); err != nil {
			return err
		}
	}
	e.u16(0)
	e.buf.WriteByte(markerObjectEnd)
	return nil
}

func (e *Encoder) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) f64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf.Write(b[:])
}
