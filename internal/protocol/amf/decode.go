package amf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxDepth bounds container nesting during decode.
const MaxDepth = 64

// Decode reads consecutive top-level values from body until it is exhausted.
func Decode(body []byte) ([]Value, error) {
	d := decoder{buf: body}
	values := make([]Value, 0, 4)
	for d.off < len(d.buf) {
		v, err := d.value("", 0)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) need(n int) error {
	if len(d.buf)-d.off < n {
		return fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, n, d.off)
	}
	return nil
}

func (d *decoder) u8() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.off]
	d.off++
	return b, nil
}

func (d *decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.buf[d.off : d.off+2])
	d.off += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.buf[d.off : d.off+4])
	d.off += 4
	return v, nil
}

func (d *decoder) f64() (float64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(d.buf[d.off : d.off+8]))
	d.off += 8
	return v, nil
}

func (d *decoder) text(n int) (string, error) {
	if err := d.need(n); err != nil {
		return "", err
	}
	s := string(d.buf[d.off : d.off+n])
	d.off += n
	return s, nil
}

func (d *decoder) value(name string, depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, fmt.Errorf("%w: depth %d at offset %d", ErrTooDeep, depth, d.off)
	}
	at := d.off
	marker, err := d.u8()
	if err != nil {
		return Value{}, err
	}
	v := Value{Name: name}
	switch marker {
	case byte(TypeNumber):
		v.Type = TypeNumber
		if v.Number, err = d.f64(); err != nil {
			return Value{}, err
		}
	case byte(TypeBoolean):
		b, err := d.u8()
		if err != nil {
			return Value{}, err
		}
		v.Type = TypeBoolean
		if b != 0 {
			v.Number = 1
		}
	case byte(TypeString):
		n, err := d.u16()
		if err != nil {
			return Value{}, err
		}
		v.Type = TypeString
		if v.Text, err = d.text(int(n)); err != nil {
			return Value{}, err
		}
	case markerLongString, markerXMLDocument:
		n, err := d.u32()
		if err != nil {
			return Value{}, err
		}
		if uint64(n) > uint64(len(d.buf)-d.off) {
			return Value{}, fmt.Errorf("%w: long string of %d bytes at offset %d", ErrTruncated, n, at)
		}
		v.Type = TypeString
		if v.Text, err = d.text(int(n)); err != nil {
			return Value{}, err
		}
	case byte(TypeObject):
		v.Type = TypeObject
		if v.Children, err = d.properties(depth); err != nil {
			return Value{}, err
		}
	case byte(TypeEcmaArray):
		// The associative count is advisory; the end marker terminates the list.
		if _, err := d.u32(); err != nil {
			return Value{}, err
		}
		v.Type = TypeEcmaArray
		if v.Children, err = d.properties(depth); err != nil {
			return Value{}, err
		}
	case byte(TypeStrictArray):
		n, err := d.u32()
		if err != nil {
			return Value{}, err
		}
		// Every element needs at least its marker byte.
		if uint64(n) > uint64(len(d.buf)-d.off) {
			return Value{}, fmt.Errorf("%w: strict array of %d elements at offset %d", ErrTruncated, n, at)
		}
		v.Type = TypeStrictArray
		v.Children = make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			child, err := d.value("", depth+1)
			if err != nil {
				return Value{}, err
			}
			v.Children = append(v.Children, child)
		}
	case byte(TypeDate):
		v.Type = TypeDate
		if v.Number, err = d.f64(); err != nil {
			return Value{}, err
		}
		tz, err := d.u16()
		if err != nil {
			return Value{}, err
		}
		v.TimeZone = int16(tz)
	case byte(TypeNull), markerUndefined, markerUnsupported:
		v.Type = TypeNull
	case markerMovieClip, markerReference, markerObjectEnd, markerRecordSet, markerTypedObject, markerAVMPlus:
		return Value{}, fmt.Errorf("%w: reserved marker 0x%02x at offset %d", ErrUnsupportedMarker, marker, at)
	default:
		return Value{}, fmt.Errorf("%w: 0x%02x at offset %d", ErrUnsupportedMarker, marker, at)
	}
	return v, nil
}

// properties reads name/value pairs up to and including the object end marker.
func (d *decoder) properties(depth int) ([]Value, error) {
	props := make([]Value, 0, 4)
	for {
		n, err := d.u16()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			if err := d.need(1); err != nil {
				return nil, err
			}
			if d.buf[d.off] == markerObjectEnd {
				d.off++
				return props, nil
			}
		}
		name, err := d.text(int(n))
		if err != nil {
			return nil, err
		}
		prop, err := d.value(name, depth+1)
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
	}
}
