package amf

// Type is the kind tag carried by every decoded value.
type Type uint8

const (
	TypeNumber      Type = 0x00
	TypeBoolean     Type = 0x01
	TypeString      Type = 0x02
	TypeObject      Type = 0x03
	TypeNull        Type = 0x05
	TypeEcmaArray   Type = 0x08
	TypeStrictArray Type = 0x0A
	TypeDate        Type = 0x0B
	TypeInvalid     Type = 0xFF
)

// Wire markers that never surface as a Type of their own.
const (
	markerMovieClip   byte = 0x04
	markerUndefined   byte = 0x06
	markerReference   byte = 0x07
	markerObjectEnd   byte = 0x09
	markerLongString  byte = 0x0C
	markerUnsupported byte = 0x0D
	markerRecordSet   byte = 0x0E
	markerXMLDocument byte = 0x0F
	markerTypedObject byte = 0x10
	markerAVMPlus     byte = 0x11
)

// IsContainer reports whether values of this type carry children instead of a scalar.
func (t Type) IsContainer() bool {
	switch t {
	case TypeObject, TypeEcmaArray, TypeStrictArray:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether the scalar payload lives in Value.Number.
func (t Type) IsNumeric() bool {
	switch t {
	case TypeNumber, TypeBoolean, TypeDate:
		return true
	default:
		return false
	}
}

// DisplayName returns the fixed label for t. Tags outside the known set map to UNKNOWN.
func (t Type) DisplayName() string {
	switch t {
	case TypeObject:
		return "AMF_OBJECT"
	case TypeEcmaArray:
		return "AMF_ECMA_ARRAY"
	case TypeStrictArray:
		return "AMF_STRICT_ARRAY"
	case TypeNumber:
		return "AMF_NUMBER"
	case TypeBoolean:
		return "AMF_BOOLEAN"
	case TypeString:
		return "AMF_STRING"
	case TypeDate:
		return "AMF_DATE"
	default:
		return "UNKNOWN"
	}
}

func (t Type) String() string {
	return t.DisplayName()
}

// Value is one decoded AMF0 unit. Name is empty for values that were not read as an
// object or ECMA array property.
type Value struct {
	Type     Type
	Name     string
	Number   float64
	Text     string
	TimeZone int16
	Children []Value
}

// Number creates a number value.
func Number(name string, v float64) Value {
	return Value{Type: TypeNumber, Name: name, Number: v}
}

// Boolean creates a boolean value stored as 0/1.
func Boolean(name string, v bool) Value {
	n := 0.0
	if v {
		n = 1
	}
	return Value{Type: TypeBoolean, Name: name, Number: n}
}

// String creates a string value.
func String(name, v string) Value {
	return Value{Type: TypeString, Name: name, Text: v}
}

// Null creates a null value.
func Null(name string) Value {
	return Value{Type: TypeNull, Name: name}
}

// Object creates an anonymous-class object with the given properties.
func Object(name string, props ...Value) Value {
	return Value{Type: TypeObject, Name: name, Children: props}
}

// Prop returns the first child named name.
func (v Value) Prop(name string) (Value, bool) {
	for _, c := range v.Children {
		if c.Name == name {
			return c, true
		}
	}
	return Value{}, false
}
