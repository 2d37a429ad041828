package amf

import "errors"

var (
	ErrTruncated         = errors.New("amf: truncated data")
	ErrUnsupportedMarker = errors.New("amf: unsupported type marker")
	ErrTooDeep           = errors.New("amf: nesting too deep")
	ErrStringTooLong     = errors.New("amf: string too long")
	ErrUnencodable       = errors.New("amf: value type not encodable")
)
