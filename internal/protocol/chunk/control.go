package chunk

import "encoding/binary"

// User control event types.
const (
	EventStreamBegin     uint16 = 0
	EventSetBufferLength uint16 = 3
	EventPingRequest     uint16 = 6
	EventPingResponse    uint16 = 7
)

// SetChunkSizeMessage builds a protocol control Set Chunk Size message.
func SetChunkSizeMessage(size uint32) Message {
	return controlMessage(TypeSetChunkSize, uint32Body(size&0x7FFFFFFF))
}

// AcknowledgementMessage reports the number of bytes received so far.
func AcknowledgementMessage(sequence uint32) Message {
	return controlMessage(TypeAcknowledgement, uint32Body(sequence))
}

func WindowAckSizeMessage(size uint32) Message {
	return controlMessage(TypeWindowAckSize, uint32Body(size))
}

// UserControlMessage builds a user control event with its raw event data.
func UserControlMessage(event uint16, data []byte) Message {
	body := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(body[0:2], event)
	copy(body[2:], data)
	return controlMessage(TypeUserControl, body)
}

// ParseUint32 reads the 4-byte value carried by Set Chunk Size, Acknowledgement,
// Window Acknowledgement Size, Set Peer Bandwidth and Abort bodies.
func ParseUint32(body []byte) (uint32, error) {
	if len(body) < 4 {
		return 0, ErrShortControlValue
	}
	return binary.BigEndian.Uint32(body[0:4]), nil
}

// ParseUserControl splits a user control body into its event type and data.
func ParseUserControl(body []byte) (uint16, []byte, error) {
	if len(body) < 2 {
		return 0, nil, ErrShortControlValue
	}
	return binary.BigEndian.Uint16(body[0:2]), body[2:], nil
}

func controlMessage(typeID uint8, body []byte) Message {
	return Message{
		Header: Header{
			ChunkStreamID: StreamProtocolControl,
			TypeID:        typeID,
			Length:        uint32(len(body)),
		},
		Body: body,
	}
}

func uint32Body(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
