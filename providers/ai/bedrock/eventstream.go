package bedrock

import (
	"encoding/binary"
	"fmt"
	"io"
)

// eventStreamMessage is one decoded frame of the AWS event-stream binary
// framing: its header map and raw payload.
type eventStreamMessage struct {
	Headers map[string]string
	Payload []byte
}

// EventType returns the :event-type header, or :exception-type for error
// frames.
func (m *eventStreamMessage) EventType() string {
	if t, ok := m.Headers[":event-type"]; ok {
		return t
	}
	return m.Headers[":exception-type"]
}

// maxFrameSize bounds a single frame to keep a corrupt length prefix from
// allocating unbounded memory. Converse payloads are small.
const maxFrameSize = 16 * 1024 * 1024

// eventStreamReader decodes AWS event-stream frames:
//
//	total length (4B) | headers length (4B) | prelude CRC (4B)
//	| headers | payload | message CRC (4B)
//
// Headers are name-length-prefixed pairs; only string-typed values (the
// ones the Converse stream uses) are materialised. CRCs are skipped; TLS
// already guarantees integrity on this transport.
type eventStreamReader struct {
	reader io.Reader
}

func newEventStreamReader(reader io.Reader) *eventStreamReader {
	return &eventStreamReader{reader: reader}
}

// Next returns the next frame, or io.EOF at end of stream.
func (r *eventStreamReader) Next() (*eventStreamMessage, error) {
	var prelude [12]byte
	if _, err := io.ReadFull(r.reader, prelude[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		// A partial prelude means the stream was cut mid-frame.
		return nil, fmt.Errorf("reading event-stream prelude: %w", err)
	}

	totalLength := binary.BigEndian.Uint32(prelude[0:4])
	headersLength := binary.BigEndian.Uint32(prelude[4:8])

	if totalLength < 16 || totalLength > maxFrameSize || headersLength > totalLength-16 {
		return nil, fmt.Errorf("invalid event-stream frame: total=%d headers=%d", totalLength, headersLength)
	}

	body := make([]byte, totalLength-12)
	if _, err := io.ReadFull(r.reader, body); err != nil {
		return nil, fmt.Errorf("reading event-stream frame: %w", err)
	}

	headers, err := parseHeaders(body[:headersLength])
	if err != nil {
		return nil, err
	}

	payload := body[headersLength : len(body)-4] // trailing 4 bytes are the message CRC

	return &eventStreamMessage{Headers: headers, Payload: payload}, nil
}

// Header value types, per the event-stream encoding.
const (
	headerTypeBoolTrue  = 0
	headerTypeBoolFalse = 1
	headerTypeByte      = 2
	headerTypeInt16     = 3
	headerTypeInt32     = 4
	headerTypeInt64     = 5
	headerTypeByteArray = 6
	headerTypeString    = 7
	headerTypeTimestamp = 8
	headerTypeUUID      = 9
)

func parseHeaders(data []byte) (map[string]string, error) {
	headers := map[string]string{}
	offset := 0

	for offset < len(data) {
		nameLength := int(data[offset])
		offset++
		if offset+nameLength+1 > len(data) {
			return nil, fmt.Errorf("truncated event-stream header name")
		}
		name := string(data[offset : offset+nameLength])
		offset += nameLength

		valueType := data[offset]
		offset++

		switch valueType {
		case headerTypeBoolTrue:
			headers[name] = "true"
		case headerTypeBoolFalse:
			headers[name] = "false"
		case headerTypeByte:
			offset++
		case headerTypeInt16:
			offset += 2
		case headerTypeInt32:
			offset += 4
		case headerTypeInt64, headerTypeTimestamp:
			offset += 8
		case headerTypeUUID:
			offset += 16
		case headerTypeByteArray, headerTypeString:
			if offset+2 > len(data) {
				return nil, fmt.Errorf("truncated event-stream header value length")
			}
			valueLength := int(binary.BigEndian.Uint16(data[offset : offset+2]))
			offset += 2
			if offset+valueLength > len(data) {
				return nil, fmt.Errorf("truncated event-stream header value")
			}
			if valueType == headerTypeString {
				headers[name] = string(data[offset : offset+valueLength])
			}
			offset += valueLength
		default:
			return nil, fmt.Errorf("unknown event-stream header type %d", valueType)
		}
	}

	return headers, nil
}
