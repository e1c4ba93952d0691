package commsutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const codecLogPrefix = "commsutil:codec"

// MaxPayloadBytes matches the COMMS server's default max_payload.
const MaxPayloadBytes = 1 << 20

var (
	// ErrEmptyPayload is returned when a message body is empty or blank.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrPayloadTooLarge is returned when an encoded body exceeds MaxPayloadBytes.
	ErrPayloadTooLarge = errors.New("payload exceeds max size")
)

// EncodePayload serializes v to a JSON message body. Markup characters are
// not escaped, so decoded HTML and JWT JSON travel as written.
func EncodePayload(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%s - encode: %w", codecLogPrefix, err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if len(data) > MaxPayloadBytes {
		return nil, fmt.Errorf("%s - %d bytes: %w", codecLogPrefix, len(data), ErrPayloadTooLarge)
	}
	return data, nil
}

// DecodePayload parses a JSON message body into v.
func DecodePayload(data []byte, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s - %w", codecLogPrefix, ErrEmptyPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s - decode: %w", codecLogPrefix, err)
	}
	return nil
}
