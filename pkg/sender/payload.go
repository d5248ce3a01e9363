package sender

import (
	"bytes"
	"encoding/json"
)

// Payload is the serialized form of the message every worker sends. It is
// produced once at startup and only ever read afterwards.
type Payload []byte

// ParsePayload validates the given JSON document and returns its compacted
// form.
func ParsePayload(raw string) (Payload, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return nil, NewError(ErrInvalidPayload, err)
	}
	if buf.Len() == 0 {
		return nil, NewError(ErrInvalidPayload, nil, "message is empty")
	}
	return Payload(buf.Bytes()), nil
}

func (p Payload) String() string {
	return string(p)
}
