package wire

import (
	"encoding/json"
	"io"
)

// Envelope is the outer shape of every message: a type tag the receiver
// switches on, plus an opaque payload it decodes once it knows the type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals payload, wraps it in an Envelope tagged msgType, and
// writes it as one frame.
func Encode(w io.Writer, msgType string, payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b, err := json.Marshal(Envelope{Type: msgType, Payload: p})
	if err != nil {
		return err
	}

	return WriteFrame(w, b)
}

// Decode reads one frame and unmarshals it as an Envelope.
func Decode(r io.Reader) (Envelope, error) {
	b, err := ReadFrame(r)
	if err != nil {
		return Envelope{}, err
	}

	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// DecodePayload unmarshals env's payload into T.
func DecodePayload[T any](env Envelope) (T, error) {
	var v T
	err := json.Unmarshal(env.Payload, &v)
	return v, err
}
