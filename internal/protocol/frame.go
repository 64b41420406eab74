package protocol

import (
	"encoding/json"
	"fmt"
)

// Frames run between a host endpoint and the relay, multiplexing every
// display connection over the host's single websocket. Display sockets carry
// bare Messages; the relay adds and strips the framing.

type FrameKind string

const (
	// FrameOpen announces a display connection that finished its handshake.
	FrameOpen FrameKind = "open"
	// FrameData carries one peer message for (or from) one connection.
	FrameData FrameKind = "data"
	// FrameClose reports or requests teardown of one connection.
	FrameClose FrameKind = "close"
)

type Frame struct {
	Kind FrameKind       `json:"kind"`
	Conn string          `json:"conn"`
	Data json.RawMessage `json:"data,omitempty"`
}

func EncodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode relay frame: %w", err)
	}
	switch f.Kind {
	case FrameOpen, FrameData, FrameClose:
		return f, nil
	default:
		return Frame{}, fmt.Errorf("%w: frame kind %q", ErrUnknownMessage, f.Kind)
	}
}
