package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TheJagStudio/Family-Fued/internal/engine"
)

var ErrUnknownMessage = errors.New("unknown peer message type")

type MessageType string

const (
	// TypeSyncState carries an authoritative full snapshot. Idempotent and
	// safe to deliver any number of times.
	TypeSyncState MessageType = "SYNC_STATE"
	// TypeShowWrong is the ephemeral strike flash. No ordering guarantee
	// relative to the snapshot stream, never persisted.
	TypeShowWrong MessageType = "SHOW_WRONG"
	// TypeReset tells the receiver to revert to the initial state. Defined
	// for the protocol but not emitted by the current host, which resets via
	// an ordinary snapshot instead.
	TypeReset MessageType = "RESET"
)

// Message is the wire envelope. The payload stays raw so the transport layer
// never depends on what rides inside it.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func SyncState(s engine.State) (Message, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return Message{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return Message{Type: TypeSyncState, Payload: payload}, nil
}

func ShowWrong() Message {
	return Message{Type: TypeShowWrong, Payload: json.RawMessage("true")}
}

func Reset() Message {
	return Message{Type: TypeReset}
}

// State decodes the snapshot out of a SYNC_STATE message.
func (m Message) State() (engine.State, error) {
	if m.Type != TypeSyncState {
		return engine.State{}, fmt.Errorf("%w: want %s, got %s", ErrUnknownMessage, TypeSyncState, m.Type)
	}
	var s engine.State
	if err := json.Unmarshal(m.Payload, &s); err != nil {
		return engine.State{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return s, nil
}

func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode peer message: %w", err)
	}
	switch m.Type {
	case TypeSyncState, TypeShowWrong, TypeReset:
		return m, nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}
