package main

import (
	"encoding/json"
	"fmt"

	"prizewheel"
)

// ============================================================================
// Action Types
// ============================================================================
// Actions represent intent from the daemon's surfaces (IPC, HTTP, input
// buttons). The daemon loop reduces them into commands against the engine.
// ============================================================================

// SpinRequested asks the wheel to spin. An empty Winner picks at random.
// Reply, when set, receives the outcome of the request (buffer it).
type SpinRequested struct {
	Winner string `json:"winner,omitempty"`
	Origin string `json:"origin,omitempty"` // e.g. "ipc", "http", "input"

	Reply chan<- SpinReply `json:"-"`
}

func (SpinRequested) eventMarker() {}

// ActivateWheel marks the wheel visible.
type ActivateWheel struct{}

func (ActivateWheel) eventMarker() {}

// DeactivateWheel hides the wheel, cancelling any spin in flight.
type DeactivateWheel struct{}

func (DeactivateWheel) eventMarker() {}

// RequestStateSnapshot asks the daemon loop for a snapshot of its state.
// The reply is delivered through the effects layer, never from the reducer.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// SpinReply is the daemon's answer to a SpinRequested.
type SpinReply struct {
	Started bool
	State   prizewheel.State
	Err     error
}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	eventTypeSpin       = "spin"
	eventTypeActivate   = "activate"
	eventTypeDeactivate = "deactivate"
	eventTypeGetState   = "get_state"
)

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case eventTypeSpin:
		var a SpinRequested
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &a); err != nil {
				return nil, fmt.Errorf("unmarshal SpinRequested: %w", err)
			}
		}
		return a, nil

	case eventTypeActivate:
		return ActivateWheel{}, nil

	case eventTypeDeactivate:
		return DeactivateWheel{}, nil

	case eventTypeGetState:
		return RequestStateSnapshot{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case SpinRequested:
		env.Type = eventTypeSpin
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SpinRequested: %w", err)
		}
		env.Data = data

	case ActivateWheel:
		env.Type = eventTypeActivate

	case DeactivateWheel:
		env.Type = eventTypeDeactivate

	case RequestStateSnapshot:
		env.Type = eventTypeGetState

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
