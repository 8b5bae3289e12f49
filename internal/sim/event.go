package sim

import (
	"encoding/json"
	"time"
)

// EventType classifies event log entries.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeStart             // Run started with a seed
	EventTypeTick              // Step summary
	EventTypeExtinct           // Last prey caught
	EventTypeReset             // Run replaced via Reset
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is one line of the JSONL event log.
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`
	TickNum   uint64    `json:"tickNum"`
	RunID     string    `json:"runId"`
	Payload   []byte    `json:"payload"` // JSON-encoded payload
}

func (t EventType) String() string {
	switch t {
	case EventTypeStart:
		return "start"
	case EventTypeTick:
		return "tick"
	case EventTypeExtinct:
		return "extinct"
	case EventTypeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// StartPayload records everything needed to replay a run.
type StartPayload struct {
	Seed  int64 `json:"seed"`
	Param Param `json:"param"`
}

// ExtinctPayload closes a run.
type ExtinctPayload struct {
	Steps   uint64 `json:"steps"`
	Catches int    `json:"catches"`
	Elapsed int64  `json:"elapsedNs"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, runID string, payload any) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		RunID:     runID,
		Payload:   EncodePayload(payload),
	}
}
