package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// ChangeMessage is the wire form of a core.ChangeEvent. It carries only
// what changed; consumers read current state from the store.
type ChangeMessage struct {
	ID        string    `json:"id"`
	Ledger    string    `json:"ledger"`
	Operation string    `json:"operation"`
	Index     int       `json:"index"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage wraps ev with a fresh message ID.
func NewChangeMessage(ev core.ChangeEvent) *ChangeMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ChangeMessage{
		ID:        uuid.NewString(),
		Ledger:    ev.Ledger,
		Operation: string(ev.Operation),
		Index:     ev.Index,
		Name:      ev.Name,
		Timestamp: ts,
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event converts the message back to a core.ChangeEvent.
func (m *ChangeMessage) Event() core.ChangeEvent {
	return core.ChangeEvent{
		Ledger:    m.Ledger,
		Operation: core.Operation(m.Operation),
		Index:     m.Index,
		Name:      m.Name,
		At:        m.Timestamp,
	}
}

// ChangeMessageFromJSON decodes a message and rejects ones that do not name
// a ledger and an operation.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Ledger == "" || msg.Operation == "" {
		return nil, errors.New("change message missing ledger or operation")
	}
	return &msg, nil
}
