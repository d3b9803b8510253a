package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidMessage = errors.New("invalid values changed message")

// ValuesChangedMessage announces that one component's year of values was
// written. It carries no amounts: the consumer reads the current state from
// the database, so redelivery and reordering are harmless.
type ValuesChangedMessage struct {
	ID          string    `json:"id"`
	ComponentID int64     `json:"component_id"`
	Year        int       `json:"year"`
	Kind        string    `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewValuesChangedMessage(componentID int64, year int, kind string) *ValuesChangedMessage {
	return &ValuesChangedMessage{
		ID:          uuid.NewString(),
		ComponentID: componentID,
		Year:        year,
		Kind:        kind,
		Timestamp:   time.Now().UTC(),
	}
}

func (m *ValuesChangedMessage) Validate() error {
	if m.ComponentID <= 0 || m.Year <= 0 {
		return ErrInvalidMessage
	}
	if m.Kind != "budget" && m.Kind != "actual" {
		return ErrInvalidMessage
	}
	if _, err := uuid.Parse(m.ID); err != nil {
		return ErrInvalidMessage
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ValuesChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ValuesChangedMessageFromJSON(data []byte) (*ValuesChangedMessage, error) {
	var msg ValuesChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
