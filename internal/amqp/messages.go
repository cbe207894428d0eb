package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// OperationMessage is the wire form of core.OperationEvent. It carries
// ids only; the worker fetches the operation from the database.
type OperationMessage struct {
	EventID     string           `json:"eventId"`
	Action      core.EventAction `json:"action"`
	OperationID int64            `json:"operationId"`
	UserID      int64            `json:"userId"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewOperationMessage(ev core.OperationEvent) *OperationMessage {
	return &OperationMessage{
		EventID:     uuid.NewString(),
		Action:      ev.Action,
		OperationID: ev.OperationID,
		UserID:      ev.UserID,
		Timestamp:   time.Now().UTC(),
	}
}

func (m *OperationMessage) Event() core.OperationEvent {
	return core.OperationEvent{Action: m.Action, OperationID: m.OperationID, UserID: m.UserID}
}

func (m *OperationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OperationMessageFromJSON decodes and checks a message body.
func OperationMessageFromJSON(data []byte) (*OperationMessage, error) {
	var msg OperationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Action {
	case core.ActionCreated, core.ActionUpdated, core.ActionDeleted:
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.OperationID <= 0 {
		return nil, fmt.Errorf("operation id must be positive, got %d", msg.OperationID)
	}
	return &msg, nil
}
