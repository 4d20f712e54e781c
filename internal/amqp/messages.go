package amqp

import (
	"encoding/json"
	"time"
)

// RecordChangeMessage is the lightweight change-feed payload: just enough
// for the worker to fetch the full record from storage and mirror it.
type RecordChangeMessage struct {
	Entity    string    `json:"entity"` // "emi", "transaction", "budget"
	Op        string    `json:"op"`     // "created", "updated", "deleted"
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangeMessage(entity, op, id, userID string) *RecordChangeMessage {
	return &RecordChangeMessage{
		Entity:    entity,
		Op:        op,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangeMessageFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
