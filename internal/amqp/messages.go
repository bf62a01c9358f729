package amqp

import (
	"encoding/json"
	"time"
)

// TransactionEventMessage is the lightweight queue payload for a transaction
// event. It carries only the id and version; consumers fetch the full row so
// the message stays valid across edits.
type TransactionEventMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(id, version int64) *TransactionEventMessage {
	return &TransactionEventMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
