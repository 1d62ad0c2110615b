package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionCreatedMessage announces a newly stored transaction. It carries
// only the ID; consumers load the row from the database.
type TransactionCreatedMessage struct {
	MessageID string    `json:"message_id"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionCreatedMessage(id int64) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		MessageID: uuid.NewString(),
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
