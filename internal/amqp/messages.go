package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RefreshRequestMessage asks the worker to reload sources and recompute
// all balances. It carries no data of its own; the worker reads the
// sources itself so the message stays valid however long it queues.
type RefreshRequestMessage struct {
	RunID       string    `json:"run_id"`
	RequestedAt time.Time `json:"requested_at"`
	Reason      string    `json:"reason,omitempty"`
}

// NewRefreshRequestMessage creates a refresh request with a fresh run ID.
func NewRefreshRequestMessage(reason string) *RefreshRequestMessage {
	return &RefreshRequestMessage{
		RunID:       uuid.NewString(),
		RequestedAt: time.Now().UTC(),
		Reason:      reason,
	}
}

func (m *RefreshRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RefreshRequestMessageFromJSON(data []byte) (*RefreshRequestMessage, error) {
	var msg RefreshRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
