package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotSyncMessage announces that a new ledger snapshot revision was
// persisted. It carries only the revision and origin; consumers fetch
// the snapshot itself from the store.
type SnapshotSyncMessage struct {
	Revision  int64     `json:"revision"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotSyncMessage creates a sync announcement for a revision.
func NewSnapshotSyncMessage(revision int64, source string) *SnapshotSyncMessage {
	return &SnapshotSyncMessage{
		Revision:  revision,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SnapshotSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotSyncMessageFromJSON creates a message from JSON bytes.
func SnapshotSyncMessageFromJSON(data []byte) (*SnapshotSyncMessage, error) {
	var msg SnapshotSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
