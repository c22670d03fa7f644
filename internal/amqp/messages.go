package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventLedgerChanged is the message type of LedgerChangeMessage.
const EventLedgerChanged = "ledger.changed"

// Ops carried in LedgerChangeMessage.Op.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerChangeMessage announces a successful write to one ledger table.
// Row is the physical row written, zero for appends.
type LedgerChangeMessage struct {
	Type  string    `json:"type"`
	Table string    `json:"table"`
	Op    string    `json:"op"`
	Row   int       `json:"row,omitempty"`
	ID    string    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

func NewLedgerChangeMessage(table, op string, row int, id string, at time.Time) *LedgerChangeMessage {
	return &LedgerChangeMessage{Type: EventLedgerChanged, Table: table, Op: op, Row: row, ID: id, At: at}
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != EventLedgerChanged || msg.Table == "" {
		return nil, fmt.Errorf("unexpected message type %q for table %q", msg.Type, msg.Table)
	}
	return &msg, nil
}
