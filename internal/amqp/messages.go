package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/core"
)

// LedgerEvent is the wire form of a persisted ledger change. It carries ids
// only; consumers that need the records read the ledger themselves.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	IDs       []int64   `json:"ids"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent converts a core.Change, stamping the current time when the change has none.
func NewLedgerEvent(c core.Change) *LedgerEvent {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	ids := c.IDs
	if ids == nil {
		ids = []int64{}
	}
	return &LedgerEvent{
		Kind:      string(c.Kind),
		IDs:       ids,
		Timestamp: ts.UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event published by Client.Publish.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
