package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerChangedMessage announces that the ledger changed for a period.
// Month 0 means the change affects the whole year (budget edits).
type LedgerChangedMessage struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(year, month int, reason string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Year:      year,
		Month:     month,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and sanity-checks a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Year < 1000 || msg.Year > 9999 || msg.Month < 0 || msg.Month > 12 {
		return nil, fmt.Errorf("invalid period %d-%d", msg.Year, msg.Month)
	}
	return &msg, nil
}
