package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType distinguishes payment lifecycle events on the wire.
type EventType string

const (
	PaymentCreated EventType = "payment.created"
	PaymentDeleted EventType = "payment.deleted"
)

// PaymentEvent carries everything a consumer needs to mirror the payment
// without reading the ledger store.
type PaymentEvent struct {
	Type        EventType `json:"type"`
	PaymentID   string    `json:"paymentId"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName,omitempty"`
	AmountCents int64     `json:"amountCents"`
	Months      []string  `json:"months"`
	PaymentDate time.Time `json:"paymentDate"`
	Remarks     string    `json:"remarks,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the event to JSON bytes
func (e *PaymentEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PaymentEventFromJSON decodes and checks an event body.
func PaymentEventFromJSON(data []byte) (*PaymentEvent, error) {
	var e PaymentEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case PaymentCreated, PaymentDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.PaymentID == "" {
		return nil, fmt.Errorf("event without payment id")
	}
	return &e, nil
}
