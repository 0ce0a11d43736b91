package amqp

import (
	"encoding/json"
	"time"

	"cobros/internal/core"
)

// PaymentRecordedMessage announces a newly recorded collection. It carries
// only what the report worker needs to decide whether to refresh; the
// worker reads the data itself.
type PaymentRecordedMessage struct {
	PaymentID      string    `json:"paymentId"`
	CollaboratorID string    `json:"collaboratorId"`
	AmountCents    int64     `json:"amountCents"`
	PaidAt         time.Time `json:"paidAt"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewPaymentRecordedMessage builds the message for p.
func NewPaymentRecordedMessage(p core.Payment, now time.Time) *PaymentRecordedMessage {
	return &PaymentRecordedMessage{
		PaymentID:      p.ID,
		CollaboratorID: p.Collaborator.ID,
		AmountCents:    p.TotalPaid().Cents,
		PaidAt:         p.Date,
		Timestamp:      now,
	}
}

// ToJSON converts the message to JSON bytes
func (m *PaymentRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentRecordedMessageFromJSON decodes a message body.
func PaymentRecordedMessageFromJSON(data []byte) (*PaymentRecordedMessage, error) {
	var msg PaymentRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
