// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketIssuedEvent is published after a ticket purchase commits. It
// carries enough information for downstream consumers to log, notify
// or trigger analytics without querying the primary database.
type TicketIssuedEvent struct {
	TicketID         uint64 `json:"ticket_id"`
	EventID          uint64 `json:"event_id"`
	EventTitle       string `json:"event_title"`
	OwnerID          uint64 `json:"owner_id"`
	OrganiserID      uint64 `json:"organiser_id"`
	Price            string `json:"price"`
	Currency         string `json:"currency"`
	PaymentMethod    string `json:"payment_method"`
	VerificationCode string `json:"verification_code"`
	IssuedAt         string `json:"issued_at"`
}
