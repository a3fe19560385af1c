package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction records a financial event in the `transactions` table.
// A purchase transaction is created in the same database transaction
// as its ticket, so a committed ticket always has a matching row and
// a rolled-back purchase leaves neither.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user the money moved for.
//  TicketID      – related ticket (nullable for payouts/fees).
//  EventID       – related event.
//  Type          – purchase | refund | payout | fee | transfer.
//  Amount        – signed amount; negative for refunds.
//  Currency      – ISO currency code.
//  PaymentMethod – stripe | crypto | free.
//  PaymentID     – external payment reference (nullable).
//  Status        – pending | completed | failed | refunded.
//  CreatedAt     – creation timestamp.
type Transaction struct {
	ID            uint64          // transactions.id
	UserID        uint64          // transactions.user_id
	TicketID      *uint64         // transactions.ticket_id (nullable)
	EventID       uint64          // transactions.event_id
	Type          string          // transactions.type
	Amount        decimal.Decimal // transactions.amount
	Currency      string          // transactions.currency
	PaymentMethod string          // transactions.payment_method
	PaymentID     *string         // transactions.payment_id (nullable)
	Status        string          // transactions.status
	CreatedAt     time.Time       // transactions.created_at
}

// Transaction type values stored in transactions.type.
const (
	TxTypePurchase = "purchase"
	TxTypeRefund   = "refund"
	TxTypePayout   = "payout"
	TxTypeFee      = "fee"
	TxTypeTransfer = "transfer"
)

// Transaction status values stored in transactions.status.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusRefunded  = "refunded"
)

// Payment method values accepted on purchase.
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodCrypto = "crypto"
	PaymentMethodFree   = "free"
)

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodCrypto, PaymentMethodFree:
		return true
	}
	return false
}
