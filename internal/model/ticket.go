package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket records a single issued ticket in the `tickets` table.
// Tickets are created exactly once inside the purchase transaction
// and are immutable afterwards except for status transitions. Price
// and currency are snapshots taken from the event at purchase time
// so later event edits never change what a holder paid.
//
// Fields:
//  ID               – primary key identifier.
//  EventID          – event the ticket admits to.
//  OwnerID          – user holding the ticket.
//  Type             – ticket type requested by the buyer (e.g. general).
//  TierName         – optional named tier (nullable).
//  Price            – amount paid, snapshot of the event's minimum price.
//  Currency         – ISO currency code snapshot.
//  IsNFT            – inherited from the event's has_nft_tickets flag.
//  SeatSection      – optional seat section (nullable).
//  SeatRow          – optional seat row (nullable).
//  SeatNumber       – optional seat number (nullable).
//  SlotStart        – optional time-slot start (nullable).
//  SlotEnd          – optional time-slot end (nullable).
//  VerificationCode – short human-readable check-in code, unique.
//  Status           – active | used | expired | transferred.
//  Metadata         – raw JSON issuance metadata (method, payment id, issuer).
//  CreatedAt        – issuance timestamp.
//  UpdatedAt        – last update timestamp.
type Ticket struct {
	ID               uint64          // tickets.id
	EventID          uint64          // tickets.event_id
	OwnerID          uint64          // tickets.owner_id
	Type             string          // tickets.type
	TierName         *string         // tickets.tier_name (nullable)
	Price            decimal.Decimal // tickets.price
	Currency         string          // tickets.currency
	IsNFT            bool            // tickets.is_nft
	SeatSection      *string         // tickets.seat_section (nullable)
	SeatRow          *string         // tickets.seat_row (nullable)
	SeatNumber       *string         // tickets.seat_number (nullable)
	SlotStart        *time.Time      // tickets.slot_start (nullable)
	SlotEnd          *time.Time      // tickets.slot_end (nullable)
	VerificationCode string          // tickets.verification_code (unique)
	Status           string          // tickets.status
	Metadata         []byte          // tickets.metadata (raw JSON)
	CreatedAt        time.Time       // tickets.created_at
	UpdatedAt        time.Time       // tickets.updated_at
}

// Ticket status values stored in tickets.status.
const (
	TicketStatusActive      = "active"
	TicketStatusUsed        = "used"
	TicketStatusExpired     = "expired"
	TicketStatusTransferred = "transferred"
)
