package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event represents a listed event in the `events` table. Events are
// created in DRAFT status by their organiser and must be PUBLISHED
// before tickets can be sold. The sold_tickets counter is only ever
// changed through guarded atomic increments so it can never exceed
// total_tickets when a finite capacity is set.
//
// Fields:
//  ID                – primary key identifier.
//  OrganiserID       – user who owns and manages the event.
//  Title             – event title.
//  Description       – long-form description.
//  Date              – when the event starts.
//  EndDate           – when the event ends (nullable).
//  VenueName         – display name of the venue.
//  VenueAddress      – street address of the venue.
//  VenueCity         – city of the venue.
//  Latitude/Longitude– optional coordinates (nullable).
//  Category          – top-level category slug.
//  Subcategory       – optional finer-grained category.
//  Tags              – JSON array of free-form tags.
//  PriceMin/PriceMax – advertised price range.
//  Currency          – ISO currency code for the price range.
//  HasNFTTickets     – whether tickets are flagged blockchain-backed.
//  TotalTickets      – capacity; 0 means unlimited.
//  SoldTickets       – running counter of issued tickets.
//  Views             – detail-page view counter (atomic increment).
//  Likes             – like counter kept in step with event_likes rows.
//  MaxTicketsPerUser – per-user purchase cap; 0 means the default of 10.
//  Status            – draft | published | cancelled | completed.
//  ImageURL          – cover image URL (nullable).
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Event struct {
	ID                uint64          // events.id
	OrganiserID       uint64          // events.organiser_id
	Title             string          // events.title
	Description       string          // events.description
	Date              time.Time       // events.date
	EndDate           *time.Time      // events.end_date (nullable)
	VenueName         string          // events.venue_name
	VenueAddress      string          // events.venue_address
	VenueCity         string          // events.venue_city
	Latitude          *float64        // events.latitude (nullable)
	Longitude         *float64        // events.longitude (nullable)
	Category          string          // events.category
	Subcategory       *string         // events.subcategory (nullable)
	Tags              []byte          // events.tags (JSON array)
	PriceMin          decimal.Decimal // events.price_min
	PriceMax          decimal.Decimal // events.price_max
	Currency          string          // events.currency
	HasNFTTickets     bool            // events.has_nft_tickets
	TotalTickets      uint32          // events.total_tickets (0 = unlimited)
	SoldTickets       uint32          // events.sold_tickets
	Views             uint64          // events.views
	Likes             uint64          // events.likes
	MaxTicketsPerUser uint32          // events.max_tickets_per_user (0 = default)
	Status            string          // events.status
	ImageURL          *string         // events.image_url (nullable)
	CreatedAt         time.Time       // events.created_at
	UpdatedAt         time.Time       // events.updated_at
}

// Event status values stored in events.status.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusCancelled = "cancelled"
	EventStatusCompleted = "completed"
)

// DefaultMaxTicketsPerUser applies when an event does not set its own cap.
const DefaultMaxTicketsPerUser = 10

// ValidEventStatus reports whether s is a known event status value.
func ValidEventStatus(s string) bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// ValidStatusTransition reports whether an event may move from one
// status to another. Draft events can only be published; published
// events can be cancelled or completed. All other transitions are
// rejected so sold tickets keep a consistent lifecycle behind them.
func ValidStatusTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case EventStatusDraft:
		return to == EventStatusPublished
	case EventStatusPublished:
		return to == EventStatusCancelled || to == EventStatusCompleted
	}
	return false
}

// PerUserLimit returns the effective per-user ticket cap for the event.
func (e *Event) PerUserLimit() uint32 {
	if e.MaxTicketsPerUser > 0 {
		return e.MaxTicketsPerUser
	}
	return DefaultMaxTicketsPerUser
}
