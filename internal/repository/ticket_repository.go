package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovify/rovify-api/internal/model"
)

// TicketRepo provides persistence for tickets. Issuance always runs
// inside the purchase transaction owned by the handler; reads are
// plain queries.
type TicketRepo struct{ db *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// CountForUserEventTx counts how many tickets a user already holds
// for one event, inside the purchase transaction so the per-user
// quota check sees any purchase committed before the row lock was
// acquired.
func (r *TicketRepo) CountForUserEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets WHERE owner_id=? AND event_id=?", userID, eventID).Scan(&n)
	return n, err
}

// CreateTx inserts a ticket within the purchase transaction and
// populates the generated ID on the record.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (event_id, owner_id, type, tier_name, price, currency,
		 is_nft, seat_section, seat_row, seat_number, slot_start, slot_end,
		 verification_code, status, metadata)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.EventID, t.OwnerID, t.Type, t.TierName, t.Price.String(), t.Currency,
		t.IsNFT, t.SeatSection, t.SeatRow, t.SeatNumber, t.SlotStart, t.SlotEnd,
		t.VerificationCode, t.Status, nullableJSON(t.Metadata))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// OwnedTicket is a ticket joined with its event and organiser
// summary, as returned by the ticket listing endpoint.
type OwnedTicket struct {
	ID               uint64          `json:"id"`
	EventID          uint64          `json:"event_id"`
	Type             string          `json:"type"`
	TierName         *string         `json:"tier_name,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	IsNFT            bool            `json:"is_nft"`
	VerificationCode string          `json:"verification_code"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	EventTitle       string          `json:"event_title"`
	EventDate        time.Time       `json:"event_date"`
	EventVenue       string          `json:"event_venue"`
	EventCity        string          `json:"event_city"`
	EventStatus      string          `json:"event_status"`
	OrganiserID      uint64          `json:"organiser_id"`
	OrganiserName    string          `json:"organiser_name"`
}

// ListByOwner returns the caller's tickets with joined event and
// organiser data, optionally narrowed by ticket status and event.
func (r *TicketRepo) ListByOwner(ctx context.Context, ownerID uint64, status string, eventID uint64) ([]OwnedTicket, error) {
	where := []string{"t.owner_id=?"}
	args := []interface{}{ownerID}
	if status != "" {
		where = append(where, "t.status=?")
		args = append(args, status)
	}
	if eventID != 0 {
		where = append(where, "t.event_id=?")
		args = append(args, eventID)
	}
	q := `SELECT t.id, t.event_id, t.type, t.tier_name, t.price, t.currency, t.is_nft,
	             t.verification_code, t.status, t.created_at,
	             e.title, e.date, e.venue_name, e.venue_city, e.status,
	             u.id, u.display_name
	      FROM tickets t
	      JOIN events e ON e.id = t.event_id
	      JOIN users u ON u.id = e.organiser_id
	      WHERE ` + strings.Join(where, " AND ") + `
	      ORDER BY t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []OwnedTicket{}
	for rows.Next() {
		var (
			t     OwnedTicket
			price string
		)
		if err := rows.Scan(&t.ID, &t.EventID, &t.Type, &t.TierName, &price, &t.Currency,
			&t.IsNFT, &t.VerificationCode, &t.Status, &t.CreatedAt,
			&t.EventTitle, &t.EventDate, &t.EventVenue, &t.EventCity, &t.EventStatus,
			&t.OrganiserID, &t.OrganiserName); err != nil {
			return nil, err
		}
		if t.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByID fetches one ticket.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.Ticket, error) {
	var (
		t         model.Ticket
		price     string
		slotStart sql.NullTime
		slotEnd   sql.NullTime
		metadata  sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, owner_id, type, tier_name, price, currency, is_nft,
		        seat_section, seat_row, seat_number, slot_start, slot_end,
		        verification_code, status, metadata, created_at, updated_at
		 FROM tickets WHERE id=? LIMIT 1`, id).
		Scan(&t.ID, &t.EventID, &t.OwnerID, &t.Type, &t.TierName, &price, &t.Currency,
			&t.IsNFT, &t.SeatSection, &t.SeatRow, &t.SeatNumber, &slotStart, &slotEnd,
			&t.VerificationCode, &t.Status, &metadata, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Ticket{}, ErrNotFound
	}
	if err != nil {
		return model.Ticket{}, err
	}
	if slotStart.Valid {
		v := slotStart.Time
		t.SlotStart = &v
	}
	if slotEnd.Valid {
		v := slotEnd.Time
		t.SlotEnd = &v
	}
	if metadata.Valid {
		t.Metadata = []byte(metadata.String)
	}
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return model.Ticket{}, err
	}
	return t, nil
}

// MarkUsed transitions a ticket from active to used exactly once.
// The status guard is in the statement: a second check-in attempt
// affects zero rows and reports ErrConflict.
func (r *TicketRepo) MarkUsed(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tickets SET status=? WHERE id=? AND status=?",
		model.TicketStatusUsed, id, model.TicketStatusActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
