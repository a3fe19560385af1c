package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovify/rovify-api/internal/model"
)

// EventRepo provides persistence for events. Counter columns
// (sold_tickets, views, likes) are only ever changed through atomic
// relative updates so concurrent writers cannot lose increments.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `id, organiser_id, title, description, date, end_date,
	venue_name, venue_address, venue_city, latitude, longitude,
	category, subcategory, tags, price_min, price_max, currency,
	has_nft_tickets, total_tickets, sold_tickets, views, likes,
	max_tickets_per_user, status, image_url, created_at, updated_at`

type eventScanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent reads one event row in eventColumns order.
func scanEvent(row eventScanner) (model.Event, error) {
	var (
		e        model.Event
		endDate  sql.NullTime
		tags     sql.NullString
		priceMin string
		priceMax string
	)
	err := row.Scan(&e.ID, &e.OrganiserID, &e.Title, &e.Description, &e.Date, &endDate,
		&e.VenueName, &e.VenueAddress, &e.VenueCity, &e.Latitude, &e.Longitude,
		&e.Category, &e.Subcategory, &tags, &priceMin, &priceMax, &e.Currency,
		&e.HasNFTTickets, &e.TotalTickets, &e.SoldTickets, &e.Views, &e.Likes,
		&e.MaxTicketsPerUser, &e.Status, &e.ImageURL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.Event{}, err
	}
	if endDate.Valid {
		t := endDate.Time
		e.EndDate = &t
	}
	if tags.Valid {
		e.Tags = []byte(tags.String)
	}
	if e.PriceMin, err = decimal.NewFromString(priceMin); err != nil {
		return model.Event{}, err
	}
	if e.PriceMax, err = decimal.NewFromString(priceMax); err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// Create inserts a new event. Status is always draft regardless of
// what the caller asked for; publishing is a separate owner action.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (organiser_id, title, description, date, end_date,
		 venue_name, venue_address, venue_city, latitude, longitude,
		 category, subcategory, tags, price_min, price_max, currency,
		 has_nft_tickets, total_tickets, max_tickets_per_user, status, image_url)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.OrganiserID, e.Title, e.Description, e.Date, e.EndDate,
		e.VenueName, e.VenueAddress, e.VenueCity, e.Latitude, e.Longitude,
		e.Category, e.Subcategory, nullableJSON(e.Tags),
		e.PriceMin.String(), e.PriceMax.String(), e.Currency,
		e.HasNFTTickets, e.TotalTickets, e.MaxTicketsPerUser,
		model.EventStatusDraft, e.ImageURL)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one event.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// GetByIDForUpdateTx loads an event with a row lock inside the given
// transaction. The purchase flow uses this so capacity and quota
// checks are serialized against concurrent purchases of the same event.
func (r *EventRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Event, error) {
	e, err := scanEvent(tx.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id=? LIMIT 1 FOR UPDATE", id))
	if err == sql.ErrNoRows {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// IncrementViews bumps the view counter with a relative update.
func (r *EventRepo) IncrementViews(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE events SET views = views + 1 WHERE id=?", id)
	return err
}

// IncrementSoldTx increments sold_tickets inside the purchase
// transaction. The WHERE clause re-checks capacity so the counter can
// never pass total_tickets even if two transactions raced to this
// point; zero affected rows means the event just sold out.
func (r *EventRepo) IncrementSoldTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE events SET sold_tickets = sold_tickets + 1
		 WHERE id=? AND (total_tickets = 0 OR sold_tickets < total_tickets)`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSoldOut
	}
	return nil
}

// AdjustLikesTx applies a +1/-1 delta to the like counter inside the
// toggle transaction. GREATEST guards the unsigned column against
// going below zero if rows and counter ever drift.
func (r *EventRepo) AdjustLikesTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) error {
	var err error
	if delta >= 0 {
		_, err = tx.ExecContext(ctx,
			"UPDATE events SET likes = likes + ? WHERE id=?", delta, id)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE events SET likes = GREATEST(CAST(likes AS SIGNED) + ?, 0) WHERE id=?", delta, id)
	}
	return err
}

// EventPatch carries the fields an organiser may change on an event.
// Nil fields are left untouched.
type EventPatch struct {
	Title             *string
	Description       *string
	Date              *time.Time
	EndDate           *time.Time
	VenueName         *string
	VenueAddress      *string
	VenueCity         *string
	Latitude          *float64
	Longitude         *float64
	Category          *string
	Subcategory       *string
	Tags              []byte
	PriceMin          *decimal.Decimal
	PriceMax          *decimal.Decimal
	Currency          *string
	HasNFTTickets     *bool
	TotalTickets      *uint32
	MaxTicketsPerUser *uint32
	Status            *string
	ImageURL          *string
}

// Update applies a partial patch. Ownership and status-transition
// rules are validated by the handler before this is called.
func (r *EventRepo) Update(ctx context.Context, id uint64, p EventPatch) error {
	set := make([]string, 0, 16)
	args := make([]interface{}, 0, 17)
	add := func(col string, v interface{}) {
		set = append(set, col+"=?")
		args = append(args, v)
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Date != nil {
		add("date", *p.Date)
	}
	if p.EndDate != nil {
		add("end_date", *p.EndDate)
	}
	if p.VenueName != nil {
		add("venue_name", *p.VenueName)
	}
	if p.VenueAddress != nil {
		add("venue_address", *p.VenueAddress)
	}
	if p.VenueCity != nil {
		add("venue_city", *p.VenueCity)
	}
	if p.Latitude != nil {
		add("latitude", *p.Latitude)
	}
	if p.Longitude != nil {
		add("longitude", *p.Longitude)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Subcategory != nil {
		add("subcategory", *p.Subcategory)
	}
	if p.Tags != nil {
		add("tags", string(p.Tags))
	}
	if p.PriceMin != nil {
		add("price_min", p.PriceMin.String())
	}
	if p.PriceMax != nil {
		add("price_max", p.PriceMax.String())
	}
	if p.Currency != nil {
		add("currency", *p.Currency)
	}
	if p.HasNFTTickets != nil {
		add("has_nft_tickets", *p.HasNFTTickets)
	}
	if p.TotalTickets != nil {
		add("total_tickets", *p.TotalTickets)
	}
	if p.MaxTicketsPerUser != nil {
		add("max_tickets_per_user", *p.MaxTicketsPerUser)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.ImageURL != nil {
		add("image_url", *p.ImageURL)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.db.ExecContext(ctx,
		"UPDATE events SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	return err
}

// Delete removes an event. The sold_tickets=0 guard is part of the
// statement itself so a purchase landing between the handler's read
// and the delete still cannot orphan a sold ticket.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM events WHERE id=? AND sold_tickets=0", id)
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

// ListFilter narrows the public event listing.
type ListFilter struct {
	Category      string
	Status        string
	OrganiserID   uint64
	HasNFTTickets *bool
	Search        string
	Limit         int
	Offset        int
}

// List returns events matching the filter ordered by date ascending.
func (r *EventRepo) List(ctx context.Context, f ListFilter) ([]model.Event, error) {
	where := make([]string, 0, 5)
	args := make([]interface{}, 0, 7)
	if f.Category != "" {
		where = append(where, "category=?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if f.OrganiserID != 0 {
		where = append(where, "organiser_id=?")
		args = append(args, f.OrganiserID)
	}
	if f.HasNFTTickets != nil {
		where = append(where, "has_nft_tickets=?")
		args = append(args, *f.HasNFTTickets)
	}
	if f.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	q := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date ASC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0, f.Limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListPublishedByOrganiser returns the published events a user
// organises, for public profile pages.
func (r *EventRepo) ListPublishedByOrganiser(ctx context.Context, organiserID uint64) ([]model.Event, error) {
	return r.List(ctx, ListFilter{
		Status:      model.EventStatusPublished,
		OrganiserID: organiserID,
		Limit:       100,
	})
}

// nullableJSON maps an empty JSON blob to NULL so the column default
// applies.
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
