package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovify/rovify-api/internal/model"
	"github.com/rovify/rovify-api/internal/repository"
)

func newTicketHandler(t *testing.T) (*TicketHandler, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	return NewTicketHandler(
		repository.NewEventRepo(db),
		repository.NewTicketRepo(db),
		repository.NewTransactionRepo(db),
		repository.NewUserRepo(db),
	), mock
}

var ticketTestColumns = []string{
	"id", "event_id", "owner_id", "type", "tier_name", "price", "currency", "is_nft",
	"seat_section", "seat_row", "seat_number", "slot_start", "slot_end",
	"verification_code", "status", "metadata", "created_at", "updated_at",
}

func ticketRow(id, eventID, ownerID uint64, status string) *sqlmock.Rows {
	now := testTime()
	return sqlmock.NewRows(ticketTestColumns).AddRow(
		id, eventID, ownerID, "general", nil, "25.00", "USD", false,
		nil, nil, nil, nil, nil,
		"AB12CD34EF56", status, nil, now, now,
	)
}

func TestPurchase_HappyPath(t *testing.T) {
	h, mock := newTicketHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM events WHERE id=.+FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(eventRow(model.Event{
			ID: 5, OrganiserID: 2, Status: model.EventStatusPublished,
			TotalTickets: 100, SoldTickets: 10,
		}))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(uint64(1), uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO tickets").
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectExec("UPDATE events SET sold_tickets = sold_tickets").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec("SET attended_events = JSON_ARRAY_APPEND").
		WithArgs(uint64(5), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets",
		`{"event_id":5,"payment_method":"stripe"}`, 1)

	require.NoError(t, h.Purchase(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":77`)
	assert.Contains(t, rec.Body.String(), `"transaction_id":55`)
	assert.Contains(t, rec.Body.String(), `"price":"25.00"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchase_MetadataRecordsPaymentID(t *testing.T) {
	h, mock := newTicketHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM events WHERE id=.+FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(eventRow(model.Event{
			ID: 5, OrganiserID: 2, Status: model.EventStatusPublished,
			TotalTickets: 100, SoldTickets: 10,
		}))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(uint64(1), uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO tickets").
		WithArgs(uint64(5), uint64(1), "general", nil, "25.00", "USD", false,
			nil, nil, nil, nil, nil, sqlmock.AnyArg(), model.TicketStatusActive,
			`{"issued_via":"api","issuer_id":2,"payment_id":"pi_42","payment_method":"stripe"}`).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectExec("UPDATE events SET sold_tickets = sold_tickets").
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec("SET attended_events = JSON_ARRAY_APPEND").
		WithArgs(uint64(5), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets",
		`{"event_id":5,"payment_method":"stripe","payment_id":"pi_42"}`, 1)

	require.NoError(t, h.Purchase(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchase_EventNotOnSale(t *testing.T) {
	h, mock := newTicketHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM events WHERE id=.+FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(eventRow(model.Event{ID: 5, Status: model.EventStatusDraft}))
	mock.ExpectRollback()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets",
		`{"event_id":5,"payment_method":"free"}`, 1)

	require.NoError(t, h.Purchase(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not on sale")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchase_SoldOut(t *testing.T) {
	h, mock := newTicketHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM events WHERE id=.+FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(eventRow(model.Event{
			ID: 5, Status: model.EventStatusPublished,
			TotalTickets: 50, SoldTickets: 50,
		}))
	mock.ExpectRollback()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets",
		`{"event_id":5,"payment_method":"stripe"}`, 1)

	require.NoError(t, h.Purchase(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "sold out")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchase_QuotaReached(t *testing.T) {
	h, mock := newTicketHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM events WHERE id=.+FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(eventRow(model.Event{
			ID: 5, Status: model.EventStatusPublished,
			TotalTickets: 100, SoldTickets: 10, MaxTicketsPerUser: 2,
		}))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(uint64(1), uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectRollback()

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets",
		`{"event_id":5,"payment_method":"stripe"}`, 1)

	require.NoError(t, h.Purchase(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "limit reached")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchase_RejectsUnknownPaymentMethod(t *testing.T) {
	h, _ := newTicketHandler(t)

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets",
		`{"event_id":5,"payment_method":"barter"}`, 1)

	require.NoError(t, h.Purchase(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckIn_OnlyOrganiser(t *testing.T) {
	h, mock := newTicketHandler(t)

	mock.ExpectQuery("SELECT .+ FROM tickets WHERE id=").
		WithArgs(uint64(77)).
		WillReturnRows(ticketRow(77, 5, 1, model.TicketStatusActive))
	mock.ExpectQuery("SELECT .+ FROM events WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(eventRow(model.Event{ID: 5, OrganiserID: 2, Status: model.EventStatusPublished}))

	// uid 3 is neither the organiser nor matters as the holder
	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets/77/checkin", "", 3)
	c.SetParamNames("id")
	c.SetParamValues("77")

	require.NoError(t, h.CheckIn(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckIn_SecondUseConflicts(t *testing.T) {
	h, mock := newTicketHandler(t)

	mock.ExpectQuery("SELECT .+ FROM tickets WHERE id=").
		WithArgs(uint64(77)).
		WillReturnRows(ticketRow(77, 5, 1, model.TicketStatusUsed))
	mock.ExpectQuery("SELECT .+ FROM events WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(eventRow(model.Event{ID: 5, OrganiserID: 2, Status: model.EventStatusPublished}))
	mock.ExpectExec("UPDATE tickets SET status=").
		WithArgs(model.TicketStatusUsed, uint64(77), model.TicketStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := newTestContext(t, http.MethodPost, "/v1/tickets/77/checkin", "", 2)
	c.SetParamNames("id")
	c.SetParamValues("77")

	require.NoError(t, h.CheckIn(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already used")
	assert.NoError(t, mock.ExpectationsWereMet())
}
