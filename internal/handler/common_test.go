package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/rovify/rovify-api/internal/model"
)

// newTestContext builds an echo context carrying a JSON body and an
// authenticated user id, the way requests arrive behind the JWT
// middleware.
func newTestContext(t *testing.T, method, target, body string, uid uint64) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != 0 {
		c.Set("user_id", float64(uid)) // numeric JWT claims decode as float64
	}
	return c, rec
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var eventTestColumns = []string{
	"id", "organiser_id", "title", "description", "date", "end_date",
	"venue_name", "venue_address", "venue_city", "latitude", "longitude",
	"category", "subcategory", "tags", "price_min", "price_max", "currency",
	"has_nft_tickets", "total_tickets", "sold_tickets", "views", "likes",
	"max_tickets_per_user", "status", "image_url", "created_at", "updated_at",
}

// eventRow returns a single-row result for the event columns, shaped
// like the repository's scan order.
func eventRow(e model.Event) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(eventTestColumns).AddRow(
		e.ID, e.OrganiserID, e.Title, e.Description, now, nil,
		e.VenueName, e.VenueAddress, e.VenueCity, nil, nil,
		e.Category, nil, nil, "25.00", "75.00", "USD",
		e.HasNFTTickets, e.TotalTickets, e.SoldTickets, e.Views, e.Likes,
		e.MaxTicketsPerUser, e.Status, nil, now, now,
	)
}

var userTestColumns = []string{
	"id", "email", "password_hash", "username", "display_name", "image_url", "bio",
	"auth_method", "wallet_address", "base_name", "email_verified", "is_active",
	"last_login_at", "created_at", "updated_at",
}

// userRow returns a single-row result matching the user scan order.
// Nullable columns default to NULL unless set on the model.
func userRow(u model.User) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userTestColumns).AddRow(
		u.ID, strOrNil(u.Email), strOrNil(u.PasswordHash), strOrNil(u.Username),
		u.DisplayName, strOrNil(u.ImageURL), strOrNil(u.Bio),
		u.AuthMethod, strOrNil(u.WalletAddress), strOrNil(u.BaseName),
		u.EmailVerified, true, nil, now, now,
	)
}

// strOrNil flattens a nullable string into a driver value.
func strOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func ptr[T any](v T) *T { return &v }

func testTime() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
