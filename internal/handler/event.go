package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/rovify/rovify-api/internal/model"
	"github.com/rovify/rovify-api/internal/monitoring"
	"github.com/rovify/rovify-api/internal/repository"
)

// EventHandler implements event CRUD with ownership and lifecycle
// guards. All methods assume JWT middleware ran for protected routes.
type EventHandler struct {
	Events     *repository.EventRepo
	Users      *repository.UserRepo
	Engagement *repository.EngagementRepo
}

func NewEventHandler(events *repository.EventRepo, users *repository.UserRepo, engagement *repository.EngagementRepo) *EventHandler {
	if events == nil || users == nil || engagement == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Users: users, Engagement: engagement}
}

// ----- DTOs -----

type locationDTO struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type priceDTO struct {
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Currency string          `json:"currency"`
}

type createEventReq struct {
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Date              string       `json:"date"`     // ISO-8601
	EndDate           *string      `json:"end_date"` // ISO-8601
	Location          *locationDTO `json:"location"`
	Category          string       `json:"category"`
	Subcategory       *string      `json:"subcategory"`
	Tags              []string     `json:"tags"`
	Price             *priceDTO    `json:"price"`
	HasNFTTickets     bool         `json:"has_nft_tickets"`
	TotalTickets      *uint32      `json:"total_tickets"`
	MaxTicketsPerUser *uint32      `json:"max_tickets_per_user"`
	ImageURL          *string      `json:"image_url"`
}

type updateEventReq struct {
	Title             *string      `json:"title"`
	Description       *string      `json:"description"`
	Date              *string      `json:"date"`
	EndDate           *string      `json:"end_date"`
	Location          *locationDTO `json:"location"`
	Category          *string      `json:"category"`
	Subcategory       *string      `json:"subcategory"`
	Tags              []string     `json:"tags"`
	Price             *priceDTO    `json:"price"`
	HasNFTTickets     *bool        `json:"has_nft_tickets"`
	TotalTickets      *uint32      `json:"total_tickets"`
	MaxTicketsPerUser *uint32      `json:"max_tickets_per_user"`
	Status            *string      `json:"status"`
	ImageURL          *string      `json:"image_url"`
}

type eventResp struct {
	ID                uint64      `json:"id"`
	OrganiserID       uint64      `json:"organiser_id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Date              time.Time   `json:"date"`
	EndDate           *time.Time  `json:"end_date,omitempty"`
	Location          locationDTO `json:"location"`
	Category          string      `json:"category"`
	Subcategory       *string     `json:"subcategory,omitempty"`
	Tags              []string    `json:"tags"`
	Price             priceDTO    `json:"price"`
	HasNFTTickets     bool        `json:"has_nft_tickets"`
	TotalTickets      uint32      `json:"total_tickets"`
	SoldTickets       uint32      `json:"sold_tickets"`
	Views             uint64      `json:"views"`
	Likes             uint64      `json:"likes"`
	MaxTicketsPerUser uint32      `json:"max_tickets_per_user"`
	Status            string      `json:"status"`
	ImageURL          *string     `json:"image_url,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

func toEventResp(e model.Event) eventResp {
	tags := []string{}
	if len(e.Tags) > 0 {
		_ = json.Unmarshal(e.Tags, &tags)
	}
	return eventResp{
		ID:          e.ID,
		OrganiserID: e.OrganiserID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date,
		EndDate:     e.EndDate,
		Location: locationDTO{
			Name:      e.VenueName,
			Address:   e.VenueAddress,
			City:      e.VenueCity,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
		},
		Category:          e.Category,
		Subcategory:       e.Subcategory,
		Tags:              tags,
		Price:             priceDTO{Min: e.PriceMin, Max: e.PriceMax, Currency: e.Currency},
		HasNFTTickets:     e.HasNFTTickets,
		TotalTickets:      e.TotalTickets,
		SoldTickets:       e.SoldTickets,
		Views:             e.Views,
		Likes:             e.Likes,
		MaxTicketsPerUser: e.MaxTicketsPerUser,
		Status:            e.Status,
		ImageURL:          e.ImageURL,
		CreatedAt:         e.CreatedAt,
	}
}

// knownCategories are the category slugs accepted on create/update.
var knownCategories = map[string]bool{
	"music": true, "nightlife": true, "art": true, "sports": true,
	"tech": true, "food": true, "wellness": true, "community": true,
	"business": true, "other": true,
}

// validatePrice checks a price range block.
func validatePrice(p *priceDTO) string {
	if p == nil {
		return ""
	}
	if p.Min.IsNegative() || p.Max.IsNegative() {
		return "price must not be negative"
	}
	if p.Max.LessThan(p.Min) {
		return "price max must be >= price min"
	}
	if len(p.Currency) != 3 {
		return "currency must be a 3-letter code"
	}
	return ""
}

// List handles GET /v1/events: paginated, filtered public listing.
// Draft events are only visible to their organiser filtering on
// their own organiser_id.
func (h *EventHandler) List(c echo.Context) error {
	f := repository.ListFilter{
		Category: strings.TrimSpace(c.QueryParam("category")),
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Status:   model.EventStatusPublished,
		Limit:    20,
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > 100 {
				n = 100
			}
			f.Limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Offset = n
		}
	}
	if v := c.QueryParam("organiser_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.OrganiserID = n
		}
	}
	if v := c.QueryParam("has_nft_tickets"); v != "" {
		b := v == "true" || v == "1"
		f.HasNFTTickets = &b
	}
	if v := strings.TrimSpace(c.QueryParam("status")); v != "" && model.ValidEventStatus(v) {
		// Non-published listings are restricted to the organiser's own
		// events: the filter silently stays on published unless the
		// caller is asking about themselves.
		if v == model.EventStatusPublished {
			f.Status = v
		} else if uid, err := getUserID(c); err == nil && uid != 0 && uid == f.OrganiserID {
			f.Status = v
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	events, err := h.Events.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"events": out,
		"limit":  f.Limit,
		"offset": f.Offset,
	})
}

// Create handles POST /v1/events. New events are always forced into
// draft status regardless of client input, and the organiser's
// created_events array is appended atomically.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be ISO-8601"})
	}
	var endDate *time.Time
	if req.EndDate != nil {
		t, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be ISO-8601"})
		}
		if t.Before(date) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be after date"})
		}
		endDate = &t
	}
	if req.Category == "" || !knownCategories[req.Category] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
	}
	if msg := validatePrice(req.Price); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	e := model.Event{
		OrganiserID:   uid,
		Title:         req.Title,
		Description:   req.Description,
		Date:          date,
		EndDate:       endDate,
		Category:      req.Category,
		Subcategory:   req.Subcategory,
		HasNFTTickets: req.HasNFTTickets,
		Currency:      "USD",
		ImageURL:      req.ImageURL,
	}
	if req.Location != nil {
		e.VenueName = req.Location.Name
		e.VenueAddress = req.Location.Address
		e.VenueCity = req.Location.City
		e.Latitude = req.Location.Latitude
		e.Longitude = req.Location.Longitude
	}
	if req.Price != nil {
		e.PriceMin = req.Price.Min
		e.PriceMax = req.Price.Max
		e.Currency = strings.ToUpper(req.Price.Currency)
	}
	if req.TotalTickets != nil {
		e.TotalTickets = *req.TotalTickets
	}
	if req.MaxTicketsPerUser != nil {
		e.MaxTicketsPerUser = *req.MaxTicketsPerUser
	}
	if len(req.Tags) > 0 {
		if b, err := json.Marshal(req.Tags); err == nil {
			e.Tags = b
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	id, err := h.Events.Create(ctx, &e)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	if err := h.Users.AppendCreatedEvent(ctx, uid, id); err != nil {
		// The event row exists; losing the array append is logged by
		// the repository caller but does not fail the request.
		c.Logger().Warnf("append created_events failed for user %d event %d: %v", uid, id, err)
	}

	created, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(created))
}

// Get handles GET /v1/events/:id. The view counter is bumped with an
// atomic relative update, never read-modify-write.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if err := h.Events.IncrementViews(ctx, id); err == nil {
		monitoring.EventViewed()
		e.Views++
	}

	organiser, err := h.Users.GetPublicProfile(ctx, e.OrganiserID)
	if err != nil && err != repository.ErrNotFound {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load organiser failed"})
	}
	resp := echo.Map{
		"event":     toEventResp(e),
		"organiser": organiser,
	}
	// Signed-in viewers also get their own engagement state.
	if uid, err := getUserID(c); err == nil && uid != 0 {
		liked, lerr := h.Engagement.IsLiked(ctx, id, uid)
		saved, serr := h.Engagement.IsSaved(ctx, id, uid)
		if lerr == nil && serr == nil {
			resp["engagement"] = echo.Map{"liked": liked, "saved": saved}
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Update handles PUT /v1/events/:id: owner-only partial patch with
// lifecycle rules.
func (h *EventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req updateEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	existing, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if existing.OrganiserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the organiser may modify this event"})
	}

	patch := repository.EventPatch{
		Description:       req.Description,
		Subcategory:       req.Subcategory,
		HasNFTTickets:     req.HasNFTTickets,
		MaxTicketsPerUser: req.MaxTicketsPerUser,
		ImageURL:          req.ImageURL,
	}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must not be empty"})
		}
		patch.Title = &t
	}
	if req.Date != nil {
		t, err := time.Parse(time.RFC3339, *req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be ISO-8601"})
		}
		patch.Date = &t
	}
	if req.EndDate != nil {
		t, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be ISO-8601"})
		}
		patch.EndDate = &t
	}
	if req.Category != nil {
		if !knownCategories[*req.Category] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
		}
		patch.Category = req.Category
	}
	if req.Location != nil {
		patch.VenueName = &req.Location.Name
		patch.VenueAddress = &req.Location.Address
		patch.VenueCity = &req.Location.City
		patch.Latitude = req.Location.Latitude
		patch.Longitude = req.Location.Longitude
	}
	if req.Price != nil {
		if msg := validatePrice(req.Price); msg != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
		}
		cur := strings.ToUpper(req.Price.Currency)
		patch.PriceMin = &req.Price.Min
		patch.PriceMax = &req.Price.Max
		patch.Currency = &cur
	}
	if req.TotalTickets != nil {
		if *req.TotalTickets != 0 && *req.TotalTickets < existing.SoldTickets {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_tickets cannot drop below sold_tickets"})
		}
		patch.TotalTickets = req.TotalTickets
	}
	if req.Status != nil {
		if !model.ValidEventStatus(*req.Status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		if !model.ValidStatusTransition(existing.Status, *req.Status) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
		}
		patch.Status = req.Status
	}
	if len(req.Tags) > 0 {
		if b, err := json.Marshal(req.Tags); err == nil {
			patch.Tags = b
		}
	}

	if err := h.Events.Update(ctx, id, patch); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
	updated, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(updated))
}

// Delete handles DELETE /v1/events/:id: owner-only, and always
// rejected once tickets are sold — holders must not lose their event.
func (h *EventHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	existing, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if existing.OrganiserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the organiser may delete this event"})
	}
	if existing.SoldTickets > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event has sold tickets and cannot be deleted"})
	}
	if err := h.Events.Delete(ctx, id); err != nil {
		if err == repository.ErrConflict {
			// A purchase landed between the read and the delete.
			return c.JSON(http.StatusConflict, echo.Map{"error": "event has sold tickets and cannot be deleted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
