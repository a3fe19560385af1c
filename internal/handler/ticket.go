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
	"github.com/rovify/rovify-api/internal/queue"
	"github.com/rovify/rovify-api/internal/repository"
	queuepublisher "github.com/rovify/rovify-api/internal/service"
	"github.com/rovify/rovify-api/internal/utils"
)

// TicketHandler implements ticket listing, purchase and check-in.
// The purchase runs as a single database transaction: event row lock,
// eligibility checks, ticket insert, guarded counter increment,
// transaction insert and attended_events append all commit or roll
// back together, so a failure can never leave an orphan ticket.
type TicketHandler struct {
	Events       *repository.EventRepo
	Tickets      *repository.TicketRepo
	Transactions *repository.TransactionRepo
	Users        *repository.UserRepo
}

func NewTicketHandler(events *repository.EventRepo, tickets *repository.TicketRepo, transactions *repository.TransactionRepo, users *repository.UserRepo) *TicketHandler {
	if events == nil || tickets == nil || transactions == nil || users == nil {
		panic("nil repository passed to NewTicketHandler")
	}
	return &TicketHandler{Events: events, Tickets: tickets, Transactions: transactions, Users: users}
}

// ----- DTOs -----

type seatInfoDTO struct {
	Section *string `json:"section"`
	Row     *string `json:"row"`
	Number  *string `json:"number"`
}

type purchaseReq struct {
	EventID       uint64       `json:"event_id"`
	Type          string       `json:"type"`
	TierName      *string      `json:"tier_name"`
	PaymentMethod string       `json:"payment_method"`
	PaymentID     *string      `json:"payment_id"`
	Seat          *seatInfoDTO `json:"seat"`
}

type ticketResp struct {
	ID               uint64          `json:"id"`
	EventID          uint64          `json:"event_id"`
	Type             string          `json:"type"`
	TierName         *string         `json:"tier_name,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	IsNFT            bool            `json:"is_nft"`
	VerificationCode string          `json:"verification_code"`
	Status           string          `json:"status"`
}

// List handles GET /v1/tickets: the caller's tickets with joined
// event and organiser data.
func (h *TicketHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := strings.TrimSpace(c.QueryParam("status"))
	var eventID uint64
	if v := c.QueryParam("event_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			eventID = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	tickets, err := h.Tickets.ListByOwner(ctx, uid, status, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tickets failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// Purchase handles POST /v1/tickets.
func (h *TicketHandler) Purchase(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id is required"})
	}
	if !model.ValidPaymentMethod(req.PaymentMethod) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_method must be stripe, crypto or free"})
	}
	if strings.TrimSpace(req.Type) == "" {
		req.Type = "general"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	started := time.Now()
	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// The row lock serializes concurrent purchases of the same event,
	// so the capacity and quota checks below see committed truth.
	event, err := h.Events.GetByIDForUpdateTx(ctx, tx, req.EventID)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if event.Status != model.EventStatusPublished {
		monitoring.PurchaseRejected("not_sellable")
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is not on sale"})
	}
	if event.TotalTickets > 0 && event.SoldTickets >= event.TotalTickets {
		monitoring.PurchaseRejected("sold_out")
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is sold out"})
	}

	held, err := h.Tickets.CountForUserEventTx(ctx, tx, uid, req.EventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "quota check failed"})
	}
	if held >= event.PerUserLimit() {
		monitoring.PurchaseRejected("quota")
		return c.JSON(http.StatusConflict, echo.Map{"error": "per-user ticket limit reached"})
	}

	code, err := utils.GenerateVerificationCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue ticket failed"})
	}

	// Price snapshot: the event's minimum advertised price. Free
	// purchases force a zero amount regardless of the range.
	price := event.PriceMin
	if req.PaymentMethod == model.PaymentMethodFree {
		price = decimal.Zero
	}

	metaFields := map[string]interface{}{
		"issued_via":     "api",
		"payment_method": req.PaymentMethod,
		"issuer_id":      event.OrganiserID,
	}
	if req.PaymentID != nil && *req.PaymentID != "" {
		metaFields["payment_id"] = *req.PaymentID
	}
	meta, _ := json.Marshal(metaFields)

	ticket := model.Ticket{
		EventID:          req.EventID,
		OwnerID:          uid,
		Type:             req.Type,
		TierName:         req.TierName,
		Price:            price,
		Currency:         event.Currency,
		IsNFT:            event.HasNFTTickets,
		VerificationCode: code,
		Status:           model.TicketStatusActive,
		Metadata:         meta,
	}
	if req.Seat != nil {
		ticket.SeatSection = req.Seat.Section
		ticket.SeatRow = req.Seat.Row
		ticket.SeatNumber = req.Seat.Number
	}
	if err := h.Tickets.CreateTx(ctx, tx, &ticket); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue ticket failed"})
	}

	if err := h.Events.IncrementSoldTx(ctx, tx, req.EventID); err != nil {
		if err == repository.ErrSoldOut {
			monitoring.PurchaseRejected("sold_out")
			return c.JSON(http.StatusConflict, echo.Map{"error": "event is sold out"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update counters failed"})
	}

	txn := model.Transaction{
		UserID:        uid,
		TicketID:      &ticket.ID,
		EventID:       req.EventID,
		Type:          model.TxTypePurchase,
		Amount:        price,
		Currency:      event.Currency,
		PaymentMethod: req.PaymentMethod,
		PaymentID:     req.PaymentID,
		Status:        model.TxStatusCompleted,
	}
	if err := h.Transactions.CreateTx(ctx, tx, &txn); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record transaction failed"})
	}

	if err := h.Users.AppendAttendedEventTx(ctx, tx, uid, req.EventID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "purchase failed"})
	}
	committed = true
	monitoring.TicketIssued(req.PaymentMethod)
	monitoring.ObservePurchase(time.Since(started).Seconds())

	// Broker publication is best-effort after commit; the purchase is
	// already durable.
	go func() {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		_ = queuepublisher.PublishTicketIssued(pubCtx, queue.TicketIssuedEvent{
			TicketID:         ticket.ID,
			EventID:          event.ID,
			EventTitle:       event.Title,
			OwnerID:          uid,
			OrganiserID:      event.OrganiserID,
			Price:            price.String(),
			Currency:         event.Currency,
			PaymentMethod:    req.PaymentMethod,
			VerificationCode: ticket.VerificationCode,
			IssuedAt:         time.Now().UTC().Format(time.RFC3339),
		})
	}()

	return c.JSON(http.StatusCreated, echo.Map{
		"ticket": ticketResp{
			ID:               ticket.ID,
			EventID:          ticket.EventID,
			Type:             ticket.Type,
			TierName:         ticket.TierName,
			Price:            ticket.Price,
			Currency:         ticket.Currency,
			IsNFT:            ticket.IsNFT,
			VerificationCode: ticket.VerificationCode,
			Status:           ticket.Status,
		},
		"transaction_id": txn.ID,
	})
}

// CheckIn handles POST /v1/tickets/:id/checkin. Only the organiser of
// the ticket's event may check a ticket in, and a ticket can be used
// exactly once.
func (h *TicketHandler) CheckIn(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	ticket, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket failed"})
	}
	event, err := h.Events.GetByID(ctx, ticket.EventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	if event.OrganiserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the organiser may check tickets in"})
	}
	if err := h.Tickets.MarkUsed(ctx, id); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already used"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.TicketStatusUsed})
}
