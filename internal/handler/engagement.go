package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rovify/rovify-api/internal/repository"
)

// EngagementHandler implements the like and save toggles. Each toggle
// runs in a transaction so the join row and the like counter move
// together; the unique key on (event_id, user_id) resolves races
// between concurrent identical toggles.
type EngagementHandler struct {
	Events     *repository.EventRepo
	Engagement *repository.EngagementRepo
}

func NewEngagementHandler(events *repository.EventRepo, engagement *repository.EngagementRepo) *EngagementHandler {
	if events == nil || engagement == nil {
		panic("nil repository passed to NewEngagementHandler")
	}
	return &EngagementHandler{Events: events, Engagement: engagement}
}

// ToggleLike handles POST /v1/events/:id/like.
func (h *EngagementHandler) ToggleLike(c echo.Context) error {
	return h.toggle(c, true)
}

// ToggleSave handles POST /v1/events/:id/save.
func (h *EngagementHandler) ToggleSave(c echo.Context) error {
	return h.toggle(c, false)
}

func (h *EngagementHandler) toggle(c echo.Context, like bool) error {
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

	if _, err := h.Events.GetByID(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}

	tx, err := h.Engagement.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var on bool
	if like {
		on, err = h.Engagement.ToggleLikeTx(ctx, tx, id, uid)
		if err == nil {
			delta := -1
			if on {
				delta = 1
			}
			err = h.Events.AdjustLikesTx(ctx, tx, id, delta)
		}
	} else {
		on, err = h.Engagement.ToggleSaveTx(ctx, tx, id, uid)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "toggle failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "toggle failed"})
	}
	committed = true

	if like {
		resp := echo.Map{"liked": on}
		// Authoritative count from the join table rather than the
		// denormalized events.likes counter.
		if n, err := h.Engagement.CountLikes(ctx, id); err == nil {
			resp["likes"] = n
		}
		return c.JSON(http.StatusOK, resp)
	}
	return c.JSON(http.StatusOK, echo.Map{"saved": on})
}
