package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rovify/rovify-api/internal/repository"
)

// UserHandler implements public profile reads and self-only profile
// updates.
type UserHandler struct {
	Users  *repository.UserRepo
	Events *repository.EventRepo
}

func NewUserHandler(users *repository.UserRepo, events *repository.EventRepo) *UserHandler {
	if users == nil || events == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Users: users, Events: events}
}

type updateProfileReq struct {
	DisplayName *string         `json:"display_name"`
	Username    *string         `json:"username"`
	Bio         *string         `json:"bio"`
	ImageURL    *string         `json:"image_url"`
	Preferences json.RawMessage `json:"preferences"`
}

// Get handles GET /v1/users/:id: the public projection plus the
// user's published events. Email and wallet address never appear.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	profile, err := h.Users.GetPublicProfile(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	events, err := h.Events.ListPublishedByOrganiser(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load events failed"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":   profile,
		"events": out,
	})
}

// Update handles PUT /v1/users/:id: self-only partial profile patch.
// Requesting a username held by another user is a 409; re-submitting
// one's own current username succeeds.
func (h *UserHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if id != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "you may only update your own profile"})
	}

	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch := repository.ProfilePatch{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		ImageURL:    req.ImageURL,
	}
	if req.Username != nil {
		name := strings.ToLower(strings.TrimSpace(*req.Username))
		if len(name) < 3 || len(name) > 32 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username must be 3-32 characters"})
		}
		patch.Username = &name
	}
	if len(req.Preferences) > 0 {
		if !json.Valid(req.Preferences) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "preferences must be valid JSON"})
		}
		patch.Preferences = req.Preferences
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, uid, patch); err != nil {
		switch err {
		case repository.ErrUsernameExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
		case repository.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update profile failed"})
	}
	profile, err := h.Users.GetPublicProfile(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": profile})
}
