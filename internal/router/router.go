package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rovify/rovify-api/internal/handler"
	"github.com/rovify/rovify-api/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication and
// no application state: the health check used by load balancers and
// the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth wires the authentication surface. Credential,
// Google OAuth and wallet-signature logins all live under /v1/auth
// and require no session; /v1/me sits behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/oauth/google", a.OAuthGoogle)
	// Wallet login is a two-step challenge: fetch a nonce, then prove
	// ownership by signing the canonical message containing it.
	g.POST("/wallet/nonce", a.WalletNonce)
	g.POST("/wallet/verify", a.WalletVerify)
	// /refresh rotates the refresh token; /refresh-access only mints a
	// new access token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a bearer access token (revokes every
	// session of the user) or a refresh_token body (revokes that one).
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterEvents wires event discovery and management. Browsing is
// public but runs behind optional auth: a valid Bearer token lets the
// listing show an organiser their own drafts and the detail view
// include the caller's like/save state, while anonymous requests pass
// straight through. Creation, mutation and engagement toggles require
// a session. The optional cache middleware is applied to the listing
// route only, where short staleness is acceptable.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, eng *handler.EngagementHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	list := []echo.MiddlewareFunc{middleware.OptionalJWTAuth(jwtSecret)}
	if cache != nil {
		list = append(list, cache)
	}
	e.GET("/v1/events", h.List, list...)
	e.GET("/v1/events/:id", h.Get, middleware.OptionalJWTAuth(jwtSecret))

	g := e.Group("/v1/events", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/like", eng.ToggleLike)
	g.POST("/:id/save", eng.ToggleSave)
}

// RegisterTickets wires the ticketing endpoints. Every route requires
// a session: owners list and purchase their own tickets, organisers
// check attendees in.
func RegisterTickets(e *echo.Echo, h *handler.TicketHandler, jwtSecret string) {
	g := e.Group("/v1/tickets", middleware.JWTAuth(jwtSecret))
	g.GET("", h.List)
	g.POST("", h.Purchase)
	g.POST("/:id/checkin", h.CheckIn)
}

// RegisterUsers wires the user profile endpoints. Profiles are public
// to read (sanitized) and owner-only to update.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, jwtSecret string) {
	e.GET("/v1/users/:id", h.Get)

	g := e.Group("/v1/users", middleware.JWTAuth(jwtSecret))
	g.PUT("/:id", h.Update)
}
