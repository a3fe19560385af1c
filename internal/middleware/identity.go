package middleware

// identity.go provides the user identifier extraction shared by the
// rate-limit and cache middleware. It reads the user_id the JWT
// middleware placed in the context; unauthenticated requests key as
// "anon".

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the request's user id as a string, or "anon"
// when the request carries no authenticated identity. JWT numeric
// claims arrive as float64, so values are formatted rather than
// type-asserted to string.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	case uint64, int64, int:
		return fmt.Sprint(t)
	}
	return "anon"
}
