// Package repository defines the data access layer and the sentinel
// errors reused across repositories. The sentinels let handlers map
// failure scenarios onto HTTP statuses without inspecting SQL errors:
// ErrForbidden becomes 403, ErrNotFound 404, ErrConflict and the more
// specific conflict variants 409.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as deleting an event that has sold tickets.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when an insert would violate the unique
// email constraint on users.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when a profile update requests a
// username already held by a different user.
var ErrUsernameExists = errors.New("username already exists")

// ErrWalletExists is returned when an insert would violate the unique
// wallet_address constraint on users.
var ErrWalletExists = errors.New("wallet address already exists")

// ErrEventNotSellable is returned when a purchase targets an event
// whose status is not published.
var ErrEventNotSellable = errors.New("event is not on sale")

// ErrSoldOut is returned when a purchase would exceed the event's
// finite capacity.
var ErrSoldOut = errors.New("event is sold out")

// ErrQuotaExceeded is returned when a purchase would exceed the
// per-user ticket cap for an event.
var ErrQuotaExceeded = errors.New("per-user ticket limit reached")

// ErrNonceInvalid is returned when a wallet login nonce is unknown,
// expired, already used, or bound to a different address.
var ErrNonceInvalid = errors.New("invalid or expired nonce")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (error number 1062).
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "1062") || strings.Contains(s, "duplicate entry")
}
