package model

import "time"

// EventLike is a presence row in the `event_likes` join table. The
// existence of the row encodes "user likes event"; toggling off hard
// deletes it. A composite unique key on (event_id, user_id) makes
// concurrent double-toggles collapse into a single row.
type EventLike struct {
	EventID   uint64    // event_likes.event_id
	UserID    uint64    // event_likes.user_id
	CreatedAt time.Time // event_likes.created_at
}

// SavedEvent is the bookmark counterpart of EventLike, stored in the
// `saved_events` join table under the same uniqueness rules.
type SavedEvent struct {
	EventID   uint64    // saved_events.event_id
	UserID    uint64    // saved_events.user_id
	CreatedAt time.Time // saved_events.created_at
}
