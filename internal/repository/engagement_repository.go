package repository

import (
	"context"
	"database/sql"
)

// EngagementRepo implements the like and save toggles over their
// join tables. A toggle runs delete-first inside a transaction: when
// the delete hits a row the state flips to off; when it hits nothing
// an insert flips it to on. The composite unique key on
// (event_id, user_id) means two racing toggle-ons collapse into one
// row instead of duplicating.
type EngagementRepo struct{ db *sql.DB }

func NewEngagementRepo(db *sql.DB) *EngagementRepo { return &EngagementRepo{db: db} }

// DB exposes the underlying handle for handler-owned transactions.
func (r *EngagementRepo) DB() *sql.DB { return r.db }

// ToggleLikeTx flips the like state for (eventID, userID) and returns
// the new state. The caller keeps the events.likes counter in step
// via EventRepo.AdjustLikesTx in the same transaction.
func (r *EngagementRepo) ToggleLikeTx(ctx context.Context, tx *sql.Tx, eventID, userID uint64) (bool, error) {
	return toggleTx(ctx, tx, "event_likes", eventID, userID)
}

// ToggleSaveTx flips the saved state for (eventID, userID) and
// returns the new state.
func (r *EngagementRepo) ToggleSaveTx(ctx context.Context, tx *sql.Tx, eventID, userID uint64) (bool, error) {
	return toggleTx(ctx, tx, "saved_events", eventID, userID)
}

// CountLikes returns the number of like rows for an event.
func (r *EngagementRepo) CountLikes(ctx context.Context, eventID uint64) (uint64, error) {
	var n uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_likes WHERE event_id=?", eventID).Scan(&n)
	return n, err
}

// IsLiked reports whether the user currently likes the event.
func (r *EngagementRepo) IsLiked(ctx context.Context, eventID, userID uint64) (bool, error) {
	return existsRow(ctx, r.db, "event_likes", eventID, userID)
}

// IsSaved reports whether the user currently has the event saved.
func (r *EngagementRepo) IsSaved(ctx context.Context, eventID, userID uint64) (bool, error) {
	return existsRow(ctx, r.db, "saved_events", eventID, userID)
}

func toggleTx(ctx context.Context, tx *sql.Tx, table string, eventID, userID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE event_id=? AND user_id=?", eventID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+table+" (event_id, user_id) VALUES (?,?)", eventID, userID); err != nil {
		// A concurrent toggle-on that won the unique key leaves the
		// desired state in place; report it as on.
		if isDuplicateKey(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func existsRow(ctx context.Context, db *sql.DB, table string, eventID, userID uint64) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		"SELECT 1 FROM "+table+" WHERE event_id=? AND user_id=? LIMIT 1", eventID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
