package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// NonceRepo persists single-use wallet login challenges. A nonce is
// issued for one address with a short TTL and consumed exactly once;
// the consume step is a single guarded UPDATE so two concurrent
// verifications of the same nonce can never both succeed.
type NonceRepo struct{ DB *sql.DB }

func NewNonceRepo(db *sql.DB) *NonceRepo { return &NonceRepo{DB: db} }

// Create stores a freshly issued nonce for an address.
func (r *NonceRepo) Create(ctx context.Context, nonce, address string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO wallet_nonces (nonce, address, expires_at) VALUES (?,?,?)",
		nonce, strings.ToLower(address), exp)
	return err
}

// Consume marks the nonce used if and only if it is known, bound to
// the given address, unexpired and not yet used. ErrNonceInvalid is
// returned otherwise, including on replay of an already-used nonce.
func (r *NonceRepo) Consume(ctx context.Context, nonce, address string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE wallet_nonces SET used_at=NOW()
		 WHERE nonce=? AND address=? AND used_at IS NULL AND expires_at > NOW()`,
		nonce, strings.ToLower(address))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNonceInvalid
	}
	return nil
}

// PurgeExpired deletes challenges that expired before the cutoff. It
// is called periodically from the server loop to keep the table small.
func (r *NonceRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM wallet_nonces WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
