package repository

import (
	"context"
	"database/sql"

	"github.com/rovify/rovify-api/internal/model"
)

// TransactionRepo persists financial transaction rows. Purchase rows
// are only ever written inside the ticket purchase transaction so a
// ticket and its transaction commit or roll back together.
type TransactionRepo struct{ db *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// CreateTx inserts a transaction row within an existing database
// transaction and populates the generated ID.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (user_id, ticket_id, event_id, type, amount,
		 currency, payment_method, payment_id, status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		t.UserID, t.TicketID, t.EventID, t.Type, t.Amount.String(),
		t.Currency, t.PaymentMethod, t.PaymentID, t.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}
