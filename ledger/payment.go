package ledger

import (
	"context"
	"eventers-ticketing-backend/model"
	"fmt"
)

const paymentTable = "payments"

var paymentCols = []string{"payment_id", "intent_id", "purpose", "amount", "currency", "payer_id", "receiver_id", "ticket_id", "status", "created_at"}

// CreatePayment records the intent opened for a purchase.
func (l *Ledger) CreatePayment(ctx context.Context, p *model.Payment) error {
	if p.Currency == "" {
		p.Currency = l.currency
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("createPayment: error begining db transaction: %w", err)
	}

	err = insert(ctx, tx, paymentTable, paymentCols, []interface{}{
		p.PaymentID, p.IntentID, p.Purpose, p.Amount, p.Currency, p.PayerID, p.ReceiverID, p.TicketID, p.Status, p.CreatedAt,
	})
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("createPayment: intent %s: %w", p.IntentID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("createPayment: could not commit intent %s: %w", p.IntentID, err)
	}
	return nil
}
