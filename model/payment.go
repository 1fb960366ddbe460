package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	PaymentID  string          `json:"paymentId"`
	IntentID   string          `json:"intentId"`
	Purpose    PaymentType     `json:"purpose"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	PayerID    string          `json:"payerId"`
	ReceiverID string          `json:"receiverId"`
	TicketID   string          `json:"ticketId"`
	Status     PaymentStatus   `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}
