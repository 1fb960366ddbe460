package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type TicketSelection struct {
	ClientID       string         `json:"clientId"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	EventID        string         `json:"eventId"`
	TicketVariants map[string]int `json:"ticketVariants"`
}

type CreateTicketRequest struct {
	Ticket          TicketSelection `json:"ticket"`
	TotalCount      int             `json:"totalCount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaymentIntentID string          `json:"paymentIntentId"`
	VendorID        string          `json:"vendorId"`
}

type ConfirmTicketRequest struct {
	Ticket        *Ticket   `json:"ticket"`
	PaymentIntent IntentRef `json:"paymentIntent"`
	VendorID      string    `json:"vendorId"`
}

type CancelTicketRequest struct {
	TicketID string `json:"ticketId"`
}

// VerifyTicketRequest carries the scanned credential id as ticketId.
type VerifyTicketRequest struct {
	TicketID string `json:"ticketId"`
	EventID  string `json:"eventId"`
}

// IntentRef accepts either a bare payment intent id or the gateway's intent
// object, of which only the id is used.
type IntentRef string

func (r *IntentRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = IntentRef(s)
		return nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("intentRef: expected string or object with id: %w", err)
	}
	*r = IntentRef(obj.ID)
	return nil
}

type TicketSummary struct {
	TicketID    string              `json:"ticketId"`
	EventID     string              `json:"eventId"`
	TicketCount int                 `json:"ticketCount"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	Variants    map[VariantType]int `json:"variants"`
}

type CancelSummary struct {
	TicketID     string          `json:"ticketId"`
	TicketStatus TicketStatus    `json:"ticketStatus"`
	ClientRefund decimal.Decimal `json:"clientRefund"`
	VendorDebit  decimal.Decimal `json:"vendorDebit"`
	VendorID     string          `json:"vendorId"`
	Released     bool            `json:"inventoryReleased"`
}

// Summarize condenses a ticket into the counts shown after checkout.
func Summarize(t *Ticket) *TicketSummary {
	s := &TicketSummary{
		TicketID:    t.TicketID,
		EventID:     t.EventID,
		TicketCount: t.TicketCount,
		TotalAmount: t.TotalAmount,
		Variants:    make(map[VariantType]int, len(t.TicketVariants)),
	}
	for _, tv := range t.TicketVariants {
		s.Variants[tv.Variant] += tv.Count
	}
	return s
}
