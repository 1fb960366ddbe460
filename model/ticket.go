package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentSuccessful PaymentStatus = "successful"
	PaymentFailed     PaymentStatus = "failed"
)

// TicketStatus is shared by the aggregate and each of its credentials.
type TicketStatus string

const (
	TicketUnused   TicketStatus = "unused"
	TicketUsed     TicketStatus = "used"
	TicketRefunded TicketStatus = "refunded"
)

// SettlementStatus records how far money movement got for a ticket so an
// interrupted confirmation resumes from the last completed step.
type SettlementStatus string

const (
	SettlementPending            SettlementStatus = "pending"
	SettlementPaid               SettlementStatus = "paid"
	SettlementCommissionCredited SettlementStatus = "commission_credited"
	SettlementSettled            SettlementStatus = "settled"
)

type Ticket struct {
	TicketID             string           `json:"ticketId"`
	ClientID             string           `json:"clientId"`
	EventID              string           `json:"eventId"`
	VendorID             string           `json:"vendorId,omitempty"`
	Email                string           `json:"email"`
	Phone                string           `json:"phone"`
	TicketVariants       []TicketVariant  `json:"ticketVariants"`
	TicketCount          int              `json:"ticketCount"`
	TotalAmount          decimal.Decimal  `json:"totalAmount"`
	PaymentStatus        PaymentStatus    `json:"paymentStatus"`
	TicketStatus         TicketStatus     `json:"ticketStatus"`
	SettlementStatus     SettlementStatus `json:"settlementStatus"`
	PaymentTransactionID string           `json:"paymentTransactionId"`
	CheckInHistory       []CheckIn        `json:"checkInHistory,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

type TicketVariant struct {
	Variant        VariantType     `json:"variant"`
	Count          int             `json:"count"`
	PricePerTicket decimal.Decimal `json:"pricePerTicket"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	QRCodes        []Credential    `json:"qrCodes"`
}

// Credential is the redeemable token for one seat.
type Credential struct {
	QRID           string       `json:"qrId"`
	QRCodeLink     string       `json:"qrCodeLink"`
	Status         TicketStatus `json:"status"`
	CheckInHistory []CheckIn    `json:"checkInHistory,omitempty"`
}

type CheckIn struct {
	QRID        string    `json:"qrId"`
	CheckedInAt time.Time `json:"checkedInAt"`
	VerifiedBy  string    `json:"verifiedBy,omitempty"`
}

// Credential finds the credential with qrID across all variants.
func (t *Ticket) Credential(qrID string) *Credential {
	for i := range t.TicketVariants {
		for j := range t.TicketVariants[i].QRCodes {
			if t.TicketVariants[i].QRCodes[j].QRID == qrID {
				return &t.TicketVariants[i].QRCodes[j]
			}
		}
	}
	return nil
}

// CountFor returns how many seats of variant the ticket holds.
func (t *Ticket) CountFor(variant VariantType) int {
	n := 0
	for _, tv := range t.TicketVariants {
		if tv.Variant == variant {
			n += tv.Count
		}
	}
	return n
}
