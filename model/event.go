package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantType is the closed set of ticket tiers an event can sell.
type VariantType string

const (
	Standard VariantType = "standard"
	Premium  VariantType = "premium"
	VIP      VariantType = "vip"
)

// VariantTypes lists the tiers in display order.
var VariantTypes = []VariantType{Standard, Premium, VIP}

func (v VariantType) Valid() bool {
	switch v {
	case Standard, Premium, VIP:
		return true
	}
	return false
}

// ParseVariantType validates s against the known tiers.
func ParseVariantType(s string) (VariantType, bool) {
	v := VariantType(s)
	return v, v.Valid()
}

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

type Event struct {
	EventID   string                    `json:"eventId"`
	HostedBy  string                    `json:"hostedBy"`
	Title     string                    `json:"title,omitempty"`
	Status    EventStatus               `json:"status"`
	StartsAt  *time.Time                `json:"startsAt,omitempty"`
	Variants  map[VariantType]*Variant `json:"variants"`
	CreatedAt *time.Time                `json:"createdAt,omitempty"`
}

// Purchasable reports whether tickets can still be sold for the event.
func (e *Event) Purchasable() bool {
	return e.Status != EventCompleted && e.Status != EventCancelled
}

type Variant struct {
	Type         VariantType     `json:"type"`
	Price        decimal.Decimal `json:"price"`
	TotalTickets int             `json:"totalTickets"`
	TicketsSold  int             `json:"ticketsSold"`
	MaxPerUser   int             `json:"maxPerUser"`
}

func (v *Variant) Remaining() int {
	if v.TicketsSold >= v.TotalTickets {
		return 0
	}
	return v.TotalTickets - v.TicketsSold
}

type LimitResult struct {
	CanBook        bool `json:"canBook"`
	RemainingLimit int  `json:"remainingLimit"`
	MaxPerUser     int  `json:"maxPerUser"`
	Committed      int  `json:"committed"`
}
