// Package booking sells, settles, refunds and checks in tickets. It composes
// the inventory, ticket, ledger and gateway stores, none of which share a
// transaction, so every multi-step flow either compensates on failure
// (checkout) or records durable progress it can resume from (settlement).
package booking

import (
	"context"
	"errors"
	"eventers-ticketing-backend/gateway"
	"eventers-ticketing-backend/inventory"
	"eventers-ticketing-backend/ledger"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/metrics"
	"eventers-ticketing-backend/model"
	"eventers-ticketing-backend/ticket"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ticketPurpose = "ticket"

type Inventory interface {
	Event(ctx context.Context, eventID string) (*model.Event, error)
	Variant(ctx context.Context, eventID string, variant model.VariantType) (*model.Variant, error)
	Reserve(ctx context.Context, eventID string, variant model.VariantType, qty int) error
	Release(ctx context.Context, eventID string, variant model.VariantType, qty int) error
}

type Tickets interface {
	Create(ctx context.Context, t *model.Ticket) error
	Get(ctx context.Context, ticketID string) (*model.Ticket, error)
	GetByCredential(ctx context.Context, qrID string) (*model.Ticket, error)
	MarkPaid(ctx context.Context, ticketID, intentID string) (bool, error)
	AdvanceSettlement(ctx context.Context, ticketID string, from, to model.SettlementStatus) error
	Refund(ctx context.Context, ticketID string) error
	CheckIn(ctx context.Context, ticketID, qrID, verifiedBy string, at time.Time) (bool, error)
}

type Ledger interface {
	Credit(ctx context.Context, e ledger.Entry) (*model.Transaction, bool, error)
	Debit(ctx context.Context, e ledger.Entry) (*model.Transaction, bool, error)
	CreatePayment(ctx context.Context, p *model.Payment) error
	Wallet(ctx context.Context, userID string, userModel model.UserModel) (*model.Wallet, error)
	Transactions(ctx context.Context, walletID string, limit int) ([]model.Transaction, error)
}

type Issuer interface {
	Issue(eventID string) (model.Credential, error)
}

type LimitChecker interface {
	CheckLimit(ctx context.Context, clientID, eventID string, variant model.VariantType, qty int) (*model.LimitResult, error)
}

type Locker interface {
	Acquire(ctx context.Context, name string) (func(), error)
}

type Config struct {
	// PlatformUserID owns the admin wallet that collects commission.
	PlatformUserID string
	Policy         Policy
	Now            func() time.Time
}

type Service struct {
	inventory Inventory
	tickets   Tickets
	ledger    Ledger
	gateway   gateway.Gateway
	issuer    Issuer
	limits    LimitChecker
	locker    Locker

	platformUserID string
	policy         Policy
	now            func() time.Time
}

func New(inv Inventory, tickets Tickets, l Ledger, gw gateway.Gateway, issuer Issuer, limits LimitChecker, locker Locker, cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		inventory:      inv,
		tickets:        tickets,
		ledger:         l,
		gateway:        gw,
		issuer:         issuer,
		limits:         limits,
		locker:         locker,
		platformUserID: cfg.PlatformUserID,
		policy:         cfg.Policy,
		now:            now,
	}
}

// CheckLimit reports how many more seats of variant the client may buy.
func (s *Service) CheckLimit(ctx context.Context, clientID, eventID, variant string, qty int) (*model.LimitResult, error) {
	if clientID == "" || eventID == "" {
		return nil, newError(KindValidation, "clientId and eventId are required")
	}
	vt, ok := model.ParseVariantType(variant)
	if !ok {
		return nil, newError(KindValidation, "unknown ticket variant %q", variant)
	}
	if qty < 0 {
		return nil, newError(KindValidation, "quantity must not be negative")
	}

	res, err := s.limits.CheckLimit(ctx, clientID, eventID, vt, qty)
	if errors.Is(err, inventory.ErrEventNotFound) {
		return nil, newError(KindNotFound, "event %s has no %s tickets", eventID, vt)
	}
	if err != nil {
		return nil, fmt.Errorf("checkLimit: %w", err)
	}
	return res, nil
}

type selection struct {
	variant model.VariantType
	qty     int
}

// CreateTicket validates a checkout, reserves the seats, mints one credential
// per seat and opens a payment intent. It returns the pending ticket and the
// client secret the buyer needs to complete payment.
func (s *Service) CreateTicket(ctx context.Context, req *model.CreateTicketRequest) (t *model.Ticket, clientSecret string, err error) {
	defer func() { record("create", err) }()

	sel, err := parseSelection(req)
	if err != nil {
		return nil, "", err
	}

	event, err := s.inventory.Event(ctx, req.Ticket.EventID)
	if errors.Is(err, inventory.ErrEventNotFound) {
		return nil, "", newError(KindNotFound, "event %s not found", req.Ticket.EventID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("createTicket: %w", err)
	}
	if !event.Purchasable() {
		return nil, "", newError(KindState, "event %s is %s and no longer sells tickets", event.EventID, event.Status)
	}
	if req.VendorID != "" && req.VendorID != event.HostedBy {
		return nil, "", newError(KindValidation, "vendor %s does not host event %s", req.VendorID, event.EventID)
	}

	t = &model.Ticket{
		TicketID:         uuid.New().String(),
		ClientID:         req.Ticket.ClientID,
		EventID:          event.EventID,
		VendorID:         event.HostedBy,
		Email:            req.Ticket.Email,
		Phone:            req.Ticket.Phone,
		TotalAmount:      decimal.Zero,
		PaymentStatus:    model.PaymentPending,
		TicketStatus:     model.TicketUnused,
		SettlementStatus: model.SettlementPending,
	}

	for _, sl := range sel {
		v, ok := event.Variants[sl.variant]
		if !ok {
			return nil, "", newError(KindValidation, "event %s does not sell %s tickets", event.EventID, sl.variant)
		}
		remaining := v.Remaining()
		if remaining <= 0 {
			return nil, "", newError(KindCapacity, "%s tickets are sold out", sl.variant)
		}
		if sl.qty > remaining {
			return nil, "", newError(KindCapacity, "only %d %s tickets left", remaining, sl.variant)
		}
		if sl.qty > v.MaxPerUser {
			return nil, "", newError(KindLimit, "at most %d %s tickets can be booked per person", v.MaxPerUser, sl.variant)
		}

		subtotal := v.Price.Mul(decimal.NewFromInt(int64(sl.qty)))
		t.TicketVariants = append(t.TicketVariants, model.TicketVariant{
			Variant:        sl.variant,
			Count:          sl.qty,
			PricePerTicket: v.Price,
			Subtotal:       subtotal,
		})
		t.TicketCount += sl.qty
		t.TotalAmount = t.TotalAmount.Add(subtotal)
	}

	if t.TotalAmount.Sub(req.TotalAmount).Abs().GreaterThan(s.policy.AmountTolerance) {
		return nil, "", newError(KindPriceMismatch, "total amount %s does not match calculated amount %s", req.TotalAmount, t.TotalAmount)
	}
	if t.TicketCount != req.TotalCount {
		return nil, "", newError(KindCountMismatch, "total count %d does not match selected count %d", req.TotalCount, t.TicketCount)
	}

	for _, sl := range sel {
		res, err := s.limits.CheckLimit(ctx, t.ClientID, t.EventID, sl.variant, sl.qty)
		if err != nil {
			return nil, "", fmt.Errorf("createTicket: %w", err)
		}
		if !res.CanBook {
			return nil, "", newError(KindLimit, "you can book only %d more %s tickets for this event", res.RemainingLimit, sl.variant)
		}
	}

	eventID := t.EventID
	var reserved []selection
	done := false
	defer func() {
		if !done {
			s.release(context.WithoutCancel(ctx), eventID, reserved)
		}
	}()

	for _, sl := range sel {
		err := s.inventory.Reserve(ctx, eventID, sl.variant, sl.qty)
		if errors.Is(err, inventory.ErrInsufficient) {
			return nil, "", newError(KindCapacity, "not enough %s tickets left", sl.variant)
		}
		if err != nil {
			return nil, "", fmt.Errorf("createTicket: %w", err)
		}
		reserved = append(reserved, sl)
	}

	for i := range t.TicketVariants {
		tv := &t.TicketVariants[i]
		for n := 0; n < tv.Count; n++ {
			c, err := s.issuer.Issue(t.EventID)
			if err != nil {
				return nil, "", fmt.Errorf("createTicket: error issuing credential: %w", err)
			}
			tv.QRCodes = append(tv.QRCodes, c)
		}
	}

	idempotencyKey := req.PaymentIntentID
	if idempotencyKey == "" {
		idempotencyKey = t.TicketID
	}
	intent, err := s.gateway.CreatePaymentIntent(ctx, t.TotalAmount, ticketPurpose, map[string]string{
		"ticketId":     t.TicketID,
		"eventId":      t.EventID,
		"clientId":     t.ClientID,
		"totalTickets": strconv.Itoa(t.TicketCount),
		"totalAmount":  t.TotalAmount.StringFixed(2),
	}, idempotencyKey)
	if err != nil {
		return nil, "", gatewayError(err, "could not open payment intent")
	}

	now := s.now()
	t.PaymentTransactionID = intent.ID
	t.CreatedAt = now
	t.UpdatedAt = now

	err = s.ledger.CreatePayment(ctx, &model.Payment{
		PaymentID:  uuid.New().String(),
		IntentID:   intent.ID,
		Purpose:    model.TicketBooking,
		Amount:     t.TotalAmount,
		PayerID:    t.ClientID,
		ReceiverID: t.VendorID,
		TicketID:   t.TicketID,
		Status:     model.PaymentPending,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, "", fmt.Errorf("createTicket: %w", err)
	}

	if err := s.tickets.Create(ctx, t); err != nil {
		return nil, "", fmt.Errorf("createTicket: %w", err)
	}
	done = true

	for _, sl := range sel {
		metrics.RecordReserved(string(sl.variant), sl.qty)
	}
	logger.Infof(ctx, "createTicket: ticket %s reserved %d seats of event %s for client %s, intent %s",
		t.TicketID, t.TicketCount, t.EventID, t.ClientID, intent.ID)
	return t, intent.ClientSecret, nil
}

func parseSelection(req *model.CreateTicketRequest) ([]selection, error) {
	if req == nil {
		return nil, newError(KindValidation, "request body is required")
	}
	if req.Ticket.ClientID == "" {
		return nil, newError(KindValidation, "clientId is required")
	}
	if req.Ticket.EventID == "" {
		return nil, newError(KindValidation, "eventId is required")
	}

	qty := make(map[model.VariantType]int, len(req.Ticket.TicketVariants))
	for name, n := range req.Ticket.TicketVariants {
		vt, ok := model.ParseVariantType(name)
		if !ok {
			return nil, newError(KindValidation, "unknown ticket variant %q", name)
		}
		if n < 0 {
			return nil, newError(KindValidation, "quantity for %s must not be negative", vt)
		}
		qty[vt] = n
	}

	var sel []selection
	for _, vt := range model.VariantTypes {
		if qty[vt] > 0 {
			sel = append(sel, selection{variant: vt, qty: qty[vt]})
		}
	}
	if len(sel) == 0 {
		return nil, newError(KindValidation, "select at least one ticket")
	}
	return sel, nil
}

func (s *Service) release(ctx context.Context, eventID string, sel []selection) {
	for _, sl := range sel {
		if err := s.inventory.Release(ctx, eventID, sl.variant, sl.qty); err != nil {
			logger.Errorf(ctx, "release: could not return %d %s seats of event %s: %+v", sl.qty, sl.variant, eventID, err)
		}
	}
}

func gatewayError(err error, msg string) error {
	if errors.Is(err, gateway.ErrTimeout) {
		return wrapError(KindGatewayTimeout, err, "%s: payment gateway timed out", msg)
	}
	return wrapError(KindGateway, err, "%s", msg)
}

func record(operation string, err error) {
	status := "success"
	if err != nil {
		status = string(KindOf(err))
		if status == "" {
			status = "error"
		}
	}
	metrics.RecordOperation(operation, status)
}

// Ticket returns a stored ticket.
func (s *Service) Ticket(ctx context.Context, ticketID string) (*model.Ticket, error) {
	t, err := s.tickets.Get(ctx, ticketID)
	if errors.Is(err, ticket.ErrNotFound) {
		return nil, newError(KindNotFound, "ticket %s not found", ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("ticket: %w", err)
	}
	return t, nil
}
