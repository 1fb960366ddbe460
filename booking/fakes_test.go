package booking

import (
	"context"
	"errors"
	"eventers-ticketing-backend/gateway"
	"eventers-ticketing-backend/inventory"
	"eventers-ticketing-backend/ledger"
	"eventers-ticketing-backend/lock"
	"eventers-ticketing-backend/model"
	"eventers-ticketing-backend/ticket"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeInventory struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func (f *fakeInventory) add(e *model.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events == nil {
		f.events = map[string]*model.Event{}
	}
	f.events[e.EventID] = e
}

func (f *fakeInventory) Event(ctx context.Context, eventID string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return nil, inventory.ErrEventNotFound
	}
	c := *e
	c.Variants = make(map[model.VariantType]*model.Variant, len(e.Variants))
	for k, v := range e.Variants {
		vc := *v
		c.Variants[k] = &vc
	}
	return &c, nil
}

func (f *fakeInventory) Variant(ctx context.Context, eventID string, variant model.VariantType) (*model.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return nil, inventory.ErrEventNotFound
	}
	v, ok := e.Variants[variant]
	if !ok {
		return nil, fmt.Errorf("variant: %s: %w", variant, inventory.ErrEventNotFound)
	}
	c := *v
	return &c, nil
}

func (f *fakeInventory) Reserve(ctx context.Context, eventID string, variant model.VariantType, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.events[eventID].Variants[variant]
	if v.TicketsSold+qty > v.TotalTickets {
		return inventory.ErrInsufficient
	}
	v.TicketsSold += qty
	return nil
}

func (f *fakeInventory) Release(ctx context.Context, eventID string, variant model.VariantType, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.events[eventID].Variants[variant]
	if v.TicketsSold < qty {
		return inventory.ErrInsufficient
	}
	v.TicketsSold -= qty
	return nil
}

func (f *fakeInventory) sold(eventID string, variant model.VariantType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[eventID].Variants[variant].TicketsSold
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets map[string]*model.Ticket
}

func cloneTicket(t *model.Ticket) *model.Ticket {
	c := *t
	c.TicketVariants = make([]model.TicketVariant, len(t.TicketVariants))
	for i, tv := range t.TicketVariants {
		tv.QRCodes = make([]model.Credential, len(t.TicketVariants[i].QRCodes))
		for j, cr := range t.TicketVariants[i].QRCodes {
			cr.CheckInHistory = append([]model.CheckIn(nil), cr.CheckInHistory...)
			tv.QRCodes[j] = cr
		}
		c.TicketVariants[i] = tv
	}
	c.CheckInHistory = append([]model.CheckIn(nil), t.CheckInHistory...)
	return &c
}

func (f *fakeTickets) Create(ctx context.Context, t *model.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tickets == nil {
		f.tickets = map[string]*model.Ticket{}
	}
	f.tickets[t.TicketID] = cloneTicket(t)
	return nil
}

func (f *fakeTickets) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[ticketID]
	if !ok {
		return nil, ticket.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (f *fakeTickets) GetByCredential(ctx context.Context, qrID string) (*model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.Credential(qrID) != nil {
			return cloneTicket(t), nil
		}
	}
	return nil, ticket.ErrNotFound
}

func (f *fakeTickets) CommittedCount(ctx context.Context, clientID, eventID string, variant model.VariantType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if t.ClientID == clientID && t.EventID == eventID && t.TicketStatus != model.TicketRefunded {
			n += t.CountFor(variant)
		}
	}
	return n, nil
}

func (f *fakeTickets) MarkPaid(ctx context.Context, ticketID, intentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[ticketID]
	if t.SettlementStatus != model.SettlementPending || t.TicketStatus == model.TicketRefunded {
		return false, nil
	}
	t.PaymentStatus = model.PaymentSuccessful
	t.SettlementStatus = model.SettlementPaid
	t.PaymentTransactionID = intentID
	return true, nil
}

func (f *fakeTickets) AdvanceSettlement(ctx context.Context, ticketID string, from, to model.SettlementStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[ticketID]
	if t.SettlementStatus != from {
		return ticket.ErrStateConflict
	}
	t.SettlementStatus = to
	return nil
}

func (f *fakeTickets) Refund(ctx context.Context, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[ticketID]
	if t.TicketStatus != model.TicketUnused {
		return ticket.ErrStateConflict
	}
	t.TicketStatus = model.TicketRefunded
	for i := range t.TicketVariants {
		for j := range t.TicketVariants[i].QRCodes {
			if t.TicketVariants[i].QRCodes[j].Status == model.TicketUnused {
				t.TicketVariants[i].QRCodes[j].Status = model.TicketRefunded
			}
		}
	}
	return nil
}

func (f *fakeTickets) CheckIn(ctx context.Context, ticketID, qrID, verifiedBy string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[ticketID]
	c := t.Credential(qrID)
	if c == nil || c.Status != model.TicketUnused {
		return false, ticket.ErrStateConflict
	}
	ci := model.CheckIn{QRID: qrID, CheckedInAt: at, VerifiedBy: verifiedBy}
	c.Status = model.TicketUsed
	c.CheckInHistory = append(c.CheckInHistory, ci)
	t.CheckInHistory = append(t.CheckInHistory, ci)
	if t.TicketStatus == model.TicketUnused {
		t.TicketStatus = model.TicketUsed
		return true, nil
	}
	return false, nil
}

func (f *fakeTickets) get(ticketID string) *model.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tickets[ticketID]; ok {
		return cloneTicket(t)
	}
	return nil
}

func (f *fakeTickets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}

type fakeLedger struct {
	mu       sync.Mutex
	wallets  map[string]*model.Wallet
	txns     []model.Transaction
	applied  map[string]bool
	payments []model.Payment

	// fail, when set, is consulted before every posting.
	fail func(e ledger.Entry) error
}

func walletKey(userModel model.UserModel, userID string) string {
	return string(userModel) + "/" + userID
}

func (f *fakeLedger) post(e ledger.Entry, direction model.TransactionStatus) (*model.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(e); err != nil {
			return nil, false, err
		}
	}
	if !e.Amount.IsPositive() {
		return nil, false, ledger.ErrInvalidAmount
	}
	if f.wallets == nil {
		f.wallets = map[string]*model.Wallet{}
		f.applied = map[string]bool{}
	}
	key := walletKey(e.UserModel, e.UserID)
	w, ok := f.wallets[key]
	if !ok {
		w = &model.Wallet{WalletID: uuid.New().String(), UserID: e.UserID, UserModel: e.UserModel, Balance: decimal.Zero}
		f.wallets[key] = w
	}

	dedupe := w.WalletID + "|" + string(e.Type) + "|" + e.Reference
	if f.applied[dedupe] {
		return nil, false, nil
	}
	f.applied[dedupe] = true

	delta := e.Amount
	if direction == model.Debit {
		delta = delta.Neg()
	}
	w.Balance = w.Balance.Add(delta)

	txn := model.Transaction{
		TransactionID: uuid.New().String(),
		WalletID:      w.WalletID,
		Amount:        e.Amount,
		PaymentStatus: direction,
		PaymentType:   e.Type,
		Reference:     e.Reference,
	}
	f.txns = append(f.txns, txn)
	return &txn, true, nil
}

func (f *fakeLedger) Credit(ctx context.Context, e ledger.Entry) (*model.Transaction, bool, error) {
	return f.post(e, model.Credit)
}

func (f *fakeLedger) Debit(ctx context.Context, e ledger.Entry) (*model.Transaction, bool, error) {
	return f.post(e, model.Debit)
}

func (f *fakeLedger) CreatePayment(ctx context.Context, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, *p)
	return nil
}

func (f *fakeLedger) Wallet(ctx context.Context, userID string, userModel model.UserModel) (*model.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[walletKey(userModel, userID)]
	if !ok {
		return nil, ledger.ErrWalletNotFound
	}
	c := *w
	return &c, nil
}

func (f *fakeLedger) Transactions(ctx context.Context, walletID string, limit int) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for i := len(f.txns) - 1; i >= 0 && len(out) < limit; i-- {
		if f.txns[i].WalletID == walletID {
			out = append(out, f.txns[i])
		}
	}
	return out, nil
}

func (f *fakeLedger) balance(userModel model.UserModel, userID string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.wallets[walletKey(userModel, userID)]; ok {
		return w.Balance
	}
	return decimal.Zero
}

func (f *fakeLedger) entries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txns)
}

type fakeGateway struct {
	mu      sync.Mutex
	n       int
	intents map[string]*gateway.Intent
	byKey   map[string]string

	createErr  error
	confirmErr error
	cancelErr  error
	// captured is the status ConfirmPayment reports; empty means succeeded.
	captured string
}

func (f *fakeGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, purpose string, metadata map[string]string, idempotencyKey string) (*gateway.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.intents == nil {
		f.intents = map[string]*gateway.Intent{}
		f.byKey = map[string]string{}
	}
	if id, ok := f.byKey[idempotencyKey]; ok {
		c := *f.intents[id]
		return &c, nil
	}
	f.n++
	in := &gateway.Intent{
		ID:           fmt.Sprintf("pi_%d", f.n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", f.n),
		Status:       "requires_payment_method",
		Amount:       gateway.MinorUnits(amount),
		Metadata:     metadata,
	}
	f.intents[in.ID] = in
	f.byKey[idempotencyKey] = in.ID
	c := *in
	return &c, nil
}

func (f *fakeGateway) ConfirmPayment(ctx context.Context, intentID string) (*gateway.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	in, ok := f.intents[intentID]
	if !ok {
		return nil, errors.New("no such payment intent")
	}
	if in.Status != gateway.StatusCanceled {
		in.Status = gateway.StatusSucceeded
		if f.captured != "" {
			in.Status = f.captured
		}
	}
	c := *in
	return &c, nil
}

func (f *fakeGateway) CancelPayment(ctx context.Context, intentID string) (*gateway.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	in, ok := f.intents[intentID]
	if !ok {
		return nil, errors.New("no such payment intent")
	}
	if in.Status == gateway.StatusSucceeded {
		return nil, errors.New("payment intent already succeeded")
	}
	in.Status = gateway.StatusCanceled
	c := *in
	return &c, nil
}

func (f *fakeGateway) status(intentID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[intentID]; ok {
		return in.Status
	}
	return ""
}

type fakeIssuer struct {
	mu sync.Mutex
	n  int
}

func (f *fakeIssuer) Issue(eventID string) (model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	id := fmt.Sprintf("qr-%d", f.n)
	return model.Credential{QRID: id, QRCodeLink: "data:image/png;base64," + id, Status: model.TicketUnused}, nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool

	// before, when set, runs once ahead of the next Acquire.
	before func(name string)
}

func (f *fakeLocker) Acquire(ctx context.Context, name string) (func(), error) {
	f.mu.Lock()
	before := f.before
	f.before = nil
	f.mu.Unlock()
	if before != nil {
		before(name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = map[string]bool{}
	}
	if f.held[name] {
		return nil, lock.ErrHeld
	}
	f.held[name] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, name)
	}, nil
}

func (f *fakeLocker) hold(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = map[string]bool{}
	}
	f.held[name] = true
}
