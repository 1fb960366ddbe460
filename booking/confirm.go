package booking

import (
	"context"
	"errors"
	"eventers-ticketing-backend/gateway"
	"eventers-ticketing-backend/ledger"
	"eventers-ticketing-backend/lock"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/metrics"
	"eventers-ticketing-backend/model"
	"eventers-ticketing-backend/ticket"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ConfirmTicketAndPayment checks that the ticket's payment was captured and
// settles it: commission to the platform wallet, the rest to the vendor.
//
// Settlement progress is stored on the ticket (pending, paid,
// commission_credited, settled). A call on a partially settled ticket only
// runs the remaining steps, and a call on a settled ticket moves no money.
func (s *Service) ConfirmTicketAndPayment(ctx context.Context, ticketID, intentID, vendorID string) (t *model.Ticket, err error) {
	defer func() { record("confirm", err) }()

	if ticketID == "" {
		return nil, newError(KindValidation, "ticketId is required")
	}

	t, err = s.Ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.checkConfirmable(t, intentID, vendorID); err != nil {
		return nil, err
	}
	if t.SettlementStatus == model.SettlementSettled {
		return t, nil
	}

	release, err := s.locker.Acquire(ctx, t.TicketID)
	if errors.Is(err, lock.ErrHeld) {
		return nil, newError(KindConflict, "ticket %s is already being confirmed", t.TicketID)
	}
	if err != nil {
		return nil, fmt.Errorf("confirmTicketAndPayment: %w", err)
	}
	defer release()

	// A confirm or cancel may have changed the ticket before we got the lock.
	t, err = s.Ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.checkConfirmable(t, intentID, vendorID); err != nil {
		return nil, err
	}

	if t.SettlementStatus == model.SettlementPending {
		if err := s.capture(ctx, t); err != nil {
			return nil, err
		}
	}

	if err := s.settle(ctx, t); err != nil {
		return nil, err
	}

	logger.Infof(ctx, "confirmTicketAndPayment: ticket %s settled for vendor %s, amount %s", t.TicketID, t.VendorID, t.TotalAmount)
	return t, nil
}

func (s *Service) checkConfirmable(t *model.Ticket, intentID, vendorID string) error {
	if t.TicketStatus == model.TicketRefunded {
		return newError(KindState, "ticket %s was refunded", t.TicketID)
	}
	if intentID != "" && intentID != t.PaymentTransactionID {
		return newError(KindValidation, "payment intent %s does not belong to ticket %s", intentID, t.TicketID)
	}
	if vendorID != "" && vendorID != t.VendorID {
		return newError(KindValidation, "vendor %s does not host event %s", vendorID, t.EventID)
	}
	return nil
}

// capture moves a pending ticket to paid once the gateway reports success and
// inventory is still consistent.
func (s *Service) capture(ctx context.Context, t *model.Ticket) error {
	intent, err := s.gateway.ConfirmPayment(ctx, t.PaymentTransactionID)
	if err != nil {
		return gatewayError(err, "could not confirm payment")
	}
	if intent.Status != gateway.StatusSucceeded {
		return newError(KindPaymentNotCompleted, "payment for ticket %s has not been completed (status: %s)", t.TicketID, intent.Status)
	}

	// From here on the buyer has been charged.
	for _, tv := range t.TicketVariants {
		v, err := s.inventory.Variant(ctx, t.EventID, tv.Variant)
		if err != nil {
			return s.reconcile(ctx, t, "inventory_check", fmt.Errorf("capture: %w", err))
		}
		if v.TicketsSold > v.TotalTickets {
			return s.reconcile(ctx, t, "inventory_check",
				newError(KindSoldOut, "%s tickets for event %s are oversold (%d/%d)", tv.Variant, t.EventID, v.TicketsSold, v.TotalTickets))
		}
		if tv.Count > v.TotalTickets {
			return s.reconcile(ctx, t, "inventory_check",
				newError(KindInsufficientInventory, "ticket holds %d %s seats but event %s only has %d", tv.Count, tv.Variant, t.EventID, v.TotalTickets))
		}
	}

	return s.markPaid(ctx, t, intent)
}

// markPaid stores a captured intent on t. When the ticket moved on
// concurrently t is reloaded; a ticket refunded in the meantime is an error.
func (s *Service) markPaid(ctx context.Context, t *model.Ticket, intent *gateway.Intent) error {
	changed, err := s.tickets.MarkPaid(ctx, t.TicketID, intent.ID)
	if err != nil {
		return s.reconcile(ctx, t, "mark_paid", err)
	}
	if !changed {
		fresh, err := s.tickets.Get(ctx, t.TicketID)
		if err != nil {
			return s.reconcile(ctx, t, "mark_paid", err)
		}
		*t = *fresh
		if t.TicketStatus == model.TicketRefunded {
			return s.reconcile(ctx, t, "mark_paid", newError(KindState, "ticket %s was refunded while its payment %s was captured", t.TicketID, intent.ID))
		}
		return nil
	}

	t.PaymentStatus = model.PaymentSuccessful
	t.SettlementStatus = model.SettlementPaid
	t.PaymentTransactionID = intent.ID
	t.UpdatedAt = s.now()
	return nil
}

// settle runs the settlement steps still outstanding for t.
func (s *Service) settle(ctx context.Context, t *model.Ticket) error {
	commission, vendorAmount := s.policy.Split(t.TotalAmount)

	if t.SettlementStatus == model.SettlementPaid {
		if commission.IsPositive() {
			_, _, err := s.ledger.Credit(ctx, ledger.Entry{
				UserID:    s.platformUserID,
				UserModel: model.UserAdmin,
				Amount:    commission,
				Type:      model.AdminCommission,
				Reference: t.TicketID,
			})
			if err != nil {
				return s.reconcile(ctx, t, "admin_commission", err)
			}
		}
		if err := s.advance(ctx, t, model.SettlementCommissionCredited); err != nil {
			return s.reconcile(ctx, t, "admin_commission", err)
		}
	}

	if t.SettlementStatus == model.SettlementCommissionCredited {
		if vendorAmount.IsPositive() {
			_, _, err := s.ledger.Credit(ctx, ledger.Entry{
				UserID:    t.VendorID,
				UserModel: model.UserVendor,
				Amount:    vendorAmount,
				Type:      model.TicketBooking,
				Reference: t.TicketID,
			})
			if err != nil {
				return s.reconcile(ctx, t, "vendor_credit", err)
			}
		}
		if err := s.advance(ctx, t, model.SettlementSettled); err != nil {
			return s.reconcile(ctx, t, "vendor_credit", err)
		}
	}

	if t.SettlementStatus != model.SettlementSettled {
		return s.reconcile(ctx, t, "settle", fmt.Errorf("settle: unexpected settlement status %q", t.SettlementStatus))
	}
	return nil
}

func (s *Service) advance(ctx context.Context, t *model.Ticket, to model.SettlementStatus) error {
	err := s.tickets.AdvanceSettlement(ctx, t.TicketID, t.SettlementStatus, to)
	if errors.Is(err, ticket.ErrStateConflict) {
		return fmt.Errorf("advance: ticket %s left %s concurrently: %w", t.TicketID, t.SettlementStatus, err)
	}
	if err != nil {
		return fmt.Errorf("advance: %w", err)
	}
	t.SettlementStatus = to
	t.UpdatedAt = s.now()
	return nil
}

// reconcile logs a failure that happened after money was captured and returns
// an error the caller must surface rather than retry blindly. Errors that
// already carry a kind keep it.
func (s *Service) reconcile(ctx context.Context, t *model.Ticket, step string, err error) error {
	metrics.RecordSettlementFailure(step)
	logger.WithFields(ctx, logrus.Fields{
		"ticket_id":         t.TicketID,
		"event_id":          t.EventID,
		"client_id":         t.ClientID,
		"vendor_id":         t.VendorID,
		"payment_intent":    t.PaymentTransactionID,
		"total_amount":      t.TotalAmount.String(),
		"settlement_status": t.SettlementStatus,
		"step":              step,
	}).Errorf("settlement needs manual reconciliation: %v", err)

	if KindOf(err) != "" {
		return err
	}
	return wrapError(KindSettlement, err, "payment for ticket %s was captured but settlement failed at %s; flagged for reconciliation", t.TicketID, step)
}
