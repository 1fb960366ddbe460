package booking

import (
	"context"
	"errors"
	"eventers-ticketing-backend/gateway"
	"eventers-ticketing-backend/ledger"
	"eventers-ticketing-backend/lock"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/model"
	"eventers-ticketing-backend/ticket"
	"fmt"
)

// TicketCancel refunds an unused ticket. A paid ticket is settled first, then
// refunds the client and debits the vendor as the policy dictates. A ticket
// whose payment never completed has its intent voided, moves no money and
// always gives its seats back.
func (s *Service) TicketCancel(ctx context.Context, ticketID string) (summary *model.CancelSummary, err error) {
	defer func() { record("cancel", err) }()

	if ticketID == "" {
		return nil, newError(KindValidation, "ticketId is required")
	}

	release, err := s.locker.Acquire(ctx, ticketID)
	if errors.Is(err, lock.ErrHeld) {
		return nil, newError(KindConflict, "ticket %s is being confirmed, try again", ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("ticketCancel: %w", err)
	}
	defer release()

	t, err := s.Ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := cancellable(t); err != nil {
		return nil, err
	}
	if err := s.catchUp(ctx, t); err != nil {
		return nil, err
	}

	err = s.tickets.Refund(ctx, t.TicketID)
	if errors.Is(err, ticket.ErrStateConflict) {
		// Lost a race with a check-in or another cancel; report what won.
		fresh, gerr := s.Ticket(ctx, ticketID)
		if gerr != nil {
			return nil, gerr
		}
		if cerr := cancellable(fresh); cerr != nil {
			return nil, cerr
		}
		return nil, wrapError(KindState, err, "ticket %s changed while cancelling", ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("ticketCancel: %w", err)
	}

	summary = &model.CancelSummary{
		TicketID:     t.TicketID,
		TicketStatus: model.TicketRefunded,
		VendorID:     t.VendorID,
	}
	t.TicketStatus = model.TicketRefunded

	paid := t.SettlementStatus != model.SettlementPending
	if paid {
		split := s.policy.Refund(t.TotalAmount)
		summary.ClientRefund = split.ClientRefund
		summary.VendorDebit = split.VendorDebit

		if err := s.refund(ctx, t, split); err != nil {
			return nil, err
		}
	}

	if !paid || s.policy.ReleaseOnCancel {
		summary.Released = true
		for _, tv := range t.TicketVariants {
			if err := s.inventory.Release(ctx, t.EventID, tv.Variant, tv.Count); err != nil {
				logger.Errorf(ctx, "ticketCancel: could not release %d %s seats of event %s: %+v", tv.Count, tv.Variant, t.EventID, err)
				summary.Released = false
			}
		}
	}

	logger.Infof(ctx, "ticketCancel: ticket %s refunded %s to client %s, debited %s from vendor %s",
		t.TicketID, summary.ClientRefund, t.ClientID, summary.VendorDebit, t.VendorID)
	return summary, nil
}

// catchUp brings the ticket's money up to date before it is refunded. A
// payment the gateway already captured is recorded and settled, an unpaid
// intent is voided so it can no longer be charged, and an interrupted
// settlement is finished.
func (s *Service) catchUp(ctx context.Context, t *model.Ticket) error {
	if t.SettlementStatus == model.SettlementPending && t.PaymentTransactionID != "" {
		intent, err := s.gateway.ConfirmPayment(ctx, t.PaymentTransactionID)
		if err != nil {
			return gatewayError(err, "could not read payment before cancelling")
		}

		switch intent.Status {
		case gateway.StatusSucceeded:
			if err := s.markPaid(ctx, t, intent); err != nil {
				return err
			}
		case gateway.StatusCanceled:
		default:
			if _, err := s.gateway.CancelPayment(ctx, t.PaymentTransactionID); err != nil {
				return gatewayError(err, "could not void payment")
			}
		}
	}

	if t.SettlementStatus == model.SettlementPending {
		return nil
	}
	return s.settle(ctx, t)
}

func cancellable(t *model.Ticket) error {
	switch t.TicketStatus {
	case model.TicketRefunded:
		return newError(KindNotFound, "ticket %s not found or already cancelled", t.TicketID)
	case model.TicketUsed:
		return newError(KindState, "ticket %s has already been used", t.TicketID)
	}
	return nil
}

// refund moves the cancellation money. Both entries carry the ticket id as
// reference, so a retried cancellation cannot apply them twice.
func (s *Service) refund(ctx context.Context, t *model.Ticket, split RefundSplit) error {
	if split.ClientRefund.IsPositive() {
		_, _, err := s.ledger.Credit(ctx, ledger.Entry{
			UserID:    t.ClientID,
			UserModel: model.UserClient,
			Amount:    split.ClientRefund,
			Type:      model.Refund,
			Reference: t.TicketID,
		})
		if err != nil {
			return s.reconcile(ctx, t, "client_refund", err)
		}
	}
	if split.VendorDebit.IsPositive() {
		_, _, err := s.ledger.Debit(ctx, ledger.Entry{
			UserID:    t.VendorID,
			UserModel: model.UserVendor,
			Amount:    split.VendorDebit,
			Type:      model.Refund,
			Reference: t.TicketID,
		})
		if err != nil {
			return s.reconcile(ctx, t, "vendor_debit", err)
		}
	}
	return nil
}
