package booking

import (
	"context"
	"errors"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/model"
	"eventers-ticketing-backend/ticket"
	"fmt"
)

// VerifyTicket checks in one seat at the door. qrID is the scanned credential,
// vendorID the authenticated scanner; an empty vendorID skips the host check
// and is reserved for admins.
func (s *Service) VerifyTicket(ctx context.Context, qrID, eventID, vendorID string) (t *model.Ticket, err error) {
	defer func() { record("verify", err) }()

	if qrID == "" || eventID == "" {
		return nil, newError(KindValidation, "ticketId and eventId are required")
	}

	t, err = s.tickets.GetByCredential(ctx, qrID)
	if errors.Is(err, ticket.ErrNotFound) {
		return nil, newError(KindNotFound, "ticket %s not found", qrID)
	}
	if err != nil {
		return nil, fmt.Errorf("verifyTicket: %w", err)
	}
	if t.EventID != eventID {
		return nil, newError(KindValidation, "ticket %s is not valid for event %s", qrID, eventID)
	}
	if vendorID != "" && vendorID != t.VendorID {
		return nil, newError(KindForbidden, "vendor %s does not host event %s", vendorID, eventID)
	}
	if t.PaymentStatus != model.PaymentSuccessful {
		return nil, newError(KindState, "ticket %s has not been paid for", qrID)
	}

	cred := t.Credential(qrID)
	if cred == nil {
		return nil, newError(KindNotFound, "ticket %s not found", qrID)
	}
	switch cred.Status {
	case model.TicketUsed:
		return nil, newError(KindAlreadyUsed, "ticket %s has already been used", qrID)
	case model.TicketRefunded:
		return nil, newError(KindState, "ticket %s was refunded", qrID)
	}

	at := s.now()
	firstUse, err := s.tickets.CheckIn(ctx, t.TicketID, qrID, vendorID, at)
	if errors.Is(err, ticket.ErrStateConflict) {
		return nil, wrapError(KindAlreadyUsed, err, "ticket %s has already been used", qrID)
	}
	if err != nil {
		return nil, fmt.Errorf("verifyTicket: %w", err)
	}

	ci := model.CheckIn{QRID: qrID, CheckedInAt: at, VerifiedBy: vendorID}
	cred.Status = model.TicketUsed
	cred.CheckInHistory = append(cred.CheckInHistory, ci)
	t.CheckInHistory = append(t.CheckInHistory, ci)
	if firstUse {
		t.TicketStatus = model.TicketUsed
	}
	t.UpdatedAt = at

	logger.Infof(ctx, "verifyTicket: credential %s of ticket %s checked in for event %s", qrID, t.TicketID, eventID)
	return t, nil
}
