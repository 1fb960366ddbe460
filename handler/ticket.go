package handler

import (
	"context"
	"encoding/json"
	"eventers-ticketing-backend/booking"
	c "eventers-ticketing-backend/context"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/middleware"
	"eventers-ticketing-backend/model"
	"eventers-ticketing-backend/response"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Booking is the orchestrator surface the handlers drive.
type Booking interface {
	CheckLimit(ctx context.Context, clientID, eventID, variant string, qty int) (*model.LimitResult, error)
	CreateTicket(ctx context.Context, req *model.CreateTicketRequest) (*model.Ticket, string, error)
	ConfirmTicketAndPayment(ctx context.Context, ticketID, intentID, vendorID string) (*model.Ticket, error)
	TicketCancel(ctx context.Context, ticketID string) (*model.CancelSummary, error)
	VerifyTicket(ctx context.Context, qrID, eventID, vendorID string) (*model.Ticket, error)
	Ticket(ctx context.Context, ticketID string) (*model.Ticket, error)
	Wallet(ctx context.Context, userModel, userID string) (*booking.WalletStatement, error)
}

func CreateTicket(service Booking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.CreateTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest("invalid request body", fmt.Sprintf("createTicket: error unmarshalling request body: %+v", err)).Send(ctx, w)
			return
		}

		callerID, role := c.Caller(ctx)
		if role == middleware.RoleClient {
			if req.Ticket.ClientID == "" {
				req.Ticket.ClientID = callerID
			}
			if req.Ticket.ClientID != callerID {
				response.Forbidden("tickets can only be booked for yourself").Send(ctx, w)
				return
			}
		}

		t, clientSecret, err := service.CreateTicket(ctx, &req)
		if err != nil {
			fail(ctx, w, "createTicket", err)
			return
		}

		response.SuccessResponse{
			Message:        "Ticket created, complete the payment to confirm it",
			CreatedTicket:  t,
			StripeClientID: clientSecret,
			Summary:        model.Summarize(t),
			StatusCode:     http.StatusCreated,
		}.Send(w)
	}
}

func ConfirmTicket(service Booking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.ConfirmTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest("invalid request body", fmt.Sprintf("confirmTicket: error unmarshalling request body: %+v", err)).Send(ctx, w)
			return
		}
		if req.Ticket == nil || req.Ticket.TicketID == "" {
			response.BadRequest("ticket.ticketId is required", "").Send(ctx, w)
			return
		}
		if !owns(ctx, w, service, req.Ticket.TicketID) {
			return
		}

		t, err := service.ConfirmTicketAndPayment(ctx, req.Ticket.TicketID, string(req.PaymentIntent), req.VendorID)
		if err != nil {
			fail(ctx, w, "confirmTicket", err)
			return
		}

		response.SuccessResponse{
			Message:         "Ticket confirmed",
			ConfirmedTicket: t,
			TicketDetails:   model.Summarize(t),
			StatusCode:      http.StatusOK,
		}.Send(w)
	}
}

func CancelTicket(service Booking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.CancelTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest("invalid request body", fmt.Sprintf("cancelTicket: error unmarshalling request body: %+v", err)).Send(ctx, w)
			return
		}
		if req.TicketID == "" {
			response.BadRequest("ticketId is required", "").Send(ctx, w)
			return
		}
		if !owns(ctx, w, service, req.TicketID) {
			return
		}

		summary, err := service.TicketCancel(ctx, req.TicketID)
		if err != nil {
			fail(ctx, w, "cancelTicket", err)
			return
		}

		response.SuccessResponse{
			Message:         "Ticket cancelled",
			CancelledTicket: summary,
			StatusCode:      http.StatusOK,
		}.Send(w)
	}
}

// VerifyTicket checks in a scanned credential. The scanning vendor comes from
// the auth token; admins may scan for any event.
func VerifyTicket(service Booking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.VerifyTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest("invalid request body", fmt.Sprintf("verifyTicket: error unmarshalling request body: %+v", err)).Send(ctx, w)
			return
		}

		vendorID, role := c.Caller(ctx)
		if role == middleware.RoleAdmin {
			vendorID = ""
		}

		t, err := service.VerifyTicket(ctx, req.TicketID, req.EventID, vendorID)
		if err != nil {
			fail(ctx, w, "verifyTicket", err)
			return
		}

		response.SuccessResponse{
			Message:        "Ticket verified",
			VerifiedTicket: t,
			StatusCode:     http.StatusOK,
		}.Send(w)
	}
}

func CheckLimit(service Booking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		qty := 0
		if s := q.Get("quantity"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				response.BadRequest("quantity must be a number", fmt.Sprintf("checkLimit: %+v", err)).Send(ctx, w)
				return
			}
			qty = n
		}

		clientID := q.Get("clientId")
		callerID, role := c.Caller(ctx)
		if role == middleware.RoleClient {
			if clientID == "" {
				clientID = callerID
			}
			if clientID != callerID {
				response.Forbidden("limits can only be checked for yourself").Send(ctx, w)
				return
			}
		}

		res, err := service.CheckLimit(ctx, clientID, q.Get("eventId"), q.Get("variant"), qty)
		if err != nil {
			fail(ctx, w, "checkLimit", err)
			return
		}

		response.SuccessResponse{Limit: res, StatusCode: http.StatusOK}.Send(w)
	}
}

func GetTicket(service Booking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		t, err := service.Ticket(ctx, mux.Vars(r)["ticketId"])
		if err != nil {
			fail(ctx, w, "getTicket", err)
			return
		}
		if !visible(ctx, t) {
			response.Forbidden("this ticket belongs to someone else").Send(ctx, w)
			return
		}

		response.SuccessResponse{Ticket: t, StatusCode: http.StatusOK}.Send(w)
	}
}

func GetWallet(service Booking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		vars := mux.Vars(r)

		callerID, role := c.Caller(ctx)
		if role != middleware.RoleAdmin && (vars["userId"] != callerID || vars["userModel"] != role) {
			response.Forbidden("wallets can only be read by their owner").Send(ctx, w)
			return
		}

		st, err := service.Wallet(ctx, vars["userModel"], vars["userId"])
		if err != nil {
			fail(ctx, w, "getWallet", err)
			return
		}

		response.SuccessResponse{Wallet: st, StatusCode: http.StatusOK}.Send(w)
	}
}

// owns reports whether the caller may act on ticketID, writing the error
// response when not.
func owns(ctx context.Context, w http.ResponseWriter, service Booking, ticketID string) bool {
	if _, role := c.Caller(ctx); role == middleware.RoleAdmin {
		return true
	}
	t, err := service.Ticket(ctx, ticketID)
	if err != nil {
		fail(ctx, w, "owns", err)
		return false
	}
	if !visible(ctx, t) {
		response.Forbidden("this ticket belongs to someone else").Send(ctx, w)
		return false
	}
	return true
}

func visible(ctx context.Context, t *model.Ticket) bool {
	callerID, role := c.Caller(ctx)
	switch role {
	case middleware.RoleAdmin:
		return true
	case middleware.RoleVendor:
		return t.VendorID == callerID
	default:
		return t.ClientID == callerID
	}
}

func fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if booking.KindOf(err) == "" {
		logger.Errorf(ctx, "%s: %+v", op, err)
	}
	response.FromError(err).Send(ctx, w)
}
