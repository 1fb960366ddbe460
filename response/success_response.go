package response

import (
	"encoding/json"
	"eventers-ticketing-backend/booking"
	"eventers-ticketing-backend/model"
	"net/http"
)

// SuccessResponse is the body of every 2xx reply. Only the fields set by the
// handler are sent.
type SuccessResponse struct {
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"-"`

	CreatedTicket   *model.Ticket            `json:"createdTicket,omitempty"`
	StripeClientID  string                   `json:"stripeClientId,omitempty"`
	Summary         *model.TicketSummary     `json:"summary,omitempty"`
	ConfirmedTicket *model.Ticket            `json:"confirmedTicket,omitempty"`
	TicketDetails   *model.TicketSummary     `json:"ticketDetails,omitempty"`
	CancelledTicket *model.CancelSummary     `json:"cancelledTicket,omitempty"`
	VerifiedTicket  *model.Ticket            `json:"verifiedTicket,omitempty"`
	Ticket          *model.Ticket            `json:"ticket,omitempty"`
	Limit           *model.LimitResult       `json:"limit,omitempty"`
	Wallet          *booking.WalletStatement `json:"wallet,omitempty"`
}

func (r SuccessResponse) Send(w http.ResponseWriter) {
	w.WriteHeader(r.StatusCode)
	json.NewEncoder(w).Encode(r)
}
