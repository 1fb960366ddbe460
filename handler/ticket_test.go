package handler

import (
	"context"
	"encoding/json"
	"eventers-ticketing-backend/booking"
	c "eventers-ticketing-backend/context"
	"eventers-ticketing-backend/model"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBooking struct {
	ticket *model.Ticket
	err    error

	gotCreate  *model.CreateTicketRequest
	gotConfirm []string
	gotVerify  []string
	gotLimit   []interface{}
}

func (f *fakeBooking) CheckLimit(ctx context.Context, clientID, eventID, variant string, qty int) (*model.LimitResult, error) {
	f.gotLimit = []interface{}{clientID, eventID, variant, qty}
	if f.err != nil {
		return nil, f.err
	}
	return &model.LimitResult{CanBook: true, RemainingLimit: 2, MaxPerUser: 2}, nil
}

func (f *fakeBooking) CreateTicket(ctx context.Context, req *model.CreateTicketRequest) (*model.Ticket, string, error) {
	f.gotCreate = req
	if f.err != nil {
		return nil, "", f.err
	}
	return f.ticket, "pi_1_secret", nil
}

func (f *fakeBooking) ConfirmTicketAndPayment(ctx context.Context, ticketID, intentID, vendorID string) (*model.Ticket, error) {
	f.gotConfirm = []string{ticketID, intentID, vendorID}
	if f.err != nil {
		return nil, f.err
	}
	return f.ticket, nil
}

func (f *fakeBooking) TicketCancel(ctx context.Context, ticketID string) (*model.CancelSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.CancelSummary{TicketID: ticketID, TicketStatus: model.TicketRefunded, ClientRefund: decimal.NewFromInt(140)}, nil
}

func (f *fakeBooking) VerifyTicket(ctx context.Context, qrID, eventID, vendorID string) (*model.Ticket, error) {
	f.gotVerify = []string{qrID, eventID, vendorID}
	if f.err != nil {
		return nil, f.err
	}
	return f.ticket, nil
}

func (f *fakeBooking) Ticket(ctx context.Context, ticketID string) (*model.Ticket, error) {
	if f.ticket == nil || f.ticket.TicketID != ticketID {
		return nil, &booking.Error{Kind: booking.KindNotFound, Message: "ticket " + ticketID + " not found"}
	}
	return f.ticket, nil
}

func (f *fakeBooking) Wallet(ctx context.Context, userModel, userID string) (*booking.WalletStatement, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &booking.WalletStatement{Wallet: &model.Wallet{UserID: userID, UserModel: model.UserModel(userModel), Balance: decimal.NewFromInt(198)}}, nil
}

func sampleTicket() *model.Ticket {
	return &model.Ticket{
		TicketID:    "T1",
		ClientID:    "C",
		EventID:     "E",
		VendorID:    "V1",
		TicketCount: 2,
		TotalAmount: decimal.NewFromInt(200),
		TicketVariants: []model.TicketVariant{
			{Variant: model.Standard, Count: 2, PricePerTicket: decimal.NewFromInt(100), Subtotal: decimal.NewFromInt(200)},
		},
	}
}

func serve(t *testing.T, svc Booking, callerID, role, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(c.WithCaller(req.Context(), callerID, role)))
		})
	})
	r.HandleFunc("/v1/tickets", CreateTicket(svc)).Methods(http.MethodPost)
	r.HandleFunc("/v1/tickets/confirm", ConfirmTicket(svc)).Methods(http.MethodPost)
	r.HandleFunc("/v1/tickets/cancel", CancelTicket(svc)).Methods(http.MethodPatch)
	r.HandleFunc("/v1/tickets/verify", VerifyTicket(svc)).Methods(http.MethodPost)
	r.HandleFunc("/v1/tickets/limit", CheckLimit(svc)).Methods(http.MethodGet)
	r.HandleFunc("/v1/tickets/{ticketId}", GetTicket(svc)).Methods(http.MethodGet)
	r.HandleFunc("/v1/wallets/{userModel}/{userId}", GetWallet(svc)).Methods(http.MethodGet)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestCreateTicket(t *testing.T) {
	svc := &fakeBooking{ticket: sampleTicket()}
	body := `{"ticket":{"eventId":"E","ticketVariants":{"standard":2}},"totalCount":2,"totalAmount":200}`

	w := serve(t, svc, "C", "client", http.MethodPost, "/v1/tickets", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "C", svc.gotCreate.Ticket.ClientID)
	assert.True(t, svc.gotCreate.TotalAmount.Equal(decimal.NewFromInt(200)))

	res := decode(t, w)
	assert.Equal(t, "pi_1_secret", res["stripeClientId"])
	assert.Equal(t, "T1", res["createdTicket"].(map[string]interface{})["ticketId"])
	assert.EqualValues(t, 2, res["summary"].(map[string]interface{})["ticketCount"])
}

func TestCreateTicketForSomeoneElse(t *testing.T) {
	svc := &fakeBooking{ticket: sampleTicket()}
	w := serve(t, svc, "C", "client", http.MethodPost, "/v1/tickets", `{"ticket":{"clientId":"D","eventId":"E"}}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, svc.gotCreate)
}

func TestCreateTicketErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		kind   string
	}{
		{"malformed body", `{"ticket":`, nil, http.StatusBadRequest, "ValidationError"},
		{"capacity", `{}`, &booking.Error{Kind: booking.KindCapacity, Message: "sold out"}, http.StatusBadRequest, "CapacityError"},
		{"gateway timeout", `{}`, &booking.Error{Kind: booking.KindGatewayTimeout, Message: "timed out"}, http.StatusGatewayTimeout, "GatewayTimeoutError"},
		{"not found", `{}`, &booking.Error{Kind: booking.KindNotFound, Message: "event E not found"}, http.StatusNotFound, "NotFoundError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, &fakeBooking{err: tt.err}, "C", "client", http.MethodPost, "/v1/tickets", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.kind, decode(t, w)["error"])
		})
	}
}

func TestConfirmTicket(t *testing.T) {
	svc := &fakeBooking{ticket: sampleTicket()}
	body := `{"ticket":{"ticketId":"T1"},"paymentIntent":{"id":"pi_1","status":"succeeded"},"vendorId":"V1"}`

	w := serve(t, svc, "C", "client", http.MethodPost, "/v1/tickets/confirm", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"T1", "pi_1", "V1"}, svc.gotConfirm)

	res := decode(t, w)
	assert.Contains(t, res, "confirmedTicket")
	assert.Contains(t, res, "ticketDetails")
}

func TestConfirmTicketRequiresOwnership(t *testing.T) {
	svc := &fakeBooking{ticket: sampleTicket()}
	w := serve(t, svc, "D", "client", http.MethodPost, "/v1/tickets/confirm", `{"ticket":{"ticketId":"T1"},"paymentIntent":"pi_1"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, svc.gotConfirm)

	w = serve(t, svc, "C", "client", http.MethodPost, "/v1/tickets/confirm", `{"paymentIntent":"pi_1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelTicket(t *testing.T) {
	svc := &fakeBooking{ticket: sampleTicket()}
	w := serve(t, svc, "C", "client", http.MethodPatch, "/v1/tickets/cancel", `{"ticketId":"T1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	cancelled := decode(t, w)["cancelledTicket"].(map[string]interface{})
	assert.Equal(t, "refunded", cancelled["ticketStatus"])
	assert.Equal(t, "140", cancelled["clientRefund"])

	w = serve(t, svc, "C", "client", http.MethodPatch, "/v1/tickets/cancel", `{"ticketId":"T9"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyTicketUsesAuthenticatedVendor(t *testing.T) {
	svc := &fakeBooking{ticket: sampleTicket()}
	w := serve(t, svc, "V1", "vendor", http.MethodPost, "/v1/tickets/verify", `{"ticketId":"qr-1","eventId":"E"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"qr-1", "E", "V1"}, svc.gotVerify)
	assert.Contains(t, decode(t, w), "verifiedTicket")

	serve(t, svc, "A", "admin", http.MethodPost, "/v1/tickets/verify", `{"ticketId":"qr-1","eventId":"E"}`)
	assert.Equal(t, []string{"qr-1", "E", ""}, svc.gotVerify)

	svc.err = &booking.Error{Kind: booking.KindAlreadyUsed, Message: "ticket qr-1 has already been used"}
	w = serve(t, svc, "V1", "vendor", http.MethodPost, "/v1/tickets/verify", `{"ticketId":"qr-1","eventId":"E"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckLimit(t *testing.T) {
	svc := &fakeBooking{}
	w := serve(t, svc, "C", "client", http.MethodGet, "/v1/tickets/limit?eventId=E&variant=vip&quantity=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"C", "E", "vip", 2}, svc.gotLimit)
	assert.Equal(t, true, decode(t, w)["limit"].(map[string]interface{})["canBook"])

	w = serve(t, svc, "C", "client", http.MethodGet, "/v1/tickets/limit?eventId=E&variant=vip&quantity=two", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTicket(t *testing.T) {
	svc := &fakeBooking{ticket: sampleTicket()}
	assert.Equal(t, http.StatusOK, serve(t, svc, "C", "client", http.MethodGet, "/v1/tickets/T1", "").Code)
	assert.Equal(t, http.StatusOK, serve(t, svc, "V1", "vendor", http.MethodGet, "/v1/tickets/T1", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(t, svc, "V2", "vendor", http.MethodGet, "/v1/tickets/T1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, svc, "C", "client", http.MethodGet, "/v1/tickets/T2", "").Code)
}

func TestGetWallet(t *testing.T) {
	svc := &fakeBooking{}
	w := serve(t, svc, "V1", "vendor", http.MethodGet, "/v1/wallets/vendor/V1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "198", decode(t, w)["wallet"].(map[string]interface{})["wallet"].(map[string]interface{})["balance"])

	assert.Equal(t, http.StatusForbidden, serve(t, svc, "V2", "vendor", http.MethodGet, "/v1/wallets/vendor/V1", "").Code)
	assert.Equal(t, http.StatusOK, serve(t, svc, "A", "admin", http.MethodGet, "/v1/wallets/vendor/V1", "").Code)
}
