package response

import (
	"context"
	"encoding/json"
	"errors"
	"eventers-ticketing-backend/booking"
	"eventers-ticketing-backend/logger"
	"fmt"
	"net/http"
)

type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Err        string `json:"error"`
	// Description is logged but never sent to the client.
	Description string `json:"-"`
}

func (r ErrorResponse) Error() string {
	return fmt.Sprintf("StatusCode: %d, Message: %s, Error: %s, Description: %s", r.StatusCode, r.Message, r.Err, r.Description)
}

func (r ErrorResponse) Send(ctx context.Context, w http.ResponseWriter) {
	if r.StatusCode >= http.StatusInternalServerError {
		logger.Errorf(ctx, r.Error())
	} else {
		logger.Infof(ctx, r.Error())
	}
	w.WriteHeader(r.StatusCode)
	json.NewEncoder(w).Encode(r)
}

func BadRequest(message, description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusBadRequest,
		Message:     message,
		Err:         string(booking.KindValidation),
		Description: description,
	}
}

func ResourceNotFound(message, description string) ErrorResponse {
	return ErrorResponse{
		StatusCode:  http.StatusNotFound,
		Message:     message,
		Err:         string(booking.KindNotFound),
		Description: description,
	}
}

func Unauthorized() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusUnauthorized,
		Message:    "No valid Auth Token",
		Err:        "UnauthorizedError",
	}
}

func Forbidden(message string) ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusForbidden,
		Message:    message,
		Err:        string(booking.KindForbidden),
	}
}

func SomethingWrong() ErrorResponse {
	return ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    "Sorry, Something went wrong",
		Err:        "InternalError",
	}
}

var statusByKind = map[booking.Kind]int{
	booking.KindValidation:            http.StatusBadRequest,
	booking.KindState:                 http.StatusBadRequest,
	booking.KindCapacity:              http.StatusBadRequest,
	booking.KindSoldOut:               http.StatusBadRequest,
	booking.KindInsufficientInventory: http.StatusBadRequest,
	booking.KindLimit:                 http.StatusBadRequest,
	booking.KindPriceMismatch:         http.StatusBadRequest,
	booking.KindCountMismatch:         http.StatusBadRequest,
	booking.KindPaymentNotCompleted:   http.StatusBadRequest,
	booking.KindNotFound:              http.StatusNotFound,
	booking.KindForbidden:             http.StatusForbidden,
	booking.KindAlreadyUsed:           http.StatusConflict,
	booking.KindConflict:              http.StatusConflict,
	booking.KindGateway:               http.StatusBadGateway,
	booking.KindGatewayTimeout:        http.StatusGatewayTimeout,
	booking.KindSettlement:            http.StatusInternalServerError,
}

// FromError converts an orchestrator error into its HTTP response. Errors
// without a kind become a generic 500 so internals are not leaked.
func FromError(err error) ErrorResponse {
	kind := booking.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		r := SomethingWrong()
		r.Description = fmt.Sprintf("%+v", err)
		return r
	}

	msg := err.Error()
	var e *booking.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	return ErrorResponse{
		StatusCode:  status,
		Message:     msg,
		Err:         string(kind),
		Description: fmt.Sprintf("%+v", err),
	}
}
