package booking

import (
	"errors"
	"fmt"
)

// Kind classifies an orchestrator failure. The handler layer maps each kind
// to an HTTP status.
type Kind string

const (
	KindValidation            Kind = "ValidationError"
	KindNotFound              Kind = "NotFoundError"
	KindState                 Kind = "StateError"
	KindCapacity              Kind = "CapacityError"
	KindSoldOut               Kind = "SoldOutError"
	KindInsufficientInventory Kind = "InsufficientInventoryError"
	KindLimit                 Kind = "LimitError"
	KindPriceMismatch         Kind = "PriceMismatchError"
	KindCountMismatch         Kind = "CountMismatchError"
	KindPaymentNotCompleted   Kind = "PaymentNotCompletedError"
	KindGatewayTimeout        Kind = "GatewayTimeoutError"
	KindGateway               Kind = "GatewayError"
	KindAlreadyUsed           Kind = "AlreadyUsedError"
	KindForbidden             Kind = "ForbiddenError"
	KindConflict              Kind = "ConflictError"
	KindSettlement            Kind = "SettlementError"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrState                 = &Error{Kind: KindState}
	ErrCapacity              = &Error{Kind: KindCapacity}
	ErrSoldOut               = &Error{Kind: KindSoldOut}
	ErrInsufficientInventory = &Error{Kind: KindInsufficientInventory}
	ErrLimit                 = &Error{Kind: KindLimit}
	ErrPriceMismatch         = &Error{Kind: KindPriceMismatch}
	ErrCountMismatch         = &Error{Kind: KindCountMismatch}
	ErrPaymentNotCompleted   = &Error{Kind: KindPaymentNotCompleted}
	ErrGatewayTimeout        = &Error{Kind: KindGatewayTimeout}
	ErrGateway               = &Error{Kind: KindGateway}
	ErrAlreadyUsed           = &Error{Kind: KindAlreadyUsed}
	ErrForbidden             = &Error{Kind: KindForbidden}
	ErrConflict              = &Error{Kind: KindConflict}
	ErrSettlement            = &Error{Kind: KindSettlement}
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrLimit) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" for errors that did not come from the orchestrator.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
