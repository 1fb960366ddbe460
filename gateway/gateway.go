// Package gateway talks to the card processor. Intents are created with an
// idempotency key and confirmation only reads the intent back, so both calls
// are safe to retry.
package gateway

import (
	"context"
	"errors"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/metrics"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

const (
	StatusSucceeded = string(stripe.PaymentIntentStatusSucceeded)
	StatusCanceled  = string(stripe.PaymentIntentStatusCanceled)

	// DefaultTimeout applies when no positive timeout is configured.
	DefaultTimeout = 10 * time.Second
)

var ErrTimeout = errors.New("payment gateway timed out")

type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, purpose string, metadata map[string]string, idempotencyKey string) (*Intent, error)
	ConfirmPayment(ctx context.Context, intentID string) (*Intent, error)
	CancelPayment(ctx context.Context, intentID string) (*Intent, error)
}

type stripeGateway struct {
	intents  *paymentintent.Client
	currency string
	timeout  time.Duration
}

// NewStripe returns a Gateway backed by the Stripe payment intents API. An
// empty baseURL uses Stripe's own endpoint.
func NewStripe(baseURL, secretKey, currency string, timeout time.Duration) Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.WithFields(context.Background(), logrus.Fields{"component": "gateway"}),
	}
	if baseURL != "" {
		cfg.URL = stripe.String(strings.TrimRight(baseURL, "/"))
	}

	return &stripeGateway{
		intents:  &paymentintent.Client{B: stripe.GetBackendWithConfig(stripe.APIBackend, cfg), Key: secretKey},
		currency: currency,
		timeout:  timeout,
	}
}

func (s *stripeGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, purpose string, metadata map[string]string, idempotencyKey string) (intent *Intent, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("create_intent", start, err) }(time.Now())

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(MinorUnits(amount)),
		Currency:    stripe.String(s.currency),
		Description: stripe.String(purpose),
	}
	params.Context = ctx
	params.AddMetadata("purpose", purpose)
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := s.intents.New(params)
	if err != nil {
		return nil, wrap("createPaymentIntent", err)
	}
	return fromStripe(pi), nil
}

func (s *stripeGateway) ConfirmPayment(ctx context.Context, intentID string) (intent *Intent, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("confirm", start, err) }(time.Now())

	if intentID == "" {
		return nil, fmt.Errorf("confirmPayment: empty intent id")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.intents.Get(intentID, params)
	if err != nil {
		return nil, wrap("confirmPayment", err)
	}
	return fromStripe(pi), nil
}

// CancelPayment voids an intent that has not been paid. The processor rejects
// it once the intent succeeded.
func (s *stripeGateway) CancelPayment(ctx context.Context, intentID string) (intent *Intent, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("cancel", start, err) }(time.Now())

	if intentID == "" {
		return nil, fmt.Errorf("cancelPayment: empty intent id")
	}

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	pi, err := s.intents.Cancel(intentID, params)
	if err != nil {
		return nil, wrap("cancelPayment", err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func wrap(op string, err error) error {
	if isTimeout(err) {
		return ErrTimeout
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return fmt.Errorf("%s: gateway returned status %d: %s: %s", op, se.HTTPStatusCode, se.Type, se.Msg)
	}
	return fmt.Errorf("%s: error calling gateway: %w", op, err)
}

// MinorUnits converts amount to the smallest currency unit, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
