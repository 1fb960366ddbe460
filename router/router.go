package router

import (
	"context"
	"eventers-ticketing-backend/booking"
	"eventers-ticketing-backend/config"
	"eventers-ticketing-backend/credential"
	"eventers-ticketing-backend/factory"
	"eventers-ticketing-backend/gateway"
	"eventers-ticketing-backend/handler"
	"eventers-ticketing-backend/healthcheck"
	"eventers-ticketing-backend/inventory"
	"eventers-ticketing-backend/ledger"
	"eventers-ticketing-backend/lock"
	"eventers-ticketing-backend/logger"
	"eventers-ticketing-backend/middleware"
	"eventers-ticketing-backend/response"
	"eventers-ticketing-backend/ticket"
	"eventers-ticketing-backend/vault"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Router wires the stores from configuration and returns the router for all
// the API handlers.
func Router(ctx context.Context) *mux.Router {
	f := factory.NewFactory()
	db := f.DB(ctx)
	rdb := f.Redis(ctx)

	policy, err := Policy()
	if err != nil {
		logger.Fatalf(ctx, "router: invalid refund policy: %+v", err)
	}

	currency := viper.GetString(config.GatewayCurrency)
	gw := gateway.NewStripe(
		viper.GetString(config.GatewayURL),
		gatewaySecret(ctx),
		currency,
		viper.GetDuration(config.GatewayTimeout),
	)

	inv := inventory.NewInventory(db)
	tickets := ticket.NewStore(db)
	service := booking.New(
		inv,
		tickets,
		ledger.NewLedger(db, currency),
		gw,
		credential.NewIssuer(viper.GetString(config.VerifyURL)),
		inventory.NewLimitChecker(inv, tickets),
		lock.NewLocker(rdb, viper.GetDuration(config.ConfirmLockTTL)),
		booking.Config{
			PlatformUserID: viper.GetString(config.PlatformUserID),
			Policy:         policy,
		},
	)

	auth := middleware.NewAuthenticator(
		viper.GetString(config.Secret),
		time.Duration(viper.GetInt(config.JWTOfflineInterval))*time.Second,
	)
	return New(service, auth, healthcheck.Dependencies(db, rdb))
}

// New returns the router serving service behind auth.
func New(service handler.Booking, auth *middleware.Authenticator, deps http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.SetCorrelationIDHeader)
	r.Use(middleware.PanicHandler)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		response.ResourceNotFound(fmt.Sprintf("The requested resource was not found: path: %s, method: %s", req.URL.Path, req.Method), "The requested resource was not found!").Send(req.Context(), w)
	})

	r.Use(middleware.ResponseTimeLogging)
	r.Use(middleware.RequestLogging)

	r.HandleFunc("/healthcheck", healthcheck.Self).Methods(http.MethodGet)
	if deps != nil {
		r.HandleFunc("/healthcheck/deps", deps).Methods(http.MethodGet)
	}
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	baseRouter := r.PathPrefix("/v1").Subrouter()
	baseRouter.Use(middleware.SetContentTypeHeader)
	baseRouter.Use(auth.Authenticate)

	ticketRouter := baseRouter.PathPrefix("/tickets").Subrouter()
	ticketRouter.HandleFunc("", handler.CreateTicket(service)).Methods(http.MethodPost)
	ticketRouter.HandleFunc("/confirm", handler.ConfirmTicket(service)).Methods(http.MethodPost)
	ticketRouter.HandleFunc("/cancel", handler.CancelTicket(service)).Methods(http.MethodPatch)
	ticketRouter.HandleFunc("/limit", handler.CheckLimit(service)).Methods(http.MethodGet)
	ticketRouter.HandleFunc("/{ticketId}", handler.GetTicket(service)).Methods(http.MethodGet)
	ticketRouter.Handle("/verify",
		middleware.RequireRole(middleware.RoleVendor, middleware.RoleAdmin)(handler.VerifyTicket(service))).Methods(http.MethodPost)

	baseRouter.HandleFunc("/wallets/{userModel}/{userId}", handler.GetWallet(service)).Methods(http.MethodGet)

	return r
}

// Policy reads the settlement and refund rules from configuration.
func Policy() (booking.Policy, error) {
	p := booking.Policy{
		VendorDebit:     booking.VendorDebitBasis(viper.GetString(config.VendorDebit)),
		ReleaseOnCancel: viper.GetBool(config.ReleaseOnCancel),
	}

	var err error
	for key, dst := range map[string]*decimal.Decimal{
		config.CommissionRate:     &p.CommissionRate,
		config.VendorShareRate:    &p.VendorShareRate,
		config.RefundPlatformRate: &p.RefundPlatformRate,
		config.AmountTolerance:    &p.AmountTolerance,
	} {
		if *dst, err = decimal.NewFromString(viper.GetString(key)); err != nil {
			return p, fmt.Errorf("policy: %s: %w", key, err)
		}
	}
	return p, p.Validate()
}

// gatewaySecret prefers the key stored in vault when a secret path is configured.
func gatewaySecret(ctx context.Context) string {
	path := viper.GetString(config.GatewaySecretPath)
	if path == "" {
		return viper.GetString(config.GatewaySecretKey)
	}

	v, err := vault.New(viper.GetString(config.VaultToken), viper.GetString(config.VaultAddress))
	if err != nil {
		logger.Fatalf(ctx, "router: Error creating vault client: %+v", err)
	}
	key, err := v.Secret(path, "secret_key")
	if err != nil {
		logger.Fatalf(ctx, "router: Error reading gateway secret: %+v", err)
	}
	return key
}
