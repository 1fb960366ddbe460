package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserModel string

const (
	UserClient UserModel = "client"
	UserVendor UserModel = "vendor"
	UserAdmin  UserModel = "admin"
)

func (u UserModel) Valid() bool {
	switch u {
	case UserClient, UserVendor, UserAdmin:
		return true
	}
	return false
}

type Wallet struct {
	WalletID  string          `json:"walletId"`
	UserID    string          `json:"userId"`
	UserModel UserModel       `json:"userModel"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type TransactionStatus string

const (
	Credit TransactionStatus = "credit"
	Debit  TransactionStatus = "debit"
)

type PaymentType string

const (
	TicketBooking   PaymentType = "ticketBooking"
	ServiceBooking  PaymentType = "serviceBooking"
	AdminCommission PaymentType = "adminCommission"
	Refund          PaymentType = "refund"
)

// Transaction is an append-only wallet ledger entry.
type Transaction struct {
	TransactionID string            `json:"transactionId"`
	WalletID      string            `json:"walletId"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	PaymentStatus TransactionStatus `json:"paymentStatus"`
	PaymentType   PaymentType       `json:"paymentType"`
	Reference     string            `json:"reference"`
	CreatedAt     time.Time         `json:"createdAt"`
}
