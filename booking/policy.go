package booking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// VendorDebitBasis selects which amount is taken back from the vendor when a
// paid ticket is cancelled.
type VendorDebitBasis string

const (
	// DebitClientRefund takes the client's refund from the vendor.
	DebitClientRefund VendorDebitBasis = "client_refund"
	// DebitVendorShare takes only the vendor's share of the refund.
	DebitVendorShare VendorDebitBasis = "vendor_share"
)

// Policy holds the money rules applied at settlement and cancellation.
type Policy struct {
	CommissionRate     decimal.Decimal
	VendorShareRate    decimal.Decimal
	RefundPlatformRate decimal.Decimal
	VendorDebit        VendorDebitBasis
	ReleaseOnCancel    bool
	AmountTolerance    decimal.Decimal
}

// DefaultPolicy reproduces the marketplace's historical arithmetic: 1%
// commission, 29% vendor share on refunds with 1% kept by the platform, the
// vendor debited by the client's refund, and no seats released on cancel.
func DefaultPolicy() Policy {
	return Policy{
		CommissionRate:     decimal.RequireFromString("0.01"),
		VendorShareRate:    decimal.RequireFromString("0.29"),
		RefundPlatformRate: decimal.RequireFromString("0.01"),
		VendorDebit:        DebitClientRefund,
		ReleaseOnCancel:    false,
		AmountTolerance:    decimal.RequireFromString("0.01"),
	}
}

func (p Policy) Validate() error {
	one := decimal.NewFromInt(1)
	for name, rate := range map[string]decimal.Decimal{
		"commission_rate":      p.CommissionRate,
		"vendor_share_rate":    p.VendorShareRate,
		"refund_platform_rate": p.RefundPlatformRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(one) {
			return fmt.Errorf("validate: %s must be within [0, 1], got %s", name, rate)
		}
	}
	if p.VendorShareRate.Add(p.RefundPlatformRate).GreaterThan(one) {
		return fmt.Errorf("validate: vendor share and platform refund rates exceed 100%%")
	}
	switch p.VendorDebit {
	case DebitClientRefund, DebitVendorShare:
	default:
		return fmt.Errorf("validate: unknown vendor debit basis %q", p.VendorDebit)
	}
	if p.AmountTolerance.IsNegative() {
		return fmt.Errorf("validate: amount tolerance must not be negative")
	}
	return nil
}

// Split divides a captured payment between the platform and the vendor.
// The two parts always add up to total.
func (p Policy) Split(total decimal.Decimal) (commission, vendor decimal.Decimal) {
	commission = total.Mul(p.CommissionRate).Round(2)
	return commission, total.Sub(commission)
}

type RefundSplit struct {
	VendorShare  decimal.Decimal
	PlatformFee  decimal.Decimal
	ClientRefund decimal.Decimal
	VendorDebit  decimal.Decimal
}

// Refund computes the cancellation arithmetic for a paid ticket.
func (p Policy) Refund(total decimal.Decimal) RefundSplit {
	s := RefundSplit{
		VendorShare: total.Mul(p.VendorShareRate).Round(2),
		PlatformFee: total.Mul(p.RefundPlatformRate).Round(2),
	}
	s.ClientRefund = total.Sub(s.VendorShare.Add(s.PlatformFee))

	switch p.VendorDebit {
	case DebitVendorShare:
		s.VendorDebit = s.VendorShare
	default:
		s.VendorDebit = s.ClientRefund
	}
	return s
}
